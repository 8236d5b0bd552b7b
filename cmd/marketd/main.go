package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"nftmarket/config"
	"nftmarket/native/market"
	"nftmarket/native/registry"
	"nftmarket/native/rights"
	"nftmarket/observability/logging"
	"nftmarket/rpc"
	"nftmarket/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup("marketd", cfg.Env, logging.Options{File: cfg.LogFile})
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err, "path", *configFile)
		os.Exit(1)
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "error", err, "dir", cfg.DataDir)
		os.Exit(1)
	}
	store := storage.NewStore(db)
	defer store.Close()

	assets := registry.NewInMemory()
	engine := market.NewEngine(cfg.Owner(), cfg.Vault())
	engine.SetState(store)
	engine.SetRegistry(assets)
	engine.SetRights(rights.NewIssuer(func() int64 { return time.Now().Unix() }))
	if err := engine.SetBiddingPeriod(cfg.Owner(), cfg.BiddingPeriodSeconds); err != nil {
		logger.Error("failed to apply bidding period", "error", err)
		os.Exit(1)
	}
	if err := engine.SetGracePeriod(cfg.Owner(), cfg.GracePeriodSeconds); err != nil {
		logger.Error("failed to apply grace period", "error", err)
		os.Exit(1)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RPCRateLimitPerSecond), cfg.RPCRateLimitBurst)
	server := rpc.NewServer(engine, logger, limiter)
	server.EnableAdmin(cfg.Owner(), assets, store)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("marketd listening", "address", cfg.ListenAddress, "data_dir", cfg.DataDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
