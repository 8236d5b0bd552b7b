// Package rpc exposes the marketplace engine over a JSON HTTP API. The
// daemon is trusted local infrastructure: callers identify themselves by
// address in the request body and no signature checking happens here.
package rpc

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"nftmarket/native/market"
	"nftmarket/observability/metrics"
)

// Server routes marketplace requests to the engine.
type Server struct {
	engine  *market.Engine
	log     *slog.Logger
	metrics *metrics.MarketMetrics
	limiter *rate.Limiter

	adminOwner [20]byte
	minter     AssetMinter
	funder     AccountFunder
}

// NewServer wraps an already-wired engine. A nil logger falls back to the
// process default; a nil limiter disables rate limiting.
func NewServer(engine *market.Engine, log *slog.Logger, limiter *rate.Limiter) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:  engine,
		log:     log,
		metrics: metrics.Market(),
		limiter: limiter,
	}
}

// Router builds the HTTP handler for the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.observe)
	r.Use(s.throttle)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/market", func(mr chi.Router) {
		mr.Post("/sell", s.handleSell)
		mr.Post("/bids", s.handlePlaceBid)
		mr.Post("/bids/select", s.handleSelectBid)
		mr.Post("/bids/withdraw", s.handleWithdrawBid)
		mr.Post("/installments/pay", s.handlePayInstallment)
		mr.Post("/payments/withdraw", s.handleWithdrawPayment)
		mr.Post("/sells/withdraw", s.handleWithdrawSell)
		mr.Post("/liquidate", s.handleLiquidate)

		mr.Post("/admin/bidding-period", s.handleSetBiddingPeriod)
		mr.Post("/admin/grace-period", s.handleSetGracePeriod)
		mr.Post("/admin/assets/mint", s.handleMintAsset)
		mr.Post("/admin/faucet", s.handleFaucet)

		mr.Get("/accounts/{address}", s.handleGetAccount)

		mr.Get("/entries", s.handleListEntries)
		mr.Get("/entries/{id}", s.handleGetEntry)
		mr.Get("/entries/{id}/bids", s.handleEntryBids)
		mr.Get("/bids/{id}", s.handleGetBid)
		mr.Get("/bids/{id}/schedule", s.handleSchedule)
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		s.metrics.ObserveHTTP(route, strconv.Itoa(rec.status), elapsed)
		s.log.Info("http request",
			"method", r.Method,
			"route", route,
			"status", rec.status,
			"elapsed_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// publishGauges refreshes the live-count and escrow gauges after a successful
// state transition.
func (s *Server) publishGauges() {
	s.metrics.SetLiveCounts(s.engine.TotalEntries(), s.engine.TotalBids())
	if balance, err := s.engine.VaultBalance(); err == nil {
		s.metrics.SetEscrowBalance(balance)
	}
}
