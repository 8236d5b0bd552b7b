package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultVaultAddress is the escrow account used when the operator does not
// configure one. Funds and assets in custody are booked against this address.
const DefaultVaultAddress = "0x00000000000000000000000000000000000e5c40"

type Config struct {
	ListenAddress         string  `toml:"ListenAddress"`
	DataDir               string  `toml:"DataDir"`
	Env                   string  `toml:"Env"`
	OwnerAddress          string  `toml:"OwnerAddress"`
	VaultAddress          string  `toml:"VaultAddress"`
	BiddingPeriodSeconds  int64   `toml:"BiddingPeriodSeconds"`
	GracePeriodSeconds    int64   `toml:"GracePeriodSeconds"`
	RPCRateLimitPerSecond float64 `toml:"RPCRateLimitPerSecond"`
	RPCRateLimitBurst     int     `toml:"RPCRateLimitBurst"`
	LogFile               string  `toml:"LogFile"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists. Missing optional fields are filled with defaults; the
// result is not validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./market-data"
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.VaultAddress) == "" {
		cfg.VaultAddress = DefaultVaultAddress
	}
	if cfg.BiddingPeriodSeconds == 0 {
		cfg.BiddingPeriodSeconds = 7 * 24 * 60 * 60
	}
	if cfg.GracePeriodSeconds == 0 {
		cfg.GracePeriodSeconds = 7 * 24 * 60 * 60
	}
	if cfg.RPCRateLimitPerSecond == 0 {
		cfg.RPCRateLimitPerSecond = 50
	}
	if cfg.RPCRateLimitBurst == 0 {
		cfg.RPCRateLimitBurst = 100
	}
}

// createDefault creates and saves a default configuration file. OwnerAddress
// is intentionally left empty; Validate rejects the config until the operator
// fills it in.
func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
