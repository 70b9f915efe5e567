package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the koscore platform.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Collect  CollectConfig  `yaml:"collect"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	ArchiveDir string `yaml:"archive_dir"` // Parquet price archive root
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials for the Alpaca market-data API, used to collect
// daily bars for US-listed watch-list entries.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CollectConfig controls the data collectors.
type CollectConfig struct {
	KRDaily CollectJobConfig `yaml:"kr_daily"`
	USDaily CollectJobConfig `yaml:"us_daily"`
	News    NewsConfig       `yaml:"news"`
}

// CollectJobConfig holds parameters for a single price collection job.
type CollectJobConfig struct {
	StartDate       string `yaml:"start_date"`
	BaseURL         string `yaml:"base_url"` // KR source endpoint; empty for default
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

// NewsConfig holds parameters for news collection.
type NewsConfig struct {
	Days            int `yaml:"days"`  // trailing window of interest
	Limit           int `yaml:"limit"` // max articles per stock
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// BacktestConfig holds default simulation parameters; requests may override
// them within the bounds the API enforces.
type BacktestConfig struct {
	InitialCapital int64   `yaml:"initial_capital"`
	BuyThreshold   float64 `yaml:"buy_threshold"`
	SellThreshold  float64 `yaml:"sell_threshold"`
	LookbackWindow int     `yaml:"lookback_window"`
	CommissionRate float64 `yaml:"commission_rate"`
	TaxRate        float64 `yaml:"tax_rate"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("ARCHIVE_DIR"); v != "" {
		cfg.Storage.ArchiveDir = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills zero-valued fields with the reference defaults so a
// minimal config file still yields a runnable system.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Backtest.InitialCapital == 0 {
		cfg.Backtest.InitialCapital = 10_000_000
	}
	if cfg.Backtest.BuyThreshold == 0 {
		cfg.Backtest.BuyThreshold = 20.0
	}
	if cfg.Backtest.SellThreshold == 0 {
		cfg.Backtest.SellThreshold = 12.0
	}
	if cfg.Backtest.LookbackWindow == 0 {
		cfg.Backtest.LookbackWindow = 200
	}
	if cfg.Backtest.CommissionRate == 0 {
		cfg.Backtest.CommissionRate = 0.00015
	}
	if cfg.Backtest.TaxRate == 0 {
		cfg.Backtest.TaxRate = 0.0023
	}
	if cfg.Collect.News.Days == 0 {
		cfg.Collect.News.Days = 30
	}
	if cfg.Collect.News.Limit == 0 {
		cfg.Collect.News.Limit = 10
	}
}
