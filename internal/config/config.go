package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the marketdesk platform.
type Config struct {
	Storage   Storage   `yaml:"storage"`
	Server    Server    `yaml:"server"`
	Upstream  Upstream  `yaml:"upstream"`
	Watchlist Watchlist `yaml:"watchlist"`
	News      News      `yaml:"news"`
	Options   Options   `yaml:"options"`
	Logging   Logging   `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Upstream holds the market-data feed endpoint and polling behaviour.
type Upstream struct {
	BaseURL         string `yaml:"base_url"`
	PollIntervalSec int    `yaml:"poll_interval_sec"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxRetries      int    `yaml:"max_retries"`
}

// Watchlist holds per-account watchlist policy.
type Watchlist struct {
	Limit int `yaml:"limit"`
}

// News configures the feed aggregator.
type News struct {
	RefreshIntervalSec int `yaml:"refresh_interval_sec"`
	PageSize           int `yaml:"page_size"`
	MaxArticles        int `yaml:"max_articles"`
}

// Options holds parameters for option analytics.
type Options struct {
	RiskFreeRate float64 `yaml:"risk_free_rate"` // annualized, e.g. 0.07
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
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
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("MARKETDESK_UPSTREAM_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("MARKETDESK_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("WATCHLIST_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Watchlist.Limit = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyDefaults fills zero-valued fields that must never be zero at runtime.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Watchlist.Limit == 0 {
		cfg.Watchlist.Limit = 50
	}
	if cfg.Upstream.PollIntervalSec == 0 {
		cfg.Upstream.PollIntervalSec = 5
	}
	if cfg.Upstream.RateLimitPerMin == 0 {
		cfg.Upstream.RateLimitPerMin = 120
	}
	if cfg.Upstream.MaxRetries == 0 {
		cfg.Upstream.MaxRetries = 3
	}
	if cfg.News.PageSize == 0 {
		cfg.News.PageSize = 20
	}
	if cfg.News.RefreshIntervalSec == 0 {
		cfg.News.RefreshIntervalSec = 300
	}
	if cfg.News.MaxArticles == 0 {
		cfg.News.MaxArticles = 500
	}
	if cfg.Options.RiskFreeRate == 0 {
		cfg.Options.RiskFreeRate = 0.07
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
