package infra

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Loaded from YAML, then
// overridden by environment variables where present.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Feed struct {
		PriceIntervalMS  int `yaml:"price_interval_ms"`
		MarketIntervalMS int `yaml:"market_interval_ms"`
	} `yaml:"feed"`

	Settlement struct {
		DepositMinSec  int `yaml:"deposit_min_sec"`
		DepositMaxSec  int `yaml:"deposit_max_sec"`
		WithdrawMinSec int `yaml:"withdraw_min_sec"`
		WithdrawMaxSec int `yaml:"withdraw_max_sec"`
		TradeMinSec    int `yaml:"trade_min_sec"`
		TradeMaxSec    int `yaml:"trade_max_sec"`
	} `yaml:"settlement"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		DBPath string `yaml:"db_path"` // empty: per-user config dir
		WALDir string `yaml:"wal_dir"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file. A .env file in the
// working directory is honored before environment overrides apply.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Feed.PriceIntervalMS <= 0 {
		return fmt.Errorf("price interval must be positive")
	}
	if c.Feed.MarketIntervalMS <= 0 {
		return fmt.Errorf("market interval must be positive")
	}

	s := c.Settlement
	windows := []struct {
		name     string
		min, max int
	}{
		{"deposit", s.DepositMinSec, s.DepositMaxSec},
		{"withdraw", s.WithdrawMinSec, s.WithdrawMaxSec},
		{"trade", s.TradeMinSec, s.TradeMaxSec},
	}
	for _, w := range windows {
		if w.min <= 0 || w.max < w.min {
			return fmt.Errorf("invalid %s settlement window: [%d, %d]", w.name, w.min, w.max)
		}
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server address is required")
	}
	return nil
}

// PriceInterval returns the feed tick interval.
func (c *Config) PriceInterval() time.Duration {
	return time.Duration(c.Feed.PriceIntervalMS) * time.Millisecond
}

// MarketInterval returns the aggregation tick interval.
func (c *Config) MarketInterval() time.Duration {
	return time.Duration(c.Feed.MarketIntervalMS) * time.Millisecond
}

// overrideWithEnv applies environment variable overrides where set.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("CRYPTODESK_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if path := os.Getenv("CRYPTODESK_DB_PATH"); path != "" {
		cfg.Storage.DBPath = path
	}
	if dir := os.Getenv("CRYPTODESK_WAL_DIR"); dir != "" {
		cfg.Storage.WALDir = dir
	}
	if level := os.Getenv("CRYPTODESK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
