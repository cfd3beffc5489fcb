package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the CLI configuration, read from CATALOG_* environment variables.
type Config struct {
	BaseURL     string        `mapstructure:"CATALOG_BASE_URL"`
	UserAgent   string        `mapstructure:"CATALOG_USER_AGENT"`
	PageSize    int           `mapstructure:"CATALOG_PAGE_SIZE"`
	CacheTTL    time.Duration `mapstructure:"CATALOG_CACHE_TTL"`
	Timeout     time.Duration `mapstructure:"CATALOG_TIMEOUT"`
	SortScope   string        `mapstructure:"CATALOG_SORT_SCOPE"`
	RedisURL    string        `mapstructure:"CATALOG_REDIS_URL"`
	MetricsAddr string        `mapstructure:"CATALOG_METRICS_ADDR"`
	LogLevel    string        `mapstructure:"CATALOG_LOG_LEVEL"`
	LogPretty   bool          `mapstructure:"CATALOG_LOG_PRETTY"`
	Query       string        `mapstructure:"CATALOG_QUERY"`
}

var defaults = map[string]any{
	"CATALOG_BASE_URL":     "http://localhost:5000/api",
	"CATALOG_USER_AGENT":   "catalog-browser/0.1.0",
	"CATALOG_PAGE_SIZE":    12,
	"CATALOG_CACHE_TTL":    "5s",
	"CATALOG_TIMEOUT":      "5s",
	"CATALOG_SORT_SCOPE":   "page",
	"CATALOG_REDIS_URL":    "",
	"CATALOG_METRICS_ADDR": "",
	"CATALOG_LOG_LEVEL":    "warn",
	"CATALOG_LOG_PRETTY":   true,
	"CATALOG_QUERY":        "",
}

// String prints the configuration for the "config" command.
func (c *Config) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "  BaseURL: %s\n", c.BaseURL)
	fmt.Fprintf(&sb, "  UserAgent: %s\n", c.UserAgent)
	fmt.Fprintf(&sb, "  PageSize: %d\n", c.PageSize)
	fmt.Fprintf(&sb, "  CacheTTL: %s\n", c.CacheTTL)
	fmt.Fprintf(&sb, "  Timeout: %s\n", c.Timeout)
	fmt.Fprintf(&sb, "  SortScope: %s\n", c.SortScope)
	if c.RedisURL != "" {
		fmt.Fprintf(&sb, "  Redis: %s\n", c.RedisURL)
	} else {
		sb.WriteString("  Redis: (disabled)\n")
	}
	if c.MetricsAddr != "" {
		fmt.Fprintf(&sb, "  Metrics: %s\n", c.MetricsAddr)
	} else {
		sb.WriteString("  Metrics: (disabled)\n")
	}
	return sb.String()
}

// LoadConfig reads the configuration from the environment. envFile, if it
// exists, is loaded first; variables already set in the environment win.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("CATALOG_BASE_URL is required")
	}
	if c.UserAgent == "" {
		return errors.New("CATALOG_USER_AGENT is required")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("CATALOG_PAGE_SIZE must be >= 1 (got %d)", c.PageSize)
	}
	return nil
}
