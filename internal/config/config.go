// Package config loads and validates fetcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Search  SearchConfig  `mapstructure:"search"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Server  ServerConfig  `mapstructure:"server"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FetchConfig governs the download pipeline.
type FetchConfig struct {
	OutputDir           string `mapstructure:"output_dir"`
	Limit               int    `mapstructure:"limit"`
	Workers             int    `mapstructure:"workers"`
	WritePermits        int    `mapstructure:"write_permits"`
	HighWater           int    `mapstructure:"high_water"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
	MaxImageBytes       int64  `mapstructure:"max_image_bytes"`
	PageIntervalMs      int    `mapstructure:"page_interval_ms"`
	KeywordDelaySeconds int    `mapstructure:"keyword_delay_seconds"`
}

// SearchConfig governs the paginated search backend.
type SearchConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	PageSize       int    `mapstructure:"page_size"`
	UserAgent      string `mapstructure:"user_agent"`
	Filters        string `mapstructure:"filters"`
	AdultFilterOff bool   `mapstructure:"adult_filter_off"`
}

// LedgerConfig selects and configures the history ledger store.
type LedgerConfig struct {
	Backend  string `mapstructure:"backend"`
	FileName string `mapstructure:"file_name"`
	DSN      string `mapstructure:"dsn"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// PubSubConfig holds metadata for keyword-completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Ledger backends supported by the fetcher.
const (
	LedgerBackendFile     = "file"
	LedgerBackendPostgres = "postgres"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IMAGEFETCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("fetch.output_dir", "static/Images")
	v.SetDefault("fetch.limit", 5)
	v.SetDefault("fetch.workers", 20)
	v.SetDefault("fetch.write_permits", 1)
	v.SetDefault("fetch.high_water", 10)
	v.SetDefault("fetch.timeout_seconds", 2)
	v.SetDefault("fetch.max_image_bytes", 20*1024*1024)
	v.SetDefault("fetch.page_interval_ms", 100)
	v.SetDefault("fetch.keyword_delay_seconds", 10)

	v.SetDefault("search.base_url", "https://www.bing.com/images/async")
	v.SetDefault("search.page_size", 35)
	v.SetDefault("search.user_agent",
		"Mozilla/5.0 (X11; Fedora; Linux x86_64; rv:94.0) Gecko/20100101 Firefox/94.0")

	v.SetDefault("ledger.backend", LedgerBackendFile)
	v.SetDefault("ledger.file_name", "download_history.json")

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)

	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be > 0")
	}
	if c.Fetch.WritePermits <= 0 {
		return fmt.Errorf("fetch.write_permits must be > 0")
	}
	if c.Fetch.Limit < 0 {
		return fmt.Errorf("fetch.limit must be >= 0")
	}
	if c.Fetch.HighWater <= 0 {
		return fmt.Errorf("fetch.high_water must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Search.PageSize <= 0 {
		return fmt.Errorf("search.page_size must be > 0")
	}
	if c.Search.BaseURL == "" {
		return fmt.Errorf("search.base_url is required")
	}
	switch c.Ledger.Backend {
	case LedgerBackendFile:
		if c.Ledger.FileName == "" {
			return fmt.Errorf("ledger.file_name is required for the file backend")
		}
	case LedgerBackendPostgres:
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown ledger.backend %q", c.Ledger.Backend)
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the server is enabled")
	}
	return nil
}

// HTTPTimeout converts the fetch timeout into a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// PageInterval is the minimum spacing between search page requests.
func (c Config) PageInterval() time.Duration {
	return time.Duration(c.Fetch.PageIntervalMs) * time.Millisecond
}

// KeywordDelay is the pause between keywords in batch mode.
func (c Config) KeywordDelay() time.Duration {
	return time.Duration(c.Fetch.KeywordDelaySeconds) * time.Second
}
