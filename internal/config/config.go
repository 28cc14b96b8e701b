// Package config loads and validates the service configuration. All
// settings are injected explicitly at construction time; nothing in the
// rest of the codebase reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/listings-api/feed"
)

// Configuration validation errors.
var (
	ErrNoSources           = errors.New("at least one feed source is required")
	ErrNoEnabledSources    = errors.New("at least one feed source must be enabled")
	ErrSourceMissingURL    = errors.New("feed source url is required")
	ErrSourceMissingRegion = errors.New("feed source region is required")
	ErrMissingDatabaseDSN  = errors.New("database.dsn is required")
	ErrInvalidLogLevel     = errors.New("log_level must be one of: debug, info, warn, error")
	ErrInvalidSyncWorkers  = errors.New("sync.workers must be non-negative")
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Feed     FeedConfig     `yaml:"feed"`
	Sync     SyncConfig     `yaml:"sync"`
	LogLevel string         `yaml:"log_level"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Enabled reports whether a Redis cache is configured at all; the service
// degrades to direct database reads without one.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

type FeedConfig struct {
	Timeout time.Duration  `yaml:"timeout"`
	Sources []SourceConfig `yaml:"sources"`
}

type SourceConfig struct {
	Region  string `yaml:"region"`
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type SyncConfig struct {
	Interval time.Duration `yaml:"interval"`
	Workers  int           `yaml:"workers"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Load reads the yaml config at path, expanding ${VAR} references from the
// environment (a .env file is honored when present).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 4002
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = 15 * time.Second
	}
	if c.Sync.Workers == 0 {
		c.Sync.Workers = 2
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 6 * time.Hour
	}
	if c.Sync.CacheTTL == 0 {
		c.Sync.CacheTTL = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return ErrMissingDatabaseDSN
	}
	if len(c.Feed.Sources) == 0 {
		return ErrNoSources
	}
	enabled := 0
	for i, src := range c.Feed.Sources {
		if src.URL == "" {
			return fmt.Errorf("feed source %d: %w", i, ErrSourceMissingURL)
		}
		if src.Region == "" {
			return fmt.Errorf("feed source %d: %w", i, ErrSourceMissingRegion)
		}
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return ErrNoEnabledSources
	}
	if c.Sync.Workers < 0 {
		return ErrInvalidSyncWorkers
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// EnabledSources returns the sources a sync run should visit.
func (c *Config) EnabledSources() []feed.Source {
	out := make([]feed.Source, 0, len(c.Feed.Sources))
	for _, src := range c.Feed.Sources {
		if src.Enabled {
			out = append(out, feed.Source{Region: src.Region, URL: src.URL})
		}
	}
	return out
}
