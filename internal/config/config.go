// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Runtime modes.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all application configuration.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	APIURL      string `env:"API_URL" envDefault:"http://localhost:8080/api"`
	Debug       bool   `env:"DEBUG"`
	Port        string `env:"PORT" envDefault:"8080"`
	FrontendURL string `env:"FRONTEND_URL"`

	LogMaxEntries int           `env:"LOG_MAX_ENTRIES" envDefault:"100"`
	MockLatency   time.Duration `env:"MOCK_LATENCY" envDefault:"0s"`
	// TokenPath is where the CLI keeps the bearer token. Empty means the user config dir.
	TokenPath string `env:"TOKEN_PATH"`

	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.AppEnv != EnvDevelopment && c.AppEnv != EnvProduction {
		return fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.AppEnv)
	}
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if !c.IsDevelopment() {
		u, err := url.Parse(c.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("API_URL must be an absolute URL in production, got %q", c.APIURL)
		}
	}
	if c.LogMaxEntries <= 0 {
		return errors.New("LOG_MAX_ENTRIES must be > 0")
	}
	if c.MockLatency < 0 {
		return errors.New("MOCK_LATENCY cannot be negative")
	}
	if c.CacheTTL <= 0 {
		return errors.New("CACHE_TTL must be > 0")
	}
	if c.CacheSweepInterval <= 0 {
		return errors.New("CACHE_SWEEP_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}
