package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Errorf("expected development by default")
	}
	if cfg.Port != "8080" || cfg.LogMaxEntries != 100 {
		t.Errorf("unexpected defaults: port=%s max=%d", cfg.Port, cfg.LogMaxEntries)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.CacheSweepInterval != time.Minute {
		t.Errorf("unexpected cache settings: %v %v", cfg.CacheTTL, cfg.CacheSweepInterval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("API_URL", "https://api.example.com/api")
	t.Setenv("DEBUG", "true")
	t.Setenv("MOCK_LATENCY", "250ms")
	t.Setenv("LOG_MAX_ENTRIES", "20")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IsDevelopment() || !cfg.Debug {
		t.Errorf("expected production with debug")
	}
	if cfg.MockLatency != 250*time.Millisecond || cfg.LogMaxEntries != 20 {
		t.Errorf("unexpected values: %v %d", cfg.MockLatency, cfg.LogMaxEntries)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			AppEnv:             EnvDevelopment,
			APIURL:             "http://localhost:8080/api",
			Port:               "8080",
			LogMaxEntries:      100,
			CacheTTL:           time.Minute,
			CacheSweepInterval: time.Minute,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad env", func(c *Config) { c.AppEnv = "staging" }, true},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"relative api url in production", func(c *Config) {
			c.AppEnv = EnvProduction
			c.APIURL = "/api"
		}, true},
		{"relative api url in development", func(c *Config) { c.APIURL = "/api" }, false},
		{"zero log entries", func(c *Config) { c.LogMaxEntries = 0 }, true},
		{"negative latency", func(c *Config) { c.MockLatency = -time.Second }, true},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
