package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "EXPRESSION_CACHE_SIZE", "CORS_ORIGINS", "BODY_LIMIT", "MAX_RESULTS", "REQUEST_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected default port 8000, got %s", cfg.Port)
	}
	if cfg.ExpressionCacheSize != 1024 {
		t.Errorf("expected default cache size 1024, got %d", cfg.ExpressionCacheSize)
	}
	if cfg.MaxResults != 100 {
		t.Errorf("expected default max results 100, got %d", cfg.MaxResults)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("expected default request timeout 10s, got %s", cfg.RequestTimeout)
	}
	if cfg.BodyLimit != "1M" {
		t.Errorf("expected default body limit 1M, got %s", cfg.BodyLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("EXPRESSION_CACHE_SIZE", "64")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("BODY_LIMIT", "2M")
	t.Setenv("MAX_RESULTS", "10")
	t.Setenv("REQUEST_TIMEOUT", "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &Config{
		Port:                "9090",
		Env:                 "production",
		LogLevel:            "debug",
		ExpressionCacheSize: 64,
		CORSOrigins:         []string{"https://a.example", "https://b.example"},
		BodyLimit:           "2M",
		MaxResults:          10,
		RequestTimeout:      250 * time.Millisecond,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if !cfg.IsProduction() || cfg.IsDev() {
		t.Error("expected production mode")
	}
}

func TestConfig_IsDev(t *testing.T) {
	c := &Config{Env: "development"}
	if !c.IsDev() {
		t.Error("expected IsDev() to return true for development")
	}

	c.Env = "production"
	if c.IsDev() {
		t.Error("expected IsDev() to return false for production")
	}
}

func TestConfig_Level(t *testing.T) {
	c := &Config{LogLevel: "WARN"}
	lvl, err := c.Level()
	if err != nil || lvl != zerolog.WarnLevel {
		t.Errorf("Level() = %v, %v", lvl, err)
	}
	c.LogLevel = ""
	if lvl, _ := c.Level(); lvl != zerolog.InfoLevel {
		t.Errorf("empty level should default to info, got %v", lvl)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{ExpressionCacheSize: 16, MaxResults: 5, LogLevel: "info", BodyLimit: "1M"}
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero cache size", func(c *Config) { c.ExpressionCacheSize = 0 }},
		{"negative cache size", func(c *Config) { c.ExpressionCacheSize = -1 }},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }},
		{"no body limit", func(c *Config) { c.BodyLimit = "" }},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }},
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("baseline should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
