package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Port                string        `mapstructure:"PORT"`
	Env                 string        `mapstructure:"ENV"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	ExpressionCacheSize int           `mapstructure:"EXPRESSION_CACHE_SIZE"`
	CORSOrigins         []string      `mapstructure:"CORS_ORIGINS"`
	BodyLimit           string        `mapstructure:"BODY_LIMIT"`
	MaxResults          int           `mapstructure:"MAX_RESULTS"`
	RequestTimeout      time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("EXPRESSION_CACHE_SIZE", 1024)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("MAX_RESULTS", 100)
	v.SetDefault("REQUEST_TIMEOUT", "10s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "EXPRESSION_CACHE_SIZE",
		"CORS_ORIGINS", "BODY_LIMIT", "MAX_RESULTS", "REQUEST_TIMEOUT",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := v.GetString("CORS_ORIGINS")
	if origins != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Level returns the zerolog level named by LOG_LEVEL.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(strings.ToLower(c.LogLevel))
}

// Validate checks that the configuration is usable before anything is
// started.
func (c *Config) Validate() error {
	if c.ExpressionCacheSize <= 0 {
		return fmt.Errorf("EXPRESSION_CACHE_SIZE must be positive, got %d", c.ExpressionCacheSize)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("MAX_RESULTS must be positive, got %d", c.MaxResults)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level: %w", c.LogLevel, err)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if c.BodyLimit == "" {
		return fmt.Errorf("BODY_LIMIT must be set")
	}
	return nil
}
