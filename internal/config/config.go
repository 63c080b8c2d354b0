// Package config loads server settings from BROKEWISE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/mmynk/brokewise/internal/currency"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "BROKEWISE"

// Config holds the server configuration.
type Config struct {
	Port      int    `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	DBPath    string `envconfig:"DB_PATH" default:"./data/brokewise.db"`

	// TokenSecret signs group edit tokens. Empty disables tokens.
	TokenSecret string        `envconfig:"TOKEN_SECRET"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"0"`

	RatesBaseURL      string        `envconfig:"RATES_BASE_URL" default:"https://api.exchangerate-api.com"`
	CacheTTL          time.Duration `envconfig:"RATES_CACHE_TTL" default:"1h"`
	RequestTimeout    time.Duration `envconfig:"RATES_TIMEOUT" default:"10s"`
	RequestsPerSecond float64       `envconfig:"RATES_RPS" default:"5"`
	FanOut            int           `envconfig:"RATES_FAN_OUT" default:"8"`
	RedisURL          string        `envconfig:"REDIS_URL"`

	Retention       time.Duration `envconfig:"RETENTION" default:"2160h"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL" default:"1h"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS"`
	DefaultBase string   `envconfig:"DEFAULT_BASE" default:"USD"`
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings Load cannot express as tags.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q: want text or json", c.LogFormat))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.TokenTTL < 0 {
		errs = append(errs, errors.New("token ttl must not be negative"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("rates cache ttl must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("rates timeout must be positive"))
	}
	if c.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("rates rps must be positive"))
	}
	if c.FanOut <= 0 {
		errs = append(errs, errors.New("rates fan-out must be positive"))
	}
	if c.Retention <= 0 {
		errs = append(errs, errors.New("retention must be positive"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("cleanup interval must be positive"))
	}
	if _, err := currency.Parse(c.DefaultBase); err != nil {
		errs = append(errs, fmt.Errorf("default base: %w", err))
	}
	return errors.Join(errs...)
}

// Base returns the default base currency. Call after Validate.
func (c *Config) Base() currency.Code {
	code, _ := currency.Parse(c.DefaultBase)
	return code
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// TokensEnabled reports whether edit tokens are issued and required.
func (c *Config) TokensEnabled() bool {
	return c.TokenSecret != ""
}
