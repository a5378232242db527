package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultBackendURL is the local development answering service.
	DefaultBackendURL = "http://localhost:8000"

	// DefaultRequestTimeout bounds one question/answer round trip.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultDatabaseURL is empty; the exchange journal is disabled without it.
	DefaultDatabaseURL = ""
)

// Config holds runtime settings sourced from the environment (and .env for local runs).
type Config struct {
	BackendURL     string        `envconfig:"BACKEND_URL" default:"http://localhost:8000"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	MaxAnswerBytes int64         `envconfig:"MAX_ANSWER_BYTES" default:"1048576"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	Port           string        `envconfig:"PORT" default:"8080"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	Title          string        `envconfig:"WIDGET_TITLE" default:"GGSIPU Admission Chatbot"`
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	return &cfg, nil
}

// Validate checks values that cannot be expressed as envconfig tags.
func (c *Config) Validate() error {
	if err := ValidateBackendURL(c.BackendURL); err != nil {
		return err
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.MaxAnswerBytes <= 0 {
		return fmt.Errorf("max answer bytes must be positive, got %d", c.MaxAnswerBytes)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive, got %s", c.SessionTTL)
	}
	if c.Port == "" {
		c.Port = DefaultPort
	}
	return nil
}

// JournalEnabled reports whether exchanges should be recorded in Postgres.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != ""
}

// ValidateBackendURL requires an absolute http(s) URL.
func ValidateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("backend URL %q has no host", raw)
	}
	return nil
}
