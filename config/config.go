package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config is the typed configuration record for cmd/scheduler, replacing
// the dynamic option bags the source ecosystem favors (design note §9).
type Config struct {
	Env string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`

	AdminPort   string `env:"ADMIN_PORT" envDefault:"8080" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090" validate:"required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"required,oneof=debug info warn error"`

	// DatabaseURL is optional: an empty value keeps the scheduler on its
	// in-memory default store.
	DatabaseURL string `env:"DATABASE_URL"`

	DefaultTimezone string `env:"DEFAULT_TIMEZONE" envDefault:"UTC" validate:"required"`
	TickMaxSeconds  int    `env:"TICK_MAX_SECONDS" envDefault:"60" validate:"min=1,max=3600"`
	PoolSize        int    `env:"EXECUTOR_POOL_SIZE" envDefault:"10" validate:"min=1,max=1000"`

	// ProcessTimeoutSeconds bounds a single subprocess run started by the
	// "process" executor.
	ProcessTimeoutSeconds int `env:"PROCESS_EXECUTOR_TIMEOUT_SECONDS" envDefault:"300" validate:"min=1,max=3600"`

	AdminJWTSecret string `env:"ADMIN_JWT_SECRET" validate:"required_if=Env production,required_if=Env staging"`

	AlertResendAPIKey string   `env:"ALERT_RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	AlertResendFrom   string   `env:"ALERT_RESEND_FROM" validate:"required_if=Env production,required_if=Env staging"`
	AlertRecipients   []string `env:"ALERT_RECIPIENTS" envSeparator:","`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SlogLevel converts the LOG_LEVEL string to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
