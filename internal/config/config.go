// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" env-default:":8080"`
	DatabaseDSN     string        `env:"DATABASE_DSN" env-required:"true"`
	MaxImportBytes  int64         `env:"MAX_IMPORT_BYTES" env-default:"33554432"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`

	// Fixed-window throttle for import and snapshot restore, per actor.
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX" env-default:"5"`
}

// Load builds the config from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, nil
}
