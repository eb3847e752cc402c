// Package config loads flatmate settings from FLATMATE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

const envPrefix = "FLATMATE"

type Config struct {
	// --- HTTP ---
	Port string `envconfig:"PORT" default:"8080"`

	// --- Database ---
	DBPath string `envconfig:"DB_PATH" default:"flatmate.db"`

	// --- Auth ---
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"720h"`

	// --- Logging ---
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// --- Jobs ---
	ArchiveSchedule string `envconfig:"ARCHIVE_SCHEDULE" default:"0 0 * * *"`
	Timezone        string `envconfig:"TIMEZONE" default:"UTC"`

	// --- Rate limiting ---
	LoginRateLimit  int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("FLATMATE_JWT_SECRET is empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("FLATMATE_TOKEN_TTL must be > 0")
	}
	if c.LoginRateLimit <= 0 || c.LoginRateWindow <= 0 {
		return errors.New("FLATMATE_LOGIN_RATE_LIMIT and FLATMATE_LOGIN_RATE_WINDOW must be > 0")
	}
	if _, err := cron.ParseStandard(c.ArchiveSchedule); err != nil {
		return fmt.Errorf("FLATMATE_ARCHIVE_SCHEDULE: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone for the job scheduler.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("FLATMATE_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
