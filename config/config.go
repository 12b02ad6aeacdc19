// Package config loads client configuration from env and an optional .env
// file using Viper. Every constant the portal revisions disagreed on
// (poll timeout, base URL) is a named parameter here, never a literal.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultBaseURL is the production portal API root, overridable with
// HEALTH_API_URL.
const DefaultBaseURL = "https://libpayapp.liberianpost.com:8081/api/health"

// Config holds client configuration loaded from the environment.
type Config struct {
	// BaseURL is the portal API root
	BaseURL string `mapstructure:"HEALTH_API_URL"`
	// HTTPTimeout bounds a single request round-trip (e.g. "30s")
	HTTPTimeout string `mapstructure:"HTTP_TIMEOUT"`
	// PollInterval is the challenge status query cadence (e.g. "3s")
	PollInterval string `mapstructure:"POLL_INTERVAL"`
	// PollTimeout is the mobile-login give-up deadline (e.g. "5m")
	PollTimeout string `mapstructure:"POLL_TIMEOUT"`
	// StateDir is where session keys are persisted; defaults under $HOME
	StateDir string `mapstructure:"HEALTHGATE_STATE_DIR"`
	// RedisURL switches session storage to redis when set
	RedisURL string `mapstructure:"REDIS_URL"`
	// PortalAddr is the dev portal listen address
	PortalAddr string `mapstructure:"PORTAL_ADDR"`
}

// Load reads .env (if present), then builds Config from the environment.
// Env vars override .env; missing .env is ignored.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HEALTH_API_URL", DefaultBaseURL)
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("POLL_INTERVAL", "3s")
	v.SetDefault("POLL_TIMEOUT", "5m")
	v.SetDefault("HEALTHGATE_STATE_DIR", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("PORTAL_ADDR", ":8081")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("config: HEALTH_API_URL must be set")
	}
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.New("config: HEALTHGATE_STATE_DIR must be set when $HOME is unavailable")
		}
		cfg.StateDir = filepath.Join(home, ".healthgate")
	}

	return &cfg, nil
}

// HTTPTimeoutDuration parses HTTPTimeout, falling back to 30s.
func (c *Config) HTTPTimeoutDuration() time.Duration {
	return durationOr(c.HTTPTimeout, 30*time.Second)
}

// PollIntervalDuration parses PollInterval, falling back to 3s.
func (c *Config) PollIntervalDuration() time.Duration {
	return durationOr(c.PollInterval, 3*time.Second)
}

// PollTimeoutDuration parses PollTimeout, falling back to 5m.
func (c *Config) PollTimeoutDuration() time.Duration {
	return durationOr(c.PollTimeout, 5*time.Minute)
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
