package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeoutDuration())
	assert.Equal(t, 3*time.Second, cfg.PollIntervalDuration())
	assert.Equal(t, 5*time.Minute, cfg.PollTimeoutDuration())
	assert.Equal(t, ":8081", cfg.PortalAddr)
	assert.NotEmpty(t, cfg.StateDir)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HEALTH_API_URL", "http://localhost:9999/api/health")
	t.Setenv("POLL_TIMEOUT", "90s")
	t.Setenv("HEALTHGATE_STATE_DIR", "/tmp/healthgate-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/api/health", cfg.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.PollTimeoutDuration())
	assert.Equal(t, "/tmp/healthgate-test", cfg.StateDir)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := Config{HTTPTimeout: "not-a-duration", PollInterval: "-3s", PollTimeout: ""}
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeoutDuration())
	assert.Equal(t, 3*time.Second, cfg.PollIntervalDuration())
	assert.Equal(t, 5*time.Minute, cfg.PollTimeoutDuration())
}
