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

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 5, cfg.Checker.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.Checker.RetryInterval)
	assert.NotEmpty(t, cfg.Browser.UserAgents)
	assert.Equal(t, "stream:price_quotes", cfg.Redis.Stream)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHECKER_COUNTRY", "greece")
	t.Setenv("CHECKER_CURRENCY", "eur")
	t.Setenv("CHECKER_MAX_RETRIES", "2")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_TIMEOUT", "45s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "greece", cfg.Checker.Country)
	assert.Equal(t, "eur", cfg.Checker.Currency)
	assert.Equal(t, 2, cfg.Checker.MaxRetries)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.Timeout)
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("CHECKER_MAX_RETRIES", "not-a-number")
	t.Setenv("BROWSER_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Checker.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Checker.MaxRetries = 0
	assert.Error(t, cfg.Validate())

	cfg.Checker.MaxRetries = 3
	cfg.Checker.RateLimitMin = 20 * time.Second
	cfg.Checker.RateLimitMax = 5 * time.Second
	assert.Error(t, cfg.Validate())

	cfg.Checker.RateLimitMax = 30 * time.Second
	cfg.Database.Host = ""
	assert.Error(t, cfg.Validate())
}
