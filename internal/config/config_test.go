package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_MODE", "")
	t.Setenv("AUTH_REFRESH_TOKEN_TTL", "")
	t.Setenv("AUTH_SWEEP_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ModeToken, cfg.Auth.Mode)
	assert.Equal(t, 14*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Auth.SweepInterval)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoad_DurationOverrides(t *testing.T) {
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "5m")
	t.Setenv("AUTH_SESSION_IDLE_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SessionIdleTimeout, "unparseable values fall back")
}

func TestLoad_RejectsUnknownMode(t *testing.T) {
	t.Setenv("AUTH_MODE", "both")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_MODE")
}

func TestValidate_AccessTTLMustBeShorter(t *testing.T) {
	cfg := &Config{Auth: AuthConfig{
		Mode:            ModeToken,
		SessionStore:    SessionStoreMemory,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: time.Minute,
		SweepInterval:   time.Minute,
	}}

	require.Error(t, cfg.Validate())
}
