package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()

	assert.Equal(t, "production", cfg.App.Mode)
	assert.Equal(t, "8080", cfg.App.HTTPPort)
	assert.Equal(t, "dev_secret", cfg.App.Secret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "pharmapos.db", cfg.Database.DSN)
	assert.Equal(t, 10*time.Second, cfg.BackendTimeout())
	assert.Equal(t, 60*time.Minute, cfg.SessionIdle())
	assert.Equal(t, 30, cfg.Scheduler.ExpiryAlertDays)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("BACKEND_API_URL", "http://127.0.0.1:8000")
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://pos.example.com")
	t.Setenv("SESSION_IDLE_MINUTES", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.HTTPPort)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.BackendTimeout())
	assert.Equal(t, 15*time.Minute, cfg.SessionIdle())
	assert.Equal(t, []string{"http://localhost:3000", "https://pos.example.com"}, cfg.AllowedOrigins())
}

func TestInvalidPortFallsBack(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.App.HTTPPort)
}
