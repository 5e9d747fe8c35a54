package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
server:
  port: 9090
auth:
  jwt_secret: file-secret
  session_ttl: 2h
console:
  cookie_secret: cookie-secret
dashboard:
  notification_limit: 5
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromFileWithDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "hms_console", cfg.Console.CookieName)
	assert.Equal(t, 15*time.Minute, cfg.Worker.SessionSweepInterval)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HMS_DATABASE_HOST", "db.internal")
	t.Setenv("HMS_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("HMS_DASHBOARD_NOTIFICATION_LIMIT", "7")
	t.Setenv("HMS_RATE_LIMIT_BURST", "42")
	t.Setenv("HMS_REDIS_URL", "redis://cache:6379/0")

	cfg, err := LoadConfig(writeConfig(t, testYAML))
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 7, cfg.Dashboard.NotificationLimit)
	assert.Equal(t, 42, cfg.RateLimit.Burst)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
}

func TestLoadConfigValidates(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server:\n  port: 8080\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")
	assert.Contains(t, err.Error(), "console.cookie_secret is required")
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=n sslmode=disable", c.DSN())
}
