package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  host: 127.0.0.1
database:
  dbname: rescue_test
auth:
  jwt_secret: yaml-secret
  token_ttl: 2h
cache:
  profile_ttl: 10m
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "rescue_test", cfg.Database.DBName)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "yaml-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.ProfileTTL)
	assert.Equal(t, 1024, cfg.Cache.ProfileSize)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
auth:
  jwt_secret: yaml-secret
`)
	t.Setenv("FOODRESCUE_SERVER_PORT", "9100")
	t.Setenv("FOODRESCUE_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("FOODRESCUE_REDIS_ADDR", "localhost:6379")
	t.Setenv("FOODRESCUE_AUTH_REQUIRE_CONFIRMATION", "true")
	t.Setenv("FOODRESCUE_SERVER_TRUST_PROXY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Auth.RequireConfirmation)
	assert.True(t, cfg.Server.TrustProxy)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("FOODRESCUE_AUTH_JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Auth.MinPasswordLength)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.AWS.Enabled())
	assert.False(t, cfg.APNS.Enabled())
}

func TestLoadRequiresSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", db.DSN())
}
