package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	var cfg Config
	require.NoError(t, Load("", &cfg))

	assert.Equal(t, "bsgreeks", cfg.Server.Name)
	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, ":8080", cfg.HTTPAddr())
	assert.Equal(t, 5*time.Second, cfg.Server.HTTP.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, int32(4), cfg.Pricing.DisplayPlaces)
	assert.Equal(t, 10*time.Minute, cfg.Server.RateLimit.IdleTTL)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := writeTOML(t, `
version = "1.2.0"

[server]
name = "pricer"
environment = "prod"

[server.http]
port = 9090

[log]
level = "debug"
format = "text"

[pricing]
display_places = 6
timezone = "UTC"
`)
	t.Setenv("APP_SERVER_HTTP_PORT", "9191")

	var cfg Config
	require.NoError(t, Load(path, &cfg))

	assert.Equal(t, "pricer", cfg.Server.Name)
	assert.Equal(t, "prod", cfg.Server.Environment)
	assert.Equal(t, 9191, cfg.Server.HTTP.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, int32(6), cfg.Pricing.DisplayPlaces)
	assert.Equal(t, "1.2.0", cfg.Version)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeTOML(t, `
[log]
level = "verbose"
`)
	var cfg Config
	err := Load(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg Config
	err := Load(filepath.Join(t.TempDir(), "absent.toml"), &cfg)
	assert.ErrorContains(t, err, "read config error")
}

func TestMask(t *testing.T) {
	m := map[string]any{
		"name": "bsgreeks",
		"auth": map[string]any{"api_token": "abc", "user": "ops"},
	}
	mask(m)
	assert.Equal(t, "bsgreeks", m["name"])
	sub := m["auth"].(map[string]any)
	assert.Equal(t, "******", sub["api_token"])
	assert.Equal(t, "ops", sub["user"])
}
