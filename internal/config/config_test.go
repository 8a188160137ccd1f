package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := NewConfig("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr())
	assert.Equal(t, 30*24*time.Hour, cfg.Insights.StaleAfter)
	assert.Equal(t, 15, cfg.Insights.PageSize)
	assert.Equal(t, 10, cfg.Export.Limit)
	assert.Equal(t, time.Minute, cfg.Export.Window)
	assert.Equal(t, 10, cfg.Backfill.MaxPages)

	_, err = cfg.RequireToken()
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = cfg.RequireDSN()
	assert.Error(t, err)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("DATABASE_URL", "postgres://localhost/insights")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("INSIGHTS_STALE_AFTER", "72h")
	t.Setenv("EXPORT_LIMIT", "3")

	cfg, err := NewConfig("")
	require.NoError(t, err)

	token, err := cfg.RequireToken()
	require.NoError(t, err)
	assert.Equal(t, "ghp_test", token)
	dsn, err := cfg.RequireDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/insights", dsn)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 72*time.Hour, cfg.Insights.StaleAfter)
	assert.Equal(t, 3, cfg.Export.Limit)
}

func TestNewConfig_EnvFile(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "from-env")
	// LOGGING_LEVEL only comes from the file; register it for cleanup first.
	t.Setenv("LOGGING_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOGGING_LEVEL"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("GITHUB_TOKEN=from-file\nLOGGING_LEVEL=debug\n"), 0o600))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GitHub.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestNewConfig_Invalid(t *testing.T) {
	t.Setenv("SERVER_PORT", "70000")
	_, err := NewConfig("")
	assert.ErrorContains(t, err, "server.port")
}
