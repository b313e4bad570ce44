package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"ROOMBOARD_API_URL", "ROOMBOARD_SESSION", "ROOMBOARD_SESSION_COOKIE", "ROOMBOARD_TIMEOUT", "ROOMBOARD_STATE_DSN", "ROOMBOARD_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", c.APIURL)
	assert.Equal(t, "session", c.SessionCookie)
	assert.Equal(t, 30*time.Second, c.Timeout)
	assert.Equal(t, slog.LevelWarn, c.LogLevel)
	assert.Empty(t, c.StateDSN)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ROOMBOARD_API_URL", "https://kanban.example.com")
	t.Setenv("ROOMBOARD_TIMEOUT", "5s")
	t.Setenv("ROOMBOARD_LOG_LEVEL", "DEBUG")
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://kanban.example.com", c.APIURL)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, slog.LevelDebug, c.LogLevel)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("ROOMBOARD_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("ROOMBOARD_TIMEOUT", "")
	t.Setenv("ROOMBOARD_LOG_LEVEL", "loud")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(file, []byte("ROOMBOARD_SESSION=from-file\n"), 0o600))

	t.Setenv("ROOMBOARD_SESSION", "")
	os.Unsetenv("ROOMBOARD_SESSION")
	require.NoError(t, LoadDotEnv(file))
	assert.Equal(t, "from-file", os.Getenv("ROOMBOARD_SESSION"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
