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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, 1500*time.Millisecond, cfg.Receipts.MinSpacing)
	assert.Equal(t, 300*time.Millisecond, cfg.Receipts.SettleDelay)
	assert.NotEmpty(t, cfg.Server.APIURL)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  api_url: https://chat.example.com/api
receipts:
  settle_delay: 500ms
paths:
  data: /tmp/baatcheet-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com/api", cfg.Server.APIURL)
	assert.Equal(t, "ws://localhost:3000/ws", cfg.Server.SocketURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Receipts.SettleDelay)
	assert.Equal(t, 1500*time.Millisecond, cfg.Receipts.MinSpacing)
	assert.Equal(t, "/tmp/baatcheet-test/session.db", cfg.SessionDBPath())
	assert.Equal(t, "/tmp/baatcheet-test/contacts", cfg.ContactsDir())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BAATCHEET_API_URL", "http://10.0.0.2:3000")
	t.Setenv("BAATCHEET_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "server:\n  api_url: http://ignored\n"))
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.2:3000", cfg.Server.APIURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("zero settle delay", func(t *testing.T) {
		_, err := Load(writeConfig(t, "receipts:\n  settle_delay: 0s\n"))
		assert.Error(t, err)
	})
}
