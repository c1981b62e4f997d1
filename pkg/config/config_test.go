package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "/webhook", cfg.Server.WebhookPath)
	assert.Equal(t, "0 10-20 * * 1-5", cfg.Schedule.Spec)
	assert.Equal(t, "Europe/Moscow", cfg.Schedule.Timezone)
	assert.Equal(t, 3, cfg.Feed.Limit)
	assert.Equal(t, 30*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, "Feedgram/1.0", cfg.Feed.UserAgent)
	assert.Empty(t, cfg.Dedup.DSN)
	assert.Equal(t, 2, cfg.Dedup.MaxOpenConns)
}

func TestLoad_FromFile(t *testing.T) {
	content := `
server:
  timeout: 15s
  webhook_path: /tg/updates
schedule:
  spec: "*/30 * * * *"
  timezone: UTC
feed:
  limit: 5
  timeout: 10s
dedup:
  dsn: "file:test.db?mode=rwc"
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "/tg/updates", cfg.Server.WebhookPath)
	assert.Equal(t, "*/30 * * * *", cfg.Schedule.Spec)
	assert.Equal(t, "UTC", cfg.Schedule.Timezone)
	assert.Equal(t, 5, cfg.Feed.Limit)
	assert.Equal(t, 10*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, "file:test.db?mode=rwc", cfg.Dedup.DSN)

	// defaults still applied for unset fields
	assert.Equal(t, "Feedgram/1.0", cfg.Feed.UserAgent)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_DEDUP_DSN", "file:env.db?mode=rwc")

	content := `
dedup:
  dsn: "${TEST_DEDUP_DSN}"
`
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file:env.db?mode=rwc", cfg.Dedup.DSN)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load("no-such-file.yml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("server: [broken"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})

	t.Run("bad timezone", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("schedule:\n  timezone: Mars/Olympus\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "schedule.timezone")
	})

	t.Run("bad webhook path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  webhook_path: no-slash\n"), 0o600))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook_path")
	})
}

func TestConfig_Location(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}

func TestConfig_GetServerConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	path, timeout := cfg.GetServerConfig()
	assert.Equal(t, "/webhook", path)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestGenerateSchema(t *testing.T) {
	schema, err := GenerateSchema()
	require.NoError(t, err)
	assert.NotNil(t, schema)
}
