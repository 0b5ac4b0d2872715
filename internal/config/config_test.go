package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  api_key: "secret"
  rate_limit: 25
database:
  path: "/tmp/garage.db"
redis:
  address: "localhost:6379"
availability:
  cache_ttl_seconds: 120
  timezone: "Europe/London"
booking:
  reject_past_mutations: false
  quota_enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.APIKey)
	assert.Equal(t, 25.0, cfg.Server.RateLimit)
	assert.Equal(t, "/tmp/garage.db", cfg.Database.Path)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "Europe/London", cfg.Location().String())
	assert.False(t, cfg.RejectPastMutations())
	assert.True(t, cfg.Booking.QuotaEnabled)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server: {}\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/garagebook.db", cfg.Database.Path)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.True(t, cfg.RejectPastMutations())
	assert.Empty(t, cfg.Redis.Address)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_GARAGE_API_KEY", "from-env")
	path := writeConfig(t, `
server:
  api_key: "${TEST_GARAGE_API_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Server.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{}
	cfg.Availability.Timezone = "Nowhere/Invalid"
	assert.Equal(t, time.Local, cfg.Location())
}
