package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	// Viper reports a missing explicit file as an error, so point at an
	// empty file instead for the defaults check.
	if err != nil {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
		cfg, err = Load(path)
	}
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout())
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout())
	assert.Equal(t, "wazuh-alerts-*", cfg.Wazuh.Index)
	assert.True(t, cfg.Wazuh.Insecure)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Redis.TTL())
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	content := `
server:
  port: 9999
  read_timeout_seconds: 5
graph:
  path: /data/kb.yaml
retrieval:
  corpus_path: /data/corpus.yaml
  top_k: 5
redis:
  enabled: true
  addr: redis:6379
  ttl_seconds: 60
logging:
  level: debug
  format: text
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout())
	assert.Equal(t, "/data/kb.yaml", cfg.Graph.Path)
	assert.Equal(t, "/data/corpus.yaml", cfg.Retrieval.CorpusPath)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.TTL())
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset sections keep their defaults.
	assert.Equal(t, "https://localhost:9200", cfg.Wazuh.URL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("THREATBRIDGE_SERVER_PORT", "7070")
	t.Setenv("THREATBRIDGE_WAZUH_INDEX", "custom-alerts-*")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 1234\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "custom-alerts-*", cfg.Wazuh.Index)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
