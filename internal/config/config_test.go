package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestDefaultRetryPolicy(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.Fetcher.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Fetcher.RetryDelay)
	assert.Equal(t, 10, cfg.Visited.FlushEvery)
	assert.Equal(t, 20, cfg.Ingest.BatchSize)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad base url", func(c *Config) { c.Site.BaseURL = "ftp://example.com" }},
		{"bad fetcher type", func(c *Config) { c.Fetcher.Type = "curl" }},
		{"zero attempts", func(c *Config) { c.Fetcher.MaxAttempts = 0 }},
		{"negative retry delay", func(c *Config) { c.Fetcher.RetryDelay = -time.Second }},
		{"bad visited backend", func(c *Config) { c.Visited.Backend = "redis" }},
		{"zero flush interval", func(c *Config) { c.Visited.FlushEvery = 0 }},
		{"zero batch size", func(c *Config) { c.Ingest.BatchSize = 0 }},
		{"unknown ingester", func(c *Config) { c.Ingest.Types = []string{"qdrant"} }},
		{"missing stage dir", func(c *Config) { c.Storage.StageDir = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lorekeeper.yaml")
	content := `
site:
  base_url: https://lore.example.org
fetcher:
  max_attempts: 5
  retry_delay: 2s
ingest:
  batch_size: 40
  types: [archive, mongo]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://lore.example.org", cfg.Site.BaseURL)
	assert.Equal(t, 5, cfg.Fetcher.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Fetcher.RetryDelay)
	assert.Equal(t, 40, cfg.Ingest.BatchSize)
	assert.Equal(t, []string{"archive", "mongo"}, cfg.Ingest.Types)
	// untouched keys keep their defaults
	assert.Equal(t, "file", cfg.Visited.Backend)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lorekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetcher:\n  max_attempts: 2\n"), 0o644))

	t.Setenv("LOREKEEPER_FETCHER_MAX_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Fetcher.MaxAttempts)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
