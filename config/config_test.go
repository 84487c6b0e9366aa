package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost:8440", cfg.MLLP.Address)
	assert.Equal(t, 1024, cfg.MLLP.ReadChunkSize)
	assert.Equal(t, 5, cfg.MLLP.Backoff.InitialSeconds)
	assert.Equal(t, 120, cfg.MLLP.Backoff.CapSeconds)
	assert.Zero(t, cfg.MLLP.Backoff.MaxAttempts, "default reconnects forever")
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"mllp": {"address": "hl7.internal:2575"},
		"pager": {"url": "http://pager.internal:8441"},
		"store": {"database_path": "/var/lib/seml/patients.db", "history_csv": "/data/history.csv"},
		"log": {"level": "debug", "format": "json"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hl7.internal:2575", cfg.MLLP.Address)
	assert.Equal(t, "http://pager.internal:8441", cfg.Pager.URL)
	assert.Equal(t, "/data/history.csv", cfg.Store.HistoryCSV)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched sections keep defaults.
	assert.Equal(t, 1024, cfg.MLLP.ReadChunkSize)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `{"mllp": {"address": "file.internal:2575"}}`)
	t.Setenv(EnvMLLPAddress, "env.internal:8440")
	t.Setenv(EnvPagerAddress, "pager.internal:8441")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env.internal:8440", cfg.MLLP.Address)
	assert.Equal(t, "http://pager.internal:8441", cfg.Pager.URL,
		"bare host:port gains an http scheme")
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"mllp": `)
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty mllp address", func(c *Config) { c.MLLP.Address = "" }},
		{"mllp address without port", func(c *Config) { c.MLLP.Address = "localhost" }},
		{"zero chunk size", func(c *Config) { c.MLLP.ReadChunkSize = 0 }},
		{"negative backoff", func(c *Config) { c.MLLP.Backoff.InitialSeconds = -1 }},
		{"backoff initial above cap", func(c *Config) {
			c.MLLP.Backoff.InitialSeconds = 300
		}},
		{"empty pager url", func(c *Config) { c.Pager.URL = "" }},
		{"pager scheme", func(c *Config) { c.Pager.URL = "nats://pager:8441" }},
		{"empty database path", func(c *Config) { c.Store.DatabasePath = "" }},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }},
		{"metrics path", func(c *Config) { c.Metrics.Path = "metrics" }},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"log format", func(c *Config) { c.Log.Format = "logfmt" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_MetricsDisabledSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Metrics.Enabled = false
	cfg.Metrics.Port = 0
	cfg.Metrics.Path = ""
	assert.NoError(t, cfg.Validate())
}
