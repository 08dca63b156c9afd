package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)

	assert.Equal(t, "5.199", cfg.VK.APIVersion)
	assert.Equal(t, 30*time.Second, cfg.VK.RequestTimeout)

	assert.Equal(t, 3, cfg.RateLimit.RequestsPerSecond)

	assert.Empty(t, cfg.Output.Directory)
	assert.Equal(t, "resume_state.json", cfg.Output.StateFile)

	assert.Equal(t, 6, cfg.Download.Concurrency)
	assert.Equal(t, 200, cfg.Download.PageSize)
	assert.Equal(t, 20*time.Second, cfg.Download.DownloadTimeout)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Logging.File)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VKDUMP_OUTPUT_DIR", "/tmp/photos")
	t.Setenv("VKDUMP_STATE_FILE", "custom_state.json")
	t.Setenv("VKDUMP_CONCURRENCY", "4")
	t.Setenv("VKDUMP_REQUESTS_PER_SECOND", "2")
	t.Setenv("VKDUMP_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "/tmp/photos", cfg.Output.Directory)
	assert.Equal(t, "custom_state.json", cfg.Output.StateFile)
	assert.Equal(t, 4, cfg.Download.Concurrency)
	assert.Equal(t, 2, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("VKDUMP_CONCURRENCY", "not a number")
	t.Setenv("VKDUMP_REQUESTS_PER_SECOND", "-2")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 6, cfg.Download.Concurrency)
	assert.Equal(t, 3, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadFromFile(t *testing.T) {
	content := `
vk:
  api_version: "5.199"
  request_timeout: 10s

download:
  concurrency: 3
  page_size: 100

output:
  directory: ./photos
  state_file: state.json
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, 3, cfg.Download.Concurrency)
	assert.Equal(t, 100, cfg.Download.PageSize)
	assert.Equal(t, 10*time.Second, cfg.VK.RequestTimeout)
	assert.Equal(t, "./photos", cfg.Output.Directory)
	assert.Equal(t, "state.json", cfg.Output.StateFile)

	// Sections absent from the file keep their defaults
	assert.Equal(t, 3, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "explicitly named config file must exist")
}

func TestLoadFromFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("download: [not a map"), 0644))

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(path))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero concurrency", func(c *Config) { c.Download.Concurrency = 0 }},
		{"excessive concurrency", func(c *Config) { c.Download.Concurrency = 32 }},
		{"zero page size", func(c *Config) { c.Download.PageSize = 0 }},
		{"oversized page", func(c *Config) { c.Download.PageSize = 500 }},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }},
		{"missing api version", func(c *Config) { c.VK.APIVersion = "" }},
		{"zero request timeout", func(c *Config) { c.VK.RequestTimeout = 0 }},
		{"missing state file", func(c *Config) { c.Output.StateFile = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"zero download timeout", func(c *Config) { c.Download.DownloadTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"output":              "./dump",
		"concurrency":         2,
		"requests-per-second": 1,
		"log-level":           "warn",
	})

	assert.Equal(t, "./dump", cfg.Output.Directory)
	assert.Equal(t, 2, cfg.Download.Concurrency)
	assert.Equal(t, 1, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("VKDUMP_CONCURRENCY", "4")

	cfg, err := Load("", map[string]interface{}{"concurrency": 2})
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Download.Concurrency, "flags win over environment")
}

func TestLoadRejectsInvalidResult(t *testing.T) {
	_, err := Load("", map[string]interface{}{"log-level": "chatty"})
	assert.Error(t, err)
}
