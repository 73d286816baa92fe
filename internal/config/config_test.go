package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
)

// isolate points the user config at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 20, cfg.Search.MaxResults)
	assert.Equal(t, 50, cfg.Search.ChunkSize)
	assert.Equal(t, "300ms", cfg.Search.DebounceWindow)
	assert.Equal(t, 3, cfg.Search.WorkerMaxFailures)
	assert.Equal(t, "50ms", cfg.Perf.LongTaskThreshold)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.False(t, cfg.Tracing.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config that disagree
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "perfshop"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "perfshop", "config.yaml"),
		[]byte("search:\n  chunk_size: 25\n  max_results: 10\n"), 0644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName),
		[]byte("search:\n  chunk_size: 100\n"), 0644))

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: project wins where set, user fills the rest
	assert.Equal(t, 100, cfg.Search.ChunkSize)
	assert.Equal(t, 10, cfg.Search.MaxResults)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName),
		[]byte("search:\n  max_results: 10\nserver:\n  log_level: warn\n"), 0644))
	t.Setenv("PERFSHOP_MAX_RESULTS", "5")
	t.Setenv("PERFSHOP_LOG_LEVEL", "debug")
	t.Setenv("PERFSHOP_TRACING_ENABLED", "true")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.True(t, cfg.Tracing.Enabled)
}

func TestLoad_EnvCanDisableWatch(t *testing.T) {
	isolate(t)
	t.Setenv("PERFSHOP_FLAGS_WATCH", "0")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.False(t, cfg.Flags.Watch)
}

func TestLoad_MalformedEnvInt(t *testing.T) {
	isolate(t)
	t.Setenv("PERFSHOP_CHUNK_SIZE", "fifty")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, shoperrors.ErrCodeConfigInvalid, shoperrors.GetCode(err))
}

func TestLoad_BadYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("search: [\n"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, shoperrors.CategoryConfig, shoperrors.GetCategory(err))
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.Search.ChunkSize = 0 }},
		{"negative max results", func(c *Config) { c.Search.MaxResults = -1 }},
		{"bad debounce", func(c *Config) { c.Search.DebounceWindow = "soon" }},
		{"bad worker timeout", func(c *Config) { c.Search.WorkerTimeout = "2 seconds" }},
		{"unknown transport", func(c *Config) { c.Server.Transport = "sse" }},
		{"unknown log level", func(c *Config) { c.Server.LogLevel = "trace" }},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 1.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := NewConfig()
	cfg.Search.WorkerTimeout = ""

	d := cfg.Durations()
	assert.Equal(t, 300*time.Millisecond, d.Debounce)
	assert.Equal(t, 50*time.Millisecond, d.LongTask)
	assert.Equal(t, 10*time.Second, d.WorkerCooldown)
	assert.Zero(t, d.WorkerTimeout)
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	cfg := NewConfig()
	cfg.Search.ChunkSize = 75
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigName)))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 75, loaded.Search.ChunkSize)
}
