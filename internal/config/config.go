// Package config loads perfshop configuration from defaults, YAML files and
// the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
)

// ProjectConfigName is the per-directory config file name.
const ProjectConfigName = ".perfshop.yaml"

// Config represents the complete perfshop configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Catalog   CatalogConfig   `yaml:"catalog" json:"catalog"`
	Flags     FlagsConfig     `yaml:"flags" json:"flags"`
	Perf      PerfConfig      `yaml:"perf" json:"perf"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

// SearchConfig configures the search dispatcher and its background channel.
type SearchConfig struct {
	// MaxResults caps every result list (default: 20).
	MaxResults int `yaml:"max_results" json:"max_results"`

	// ChunkSize is the number of products filtered between yields (default: 50).
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// DebounceWindow is the input-delay window, e.g. "300ms".
	DebounceWindow string `yaml:"debounce_window" json:"debounce_window"`

	// WorkerTimeout bounds a single background call. Empty means no bound.
	WorkerTimeout string `yaml:"worker_timeout" json:"worker_timeout"`

	// WorkerMaxFailures opens the worker circuit after this many
	// consecutive failures.
	WorkerMaxFailures int `yaml:"worker_max_failures" json:"worker_max_failures"`

	// WorkerCooldown is how long the circuit stays open, e.g. "10s".
	WorkerCooldown string `yaml:"worker_cooldown" json:"worker_cooldown"`
}

// CatalogConfig selects the product catalog.
type CatalogConfig struct {
	// Path is an optional YAML catalog replacing the embedded one.
	Path string `yaml:"path" json:"path"`

	// Synthetic appends generated products (0 disables).
	Synthetic int `yaml:"synthetic" json:"synthetic"`

	// Seed makes synthetic catalogs reproducible.
	Seed int64 `yaml:"seed" json:"seed"`
}

// FlagsConfig configures performance flag persistence.
type FlagsConfig struct {
	Path  string `yaml:"path" json:"path"`
	Watch bool   `yaml:"watch" json:"watch"`
}

// PerfConfig configures the timeline.
type PerfConfig struct {
	LongTaskThreshold string `yaml:"long_task_threshold" json:"long_task_threshold"`
	TimelineCapacity  int    `yaml:"timeline_capacity" json:"timeline_capacity"`
}

// TelemetryConfig configures query metrics collection.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled" json:"enabled"`
	DBPath        string `yaml:"db_path" json:"db_path"`
	FlushInterval string `yaml:"flush_interval" json:"flush_interval"`
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio" json:"sample_ratio"`
}

// ServerConfig configures the HTTP and MCP surfaces.
type ServerConfig struct {
	Transport string  `yaml:"transport" json:"transport"`
	Addr      string  `yaml:"addr" json:"addr"`
	LogLevel  string  `yaml:"log_level" json:"log_level"`
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	RateBurst int     `yaml:"rate_burst" json:"rate_burst"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			MaxResults:        20,
			ChunkSize:         50,
			DebounceWindow:    "300ms",
			WorkerTimeout:     "2s",
			WorkerMaxFailures: 3,
			WorkerCooldown:    "10s",
		},
		Catalog: CatalogConfig{
			Seed: 42,
		},
		Flags: FlagsConfig{
			Path:  filepath.Join(DataDir(), "flags.json"),
			Watch: true,
		},
		Perf: PerfConfig{
			LongTaskThreshold: "50ms",
			TimelineCapacity:  512,
		},
		Telemetry: TelemetryConfig{
			Enabled:       true,
			DBPath:        filepath.Join(DataDir(), "metrics.db"),
			FlushInterval: "1m",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Endpoint:    "localhost:4318",
			ServiceName: "perfshop",
			SampleRatio: 1.0,
		},
		Server: ServerConfig{
			Transport: "http",
			Addr:      ":8080",
			LogLevel:  "info",
			RateLimit: 20,
			RateBurst: 40,
		},
	}
}

// DataDir returns the per-user state directory (~/.perfshop).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".perfshop")
	}
	return filepath.Join(home, ".perfshop")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/perfshop/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/perfshop/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "perfshop", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "perfshop", "config.yaml")
	}
	return filepath.Join(home, ".config", "perfshop", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config ($XDG_CONFIG_HOME/perfshop/config.yaml)
//  3. Project config (.perfshop.yaml in dir)
//  4. Environment variables (PERFSHOP_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := filepath.Join(dir, ProjectConfigName); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return shoperrors.New(shoperrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return shoperrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithSuggestion("Check the YAML syntax or regenerate it with 'perfshop config init --force'")
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
// Booleans are only ever switched on by a file; the environment can turn
// them off.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	mergeInt(&c.Search.MaxResults, other.Search.MaxResults)
	mergeInt(&c.Search.ChunkSize, other.Search.ChunkSize)
	mergeString(&c.Search.DebounceWindow, other.Search.DebounceWindow)
	mergeString(&c.Search.WorkerTimeout, other.Search.WorkerTimeout)
	mergeInt(&c.Search.WorkerMaxFailures, other.Search.WorkerMaxFailures)
	mergeString(&c.Search.WorkerCooldown, other.Search.WorkerCooldown)

	mergeString(&c.Catalog.Path, other.Catalog.Path)
	mergeInt(&c.Catalog.Synthetic, other.Catalog.Synthetic)
	if other.Catalog.Seed != 0 {
		c.Catalog.Seed = other.Catalog.Seed
	}

	mergeString(&c.Flags.Path, other.Flags.Path)
	if other.Flags.Watch {
		c.Flags.Watch = true
	}

	mergeString(&c.Perf.LongTaskThreshold, other.Perf.LongTaskThreshold)
	mergeInt(&c.Perf.TimelineCapacity, other.Perf.TimelineCapacity)

	if other.Telemetry.Enabled {
		c.Telemetry.Enabled = true
	}
	mergeString(&c.Telemetry.DBPath, other.Telemetry.DBPath)
	mergeString(&c.Telemetry.FlushInterval, other.Telemetry.FlushInterval)

	if other.Tracing.Enabled {
		c.Tracing.Enabled = true
	}
	mergeString(&c.Tracing.Endpoint, other.Tracing.Endpoint)
	mergeString(&c.Tracing.ServiceName, other.Tracing.ServiceName)
	if other.Tracing.SampleRatio != 0 {
		c.Tracing.SampleRatio = other.Tracing.SampleRatio
	}

	mergeString(&c.Server.Transport, other.Server.Transport)
	mergeString(&c.Server.Addr, other.Server.Addr)
	mergeString(&c.Server.LogLevel, other.Server.LogLevel)
	if other.Server.RateLimit != 0 {
		c.Server.RateLimit = other.Server.RateLimit
	}
	mergeInt(&c.Server.RateBurst, other.Server.RateBurst)
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// applyEnvOverrides applies PERFSHOP_* variables. Malformed numbers are
// reported instead of silently ignored.
func (c *Config) applyEnvOverrides() error {
	ints := map[string]*int{
		"PERFSHOP_MAX_RESULTS":       &c.Search.MaxResults,
		"PERFSHOP_CHUNK_SIZE":        &c.Search.ChunkSize,
		"PERFSHOP_CATALOG_SYNTHETIC": &c.Catalog.Synthetic,
		"PERFSHOP_RATE_BURST":        &c.Server.RateBurst,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return shoperrors.ConfigError(fmt.Sprintf("%s must be an integer, got %q", key, v), err)
			}
			*dst = n
		}
	}

	strs := map[string]*string{
		"PERFSHOP_DEBOUNCE_WINDOW":     &c.Search.DebounceWindow,
		"PERFSHOP_WORKER_TIMEOUT":      &c.Search.WorkerTimeout,
		"PERFSHOP_CATALOG_PATH":        &c.Catalog.Path,
		"PERFSHOP_FLAGS_PATH":          &c.Flags.Path,
		"PERFSHOP_TELEMETRY_DB":        &c.Telemetry.DBPath,
		"PERFSHOP_OTEL_ENDPOINT":       &c.Tracing.Endpoint,
		"PERFSHOP_TRANSPORT":           &c.Server.Transport,
		"PERFSHOP_ADDR":                &c.Server.Addr,
		"PERFSHOP_LOG_LEVEL":           &c.Server.LogLevel,
		"PERFSHOP_LONG_TASK_THRESHOLD": &c.Perf.LongTaskThreshold,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"PERFSHOP_TELEMETRY_ENABLED": &c.Telemetry.Enabled,
		"PERFSHOP_TRACING_ENABLED":   &c.Tracing.Enabled,
		"PERFSHOP_FLAGS_WATCH":       &c.Flags.Watch,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			*dst = strings.EqualFold(v, "true") || v == "1"
		}
	}

	if v := os.Getenv("PERFSHOP_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return shoperrors.ConfigError(fmt.Sprintf("PERFSHOP_RATE_LIMIT must be a number, got %q", v), err)
		}
		c.Server.RateLimit = f
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.MaxResults <= 0 {
		return invalid("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	if c.Search.ChunkSize <= 0 {
		return invalid("search.chunk_size must be positive, got %d", c.Search.ChunkSize)
	}
	if c.Search.WorkerMaxFailures <= 0 {
		return invalid("search.worker_max_failures must be positive, got %d", c.Search.WorkerMaxFailures)
	}
	if c.Catalog.Synthetic < 0 {
		return invalid("catalog.synthetic must be non-negative, got %d", c.Catalog.Synthetic)
	}
	if c.Perf.TimelineCapacity <= 0 {
		return invalid("perf.timeline_capacity must be positive, got %d", c.Perf.TimelineCapacity)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return invalid("tracing.sample_ratio must be between 0 and 1, got %f", c.Tracing.SampleRatio)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return invalid("server.rate_limit and server.rate_burst must be non-negative")
	}

	durations := map[string]string{
		"search.debounce_window":   c.Search.DebounceWindow,
		"search.worker_cooldown":   c.Search.WorkerCooldown,
		"perf.long_task_threshold": c.Perf.LongTaskThreshold,
		"telemetry.flush_interval": c.Telemetry.FlushInterval,
	}
	for name, v := range durations {
		if _, err := time.ParseDuration(v); err != nil {
			return invalid("%s must be a duration like 300ms, got %q", name, v)
		}
	}
	if c.Search.WorkerTimeout != "" {
		if _, err := time.ParseDuration(c.Search.WorkerTimeout); err != nil {
			return invalid("search.worker_timeout must be a duration, got %q", c.Search.WorkerTimeout)
		}
	}

	validTransports := map[string]bool{"stdio": true, "http": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return invalid("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

func invalid(format string, args ...any) error {
	return shoperrors.ConfigError(fmt.Sprintf(format, args...), nil)
}

// Durations holds the parsed duration settings. Only valid after Validate.
type Durations struct {
	Debounce       time.Duration
	WorkerTimeout  time.Duration
	WorkerCooldown time.Duration
	LongTask       time.Duration
	Flush          time.Duration
}

// Durations parses the string duration fields.
func (c *Config) Durations() Durations {
	var d Durations
	d.Debounce, _ = time.ParseDuration(c.Search.DebounceWindow)
	d.WorkerCooldown, _ = time.ParseDuration(c.Search.WorkerCooldown)
	d.LongTask, _ = time.ParseDuration(c.Perf.LongTaskThreshold)
	d.Flush, _ = time.ParseDuration(c.Telemetry.FlushInterval)
	if c.Search.WorkerTimeout != "" {
		d.WorkerTimeout, _ = time.ParseDuration(c.Search.WorkerTimeout)
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
