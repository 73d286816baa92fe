// Package ui provides the interactive search terminal and its plain-text
// fallback.
package ui

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/perfshop/internal/flags"
)

// Config configures a live search session.
type Config struct {
	Input      io.Reader
	Output     io.Writer
	ForcePlain bool
	NoColor    bool

	// Flags is consulted before every search.
	Flags *flags.Store

	// DebounceWindow is the quiet period before a debounced search runs.
	DebounceWindow time.Duration

	// InitialQuery is searched immediately.
	InitialQuery string
}

// ConfigOption is a function that modifies Config.
type ConfigOption func(*Config)

// WithForcePlain forces plain text output.
func WithForcePlain(force bool) ConfigOption {
	return func(c *Config) {
		c.ForcePlain = force
	}
}

// WithNoColor disables color output.
func WithNoColor(noColor bool) ConfigOption {
	return func(c *Config) {
		c.NoColor = noColor
	}
}

// WithDebounceWindow overrides the debounce quiet period.
func WithDebounceWindow(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.DebounceWindow = d
	}
}

// WithInitialQuery searches q as soon as the session starts.
func WithInitialQuery(q string) ConfigOption {
	return func(c *Config) {
		c.InitialQuery = q
	}
}

// NewConfig creates a Config over the given streams.
func NewConfig(in io.Reader, out io.Writer, store *flags.Store, opts ...ConfigOption) Config {
	cfg := Config{
		Input:  in,
		Output: out,
		Flags:  store,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Interactive reports whether cfg should get the full-screen terminal.
func (c Config) Interactive() bool {
	return !c.ForcePlain && IsTTY(c.Output) && !DetectCI()
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// DetectCI checks if running in a CI environment.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"} {
		if _, exists := os.LookupEnv(v); exists {
			return true
		}
	}
	return false
}
