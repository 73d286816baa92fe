// Package cmd provides the CLI commands for perfshop.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/perfshop/internal/app"
	"github.com/Aman-CERP/perfshop/internal/config"
	"github.com/Aman-CERP/perfshop/internal/logging"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/pkg/version"
)

// annotationLogging marks commands that own the terminal; their logs go to
// the rotating file only.
const annotationLogging = "logging"

// Profiling flags
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     *perf.Profiler
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the perfshop CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perfshop",
		Short: "A storefront that demonstrates search performance patterns",
		Long: `perfshop is a product catalog whose search runs on a background worker,
in yielding chunks, or synchronously, depending on a set of performance flags.

Toggle anti-patterns and their fixes with 'perfshop flags', watch the effect
with 'perfshop live', and compare strategies with 'perfshop bench'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("perfshop version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.perfshop/logs/")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newFlagsCmd())
	cmd.AddCommand(newBenchCmd())
	cmd.AddCommand(newBudgetCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newLiveCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts profiling and installs the logger.
func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	logCfg.Level = "warn"
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	if cmd.Annotations[annotationLogging] == "file" {
		level := "info"
		if debugMode {
			level = "debug"
		}
		logCfg = logging.QuietConfig(level)
	}

	cleanup, err := logging.Install(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	if debugMode {
		slog.Info("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	opts := perf.ProfileOptions{CPUPath: profileCPU, MemPath: profileMem, TracePath: profileTrace}
	if opts.Enabled() {
		profiler = perf.NewProfiler(opts)
		if err := profiler.Start(); err != nil {
			return err
		}
	}
	return nil
}

// stopProfilingAndLogging stops profiling and flushes the log file.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if profiler != nil {
		err := profiler.Stop()
		profiler = nil
		if err != nil {
			return fmt.Errorf("failed to write profiles: %w", err)
		}
	}

	if loggingCleanup != nil {
		slog.Debug("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// loadConfig loads configuration for the working directory.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return config.Load(cwd)
}

// openApp assembles the app. One-shot commands pass watch=false so no
// watcher outlives them.
func openApp(ctx context.Context, watch bool) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Flags.Watch = cfg.Flags.Watch && watch
	return app.New(ctx, cfg, app.Options{})
}
