// Package app assembles the storefront from configuration: catalog, flags,
// cart, background worker, search dispatcher and instrumentation. Every
// surface (CLI, HTTP, MCP, TUI) runs on top of one App.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Aman-CERP/perfshop/internal/cart"
	"github.com/Aman-CERP/perfshop/internal/catalog"
	"github.com/Aman-CERP/perfshop/internal/config"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/flags"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/search"
	"github.com/Aman-CERP/perfshop/internal/telemetry"
	"github.com/Aman-CERP/perfshop/internal/worker"
)

// InflatedCatalogSize is how many synthetic products the long-tasks flag
// adds to the catalog.
const InflatedCatalogSize = 20000

// BlockingScriptsDuration is how long the blocking-scripts flag stalls
// startup.
const BlockingScriptsDuration = 120 * time.Millisecond

// Options adjusts what New wires up.
type Options struct {
	// Ephemeral keeps flags in memory and skips the telemetry database.
	Ephemeral bool

	// Catalog replaces the configured catalog.
	Catalog *catalog.Catalog

	// Channel replaces the background worker.
	Channel search.Channel
}

// App is the assembled storefront.
type App struct {
	Config    *config.Config
	Durations config.Durations

	Catalog  *catalog.Catalog
	Flags    *flags.Store
	FlagFile *flags.FileBackend
	Cart     *cart.Cart

	Worker   *worker.Worker
	Breaker  *shoperrors.CircuitBreaker
	Timeline *perf.Timeline
	Vitals   *perf.Dashboard
	Metrics  *telemetry.QueryMetrics
	Store    *telemetry.SQLiteMetricsStore

	base       *catalog.Catalog
	dispatcher *search.Dispatcher
	channel    search.Channel
	seed       int64

	inflateOnce sync.Once
	inflated    *search.Dispatcher
	inflateErr  error

	closeOnce sync.Once
}

// New builds an App from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	a := &App{
		Config:    cfg,
		Durations: cfg.Durations(),
		seed:      cfg.Catalog.Seed,
	}

	cat, err := a.loadCatalog(opts.Catalog)
	if err != nil {
		return nil, err
	}
	a.Catalog = cat

	if opts.Ephemeral {
		a.Flags, err = flags.NewStore(nil)
	} else {
		a.FlagFile = flags.NewFileBackend(cfg.Flags.Path)
		a.Flags, err = flags.NewStore(a.FlagFile)
	}
	if err != nil {
		return nil, err
	}

	a.Cart = cart.New(a.Catalog)
	a.Timeline = perf.NewTimeline(cfg.Perf.TimelineCapacity, a.Durations.LongTask)
	a.Vitals = perf.NewDashboard(0)
	a.Breaker = shoperrors.NewCircuitBreaker("search-worker",
		shoperrors.WithMaxFailures(cfg.Search.WorkerMaxFailures),
		shoperrors.WithCooldown(a.Durations.WorkerCooldown))

	if cfg.Telemetry.Enabled && !opts.Ephemeral {
		store, err := telemetry.OpenSQLiteMetricsStore(cfg.Telemetry.DBPath)
		if err != nil {
			// Telemetry is best-effort; keep serving without persistence.
			slog.Warn("telemetry store unavailable", slog.String("error", err.Error()))
		} else {
			a.Store = store
		}
	}
	var metricsStore telemetry.MetricsStore
	if a.Store != nil {
		metricsStore = a.Store
	}
	metricsCfg := telemetry.DefaultQueryMetricsConfig()
	metricsCfg.FlushInterval = a.Durations.Flush
	a.Metrics = telemetry.NewQueryMetricsWithConfig(metricsStore, metricsCfg)

	a.channel = opts.Channel
	if a.channel == nil {
		a.Worker = worker.Spawn(search.Handlers())
		a.channel = a.Worker
	}

	a.dispatcher, err = a.newDispatcher(a.Catalog)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if a.FlagFile != nil && cfg.Flags.Watch {
		if err := a.Flags.WatchFile(ctx, a.FlagFile); err != nil {
			slog.Warn("flags watcher unavailable", slog.String("error", err.Error()))
		}
	}

	if on, _ := a.Flags.Get(flags.BlockingScripts); on {
		a.blockStartup(BlockingScriptsDuration)
	}

	slog.Info("app ready",
		slog.Int("products", a.Catalog.Len()),
		slog.Any("flags", a.Flags.Snapshot().Enabled()),
		slog.Bool("telemetry", a.Store != nil))
	return a, nil
}

func (a *App) loadCatalog(override *catalog.Catalog) (*catalog.Catalog, error) {
	cat := override
	if cat == nil {
		var err error
		if a.Config.Catalog.Path != "" {
			cat, err = catalog.LoadFile(a.Config.Catalog.Path)
		} else {
			cat, err = catalog.Default()
		}
		if err != nil {
			return nil, err
		}
	}
	a.base = cat
	if n := a.Config.Catalog.Synthetic; n > 0 {
		return cat.Extend(catalog.Generate(n, a.seed))
	}
	return cat, nil
}

func (a *App) newDispatcher(cat *catalog.Catalog) (*search.Dispatcher, error) {
	return search.NewDispatcher(cat,
		search.WithChannel(a.channel),
		search.WithBreaker(a.Breaker),
		search.WithWorkerTimeout(a.Durations.WorkerTimeout),
		search.WithChunkSize(a.Config.Search.ChunkSize),
		search.WithMaxResults(a.Config.Search.MaxResults),
		search.WithMetrics(a.Metrics),
		search.WithTimeline(a.Timeline),
	)
}

// blockStartup spins on the calling goroutine, the way a render-blocking
// script holds the main thread.
func (a *App) blockStartup(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
	a.Timeline.Measure("boot.blocking-scripts", start, time.Now())
}

// Dispatcher returns the dispatcher for the current flags. With long-tasks
// on, searches run over the base catalog plus InflatedCatalogSize synthetic
// products.
func (a *App) Dispatcher() *search.Dispatcher {
	if on, _ := a.Flags.Get(flags.LongTasks); !on {
		return a.dispatcher
	}
	a.inflateOnce.Do(func() {
		n := max(InflatedCatalogSize, a.Config.Catalog.Synthetic)
		cat, err := a.base.Extend(catalog.Generate(n, a.seed))
		if err != nil {
			a.inflateErr = err
			return
		}
		a.inflated, a.inflateErr = a.newDispatcher(cat)
	})
	if a.inflateErr != nil {
		slog.Warn("inflated catalog unavailable", slog.String("error", a.inflateErr.Error()))
		return a.dispatcher
	}
	return a.inflated
}

// Search runs query with the execution flags currently set.
func (a *App) Search(ctx context.Context, query string) (*search.Outcome, error) {
	return a.Dispatcher().Search(ctx, query, a.Flags.Execution())
}

// RecordVitals adds samples to the in-memory dashboard and the telemetry
// store.
func (a *App) RecordVitals(samples ...perf.Sample) error {
	if err := a.Vitals.Add(samples...); err != nil {
		return err
	}
	if a.Store != nil {
		if err := a.Store.AddSamples(samples); err != nil {
			slog.Warn("failed to persist samples", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Report summarizes vitals plus the timeline's long tasks and search
// latencies.
func (a *App) Report() perf.Report {
	samples := append(a.Vitals.Samples(), perf.SamplesFromTimeline(a.Timeline, search.MeasureSearch)...)
	return perf.Summarize(samples)
}

// Close stops the worker, flushes telemetry and closes the store.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.Worker != nil {
			a.Worker.Terminate()
		}
		if a.Metrics != nil {
			if err := a.Metrics.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if a.Store != nil {
			if err := a.Store.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}
