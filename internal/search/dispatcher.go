package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aman-CERP/perfshop/internal/catalog"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/telemetry"
)

// Timeline measure names.
const (
	MeasureSearch = "search"
	MeasureChunk  = "search.chunk"
	MeasureWorker = "search.worker"
)

const tracerName = "github.com/Aman-CERP/perfshop/internal/search"

// Dispatcher runs searches against a fixed catalog.
type Dispatcher struct {
	catalog *catalog.Catalog

	channel       Channel
	breaker       *shoperrors.CircuitBreaker
	workerTimeout time.Duration

	chunkSize  int
	maxResults int
	yield      Yielder
	relevance  RelevanceFunc

	metrics  *telemetry.QueryMetrics
	timeline *perf.Timeline
	tracer   trace.Tracer
	logger   *slog.Logger

	searches  atomic.Int64
	fallbacks atomic.Int64
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithChannel sets the background channel used when UseWorker is on.
func WithChannel(ch Channel) Option {
	return func(d *Dispatcher) {
		d.channel = ch
	}
}

// WithBreaker guards the channel. While the circuit is open the worker
// strategy is skipped without a call.
func WithBreaker(cb *shoperrors.CircuitBreaker) Option {
	return func(d *Dispatcher) {
		d.breaker = cb
	}
}

// WithWorkerTimeout bounds a single worker call.
func WithWorkerTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.workerTimeout = timeout
		}
	}
}

// WithChunkSize sets how many products each chunk holds.
func WithChunkSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.chunkSize = n
		}
	}
}

// WithMaxResults sets the result cap.
func WithMaxResults(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxResults = n
		}
	}
}

// WithYielder replaces runtime.Gosched between chunks.
func WithYielder(y Yielder) Option {
	return func(d *Dispatcher) {
		if y != nil {
			d.yield = y
		}
	}
}

// WithRelevance replaces the random relevance generator for the chunked and
// sync strategies. Worker replies carry the worker's own relevance.
func WithRelevance(fn RelevanceFunc) Option {
	return func(d *Dispatcher) {
		d.relevance = fn
	}
}

// WithMetrics records every search in the query metrics collector.
func WithMetrics(m *telemetry.QueryMetrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithTimeline records search and chunk durations.
func WithTimeline(t *perf.Timeline) Option {
	return func(d *Dispatcher) {
		d.timeline = t
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher over cat.
func NewDispatcher(cat *catalog.Catalog, opts ...Option) (*Dispatcher, error) {
	if cat == nil {
		return nil, shoperrors.InternalError("search dispatcher requires a catalog", nil)
	}
	d := &Dispatcher{
		catalog:       cat,
		workerTimeout: DefaultWorkerTimeout,
		chunkSize:     DefaultChunkSize,
		maxResults:    DefaultMaxResults,
		yield:         runtime.Gosched,
		tracer:        otel.Tracer(tracerName),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Catalog returns the catalog being searched.
func (d *Dispatcher) Catalog() *catalog.Catalog {
	return d.catalog
}

// MaxResults returns the result cap.
func (d *Dispatcher) MaxResults() int {
	return d.maxResults
}

// Stats returns how many searches ran and how many fell back from the worker.
func (d *Dispatcher) Stats() (searches, fallbacks int64) {
	return d.searches.Load(), d.fallbacks.Load()
}

// Search runs query with the strategy selected by flags. Worker failures
// are absorbed by falling back to a local scan; the only error returned is
// cancellation of ctx.
func (d *Dispatcher) Search(ctx context.Context, query string, flags ExecutionFlags) (*Outcome, error) {
	out := &Outcome{
		Query:     query,
		Results:   []SearchResult{},
		Strategy:  StrategyNone,
		RequestID: uuid.NewString(),
	}

	terms := Terms(query)
	if len(terms) == 0 {
		return out, nil
	}

	ctx, span := d.tracer.Start(ctx, "search.dispatch", trace.WithAttributes(
		attribute.String("search.request_id", out.RequestID),
		attribute.Int("search.terms", len(terms)),
		attribute.Bool("search.flags.worker", flags.UseWorker),
		attribute.Bool("search.flags.chunking", flags.UseChunking),
	))
	defer span.End()

	start := time.Now()
	d.searches.Add(1)

	results, err := d.dispatch(ctx, terms, flags, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out.MatchCount = len(results)
	out.Results = truncate(results, d.maxResults)
	out.Duration = time.Since(start)

	span.SetAttributes(
		attribute.String("search.strategy", string(out.Strategy)),
		attribute.Bool("search.fallback", out.Fallback),
		attribute.Int("search.matches", out.MatchCount),
		attribute.Int("search.results", len(out.Results)),
		attribute.Int("search.chunks", out.ChunkCount),
	)

	if d.timeline != nil {
		d.timeline.Measure(MeasureSearch, start, start.Add(out.Duration))
	}
	if d.metrics != nil {
		d.metrics.Record(telemetry.QueryEvent{
			Query:       query,
			Strategy:    string(out.Strategy),
			Fallback:    out.Fallback,
			ResultCount: len(out.Results),
			MatchCount:  out.MatchCount,
			Latency:     out.Duration,
			Timestamp:   start,
		})
	}

	d.logger.Debug("search_complete",
		slog.String("request_id", out.RequestID),
		slog.String("strategy", string(out.Strategy)),
		slog.Bool("fallback", out.Fallback),
		slog.Int("matches", out.MatchCount),
		slog.Duration("duration", out.Duration))

	return out, nil
}

// dispatch evaluates the strategy rules in precedence order.
func (d *Dispatcher) dispatch(ctx context.Context, terms []string, flags ExecutionFlags, out *Outcome) ([]SearchResult, error) {
	if flags.UseWorker {
		results, err := d.viaWorker(ctx, terms)
		if err == nil {
			out.Strategy = StrategyWorker
			return results, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		out.Fallback = true
		out.FallbackReason = err.Error()
		d.fallbacks.Add(1)
		d.logger.Warn("worker search failed, falling back",
			slog.String("request_id", out.RequestID),
			slog.String("error", err.Error()),
			slog.Bool("chunked", flags.UseChunking))
	}

	if flags.UseChunking {
		out.Strategy = StrategyChunked
		return d.chunked(ctx, terms, out)
	}

	out.Strategy = StrategySync
	return Filter(d.catalog.Products(), terms, d.relevance), nil
}

// viaWorker sends the query and a copy of the catalog over the channel and
// waits for one reply. It never retries.
func (d *Dispatcher) viaWorker(ctx context.Context, terms []string) ([]SearchResult, error) {
	if d.channel == nil {
		return nil, shoperrors.New(shoperrors.ErrCodeChannelUnavailable, "no worker channel configured", nil)
	}

	call := func() ([]SearchResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.workerTimeout)
		defer cancel()

		started := time.Now()
		payload, err := json.Marshal(workerRequest{
			Query:    strings.Join(terms, " "),
			Products: d.catalog.Products(),
		})
		if err != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeChannelProtocol, "failed to encode search request", err)
		}

		raw, err := d.channel.Call(callCtx, WorkerOp, payload)
		if d.timeline != nil {
			d.timeline.Measure(MeasureWorker, started, time.Now())
		}
		if err != nil {
			return nil, err
		}

		if len(raw) == 0 {
			return nil, shoperrors.ChannelError("worker returned no usable reply", nil)
		}
		var reply workerReply
		if err := json.Unmarshal(raw, &reply); err != nil {
			return nil, shoperrors.New(shoperrors.ErrCodeChannelProtocol, "failed to decode search reply", err)
		}
		if reply.Results == nil {
			reply.Results = []SearchResult{}
		}
		return reply.Results, nil
	}

	if d.breaker == nil {
		return call()
	}
	return shoperrors.CircuitExecuteWithResult(ctx, d.breaker, call, func(err error) ([]SearchResult, error) {
		return nil, err
	})
}

// chunked filters the catalog chunkSize products at a time, yielding after
// each chunk and stopping early if ctx is cancelled.
func (d *Dispatcher) chunked(ctx context.Context, terms []string, out *Outcome) ([]SearchResult, error) {
	products := d.catalog.Products()
	results := make([]SearchResult, 0)

	for i := 0; i < len(products); i += d.chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(i+d.chunkSize, len(products))
		started := time.Now()
		results = append(results, Filter(products[i:end], terms, d.relevance)...)
		if d.timeline != nil {
			d.timeline.Measure(MeasureChunk, started, time.Now())
		}
		out.ChunkCount++

		d.yield()
	}
	return results, nil
}

