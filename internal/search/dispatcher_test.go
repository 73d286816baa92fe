package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Aman-CERP/perfshop/internal/catalog"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/telemetry"
	"github.com/Aman-CERP/perfshop/internal/worker"
)

// FailingChannel rejects every call.
type FailingChannel struct {
	calls atomic.Int64
}

func (f *FailingChannel) Call(context.Context, string, []byte) ([]byte, error) {
	f.calls.Add(1)
	return nil, shoperrors.New(shoperrors.ErrCodeChannelRejected, "channel rejected request", nil)
}

// blockingChannel never replies until ctx ends.
type blockingChannel struct{}

func (blockingChannel) Call(ctx context.Context, _ string, _ []byte) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func product(id, name, category string) catalog.Product {
	return catalog.Product{
		ID:          id,
		Name:        name,
		Description: "A " + name,
		Category:    category,
		Price:       decimal.RequireFromString("9.99"),
		Rating:      4,
		InStock:     true,
	}
}

func twoProductCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Product{
		product("p-1", "Wireless Mouse", "Electronics"),
		product("p-2", "Phone Case", "Accessories"),
	})
	require.NoError(t, err)
	return cat
}

func cableCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	products := make([]catalog.Product, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Cable %03d", i)
		if i%3 == 0 {
			name = fmt.Sprintf("Lamp %03d", i)
		}
		products = append(products, product(fmt.Sprintf("p-%03d", i), name, "Home"))
	}
	cat, err := catalog.New(products)
	require.NoError(t, err)
	return cat
}

func newDispatcher(t *testing.T, cat *catalog.Catalog, opts ...Option) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(cat, opts...)
	require.NoError(t, err)
	return d
}

var allFlagCombos = []ExecutionFlags{
	{},
	{UseChunking: true},
	{UseWorker: true},
	{UseWorker: true, UseChunking: true},
	{UseDebounce: true},
}

func TestNewDispatcher_RequiresCatalog(t *testing.T) {
	_, err := NewDispatcher(nil)
	assert.Error(t, err)
}

func TestSearch_ExampleFromCatalog(t *testing.T) {
	// Given: Wireless Mouse and Phone Case
	d := newDispatcher(t, twoProductCatalog(t))

	// When: searching "case"
	out, err := d.Search(context.Background(), "case", ExecutionFlags{})

	// Then: only the phone case matches
	require.NoError(t, err)
	assert.Equal(t, []string{"p-2"}, out.IDs())
	assert.Equal(t, StrategySync, out.Strategy)
	assert.NotEmpty(t, out.RequestID)
}

func TestSearch_EmptyQueryReturnsEmptyList(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		for _, flags := range allFlagCombos {
			ch := &FailingChannel{}
			d := newDispatcher(t, cableCatalog(t, 120), WithChannel(ch))

			out, err := d.Search(context.Background(), q, flags)

			require.NoError(t, err)
			assert.NotNil(t, out.Results)
			assert.Empty(t, out.Results)
			assert.Equal(t, StrategyNone, out.Strategy)
			assert.Zero(t, ch.calls.Load(), "no strategy may run for %q", q)
		}
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	cat, err := catalog.New([]catalog.Product{product("p-1", "Smartphone Case", "Accessories")})
	require.NoError(t, err)
	d := newDispatcher(t, cat)

	out, err := d.Search(context.Background(), "PHONE", ExecutionFlags{})

	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, out.IDs())
}

func TestSearch_AllTermsMustMatch(t *testing.T) {
	// Given: one product matches only "wireless"
	cat, err := catalog.New([]catalog.Product{
		product("p-1", "Wireless Mouse", "Electronics"),
		product("p-2", "Wireless Phone Case", "Accessories"),
	})
	require.NoError(t, err)
	d := newDispatcher(t, cat)

	// When
	out, err := d.Search(context.Background(), "wireless case", ExecutionFlags{})

	// Then: AND semantics excludes the mouse
	require.NoError(t, err)
	assert.Equal(t, []string{"p-2"}, out.IDs())
}

func TestSearch_MatchesCategoryAndDescription(t *testing.T) {
	cat, err := catalog.New([]catalog.Product{
		{ID: "p-1", Name: "Trail Runner", Description: "Waterproof hiking shoe", Category: "Footwear"},
		{ID: "p-2", Name: "Desk Lamp", Description: "LED", Category: "Home"},
	})
	require.NoError(t, err)
	d := newDispatcher(t, cat)

	out, err := d.Search(context.Background(), "footwear waterproof", ExecutionFlags{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1"}, out.IDs())
}

func TestSearch_TruncatesToStablePrefix(t *testing.T) {
	// Given: 120 products, 80 of them cables
	cat := cableCatalog(t, 120)
	d := newDispatcher(t, cat)

	// When
	out, err := d.Search(context.Background(), "cable", ExecutionFlags{})

	// Then: exactly 20, the first 20 cables in catalog order
	require.NoError(t, err)
	require.Len(t, out.Results, DefaultMaxResults)
	assert.Equal(t, 80, out.MatchCount)
	assert.True(t, out.Truncated())

	var want []string
	for _, p := range cat.Products() {
		if Matches(p, Terms("cable")) {
			want = append(want, p.ID)
		}
	}
	assert.Equal(t, want[:DefaultMaxResults], out.IDs())
}

func TestSearch_SyncAndChunkedAgree(t *testing.T) {
	cat := cableCatalog(t, 137)
	d := newDispatcher(t, cat, WithMaxResults(1000))

	for _, q := range []string{"cable", "lamp", "home", "cable 01", "zzz", "a"} {
		syncOut, err := d.Search(context.Background(), q, ExecutionFlags{})
		require.NoError(t, err)
		chunkOut, err := d.Search(context.Background(), q, ExecutionFlags{UseChunking: true})
		require.NoError(t, err)

		assert.Equal(t, syncOut.IDs(), chunkOut.IDs(), q)
		assert.Equal(t, StrategyChunked, chunkOut.Strategy)
		assert.Equal(t, 3, chunkOut.ChunkCount, "137 products in chunks of 50")
	}
}

func TestSearch_ChunkedYieldsBetweenChunks(t *testing.T) {
	var yields int
	d := newDispatcher(t, cableCatalog(t, 101), WithYielder(func() { yields++ }), WithChunkSize(25))

	out, err := d.Search(context.Background(), "cable", ExecutionFlags{UseChunking: true})

	require.NoError(t, err)
	assert.Equal(t, 5, out.ChunkCount)
	assert.Equal(t, 5, yields)
}

func TestSearch_ChunkedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var yields int
	d := newDispatcher(t, cableCatalog(t, 200), WithYielder(func() {
		yields++
		cancel()
	}))

	_, err := d.Search(ctx, "cable", ExecutionFlags{UseChunking: true})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, yields)
}

func TestSearch_WorkerStrategy(t *testing.T) {
	// Given: a live worker serving the search handler
	w := worker.Spawn(Handlers())
	defer w.Terminate()
	cat := cableCatalog(t, 120)
	d := newDispatcher(t, cat, WithChannel(w))

	// When
	out, err := d.Search(context.Background(), "cable", ExecutionFlags{UseWorker: true, UseChunking: true})

	// Then: worker results are capped by the dispatcher and match sync
	require.NoError(t, err)
	assert.Equal(t, StrategyWorker, out.Strategy)
	assert.False(t, out.Fallback)
	assert.Equal(t, 80, out.MatchCount)
	require.Len(t, out.Results, DefaultMaxResults)

	syncOut, err := d.Search(context.Background(), "cable", ExecutionFlags{})
	require.NoError(t, err)
	assert.Equal(t, syncOut.IDs(), out.IDs())
	for _, r := range out.Results {
		assert.GreaterOrEqual(t, r.Relevance, 60)
		assert.LessOrEqual(t, r.Relevance, 99)
	}
}

func TestSearch_RejectingChannelFallsBack(t *testing.T) {
	cat := cableCatalog(t, 120)

	tests := []struct {
		name     string
		flags    ExecutionFlags
		strategy Strategy
	}{
		{"to sync", ExecutionFlags{UseWorker: true}, StrategySync},
		{"to chunked", ExecutionFlags{UseWorker: true, UseChunking: true}, StrategyChunked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a channel that always rejects
			ch := &FailingChannel{}
			d := newDispatcher(t, cat, WithChannel(ch))

			// When
			out, err := d.Search(context.Background(), "lamp", tt.flags)

			// Then: same results as sync, no error, exactly one attempt
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, out.Strategy)
			assert.True(t, out.Fallback)
			assert.Contains(t, out.FallbackReason, "rejected")
			assert.Equal(t, int64(1), ch.calls.Load())

			want, err := d.Search(context.Background(), "lamp", ExecutionFlags{})
			require.NoError(t, err)
			assert.Equal(t, want.IDs(), out.IDs())

			_, fallbacks := d.Stats()
			assert.Equal(t, int64(1), fallbacks)
		})
	}
}

func TestSearch_NoChannelFallsBack(t *testing.T) {
	d := newDispatcher(t, twoProductCatalog(t))

	out, err := d.Search(context.Background(), "case", ExecutionFlags{UseWorker: true})

	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, StrategySync, out.Strategy)
	assert.Equal(t, []string{"p-2"}, out.IDs())
}

func TestSearch_TerminatedWorkerFallsBack(t *testing.T) {
	w := worker.Spawn(Handlers())
	w.Terminate()
	d := newDispatcher(t, twoProductCatalog(t), WithChannel(w))

	out, err := d.Search(context.Background(), "case", ExecutionFlags{UseWorker: true})

	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, []string{"p-2"}, out.IDs())
}

func TestSearch_WorkerTimeoutFallsBack(t *testing.T) {
	d := newDispatcher(t, twoProductCatalog(t),
		WithChannel(blockingChannel{}),
		WithWorkerTimeout(20*time.Millisecond))

	out, err := d.Search(context.Background(), "case", ExecutionFlags{UseWorker: true})

	require.NoError(t, err)
	assert.True(t, out.Fallback)
	assert.Equal(t, []string{"p-2"}, out.IDs())
}

func TestSearch_CallerCancelWhileWaitingOnWorker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d := newDispatcher(t, twoProductCatalog(t), WithChannel(blockingChannel{}))

	_, err := d.Search(ctx, "case", ExecutionFlags{UseWorker: true})

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSearch_CallerCancelDoesNotTripBreaker(t *testing.T) {
	// Given: a breaker that opens on the first failure
	cb := shoperrors.NewCircuitBreaker("search-worker", shoperrors.WithMaxFailures(1), shoperrors.WithCooldown(time.Hour))
	stalled := newDispatcher(t, twoProductCatalog(t), WithChannel(blockingChannel{}), WithBreaker(cb))

	// When: a caller gives up while the worker is busy
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := stalled.Search(ctx, "case", ExecutionFlags{UseWorker: true})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Then: the breaker stays closed and a healthy worker is still used
	assert.Equal(t, shoperrors.StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())

	w := worker.Spawn(Handlers())
	defer w.Terminate()
	healthy := newDispatcher(t, twoProductCatalog(t), WithChannel(w), WithBreaker(cb))
	out, err := healthy.Search(context.Background(), "case", ExecutionFlags{UseWorker: true})
	require.NoError(t, err)
	assert.Equal(t, StrategyWorker, out.Strategy)
	assert.False(t, out.Fallback)
}

func TestSearch_NoMatchesEncodeAsEmptyList(t *testing.T) {
	w := worker.Spawn(Handlers())
	defer w.Terminate()
	d := newDispatcher(t, twoProductCatalog(t), WithChannel(w))

	for _, flags := range allFlagCombos {
		t.Run(fmt.Sprintf("%+v", flags), func(t *testing.T) {
			// When: nothing matches
			out, err := d.Search(context.Background(), "zzz", flags)
			require.NoError(t, err)

			// Then: results encode as [] for every strategy
			raw, err := json.Marshal(out.Results)
			require.NoError(t, err)
			assert.JSONEq(t, "[]", string(raw))
			assert.Equal(t, 0, out.MatchCount)
		})
	}
}

func TestSearch_LogsThroughConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := newDispatcher(t, twoProductCatalog(t), WithLogger(logger))

	_, err := d.Search(context.Background(), "case", ExecutionFlags{})

	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"search_complete"`)
	assert.Contains(t, buf.String(), `"strategy":"sync"`)
}

func TestSearch_OpenBreakerSkipsWorker(t *testing.T) {
	// Given: a breaker that opens after two failures
	ch := &FailingChannel{}
	cb := shoperrors.NewCircuitBreaker("search-worker", shoperrors.WithMaxFailures(2), shoperrors.WithCooldown(time.Hour))
	d := newDispatcher(t, twoProductCatalog(t), WithChannel(ch), WithBreaker(cb))

	// When: four worker searches
	for i := 0; i < 4; i++ {
		out, err := d.Search(context.Background(), "case", ExecutionFlags{UseWorker: true})
		require.NoError(t, err)
		assert.True(t, out.Fallback)
	}

	// Then: the channel only saw the first two
	assert.Equal(t, int64(2), ch.calls.Load())
	assert.Equal(t, shoperrors.StateOpen, cb.State())
}

func TestSearch_Instrumentation(t *testing.T) {
	// Given: a span recorder, timeline and metrics collector
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	timeline := perf.NewTimeline(0, 0)
	metrics := telemetry.NewQueryMetrics(nil)
	defer metrics.Close()

	d := newDispatcher(t, cableCatalog(t, 120),
		WithTracer(tp.Tracer("test")),
		WithTimeline(timeline),
		WithMetrics(metrics),
		WithChannel(&FailingChannel{}))

	// When
	_, err := d.Search(context.Background(), "cable", ExecutionFlags{UseWorker: true, UseChunking: true})
	require.NoError(t, err)

	// Then: one dispatch span with the outcome attributes
	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "search.dispatch", spans[0].Name())
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "chunked", attrs["search.strategy"].AsString())
	assert.True(t, attrs["search.fallback"].AsBool())
	assert.Equal(t, int64(80), attrs["search.matches"].AsInt64())

	// Then: timeline has the search, worker attempt and three chunks
	assert.Len(t, timeline.Measures(MeasureSearch), 1)
	assert.Len(t, timeline.Measures(MeasureWorker), 1)
	assert.Len(t, timeline.Measures(MeasureChunk), 3)

	// Then: metrics saw a truncated, fallen-back chunked search
	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.StrategyCounts["chunked"])
	assert.Equal(t, int64(1), snap.FallbackCount)
	assert.Equal(t, int64(1), snap.TruncatedCount)
}

func TestSearch_CustomRelevance(t *testing.T) {
	d := newDispatcher(t, twoProductCatalog(t), WithRelevance(func() int { return 77 }))

	out, err := d.Search(context.Background(), "a", ExecutionFlags{})

	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	for _, r := range out.Results {
		assert.Equal(t, 77, r.Relevance)
	}
}
