// Package telemetry records how searches behave: which strategy served them,
// how long they took, which terms were used and which queries found nothing.
// All data stays local.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyBuckets lists the buckets in ascending order.
var LatencyBuckets = []LatencyBucket{BucketP10, BucketP50, BucketP100, BucketP500, BucketP1000}

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// Label returns a human-readable range for the bucket.
func (b LatencyBucket) Label() string {
	switch b {
	case BucketP10:
		return "<10ms"
	case BucketP50:
		return "10-50ms"
	case BucketP100:
		return "50-100ms"
	case BucketP500:
		return "100-500ms"
	default:
		return ">=500ms"
	}
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent represents a single dispatched search.
type QueryEvent struct {
	Query       string
	Strategy    string
	Fallback    bool
	ResultCount int
	MatchCount  int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	items    []T
	head     int
	size     int
	capacity int
	mu       sync.RWMutex
}

// NewCircularBuffer creates a new circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add adds an item to the buffer. If full, the oldest item is evicted.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns all items in FIFO order (oldest first).
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of items in the buffer.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// =============================================================================
// Term Extraction
// =============================================================================

// ExtractTerms extracts lower-cased terms of at least two bytes.
func ExtractTerms(query string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) >= 2 {
			terms = append(terms, w)
		}
	}
	return terms
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// =============================================================================
// Snapshot
// =============================================================================

// QueryMetricsSnapshot is an immutable snapshot of query metrics.
type QueryMetricsSnapshot struct {
	StrategyCounts      map[string]int64        `json:"strategy_counts"`
	FallbackCount       int64                   `json:"fallback_count"`
	TopTerms            []TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                `json:"zero_result_queries"`
	LatencyDistribution map[LatencyBucket]int64 `json:"latency_distribution"`
	TotalQueries        int64                   `json:"total_queries"`
	ZeroResultCount     int64                   `json:"zero_result_count"`
	TruncatedCount      int64                   `json:"truncated_count"`
	ExactRepeatCount    int64                   `json:"exact_repeat_count"`
	Since               time.Time               `json:"since"`
}

// ZeroResultPercentage returns the percentage of zero-result queries.
func (s *QueryMetricsSnapshot) ZeroResultPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.ZeroResultCount) / float64(s.TotalQueries) * 100
}

// FallbackPercentage returns the share of queries where the background
// channel failed and a local strategy served the results.
func (s *QueryMetricsSnapshot) FallbackPercentage() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.FallbackCount) / float64(s.TotalQueries) * 100
}

// =============================================================================
// Configuration
// =============================================================================

// QueryMetricsConfig configures the query metrics collector.
type QueryMetricsConfig struct {
	TopTermsCapacity      int           // Max terms to track (default: 100)
	ZeroResultsCapacity   int           // Max zero-result queries to keep (default: 100)
	RecentQueriesCapacity int           // Queries remembered for repeat detection (default: 500)
	FlushInterval         time.Duration // How often to flush to store (0 = no auto-flush)
}

// DefaultQueryMetricsConfig returns sensible defaults.
func DefaultQueryMetricsConfig() QueryMetricsConfig {
	return QueryMetricsConfig{
		TopTermsCapacity:      100,
		ZeroResultsCapacity:   100,
		RecentQueriesCapacity: 500,
		FlushInterval:         60 * time.Second,
	}
}

// =============================================================================
// Query Metrics
// =============================================================================

// zeroResult is a zero-result query waiting to be flushed.
type zeroResult struct {
	query string
	at    time.Time
}

// QueryMetrics collects search telemetry. Safe for concurrent use.
//
// Cumulative totals feed Snapshot. Separately, everything recorded since
// the last Flush is kept as a delta so the store only ever adds new counts.
type QueryMetrics struct {
	mu sync.Mutex

	strategies      map[string]int64
	fallbacks       int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	latencies       map[LatencyBucket]int64
	totalQueries    int64
	zeroResultCount int64
	truncated       int64
	recentQueries   *lru.Cache[string, struct{}]
	exactRepeats    int64
	startTime       time.Time

	pendingStrategies map[string]int64
	pendingTerms      map[string]int64
	pendingLatencies  map[LatencyBucket]int64
	pendingZero       []zeroResult

	store  MetricsStore
	config QueryMetricsConfig
	stopCh chan struct{}
	doneCh chan struct{}
	closed bool
}

// NewQueryMetrics creates a collector with default configuration.
// If store is nil, metrics are only kept in memory.
func NewQueryMetrics(store MetricsStore) *QueryMetrics {
	return NewQueryMetricsWithConfig(store, DefaultQueryMetricsConfig())
}

// NewQueryMetricsWithConfig creates a collector with custom configuration.
func NewQueryMetricsWithConfig(store MetricsStore, cfg QueryMetricsConfig) *QueryMetrics {
	if cfg.TopTermsCapacity <= 0 {
		cfg.TopTermsCapacity = 100
	}
	if cfg.ZeroResultsCapacity <= 0 {
		cfg.ZeroResultsCapacity = 100
	}
	if cfg.RecentQueriesCapacity <= 0 {
		cfg.RecentQueriesCapacity = 500
	}

	topTerms, _ := lru.New[string, int64](cfg.TopTermsCapacity)
	recentQueries, _ := lru.New[string, struct{}](cfg.RecentQueriesCapacity)

	m := &QueryMetrics{
		strategies:    make(map[string]int64),
		topTerms:      topTerms,
		zeroResults:   NewCircularBuffer[string](cfg.ZeroResultsCapacity),
		latencies:     make(map[LatencyBucket]int64),
		recentQueries: recentQueries,
		startTime:     time.Now(),
		store:         store,
		config:        cfg,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	m.resetPending()

	if cfg.FlushInterval > 0 && store != nil {
		go m.flushLoop(cfg.FlushInterval)
	} else {
		close(m.doneCh)
	}
	return m
}

func (m *QueryMetrics) resetPending() {
	m.pendingStrategies = make(map[string]int64)
	m.pendingTerms = make(map[string]int64)
	m.pendingLatencies = make(map[LatencyBucket]int64)
	m.pendingZero = nil
}

// flushLoop periodically flushes metrics to storage.
func (m *QueryMetrics) flushLoop(interval time.Duration) {
	defer close(m.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Flush(); err != nil {
				slog.Warn("telemetry flush failed", slog.String("error", err.Error()))
			}
		case <-m.stopCh:
			return
		}
	}
}

// Record captures one search. Non-blocking apart from the collector lock.
func (m *QueryMetrics) Record(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.totalQueries++
	m.strategies[event.Strategy]++
	m.pendingStrategies[event.Strategy]++
	if event.Fallback {
		m.fallbacks++
	}
	if event.MatchCount > event.ResultCount {
		m.truncated++
	}

	for _, term := range ExtractTerms(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
		m.pendingTerms[term]++
	}

	if event.IsZeroResult() {
		m.zeroResults.Add(event.Query)
		m.zeroResultCount++
		m.pendingZero = append(m.pendingZero, zeroResult{query: event.Query, at: event.Timestamp})
	}

	bucket := LatencyToBucket(event.Latency)
	m.latencies[bucket]++
	m.pendingLatencies[bucket]++

	key := hashQuery(event.Query)
	if _, seen := m.recentQueries.Get(key); seen {
		m.exactRepeats++
	}
	m.recentQueries.Add(key, struct{}{})
}

// hashQuery creates a normalized hash of the query for repeat detection.
func hashQuery(query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:16])
}

// Snapshot returns current cumulative metrics.
func (m *QueryMetrics) Snapshot() *QueryMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	strategies := make(map[string]int64, len(m.strategies))
	for k, v := range m.strategies {
		strategies[k] = v
	}

	var topTerms []TermCount
	for _, key := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(key); ok {
			topTerms = append(topTerms, TermCount{Term: key, Count: count})
		}
	}
	sort.SliceStable(topTerms, func(i, j int) bool {
		if topTerms[i].Count != topTerms[j].Count {
			return topTerms[i].Count > topTerms[j].Count
		}
		return topTerms[i].Term < topTerms[j].Term
	})

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &QueryMetricsSnapshot{
		StrategyCounts:      strategies,
		FallbackCount:       m.fallbacks,
		TopTerms:            topTerms,
		ZeroResultQueries:   m.zeroResults.Items(),
		LatencyDistribution: latencies,
		TotalQueries:        m.totalQueries,
		ZeroResultCount:     m.zeroResultCount,
		TruncatedCount:      m.truncated,
		ExactRepeatCount:    m.exactRepeats,
		Since:               m.startTime,
	}
}

// Flush persists everything recorded since the previous flush. Safe to call
// without a store. On failure the delta is kept for the next attempt.
func (m *QueryMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	strategies := m.pendingStrategies
	terms := m.pendingTerms
	latencies := m.pendingLatencies
	zero := m.pendingZero
	m.resetPending()
	m.mu.Unlock()

	if len(strategies) == 0 && len(terms) == 0 && len(zero) == 0 {
		return nil
	}

	err := m.persist(strategies, terms, latencies, zero)
	if err != nil {
		m.mu.Lock()
		mergeCounts(m.pendingStrategies, strategies)
		mergeCounts(m.pendingTerms, terms)
		mergeCounts(m.pendingLatencies, latencies)
		m.pendingZero = append(zero, m.pendingZero...)
		m.mu.Unlock()
	}
	return err
}

func (m *QueryMetrics) persist(strategies, terms map[string]int64, latencies map[LatencyBucket]int64, zero []zeroResult) error {
	today := time.Now().Format("2006-01-02")

	if err := m.store.SaveStrategyCounts(today, strategies); err != nil {
		return err
	}
	if err := m.store.UpsertTermCounts(terms); err != nil {
		return err
	}
	if err := m.store.SaveLatencyCounts(today, latencies); err != nil {
		return err
	}
	for _, z := range zero {
		if err := m.store.AddZeroResultQuery(z.query, z.at); err != nil {
			return err
		}
	}
	return nil
}

func mergeCounts[K comparable](dst, src map[K]int64) {
	for k, v := range src {
		dst[k] += v
	}
}

// Close stops auto-flush and performs a final flush.
func (m *QueryMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	<-m.doneCh

	return m.Flush()
}
