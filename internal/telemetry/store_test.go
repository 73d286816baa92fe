package telemetry

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/perfshop/internal/perf"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	require.NoError(t, err)

	require.NoError(t, InitTelemetrySchema(db))

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func newTestStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()
	store, err := NewSQLiteMetricsStore(setupTestDB(t))
	require.NoError(t, err)
	return store
}

func TestNewSQLiteMetricsStore_RequiresDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(nil)
	assert.Error(t, err)
}

func TestSQLiteMetricsStore_StrategyCountsAccumulate(t *testing.T) {
	store := newTestStore(t)

	// Given: two saves on the same day
	require.NoError(t, store.SaveStrategyCounts("2026-10-01", map[string]int64{"sync": 3, "worker": 1}))
	require.NoError(t, store.SaveStrategyCounts("2026-10-01", map[string]int64{"sync": 2}))
	require.NoError(t, store.SaveStrategyCounts("2026-10-05", map[string]int64{"chunked": 7}))

	// Then: counts add up within the range
	counts, err := store.GetStrategyCounts("2026-10-01", "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts["sync"])
	assert.Equal(t, int64(1), counts["worker"])
	assert.Zero(t, counts["chunked"])

	all, err := store.GetStrategyCounts("2026-10-01", "2026-10-31")
	require.NoError(t, err)
	assert.Equal(t, int64(7), all["chunked"])
}

func TestSQLiteMetricsStore_TopTerms(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"phone": 3, "case": 1}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"case": 5}))
	require.NoError(t, store.UpsertTermCounts(nil))

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, TermCount{Term: "case", Count: 6}, terms[0])
	assert.Equal(t, TermCount{Term: "phone", Count: 3}, terms[1])
}

func TestSQLiteMetricsStore_ZeroResultHistoryIsBounded(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < zeroResultLimit+5; i++ {
		require.NoError(t, store.AddZeroResultQuery("q", time.Now()))
	}
	require.NoError(t, store.AddZeroResultQuery("newest", time.Now()))

	queries, err := store.GetZeroResultQueries(1000)
	require.NoError(t, err)
	assert.Len(t, queries, zeroResultLimit)
	assert.Equal(t, "newest", queries[0])
}

func TestSQLiteMetricsStore_LatencyCounts(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.SaveLatencyCounts("2026-10-01", map[LatencyBucket]int64{BucketP10: 4, BucketP500: 1}))
	require.NoError(t, store.SaveLatencyCounts("2026-10-01", map[LatencyBucket]int64{BucketP10: 1}))

	counts, err := store.GetLatencyCounts("2026-10-01", "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts[BucketP10])
	assert.Equal(t, int64(1), counts[BucketP500])
}

func TestSQLiteMetricsStore_Samples(t *testing.T) {
	store := newTestStore(t)
	base := time.Now().Add(-time.Hour).Truncate(time.Millisecond)

	require.NoError(t, store.AddSamples([]perf.Sample{
		{Metric: perf.MetricLCP, Value: 2100, At: base},
		{Metric: perf.MetricCLS, Value: 0.02, At: base.Add(time.Minute)},
		{Metric: perf.MetricINP, Value: 180, At: base.Add(2 * time.Minute)},
	}))

	samples, err := store.GetSamples(base.Add(30 * time.Second))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, perf.MetricCLS, samples[0].Metric)
	assert.Equal(t, 0.02, samples[0].Value)
	assert.True(t, samples[0].At.Equal(base.Add(time.Minute)))
}

func TestOpenSQLiteMetricsStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "metrics.db")

	store, err := OpenSQLiteMetricsStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveStrategyCounts("2026-10-01", map[string]int64{"sync": 1}))
	require.NoError(t, store.Close())

	// Reopen and read back
	store, err = OpenSQLiteMetricsStore(path)
	require.NoError(t, err)
	defer store.Close()

	counts, err := store.GetStrategyCounts("2026-10-01", "2026-10-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts["sync"])
}
