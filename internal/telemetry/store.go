package telemetry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/perf"
)

// zeroResultLimit bounds the persisted zero-result history.
const zeroResultLimit = 100

// MetricsStore defines persistence operations for telemetry.
type MetricsStore interface {
	// SaveStrategyCounts adds daily per-strategy counts.
	SaveStrategyCounts(date string, counts map[string]int64) error

	// GetStrategyCounts sums counts for a date range (inclusive).
	GetStrategyCounts(from, to string) (map[string]int64, error)

	// UpsertTermCounts adds term frequency counts.
	UpsertTermCounts(terms map[string]int64) error

	// GetTopTerms retrieves the top N terms by frequency.
	GetTopTerms(limit int) ([]TermCount, error)

	// AddZeroResultQuery appends to the bounded zero-result history.
	AddZeroResultQuery(query string, timestamp time.Time) error

	// GetZeroResultQueries retrieves recent zero-result queries, newest first.
	GetZeroResultQueries(limit int) ([]string, error)

	// SaveLatencyCounts adds daily latency histogram counts.
	SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error

	// GetLatencyCounts sums latency counts for a date range (inclusive).
	GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error)

	// AddSamples stores web-vital and timeline samples.
	AddSamples(samples []perf.Sample) error

	// GetSamples returns samples recorded at or after since, oldest first.
	GetSamples(since time.Time) ([]perf.Sample, error)

	// Close releases resources.
	Close() error
}

// SQLiteMetricsStore implements MetricsStore using SQLite.
type SQLiteMetricsStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewSQLiteMetricsStore wraps an existing connection whose schema has been
// created with InitTelemetrySchema. The connection is not closed by Close.
func NewSQLiteMetricsStore(db *sql.DB) (*SQLiteMetricsStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// OpenSQLiteMetricsStore opens (creating if needed) the telemetry database
// at path.
func OpenSQLiteMetricsStore(path string) (*SQLiteMetricsStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to create telemetry directory", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to open telemetry database", err)
	}

	// Single writer to prevent lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// modernc.org/sqlite ignores most DSN parameters
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to set pragma", err).
				WithDetail("pragma", pragma)
		}
	}

	if err := InitTelemetrySchema(db); err != nil {
		_ = db.Close()
		return nil, shoperrors.Wrap(shoperrors.ErrCodeStoreFailed, err)
	}
	return &SQLiteMetricsStore{db: db, ownsDB: true}, nil
}

// InitTelemetrySchema creates the telemetry tables if they don't exist.
func InitTelemetrySchema(db *sql.DB) error {
	schema := `
	-- Strategy usage (aggregated daily)
	CREATE TABLE IF NOT EXISTS strategy_stats (
		date TEXT NOT NULL,
		strategy TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, strategy)
	);

	-- Query terms (with frequency count)
	CREATE TABLE IF NOT EXISTS query_terms (
		term TEXT PRIMARY KEY,
		count INTEGER NOT NULL DEFAULT 1,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);

	-- Zero-result queries (bounded history)
	CREATE TABLE IF NOT EXISTS zero_result_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Latency histogram (buckets: <10ms, 10-50ms, 50-100ms, 100-500ms, >=500ms)
	CREATE TABLE IF NOT EXISTS query_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);

	-- Web-vital and timeline samples
	CREATE TABLE IF NOT EXISTS perf_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		metric TEXT NOT NULL,
		value REAL NOT NULL,
		recorded_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_perf_samples_time ON perf_samples(recorded_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// upsertCounts runs stmt once per entry inside a transaction.
func upsertCounts[K ~string](db *sql.DB, query string, prefix string, counts map[K]int64) error {
	if len(counts) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for key, count := range counts {
		var args []any
		if prefix != "" {
			args = append(args, prefix)
		}
		args = append(args, string(key), count)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("upsert %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveStrategyCounts adds daily per-strategy counts.
func (s *SQLiteMetricsStore) SaveStrategyCounts(date string, counts map[string]int64) error {
	return upsertCounts(s.db, `
		INSERT INTO strategy_stats (date, strategy, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, strategy) DO UPDATE SET count = count + excluded.count
	`, date, counts)
}

// GetStrategyCounts sums counts for a date range.
func (s *SQLiteMetricsStore) GetStrategyCounts(from, to string) (map[string]int64, error) {
	rows, err := s.db.Query(`
		SELECT strategy, SUM(count) AS total
		FROM strategy_stats
		WHERE date >= ? AND date <= ?
		GROUP BY strategy
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query strategy counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var strategy string
		var count int64
		if err := rows.Scan(&strategy, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[strategy] = count
	}
	return counts, rows.Err()
}

// UpsertTermCounts adds term frequency counts.
func (s *SQLiteMetricsStore) UpsertTermCounts(terms map[string]int64) error {
	return upsertCounts(s.db, `
		INSERT INTO query_terms (term, count, last_seen)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(term) DO UPDATE SET
			count = count + excluded.count,
			last_seen = CURRENT_TIMESTAMP
	`, "", terms)
}

// GetTopTerms retrieves the top N terms by frequency.
func (s *SQLiteMetricsStore) GetTopTerms(limit int) ([]TermCount, error) {
	rows, err := s.db.Query(`
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer rows.Close()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// AddZeroResultQuery appends a query and trims the history.
func (s *SQLiteMetricsStore) AddZeroResultQuery(query string, timestamp time.Time) error {
	if _, err := s.db.Exec(`
		INSERT INTO zero_result_queries (query, timestamp)
		VALUES (?, ?)
	`, query, timestamp); err != nil {
		return fmt.Errorf("insert zero-result query: %w", err)
	}

	if _, err := s.db.Exec(`
		DELETE FROM zero_result_queries
		WHERE id NOT IN (
			SELECT id FROM zero_result_queries
			ORDER BY id DESC
			LIMIT ?
		)
	`, zeroResultLimit); err != nil {
		return fmt.Errorf("trim zero-result queries: %w", err)
	}
	return nil
}

// GetZeroResultQueries retrieves recent zero-result queries.
func (s *SQLiteMetricsStore) GetZeroResultQueries(limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT query
		FROM zero_result_queries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// SaveLatencyCounts adds daily latency histogram counts.
func (s *SQLiteMetricsStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	return upsertCounts(s.db, `
		INSERT INTO query_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`, date, counts)
}

// GetLatencyCounts sums latency counts for a date range.
func (s *SQLiteMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	rows, err := s.db.Query(`
		SELECT bucket, SUM(count) AS total
		FROM query_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[LatencyBucket]int64)
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[LatencyBucket(bucket)] = count
	}
	return counts, rows.Err()
}

// AddSamples stores samples in one transaction.
func (s *SQLiteMetricsStore) AddSamples(samples []perf.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO perf_samples (metric, value, recorded_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sample := range samples {
		at := sample.At
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.Exec(string(sample.Metric), sample.Value, at.UnixMilli()); err != nil {
			return fmt.Errorf("insert sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetSamples returns samples recorded at or after since, oldest first.
func (s *SQLiteMetricsStore) GetSamples(since time.Time) ([]perf.Sample, error) {
	rows, err := s.db.Query(`
		SELECT metric, value, recorded_at
		FROM perf_samples
		WHERE recorded_at >= ?
		ORDER BY recorded_at ASC, id ASC
	`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []perf.Sample
	for rows.Next() {
		var (
			metric string
			value  float64
			ms     int64
		)
		if err := rows.Scan(&metric, &value, &ms); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		samples = append(samples, perf.Sample{Metric: perf.Metric(metric), Value: value, At: time.UnixMilli(ms)})
	}
	return samples, rows.Err()
}

// Close closes the database when the store opened it.
func (s *SQLiteMetricsStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
