package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/perfshop/internal/output"
	"github.com/Aman-CERP/perfshop/internal/telemetry"
)

// StatsOutput is the JSON output format for query stats.
type StatsOutput struct {
	Days                int                   `json:"days"`
	TotalQueries        int64                 `json:"total_queries"`
	StrategyCounts      map[string]int64      `json:"strategy_counts"`
	TopTerms            []telemetry.TermCount `json:"top_terms"`
	ZeroResultQueries   []string              `json:"zero_result_queries"`
	LatencyDistribution map[string]int64      `json:"latency_distribution"`
}

func newStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		days       int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show search telemetry",
		Long: `Display query telemetry collected by perfshop:
  - Strategy distribution (worker/chunked/sync)
  - Top query terms
  - Recent zero-result queries
  - Latency distribution`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			store, err := openMetricsStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := collectStats(store, days, limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return output.New(cmd.OutOrStdout()).JSON(stats)
			}
			printStats(output.New(cmd.OutOrStdout()), stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of terms and zero-result queries to show")

	return cmd
}

func collectStats(store telemetry.MetricsStore, days, limit int) (*StatsOutput, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -(days - 1))
	fromKey, toKey := from.Format("2006-01-02"), to.Format("2006-01-02")

	strategies, err := store.GetStrategyCounts(fromKey, toKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy counts: %w", err)
	}
	terms, err := store.GetTopTerms(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read top terms: %w", err)
	}
	zero, err := store.GetZeroResultQueries(limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read zero-result queries: %w", err)
	}
	latencies, err := store.GetLatencyCounts(fromKey, toKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read latency counts: %w", err)
	}

	out := &StatsOutput{
		Days:                days,
		StrategyCounts:      strategies,
		TopTerms:            terms,
		ZeroResultQueries:   zero,
		LatencyDistribution: make(map[string]int64, len(latencies)),
	}
	for _, n := range strategies {
		out.TotalQueries += n
	}
	for bucket, n := range latencies {
		out.LatencyDistribution[bucket.Label()] = n
	}
	return out, nil
}

func printStats(out *output.Writer, s *StatsOutput) {
	if s.TotalQueries == 0 {
		out.Statusf("📊", "No searches recorded in the last %d days", s.Days)
		return
	}
	out.Statusf("📊", "%d searches in the last %d days", s.TotalQueries, s.Days)
	out.Newline()

	names := make([]string, 0, len(s.StrategyCounts))
	for name := range s.StrategyCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		n := s.StrategyCounts[name]
		rows = append(rows, []string{name, strconv.FormatInt(n, 10), output.Bar(float64(n), float64(s.TotalQueries), 20)})
	}
	out.Table([]string{"STRATEGY", "COUNT", "SHARE"}, rows)
	out.Newline()

	rows = rows[:0]
	for _, b := range telemetry.LatencyBuckets {
		n := s.LatencyDistribution[b.Label()]
		rows = append(rows, []string{b.Label(), strconv.FormatInt(n, 10), output.Bar(float64(n), float64(s.TotalQueries), 20)})
	}
	out.Table([]string{"LATENCY", "COUNT", "SHARE"}, rows)

	if len(s.TopTerms) > 0 {
		out.Newline()
		rows = rows[:0]
		for _, t := range s.TopTerms {
			rows = append(rows, []string{t.Term, strconv.FormatInt(t.Count, 10)})
		}
		out.Table([]string{"TERM", "COUNT"}, rows)
	}

	if len(s.ZeroResultQueries) > 0 {
		out.Newline()
		out.Warningf("%d recent queries found nothing:", len(s.ZeroResultQueries))
		for _, q := range s.ZeroResultQueries {
			out.Printf("  %q\n", q)
		}
	}
}
