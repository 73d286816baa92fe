package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/perfshop/internal/output"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/telemetry"
)

func newBudgetCmd() *cobra.Command {
	var (
		file       string
		since      time.Duration
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Rate recorded performance samples against their budgets",
		Long: `Rate web vitals, long tasks and search latency against their budgets.

Samples come from the telemetry database, or from a JSON file holding an
array of {"metric": "...", "value": ...} objects.`,
		Example: `  perfshop budget
  perfshop budget --since 1h
  perfshop budget --file vitals.json --json
  perfshop budget record inp 180`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				samples []perf.Sample
				err     error
			)
			if file != "" {
				samples, err = readSamplesFile(file)
			} else {
				samples, err = readStoredSamples(time.Now().Add(-since))
			}
			if err != nil {
				return err
			}

			report := perf.Summarize(samples)
			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(report)
			}
			out.Report(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Read samples from a JSON file instead of the telemetry database")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Only include samples this recent")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	cmd.AddCommand(newBudgetRecordCmd())
	cmd.AddCommand(newBudgetLimitsCmd())

	return cmd
}

func newBudgetRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <metric> <value>",
		Short: "Store one sample in the telemetry database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			metric, err := perf.ParseMetric(args[0])
			if err != nil {
				return err
			}
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			sample := perf.Sample{Metric: metric, Value: value, At: time.Now()}
			rating, err := perf.Rate(sample)
			if err != nil {
				return err
			}

			store, err := openMetricsStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.AddSamples([]perf.Sample{sample}); err != nil {
				return err
			}

			output.New(cmd.OutOrStdout()).Statusf(output.RatingIcon(rating), "Recorded %s = %v (%s)", metric, value, rating)
			return nil
		},
	}
}

func newBudgetLimitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Print every budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows := [][]string{}
			for _, b := range perf.Budgets() {
				rows = append(rows, []string{string(b.Metric), b.Label, b.Format(b.Good), b.Format(b.NeedsImprovement)})
			}
			output.New(cmd.OutOrStdout()).Table([]string{"METRIC", "NAME", "GOOD", "NEEDS IMPROVEMENT"}, rows)
			return nil
		},
	}
}

func readSamplesFile(path string) ([]perf.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	var samples []perf.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse samples in %s: %w", path, err)
	}
	return samples, nil
}

func readStoredSamples(since time.Time) ([]perf.Sample, error) {
	store, err := openMetricsStore()
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return store.GetSamples(since)
}

// openMetricsStore opens the configured telemetry database.
func openMetricsStore() (*telemetry.SQLiteMetricsStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return telemetry.OpenSQLiteMetricsStore(cfg.Telemetry.DBPath)
}
