package cmd

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/perfshop/internal/catalog"
	"github.com/Aman-CERP/perfshop/internal/output"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/search"
	"github.com/Aman-CERP/perfshop/internal/worker"
)

// benchOptions holds CLI flags for bench.
type benchOptions struct {
	size   int
	runs   int
	seed   int64
	format string
}

// BenchResult is one strategy's measurements.
type BenchResult struct {
	Strategy  search.Strategy `json:"strategy"`
	Results   int             `json:"results"`
	Matches   int             `json:"matches"`
	Mean      time.Duration   `json:"mean_ns"`
	Longest   time.Duration   `json:"longest_task_ns"`
	LongestOn string          `json:"longest_task_on"`
	LongTasks int             `json:"long_tasks"`
	Fallbacks int             `json:"fallbacks"`
	ids       []string
}

// BenchReport is the output of bench.
type BenchReport struct {
	Query     string        `json:"query"`
	Products  int           `json:"products"`
	Runs      int           `json:"runs"`
	Identical bool          `json:"identical"`
	Results   []BenchResult `json:"strategies"`
}

// benchStrategies lists each strategy with the timeline measure that
// blocks its caller or, for the worker, the background goroutine.
var benchStrategies = []struct {
	flags   search.ExecutionFlags
	measure string
	on      string
}{
	{search.ExecutionFlags{UseWorker: true}, search.MeasureWorker, "worker"},
	{search.ExecutionFlags{UseChunking: true}, search.MeasureChunk, "caller"},
	{search.ExecutionFlags{}, search.MeasureSearch, "caller"},
}

func newBenchCmd() *cobra.Command {
	var opts benchOptions

	cmd := &cobra.Command{
		Use:   "bench [query]",
		Short: "Compare search strategies on a synthetic catalog",
		Long: `Run the same query with every strategy concurrently over the embedded
catalog plus generated products, then compare result sets, mean latency and
the longest uninterrupted task each strategy produced.`,
		Example: `  perfshop bench
  perfshop bench "wireless" --size 50000 --runs 10`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := "pro"
			if len(args) == 1 {
				query = args[0]
			}
			report, err := runBench(cmd.Context(), query, opts)
			if err != nil {
				return err
			}
			return printBench(cmd, report, opts.format)
		},
	}

	cmd.Flags().IntVar(&opts.size, "size", 20000, "Synthetic products added to the catalog")
	cmd.Flags().IntVar(&opts.runs, "runs", 5, "Searches per strategy")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "Seed for the synthetic catalog")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runBench(ctx context.Context, query string, opts benchOptions) (*BenchReport, error) {
	if opts.runs <= 0 {
		return nil, fmt.Errorf("--runs must be positive, got %d", opts.runs)
	}
	if opts.size < 0 {
		return nil, fmt.Errorf("--size must not be negative, got %d", opts.size)
	}

	base, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	cat, err := base.Extend(catalog.Generate(opts.size, opts.seed))
	if err != nil {
		return nil, err
	}

	w := worker.Spawn(search.Handlers())
	defer w.Terminate()

	report := &BenchReport{
		Query:    query,
		Products: cat.Len(),
		Runs:     opts.runs,
		Results:  make([]BenchResult, len(benchStrategies)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range benchStrategies {
		g.Go(func() error {
			timeline := perf.NewTimeline(opts.runs*(cat.Len()/search.DefaultChunkSize+2), 0)
			d, err := search.NewDispatcher(cat,
				search.WithChannel(w),
				search.WithWorkerTimeout(time.Minute),
				search.WithTimeline(timeline))
			if err != nil {
				return err
			}

			res := BenchResult{Strategy: search.StrategySync, LongestOn: s.on}
			var total time.Duration
			for range opts.runs {
				outcome, err := d.Search(gctx, query, s.flags)
				if err != nil {
					return err
				}
				total += outcome.Duration
				res.Strategy = outcome.Strategy
				res.Results = len(outcome.Results)
				res.Matches = outcome.MatchCount
				res.ids = outcome.IDs()
				if outcome.Fallback {
					res.Fallbacks++
				}
			}
			res.Mean = total / time.Duration(opts.runs)

			for _, e := range timeline.Measures(s.measure) {
				res.Longest = max(res.Longest, e.Duration)
				if e.Duration > timeline.LongTaskThreshold() {
					res.LongTasks++
				}
			}
			report.Results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report.Identical = true
	for _, r := range report.Results[1:] {
		if !slices.Equal(r.ids, report.Results[0].ids) {
			report.Identical = false
		}
	}
	return report, nil
}

func printBench(cmd *cobra.Command, report *BenchReport, format string) error {
	out := output.New(cmd.OutOrStdout())
	if format == "json" {
		return out.JSON(report)
	}

	out.Statusf("🏁", "%q over %d products, %d runs per strategy", report.Query, report.Products, report.Runs)
	out.Newline()

	rows := make([][]string, 0, len(report.Results))
	for _, r := range report.Results {
		rows = append(rows, []string{
			string(r.Strategy),
			strconv.Itoa(r.Results) + "/" + strconv.Itoa(r.Matches),
			r.Mean.Round(time.Microsecond).String(),
			r.Longest.Round(time.Microsecond).String() + " (" + r.LongestOn + ")",
			strconv.Itoa(r.LongTasks),
		})
	}
	out.Table([]string{"STRATEGY", "RESULTS", "MEAN", "LONGEST TASK", "LONG TASKS"}, rows)
	out.Newline()

	if report.Identical {
		out.Success("All strategies returned the same products")
	} else {
		out.Warning("Strategies disagree on the result set")
	}
	return nil
}
