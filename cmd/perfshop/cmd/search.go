package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/perfshop/internal/output"
	"github.com/Aman-CERP/perfshop/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	format   string // "text", "json"
	strategy string // "", "worker", "chunked", "sync"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the product catalog",
		Long: `Search the product catalog. Every term must appear in a product's name,
description or category; matching ignores case. At most 20 results are shown,
in catalog order.

The strategy follows the performance flags unless --strategy overrides it.

Examples:
  perfshop search "wireless case"
  perfshop search lamp --strategy chunked
  perfshop search desk --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringVarP(&opts.strategy, "strategy", "s", "", "Force a strategy: worker, chunked, sync")

	return cmd
}

// strategyFlags maps a --strategy value to execution flags.
func strategyFlags(name string) (search.ExecutionFlags, error) {
	switch search.Strategy(name) {
	case search.StrategyWorker:
		return search.ExecutionFlags{UseWorker: true}, nil
	case search.StrategyChunked:
		return search.ExecutionFlags{UseChunking: true}, nil
	case search.StrategySync:
		return search.ExecutionFlags{}, nil
	default:
		return search.ExecutionFlags{}, fmt.Errorf("unknown strategy %q (want worker, chunked or sync)", name)
	}
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if opts.format != "text" && opts.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", opts.format)
	}

	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	exec := a.Flags.Execution()
	if opts.strategy != "" {
		if exec, err = strategyFlags(opts.strategy); err != nil {
			return err
		}
	}

	slog.Info("search_started", slog.String("query", query), slog.Any("flags", exec))
	outcome, err := a.Dispatcher().Search(ctx, query, exec)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := output.New(cmd.OutOrStdout())
	if opts.format == "json" {
		return out.JSON(outcome)
	}
	out.Outcome(outcome)
	return nil
}
