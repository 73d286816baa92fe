package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/perfshop/internal/ui"
)

func newLiveCmd() *cobra.Command {
	var (
		plain   bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "live [query]",
		Short: "Search interactively and watch the flags take effect",
		Long: `Open an interactive search box over the catalog. Results update as you
type; F1-F9 toggle the performance flags. With debounce-search on, a search
runs only after typing pauses for the debounce window.

When stdout is not a terminal, live reads one query per line from stdin.`,
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{annotationLogging: "file"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			opts := []ui.ConfigOption{
				ui.WithForcePlain(plain),
				ui.WithNoColor(noColor),
				ui.WithDebounceWindow(a.Durations.Debounce),
			}
			if len(args) == 1 {
				opts = append(opts, ui.WithInitialQuery(args[0]))
			}
			cfg := ui.NewConfig(cmd.InOrStdin(), cmd.OutOrStdout(), a.Flags, opts...)
			return ui.Run(ctx, a.Search, cfg)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Line mode even on a terminal")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colors")

	return cmd
}
