package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/perfshop/internal/flags"
	"github.com/Aman-CERP/perfshop/internal/output"
	"github.com/Aman-CERP/perfshop/internal/search"
)

func newFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Show and change performance flags",
		Long: `Performance flags switch anti-patterns and their fixes on and off.
They are stored in ~/.perfshop/flags.json and shared by every perfshop
process; a running 'perfshop serve' or 'perfshop live' picks up changes.`,
		Example: `  perfshop flags list
  perfshop flags set worker-search on
  perfshop flags toggle debounce-search
  perfshop flags reset`,
	}

	cmd.AddCommand(newFlagsListCmd())
	cmd.AddCommand(newFlagsSetCmd())
	cmd.AddCommand(newFlagsToggleCmd())
	cmd.AddCommand(newFlagsResetCmd())

	return cmd
}

// flagsJSON is the JSON output of flags list.
type flagsJSON struct {
	Flags     []flagJSON            `json:"flags"`
	Execution search.ExecutionFlags `json:"execution"`
}

type flagJSON struct {
	flags.Definition
	Enabled bool `json:"enabled"`
}

func newFlagsListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flags and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openFlagStore()
			if err != nil {
				return err
			}
			set := store.Snapshot()
			out := output.New(cmd.OutOrStdout())

			if jsonOutput {
				res := flagsJSON{Execution: flags.ExecutionFrom(set)}
				for _, d := range flags.Definitions() {
					res.Flags = append(res.Flags, flagJSON{Definition: d, Enabled: set[d.Key]})
				}
				return out.JSON(res)
			}
			out.Flags(set)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newFlagsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <flag> <on|off>",
		Short: "Turn a flag on or off",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseOnOff(args[1])
			if err != nil {
				return err
			}
			store, err := openFlagStore()
			if err != nil {
				return err
			}
			if err := store.Set(flags.Key(args[0]), value); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("%s is now %s", args[0], onOff(value))
			return nil
		},
	}
}

func newFlagsToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <flag>",
		Short: "Flip a flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openFlagStore()
			if err != nil {
				return err
			}
			value, err := store.Toggle(flags.Key(args[0]))
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("%s is now %s", args[0], onOff(value))
			return nil
		},
	}
}

func newFlagsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Turn every flag off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openFlagStore()
			if err != nil {
				return err
			}
			if err := store.Reset(); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Success("All flags are off")
			return nil
		},
	}
}

// openFlagStore opens the configured flag file without building the app.
func openFlagStore() (*flags.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return flags.NewStore(flags.NewFileBackend(cfg.Flags.Path))
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid value %q (want on or off)", s)
	}
	return v, nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
