package ui

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Aman-CERP/perfshop/internal/flags"
	"github.com/Aman-CERP/perfshop/internal/output"
)

// Run starts a live search session. Interactive terminals get the
// full-screen model; anything else gets line mode.
func Run(ctx context.Context, fn SearchFunc, cfg Config) error {
	if !cfg.Interactive() {
		return RunPlain(ctx, fn, cfg)
	}

	m := NewModel(ctx, fn, cfg)
	defer m.Close()

	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}
	if f, ok := cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	if cfg.Input != nil {
		opts = append(opts, tea.WithInput(cfg.Input))
	}
	p, stop := newProgram(m, opts...)
	defer stop()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("live search: %w", err)
	}
	return nil
}

// newProgram wires m to a program. Flag changes from any source reach the
// model as flagsChangedMsg; the send happens off the notifying goroutine
// because Update itself toggles flags.
func newProgram(m *Model, opts ...tea.ProgramOption) (*tea.Program, func()) {
	p := tea.NewProgram(m, opts...)
	m.SetSender(p.Send)
	if m.store == nil {
		return p, func() {}
	}
	unsubscribe := m.store.Subscribe(func(flags.Set) {
		go p.Send(flagsChangedMsg{})
	})
	return p, unsubscribe
}

// RunPlain reads one query per line and prints each outcome. Lines
// starting with ':' are commands: ":flags", ":toggle <flag>" and ":quit".
func RunPlain(ctx context.Context, fn SearchFunc, cfg Config) error {
	w := output.New(cfg.Output)
	if cfg.InitialQuery != "" {
		if err := plainSearch(ctx, w, fn, cfg.InitialQuery); err != nil {
			return err
		}
	}
	if cfg.Input == nil {
		return nil
	}

	scanner := bufio.NewScanner(cfg.Input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, ":") {
			if err := plainSearch(ctx, w, fn, line); err != nil {
				return err
			}
			continue
		}

		cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
		switch cmd {
		case "quit", "q":
			return nil
		case "flags":
			if cfg.Flags != nil {
				w.Flags(cfg.Flags.Snapshot())
			}
		case "toggle":
			if cfg.Flags == nil {
				w.Warning("flags are not available")
				continue
			}
			on, err := cfg.Flags.Toggle(flags.Key(strings.TrimSpace(arg)))
			if err != nil {
				w.Errorf("%v", err)
				continue
			}
			w.Successf("%s is now %s", strings.TrimSpace(arg), onOff(on))
		default:
			w.Warningf("unknown command %q", cmd)
		}
	}
	return scanner.Err()
}

func plainSearch(ctx context.Context, w *output.Writer, fn SearchFunc, query string) error {
	out, err := fn(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	w.Outcome(out)
	w.Newline()
	return nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
