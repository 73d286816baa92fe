package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/perfshop/internal/debounce"
	"github.com/Aman-CERP/perfshop/internal/flags"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/search"
)

// SearchFunc runs one search with the current flags.
type SearchFunc func(ctx context.Context, query string) (*search.Outcome, error)

// Messages handled by Model.
type (
	searchRequestMsg struct{ query string }

	searchResultMsg struct {
		ticket  search.Ticket
		outcome *search.Outcome
		err     error
	}

	flagsChangedMsg struct{}
)

// Model is the bubbletea model of the live search terminal.
type Model struct {
	ctx    context.Context
	search SearchFunc
	store  *flags.Store
	send   func(tea.Msg)

	input   textinput.Model
	spinner spinner.Model
	styles  Styles

	flags     flags.Set
	query     string
	debouncer *debounce.Debouncer[string]
	latest    search.Latest
	inFlight  int
	dropped   int

	outcome *search.Outcome
	err     error
	latency *Sparkline

	width    int
	quitting bool
}

// NewModel creates the model. Searches run through fn with ctx.
func NewModel(ctx context.Context, fn SearchFunc, cfg Config) *Model {
	ti := textinput.New()
	ti.Placeholder = "search products"
	ti.Prompt = "› "
	ti.CharLimit = 64
	ti.SetValue(cfg.InitialQuery)
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime))

	m := &Model{
		ctx:     ctx,
		search:  fn,
		store:   cfg.Flags,
		input:   ti,
		spinner: s,
		styles:  GetStyles(cfg.NoColor || DetectNoColor()),
		flags:   flags.Defaults(),
		query:   cfg.InitialQuery,
		latency: NewSparkline(40),
		width:   80,
	}
	if m.store != nil {
		m.flags = m.store.Snapshot()
	}
	m.debouncer = debounce.New(cfg.DebounceWindow, func(q string) {
		if m.send != nil {
			m.send(searchRequestMsg{query: q})
		}
	})
	return m
}

// SetSender sets how debounced searches re-enter the event loop.
func (m *Model) SetSender(send func(tea.Msg)) {
	m.send = send
}

// Close stops pending debounced searches.
func (m *Model) Close() {
	m.debouncer.Stop()
}

// Outcome returns the displayed outcome.
func (m *Model) Outcome() *search.Outcome {
	return m.outcome
}

// Dropped returns how many stale results were discarded.
func (m *Model) Dropped() int {
	return m.dropped
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, m.spinner.Tick}
	if m.query != "" {
		cmds = append(cmds, m.startSearch(m.query))
	}
	return tea.Batch(cmds...)
}

func (m *Model) execution() search.ExecutionFlags {
	return flags.ExecutionFrom(m.flags)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "esc":
			m.quitting = true
			m.debouncer.Stop()
			return m, tea.Quit
		case "f1", "f2", "f3", "f4", "f5", "f6", "f7", "f8", "f9":
			m.toggle(int(key[1] - '1'))
			return m, nil
		}

		var inputCmd tea.Cmd
		m.input, inputCmd = m.input.Update(msg)
		return m, tea.Batch(inputCmd, m.queryChanged(m.input.Value()))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-8, 20)

	case searchRequestMsg:
		return m, m.startSearch(msg.query)

	case searchResultMsg:
		m.finishSearch(msg)
		return m, nil

	case flagsChangedMsg:
		m.refreshFlags()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// queryChanged schedules a search for q unless it is unchanged.
func (m *Model) queryChanged(q string) tea.Cmd {
	if q == m.query {
		return nil
	}
	m.query = q
	if m.execution().UseDebounce {
		m.debouncer.Trigger(q)
		return nil
	}
	return m.startSearch(q)
}

func (m *Model) startSearch(q string) tea.Cmd {
	ticket := m.latest.Begin()
	m.inFlight++
	ctx, fn := m.ctx, m.search
	return func() tea.Msg {
		out, err := fn(ctx, q)
		return searchResultMsg{ticket: ticket, outcome: out, err: err}
	}
}

func (m *Model) finishSearch(msg searchResultMsg) {
	if m.inFlight > 0 {
		m.inFlight--
	}
	if msg.err != nil {
		if m.latest.IsCurrent(msg.ticket) {
			m.err = msg.err
		}
		return
	}
	if !m.latest.Publish(msg.ticket, msg.outcome) {
		m.dropped++
		return
	}
	m.outcome = msg.outcome
	m.err = nil
	m.latency.Add(perf.Millis(msg.outcome.Duration))
}

func (m *Model) toggle(i int) {
	defs := flags.Definitions()
	if i < 0 || i >= len(defs) || m.store == nil {
		return
	}
	if _, err := m.store.Toggle(defs[i].Key); err != nil {
		m.err = err
		return
	}
	m.refreshFlags()
}

// refreshFlags reads the store; notifications may arrive out of order.
func (m *Model) refreshFlags() {
	if m.store != nil {
		m.flags = m.store.Snapshot()
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return "Bye.\n"
	}

	var sections []string
	sections = append(sections, m.styles.Header.Render("PerfShop Live Search"))
	sections = append(sections, m.input.View())
	sections = append(sections, m.renderStatus())
	sections = append(sections, m.renderResults())
	sections = append(sections, m.renderFlags())
	if spark := m.latency.Render(); spark != "" {
		sections = append(sections, m.styles.Spark.Render(spark)+" "+
			m.styles.Dim.Render(fmt.Sprintf("latency ─ peak %.1fms", m.latency.Max())))
	}

	width := max(m.width-4, 40)
	panel := m.styles.Panel.Width(width).Render(strings.Join(sections, "\n\n"))
	return panel + "\n" + m.styles.Dim.Render("F1-F9 toggle flags  •  esc to quit")
}

func (m *Model) renderStatus() string {
	if m.err != nil {
		return m.styles.Error.Render("✗ " + m.err.Error())
	}

	var parts []string
	if m.inFlight > 0 {
		parts = append(parts, m.spinner.View()+" searching")
	} else if m.debouncer.Pending() {
		parts = append(parts, m.styles.Dim.Render("waiting for typing to pause"))
	}

	if o := m.outcome; o != nil {
		summary := fmt.Sprintf("%d of %d via ", len(o.Results), o.MatchCount) +
			m.styles.Strategy.Render(string(o.Strategy)) +
			fmt.Sprintf(" in %s", o.Duration.Round(time.Microsecond))
		parts = append(parts, summary)
		if o.Fallback {
			parts = append(parts, m.styles.Warning.Render("⚠ worker fallback"))
		}
	}
	if m.dropped > 0 {
		parts = append(parts, m.styles.Label.Render(fmt.Sprintf("%d stale dropped", m.dropped)))
	}
	if len(parts) == 0 {
		return m.styles.Dim.Render("type to search")
	}
	return strings.Join(parts, m.styles.Dim.Render("  •  "))
}

func (m *Model) renderResults() string {
	o := m.outcome
	if o == nil || o.Query == "" {
		return m.styles.Dim.Render("no query")
	}
	if len(o.Results) == 0 {
		return m.styles.Label.Render(fmt.Sprintf("no products match %q", o.Query))
	}

	lines := make([]string, 0, len(o.Results))
	for _, r := range o.Results {
		line := fmt.Sprintf("%s  %s  %s",
			m.styles.Name.Render(fmt.Sprintf("%-30s", r.Name)),
			m.styles.Label.Render(fmt.Sprintf("%-12s", r.Category)),
			m.styles.Price.Render("$"+r.Price.StringFixed(2)))
		if !r.InStock {
			line += m.styles.Dim.Render("  out of stock")
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderFlags() string {
	var parts []string
	for i, d := range flags.Definitions() {
		style, mark := m.styles.FlagOff, "○"
		if m.flags[d.Key] {
			style, mark = m.styles.FlagOn, "●"
		}
		parts = append(parts, style.Render(fmt.Sprintf("F%d %s %s", i+1, mark, d.Key)))
	}

	rows := make([]string, 0, 3)
	for i := 0; i < len(parts); i += 3 {
		end := min(i+3, len(parts))
		rows = append(rows, strings.Join(parts[i:end], "   "))
	}
	return strings.Join(rows, "\n")
}

var _ tea.Model = (*Model)(nil)
