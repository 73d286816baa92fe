package output

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Aman-CERP/perfshop/internal/flags"
	"github.com/Aman-CERP/perfshop/internal/perf"
	"github.com/Aman-CERP/perfshop/internal/search"
)

var ratingIcons = map[perf.Rating]string{
	perf.RatingGood:             "🟢",
	perf.RatingNeedsImprovement: "🟡",
	perf.RatingPoor:             "🔴",
}

// RatingIcon returns the traffic-light icon for r.
func RatingIcon(r perf.Rating) string {
	if icon, ok := ratingIcons[r]; ok {
		return icon
	}
	return "⚪"
}

// Outcome prints a search outcome as a numbered list with a summary line.
func (w *Writer) Outcome(o *search.Outcome) {
	if len(o.Results) == 0 {
		w.Statusf("🔍", "No products match %q", o.Query)
	} else {
		for i, r := range o.Results {
			stock := ""
			if !r.InStock {
				stock = "  (out of stock)"
			}
			w.Printf("%2d. %-32s %-12s $%s  %d%%%s\n",
				i+1, r.Name, r.Category, r.Price.StringFixed(2), r.Relevance, stock)
		}
	}

	summary := fmt.Sprintf("%d of %d matches via %s in %s", len(o.Results), o.MatchCount, o.Strategy, o.Duration.Round(time.Microsecond))
	if o.ChunkCount > 0 {
		summary += fmt.Sprintf(", %d chunks", o.ChunkCount)
	}
	if o.Truncated() {
		summary += fmt.Sprintf(", %d more not shown", o.MatchCount-len(o.Results))
	}
	w.Newline()
	if o.Fallback {
		w.Warningf("%s (worker fallback: %s)", summary, o.FallbackReason)
		return
	}
	w.Status("⚡", summary)
}

// Flags prints every flag with its state.
func (w *Writer) Flags(set flags.Set) {
	rows := make([][]string, 0, len(set))
	for _, d := range flags.Definitions() {
		state := "off"
		if set[d.Key] {
			state = "on"
		}
		rows = append(rows, []string{string(d.Key), state, string(d.Kind), d.Description})
	}
	w.Table([]string{"FLAG", "STATE", "KIND", "DESCRIPTION"}, rows)
}

// Report prints a budget report, one line per metric with samples.
func (w *Writer) Report(r perf.Report) {
	if len(r.Metrics) == 0 {
		w.Status("📊", "No samples recorded yet")
		return
	}

	rows := make([][]string, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		rows = append(rows, []string{
			RatingIcon(m.Rating) + " " + m.Budget.Label,
			strconv.Itoa(m.Count),
			m.Budget.Format(m.P75),
			m.Budget.Format(m.Max),
			Bar(m.P75, m.Budget.NeedsImprovement, 20),
			string(m.Rating),
		})
	}
	w.Table([]string{"METRIC", "N", "P75", "MAX", "BUDGET", "RATING"}, rows)
	w.Newline()
	w.Statusf(RatingIcon(r.Overall), "Overall: %s", r.Overall)
}
