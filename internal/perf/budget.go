package perf

import (
	"fmt"
	"strings"
	"time"

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
)

// Metric names a budgeted measurement.
type Metric string

const (
	MetricLCP           Metric = "lcp"
	MetricFCP           Metric = "fcp"
	MetricCLS           Metric = "cls"
	MetricINP           Metric = "inp"
	MetricTBT           Metric = "tbt"
	MetricLongTask      Metric = "long-task"
	MetricSearchLatency Metric = "search-latency"
)

// Rating classifies a value against its budget.
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// severity orders ratings from best to worst.
func (r Rating) severity() int {
	switch r {
	case RatingGood:
		return 0
	case RatingNeedsImprovement:
		return 1
	default:
		return 2
	}
}

// Budget holds the thresholds for one metric. Values at or below Good are
// good, at or below NeedsImprovement need improvement, anything above is
// poor. Millisecond metrics are expressed in milliseconds.
type Budget struct {
	Metric           Metric  `json:"metric"`
	Label            string  `json:"label"`
	Unit             string  `json:"unit"`
	Good             float64 `json:"good"`
	NeedsImprovement float64 `json:"needsImprovement"`
}

// Rate classifies v.
func (b Budget) Rate(v float64) Rating {
	switch {
	case v <= b.Good:
		return RatingGood
	case v <= b.NeedsImprovement:
		return RatingNeedsImprovement
	default:
		return RatingPoor
	}
}

// Format renders v in the budget's unit.
func (b Budget) Format(v float64) string {
	if b.Unit == "" {
		return fmt.Sprintf("%.3f", v)
	}
	return fmt.Sprintf("%.0f%s", v, b.Unit)
}

var budgets = []Budget{
	{Metric: MetricLCP, Label: "Largest Contentful Paint", Unit: "ms", Good: 2500, NeedsImprovement: 4000},
	{Metric: MetricFCP, Label: "First Contentful Paint", Unit: "ms", Good: 1800, NeedsImprovement: 3000},
	{Metric: MetricCLS, Label: "Cumulative Layout Shift", Unit: "", Good: 0.1, NeedsImprovement: 0.25},
	{Metric: MetricINP, Label: "Interaction to Next Paint", Unit: "ms", Good: 200, NeedsImprovement: 500},
	{Metric: MetricTBT, Label: "Total Blocking Time", Unit: "ms", Good: 200, NeedsImprovement: 600},
	{Metric: MetricLongTask, Label: "Long Task", Unit: "ms", Good: 50, NeedsImprovement: 100},
	{Metric: MetricSearchLatency, Label: "Search Latency", Unit: "ms", Good: 100, NeedsImprovement: 300},
}

// Budgets returns every budget in display order.
func Budgets() []Budget {
	return append([]Budget(nil), budgets...)
}

// BudgetFor looks up the budget for m.
func BudgetFor(m Metric) (Budget, bool) {
	for _, b := range budgets {
		if b.Metric == m {
			return b, true
		}
	}
	return Budget{}, false
}

// ParseMetric accepts a metric name in any case.
func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := BudgetFor(m); !ok {
		return "", shoperrors.New(shoperrors.ErrCodeUnknownMetric, fmt.Sprintf("unknown metric %q", s), nil).
			WithSuggestion("Use one of: lcp, fcp, cls, inp, tbt, long-task, search-latency")
	}
	return m, nil
}

// Sample is one observed value of a metric.
type Sample struct {
	Metric Metric    `json:"metric"`
	Value  float64   `json:"value"`
	At     time.Time `json:"at"`
}

// Rate classifies s against its budget.
func Rate(s Sample) (Rating, error) {
	b, ok := BudgetFor(s.Metric)
	if !ok {
		return "", shoperrors.New(shoperrors.ErrCodeUnknownMetric, fmt.Sprintf("unknown metric %q", s.Metric), nil)
	}
	return b.Rate(s.Value), nil
}

// Millis converts a duration to the float milliseconds budgets use.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// SamplesFromTimeline turns timeline measures into samples: one long-task
// sample per long task, one search-latency sample per measure named
// searchMeasure, and a single TBT sample.
func SamplesFromTimeline(t *Timeline, searchMeasure string) []Sample {
	var out []Sample
	for _, e := range t.LongTasks(0) {
		out = append(out, Sample{Metric: MetricLongTask, Value: Millis(e.Duration), At: e.Start})
	}
	if searchMeasure != "" {
		for _, e := range t.Measures(searchMeasure) {
			out = append(out, Sample{Metric: MetricSearchLatency, Value: Millis(e.Duration), At: e.Start})
		}
	}
	out = append(out, Sample{Metric: MetricTBT, Value: Millis(t.TotalBlockingTime()), At: t.now()})
	return out
}
