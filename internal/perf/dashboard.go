package perf

import (
	"math"
	"sort"
	"sync"
	"time"
)

// MetricReport aggregates the samples of one metric.
type MetricReport struct {
	Budget Budget  `json:"budget"`
	Count  int     `json:"count"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
	Rating Rating  `json:"rating"`
}

// Report is the dashboard view. Overall is the worst metric rating, or
// good when there are no samples.
type Report struct {
	Metrics     []MetricReport `json:"metrics"`
	Overall     Rating         `json:"overall"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// Summarize builds a report from samples. Samples for unknown metrics are
// skipped. Metrics without samples are omitted.
func Summarize(samples []Sample) Report {
	byMetric := make(map[Metric][]float64)
	for _, s := range samples {
		if _, ok := BudgetFor(s.Metric); ok {
			byMetric[s.Metric] = append(byMetric[s.Metric], s.Value)
		}
	}

	report := Report{Overall: RatingGood, GeneratedAt: time.Now()}
	for _, b := range budgets {
		values := byMetric[b.Metric]
		if len(values) == 0 {
			continue
		}
		p75 := Percentile(values, 75)
		mr := MetricReport{
			Budget: b,
			Count:  len(values),
			P75:    p75,
			Max:    maxOf(values),
			Rating: b.Rate(p75),
		}
		if mr.Rating.severity() > report.Overall.severity() {
			report.Overall = mr.Rating
		}
		report.Metrics = append(report.Metrics, mr)
	}
	return report
}

// Percentile returns the nearest-rank percentile p (0-100) of values.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Dashboard collects samples in memory, keeping the most recent perMetric
// samples of each metric.
type Dashboard struct {
	perMetric int

	mu      sync.Mutex
	samples map[Metric][]Sample
}

// NewDashboard creates a dashboard. Non-positive perMetric keeps 1000.
func NewDashboard(perMetric int) *Dashboard {
	if perMetric <= 0 {
		perMetric = 1000
	}
	return &Dashboard{
		perMetric: perMetric,
		samples:   make(map[Metric][]Sample),
	}
}

// Add records samples, rejecting the batch if any metric is unknown.
func (d *Dashboard) Add(samples ...Sample) error {
	for _, s := range samples {
		if _, err := Rate(s); err != nil {
			return err
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range samples {
		if s.At.IsZero() {
			s.At = time.Now()
		}
		list := append(d.samples[s.Metric], s)
		if over := len(list) - d.perMetric; over > 0 {
			list = append([]Sample(nil), list[over:]...)
		}
		d.samples[s.Metric] = list
	}
	return nil
}

// Samples returns every held sample.
func (d *Dashboard) Samples() []Sample {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Sample
	for _, b := range budgets {
		out = append(out, d.samples[b.Metric]...)
	}
	return out
}

// Report summarizes the held samples.
func (d *Dashboard) Report() Report {
	return Summarize(d.Samples())
}

// Reset drops all samples.
func (d *Dashboard) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.samples = make(map[Metric][]Sample)
}
