package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	values := []float64{10, 20, 30, 40}
	assert.Equal(t, 30.0, Percentile(values, 75))
	assert.Equal(t, 10.0, Percentile(values, 0))
	assert.Equal(t, 40.0, Percentile(values, 100))
	assert.Equal(t, 0.0, Percentile(nil, 75))
}

func TestSummarize(t *testing.T) {
	// Given: good LCP samples and a poor INP sample
	samples := []Sample{
		{Metric: MetricLCP, Value: 1200},
		{Metric: MetricLCP, Value: 1800},
		{Metric: MetricLCP, Value: 2600},
		{Metric: MetricLCP, Value: 900},
		{Metric: MetricINP, Value: 650},
		{Metric: "unknown", Value: 1},
	}

	// When: summarizing
	report := Summarize(samples)

	// Then: metrics follow budget order and the worst rating wins
	require.Len(t, report.Metrics, 2)
	lcp := report.Metrics[0]
	assert.Equal(t, MetricLCP, lcp.Budget.Metric)
	assert.Equal(t, 4, lcp.Count)
	assert.Equal(t, 1800.0, lcp.P75)
	assert.Equal(t, 2600.0, lcp.Max)
	assert.Equal(t, RatingGood, lcp.Rating)

	assert.Equal(t, RatingPoor, report.Metrics[1].Rating)
	assert.Equal(t, RatingPoor, report.Overall)
}

func TestSummarize_Empty(t *testing.T) {
	report := Summarize(nil)
	assert.Empty(t, report.Metrics)
	assert.Equal(t, RatingGood, report.Overall)
}

func TestDashboard_AddKeepsRecent(t *testing.T) {
	d := NewDashboard(2)
	require.NoError(t, d.Add(
		Sample{Metric: MetricCLS, Value: 0.5},
		Sample{Metric: MetricCLS, Value: 0.01},
		Sample{Metric: MetricCLS, Value: 0.02},
	))

	samples := d.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, 0.01, samples[0].Value)
	assert.False(t, samples[0].At.IsZero())
	assert.Equal(t, RatingGood, d.Report().Overall)

	assert.Error(t, d.Add(Sample{Metric: "fid"}))
	d.Reset()
	assert.Empty(t, d.Samples())
}
