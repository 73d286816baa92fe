package cmd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/perfshop/internal/search"
)

func TestRunBench_StrategiesAgree(t *testing.T) {
	// Given: a small synthetic catalog
	opts := benchOptions{size: 500, runs: 2, seed: 7}

	// When: benchmarking a query
	report, err := runBench(context.Background(), "wireless", opts)

	// Then: every strategy ran and returned the same products
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.True(t, report.Identical)
	assert.Equal(t, 524, report.Products)

	strategies := []search.Strategy{report.Results[0].Strategy, report.Results[1].Strategy, report.Results[2].Strategy}
	assert.Equal(t, []search.Strategy{search.StrategyWorker, search.StrategyChunked, search.StrategySync}, strategies)
	for _, r := range report.Results {
		assert.LessOrEqual(t, r.Results, search.DefaultMaxResults)
		assert.Equal(t, report.Results[0].Matches, r.Matches)
		assert.Zero(t, r.Fallbacks)
		assert.Positive(t, r.Longest)
	}
}

func TestRunBench_InvalidOptions(t *testing.T) {
	_, err := runBench(context.Background(), "x", benchOptions{runs: 0})
	assert.Error(t, err)

	_, err = runBench(context.Background(), "x", benchOptions{runs: 1, size: -1})
	assert.Error(t, err)
}

func TestBenchCmd_JSON(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "bench", "lamp", "--size", "100", "--runs", "1", "--format", "json")

	require.NoError(t, err)
	var report BenchReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "lamp", report.Query)
	assert.True(t, report.Identical)
}
