// Package perf measures what the storefront does to its own responsiveness.
//
// A Timeline records marks and measures the way the browser Performance API
// does. Measures longer than 50ms are long tasks. Budgets rate samples of
// the Core Web Vitals plus search latency as good, needs-improvement or
// poor, and a Dashboard aggregates samples into a report.
package perf
