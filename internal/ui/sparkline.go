package ui

import "strings"

// SparklineChars are the eight bar heights, lowest first.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline keeps the most recent samples in a ring and renders them as
// bars scaled to the largest visible sample.
type Sparkline struct {
	samples []float64
	head    int
	count   int
}

// NewSparkline creates a sparkline holding width samples.
func NewSparkline(width int) *Sparkline {
	if width <= 0 {
		width = 40
	}
	return &Sparkline{samples: make([]float64, width)}
}

// Add appends a sample, evicting the oldest when full.
func (s *Sparkline) Add(value float64) {
	if value < 0 {
		value = 0
	}
	s.samples[s.head] = value
	s.head = (s.head + 1) % len(s.samples)
	if s.count < len(s.samples) {
		s.count++
	}
}

// Count returns the number of visible samples.
func (s *Sparkline) Count() int {
	return s.count
}

// Values returns the visible samples, oldest first.
func (s *Sparkline) Values() []float64 {
	out := make([]float64, 0, s.count)
	start := (s.head - s.count + len(s.samples)) % len(s.samples)
	for i := 0; i < s.count; i++ {
		out = append(out, s.samples[(start+i)%len(s.samples)])
	}
	return out
}

// Max returns the largest visible sample.
func (s *Sparkline) Max() float64 {
	m := 0.0
	for _, v := range s.Values() {
		if v > m {
			m = v
		}
	}
	return m
}

// Render draws one bar per visible sample.
func (s *Sparkline) Render() string {
	values := s.Values()
	if len(values) == 0 {
		return ""
	}
	peak := s.Max()

	var b strings.Builder
	top := len(SparklineChars) - 1
	for _, v := range values {
		level := 0
		if peak > 0 {
			level = int(v / peak * float64(top))
		}
		b.WriteRune(SparklineChars[level])
	}
	return b.String()
}

// Clear drops every sample.
func (s *Sparkline) Clear() {
	for i := range s.samples {
		s.samples[i] = 0
	}
	s.head = 0
	s.count = 0
}
