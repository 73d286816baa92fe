package perf

import (
	"sort"
	"sync"
	"time"
)

// DefaultLongTaskThreshold is the browser's long-task threshold.
const DefaultLongTaskThreshold = 50 * time.Millisecond

// EntryKind distinguishes marks from measures.
type EntryKind string

const (
	KindMark    EntryKind = "mark"
	KindMeasure EntryKind = "measure"
)

// Entry is one timeline record. Marks have zero Duration.
type Entry struct {
	Name     string        `json:"name"`
	Kind     EntryKind     `json:"kind"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
}

// Timeline is a bounded, concurrency-safe list of entries. The oldest
// entries are dropped once capacity is reached.
type Timeline struct {
	capacity  int
	threshold time.Duration
	now       func() time.Time

	mu      sync.Mutex
	entries []Entry
	marks   map[string]time.Time
}

// NewTimeline creates a timeline. Non-positive arguments use defaults
// (512 entries, 50ms long tasks).
func NewTimeline(capacity int, longTask time.Duration) *Timeline {
	if capacity <= 0 {
		capacity = 512
	}
	if longTask <= 0 {
		longTask = DefaultLongTaskThreshold
	}
	return &Timeline{
		capacity:  capacity,
		threshold: longTask,
		now:       time.Now,
		marks:     make(map[string]time.Time),
	}
}

// LongTaskThreshold returns the configured threshold.
func (t *Timeline) LongTaskThreshold() time.Duration {
	return t.threshold
}

// Mark records a named point in time and returns it.
func (t *Timeline) Mark(name string) time.Time {
	at := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.marks[name] = at
	t.append(Entry{Name: name, Kind: KindMark, Start: at})
	return at
}

// Measure records a measure between start and end.
func (t *Timeline) Measure(name string, start, end time.Time) Entry {
	e := Entry{Name: name, Kind: KindMeasure, Start: start, Duration: end.Sub(start)}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.append(e)
	return e
}

// MeasureFromMark records a measure from a previous mark until now.
// Reports false when the mark does not exist.
func (t *Timeline) MeasureFromMark(name, mark string) (Entry, bool) {
	t.mu.Lock()
	start, ok := t.marks[mark]
	t.mu.Unlock()
	if !ok {
		return Entry{}, false
	}
	return t.Measure(name, start, t.now()), true
}

// Track starts a measure now and returns the function that ends it.
func (t *Timeline) Track(name string) func() time.Duration {
	start := t.now()
	return func() time.Duration {
		return t.Measure(name, start, t.now()).Duration
	}
}

// append must be called with mu held.
func (t *Timeline) append(e Entry) {
	if len(t.entries) >= t.capacity {
		n := copy(t.entries, t.entries[1:])
		t.entries = t.entries[:n]
	}
	t.entries = append(t.entries, e)
}

// Entries returns a copy of all entries, oldest first.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// Measures returns the measures whose name matches, oldest first. An empty
// name returns every measure.
func (t *Timeline) Measures(name string) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Entry
	for _, e := range t.entries {
		if e.Kind == KindMeasure && (name == "" || e.Name == name) {
			out = append(out, e)
		}
	}
	return out
}

// LongTasks returns measures strictly longer than threshold. A non-positive
// threshold uses the timeline's own.
func (t *Timeline) LongTasks(threshold time.Duration) []Entry {
	if threshold <= 0 {
		threshold = t.threshold
	}
	var out []Entry
	for _, e := range t.Measures("") {
		if e.Duration > threshold {
			out = append(out, e)
		}
	}
	return out
}

// Longest returns the longest measure.
func (t *Timeline) Longest() (Entry, bool) {
	measures := t.Measures("")
	if len(measures) == 0 {
		return Entry{}, false
	}
	sort.SliceStable(measures, func(i, j int) bool {
		return measures[i].Duration > measures[j].Duration
	})
	return measures[0], true
}

// TotalBlockingTime sums the portion of every long task beyond the
// threshold.
func (t *Timeline) TotalBlockingTime() time.Duration {
	var total time.Duration
	for _, e := range t.LongTasks(0) {
		total += e.Duration - t.threshold
	}
	return total
}

// Reset clears entries and marks.
func (t *Timeline) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.marks = make(map[string]time.Time)
}
