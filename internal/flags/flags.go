// Package flags holds the storefront's performance flags. Each flag either
// switches on a web-performance anti-pattern or the fix for one; three of
// the fixes select how searches execute.
package flags

import (
	"sort"
)

// Key identifies a flag.
type Key string

// Anti-patterns.
const (
	BlockingScripts  Key = "blocking-scripts"
	UnsizedImages    Key = "unsized-images"
	LongTasks        Key = "long-tasks"
	UnthrottledInput Key = "unthrottled-input"
)

// Fixes.
const (
	PreloadAssets    Key = "preload-assets"
	DebounceSearch   Key = "debounce-search"
	WorkerSearch     Key = "worker-search"
	ChunkedSearch    Key = "chunked-search"
	PassiveListeners Key = "passive-listeners"
)

// Kind classifies a flag.
type Kind string

const (
	KindAntiPattern Kind = "anti-pattern"
	KindFix         Kind = "fix"
)

// Definition describes a flag.
type Definition struct {
	Key         Key    `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Kind        Kind   `json:"kind"`
}

var definitions = []Definition{
	{BlockingScripts, "Blocking scripts", "Run heavy synchronous work before first paint", KindAntiPattern},
	{UnsizedImages, "Unsized images", "Render product images without dimensions, causing layout shift", KindAntiPattern},
	{LongTasks, "Long tasks", "Inflate the catalog so sync searches block for more than 50ms", KindAntiPattern},
	{UnthrottledInput, "Unthrottled input", "Search on every keystroke, even with debounce on", KindAntiPattern},
	{PreloadAssets, "Preload assets", "Load the catalog eagerly at startup", KindFix},
	{DebounceSearch, "Debounce search", "Wait 300ms after the last keystroke before searching", KindFix},
	{WorkerSearch, "Worker search", "Run searches on a background worker", KindFix},
	{ChunkedSearch, "Chunked search", "Scan the catalog in chunks of 50 and yield between them", KindFix},
	{PassiveListeners, "Passive listeners", "Handle input without blocking the render loop", KindFix},
}

// Definitions returns every known flag in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition for key.
func Lookup(key Key) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Set maps every known flag to its value.
type Set map[Key]bool

// Defaults returns a set with every flag off.
func Defaults() Set {
	s := make(Set, len(definitions))
	for _, d := range definitions {
		s[d.Key] = false
	}
	return s
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether both sets hold the same values.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Enabled returns the keys that are on, sorted.
func (s Set) Enabled() []Key {
	var keys []Key
	for k, v := range s {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// normalize drops unknown keys and fills missing ones with false.
func normalize(raw map[Key]bool) Set {
	s := Defaults()
	for k, v := range raw {
		if _, ok := s[k]; ok {
			s[k] = v
		}
	}
	return s
}
