package flags

import (
	"fmt"
	"log/slog"
	"sync"

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/search"
	"github.com/Aman-CERP/perfshop/internal/state"
)

// Backend persists a flag set.
type Backend interface {
	Load() (Set, error)
	Save(Set) error
}

// Store is the process-wide flag state. Changes are persisted to the
// backend, when one is configured, before subscribers are notified.
type Store struct {
	mu      sync.Mutex
	state   *state.Container[Set]
	backend Backend
}

// NewStore loads the initial flags from backend. A nil backend keeps flags
// in memory only.
func NewStore(backend Backend) (*Store, error) {
	initial := Defaults()
	if backend != nil {
		loaded, err := backend.Load()
		if err != nil {
			return nil, err
		}
		initial = normalize(loaded)
	}
	return &Store{
		state:   state.New(initial),
		backend: backend,
	}, nil
}

func unknownFlag(key Key) error {
	return shoperrors.New(shoperrors.ErrCodeUnknownFlag, fmt.Sprintf("unknown flag %q", key), nil).
		WithSuggestion("Run 'perfshop flags list' to see available flags")
}

// Get returns the value of key.
func (s *Store) Get(key Key) (bool, error) {
	v, ok := s.state.Get()[key]
	if !ok {
		return false, unknownFlag(key)
	}
	return v, nil
}

// Set turns key on or off.
func (s *Store) Set(key Key, value bool) error {
	_, err := s.apply(func(cur Set) (Set, error) {
		if _, ok := cur[key]; !ok {
			return nil, unknownFlag(key)
		}
		next := cur.Clone()
		next[key] = value
		return next, nil
	})
	return err
}

// Toggle flips key and returns its new value.
func (s *Store) Toggle(key Key) (bool, error) {
	next, err := s.apply(func(cur Set) (Set, error) {
		v, ok := cur[key]
		if !ok {
			return nil, unknownFlag(key)
		}
		next := cur.Clone()
		next[key] = !v
		return next, nil
	})
	if err != nil {
		return false, err
	}
	return next[key], nil
}

// Reset turns every flag off.
func (s *Store) Reset() error {
	_, err := s.apply(func(Set) (Set, error) { return Defaults(), nil })
	return err
}

// Replace sets every known flag from values; unknown keys are rejected.
func (s *Store) Replace(values map[Key]bool) error {
	for k := range values {
		if _, ok := Lookup(k); !ok {
			return unknownFlag(k)
		}
	}
	_, err := s.apply(func(Set) (Set, error) { return normalize(values), nil })
	return err
}

func (s *Store) apply(fn func(Set) (Set, error)) (Set, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.state.Get())
	if err != nil {
		return nil, err
	}
	if s.backend != nil {
		if err := s.backend.Save(next); err != nil {
			return nil, err
		}
	}
	s.state.Set(next)
	return next, nil
}

// Reload re-reads the backend and publishes the result if it differs.
func (s *Store) Reload() (bool, error) {
	if s.backend == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.backend.Load()
	if err != nil {
		return false, err
	}
	next := normalize(loaded)
	if next.Equal(s.state.Get()) {
		return false, nil
	}
	s.state.Set(next)
	slog.Info("flags reloaded", slog.Any("enabled", next.Enabled()))
	return true, nil
}

// Snapshot returns a copy of the current flags.
func (s *Store) Snapshot() Set {
	return s.state.Get().Clone()
}

// Subscribe calls fn with a copy of the flags after every change.
func (s *Store) Subscribe(fn func(Set)) (unsubscribe func()) {
	return s.state.Subscribe(func(v Set) { fn(v.Clone()) })
}

// Execution derives the search execution flags from the current state.
func (s *Store) Execution() search.ExecutionFlags {
	return ExecutionFrom(s.state.Get())
}

// ExecutionFrom maps a flag set to search execution flags.
func ExecutionFrom(set Set) search.ExecutionFlags {
	return search.ExecutionFlags{
		UseWorker:   set[WorkerSearch],
		UseChunking: set[ChunkedSearch],
		UseDebounce: set[DebounceSearch] && !set[UnthrottledInput],
	}
}
