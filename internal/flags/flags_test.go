package flags

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
	"github.com/Aman-CERP/perfshop/internal/search"
)

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	require.Len(t, defs, 9)

	var fixes int
	for _, d := range defs {
		if d.Kind == KindFix {
			fixes++
		}
	}
	assert.Equal(t, 5, fixes)

	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestStore_SetGetToggleReset(t *testing.T) {
	s, err := NewStore(nil)
	require.NoError(t, err)

	require.NoError(t, s.Set(WorkerSearch, true))
	v, err := s.Get(WorkerSearch)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = s.Toggle(ChunkedSearch)
	require.NoError(t, err)
	assert.True(t, v)

	assert.Equal(t, []Key{ChunkedSearch, WorkerSearch}, s.Snapshot().Enabled())

	require.NoError(t, s.Reset())
	assert.Empty(t, s.Snapshot().Enabled())
}

func TestStore_UnknownFlag(t *testing.T) {
	s, err := NewStore(nil)
	require.NoError(t, err)

	err = s.Set("turbo", true)
	assert.Equal(t, shoperrors.ErrCodeUnknownFlag, shoperrors.GetCode(err))

	_, err = s.Toggle("turbo")
	assert.Error(t, err)
	_, err = s.Get("turbo")
	assert.Error(t, err)
	assert.Error(t, s.Replace(map[Key]bool{"turbo": true}))
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s, err := NewStore(nil)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap[WorkerSearch] = true

	v, _ := s.Get(WorkerSearch)
	assert.False(t, v)
}

func TestStore_Execution(t *testing.T) {
	s, err := NewStore(nil)
	require.NoError(t, err)
	assert.Equal(t, search.ExecutionFlags{}, s.Execution())

	require.NoError(t, s.Replace(map[Key]bool{WorkerSearch: true, ChunkedSearch: true, DebounceSearch: true}))
	assert.Equal(t, search.ExecutionFlags{UseWorker: true, UseChunking: true, UseDebounce: true}, s.Execution())

	// The anti-pattern overrides the debounce fix.
	require.NoError(t, s.Set(UnthrottledInput, true))
	assert.False(t, s.Execution().UseDebounce)
}

func TestStore_SubscribeSeesChanges(t *testing.T) {
	s, err := NewStore(nil)
	require.NoError(t, err)

	var got []bool
	unsubscribe := s.Subscribe(func(set Set) { got = append(got, set[DebounceSearch]) })
	_, _ = s.Toggle(DebounceSearch)
	_, _ = s.Toggle(DebounceSearch)
	unsubscribe()
	_, _ = s.Toggle(DebounceSearch)

	assert.Equal(t, []bool{true, false}, got)
}

func TestFileBackend_MissingFileIsDefaults(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "flags.json"))

	set, err := b.Load()

	require.NoError(t, err)
	assert.True(t, set.Equal(Defaults()))
}

func TestFileBackend_PersistsAcrossStores(t *testing.T) {
	// Given: a store backed by a file
	path := filepath.Join(t.TempDir(), "state", "flags.json")
	s, err := NewStore(NewFileBackend(path))
	require.NoError(t, err)

	// When: a flag is set
	require.NoError(t, s.Set(ChunkedSearch, true))

	// Then: a fresh store reads it back and no temp files remain
	again, err := NewStore(NewFileBackend(path))
	require.NoError(t, err)
	v, err := again.Get(ChunkedSearch)
	require.NoError(t, err)
	assert.True(t, v)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".flags-")
	}
}

func TestFileBackend_IgnoresUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"worker-search": true, "legacy": true}`), 0644))

	set, err := NewFileBackend(path).Load()

	require.NoError(t, err)
	assert.True(t, set[WorkerSearch])
	_, ok := set["legacy"]
	assert.False(t, ok)
}

func TestFileBackend_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewStore(NewFileBackend(path))

	assert.Equal(t, shoperrors.ErrCodeFileCorrupt, shoperrors.GetCode(err))
}

func TestStore_WatchFileReloadsExternalEdits(t *testing.T) {
	// Given: two stores sharing a file, the first one watching it
	path := filepath.Join(t.TempDir(), "flags.json")
	watched, err := NewStore(NewFileBackend(path))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watched.WatchFile(ctx, NewFileBackend(path)))

	var mu sync.Mutex
	var notified bool
	watched.Subscribe(func(Set) {
		mu.Lock()
		notified = true
		mu.Unlock()
	})

	// When: the other store writes
	other, err := NewStore(NewFileBackend(path))
	require.NoError(t, err)
	require.NoError(t, other.Set(WorkerSearch, true))

	// Then: the watcher picks it up
	assert.Eventually(t, func() bool {
		v, _ := watched.Get(WorkerSearch)
		return v
	}, 3*time.Second, 20*time.Millisecond)
	mu.Lock()
	assert.True(t, notified)
	mu.Unlock()
}
