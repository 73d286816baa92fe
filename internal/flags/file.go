package flags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"

	"github.com/Aman-CERP/perfshop/internal/debounce"
	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
)

// reloadWindow coalesces the burst of events an atomic rename produces.
const reloadWindow = 50 * time.Millisecond

// FileBackend stores flags as a JSON object in a file. Reads and writes
// take a lock on <path>.lock so separate processes never see a torn file.
type FileBackend struct {
	path string
	lock *flock.Flock
}

// NewFileBackend creates a backend for path. The file need not exist.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the flags file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the file. A missing file yields the defaults.
func (b *FileBackend) Load() (Set, error) {
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to create flags directory", err)
	}
	if err := b.lock.RLock(); err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeFileLocked, "failed to lock flags file", err)
	}
	defer func() { _ = b.lock.Unlock() }()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to read flags file", err)
	}

	var raw map[Key]bool
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeFileCorrupt, "flags file is not valid JSON", err).
			WithDetail("path", b.path).
			WithSuggestion("Run 'perfshop flags reset' to rewrite it")
	}
	return normalize(raw), nil
}

// Save writes the flags to a temp file and renames it into place.
func (b *FileBackend) Save(set Set) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to create flags directory", err)
	}
	if err := b.lock.Lock(); err != nil {
		return shoperrors.New(shoperrors.ErrCodeFileLocked, "failed to lock flags file", err)
	}
	defer func() { _ = b.lock.Unlock() }()

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to encode flags", err)
	}

	tmp, err := os.CreateTemp(dir, ".flags-*.json")
	if err != nil {
		return shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to write flags", err)
	}
	if err := tmp.Close(); err != nil {
		return shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to write flags", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		return shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to replace flags file", err)
	}
	return nil
}

// Watch calls onChange whenever another writer replaces or edits the flags
// file. It watches the parent directory since atomic renames replace the
// file's inode. Watching stops when ctx is done.
func (b *FileBackend) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return shoperrors.New(shoperrors.ErrCodeStoreFailed, "failed to create flags directory", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(b.path)
	d := debounce.New(reloadWindow, func(struct{}) { onChange() })

	go func() {
		defer func() { _ = fsw.Close() }()
		defer d.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					d.Trigger(struct{}{})
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				slog.Warn("flags watcher error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}

// WatchFile reloads s whenever b's file changes on disk.
func (s *Store) WatchFile(ctx context.Context, b *FileBackend) error {
	return b.Watch(ctx, func() {
		if _, err := s.Reload(); err != nil {
			slog.Warn("flags reload failed", slog.String("error", err.Error()))
		}
	})
}
