package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only config
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	cfg := QuietConfig("info")
	cfg.FilePath = path

	// When: logging through the returned logger
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("search complete", slog.String("strategy", "chunked"))
	cleanup()

	// Then: one JSON line at info level
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "search complete", entry["msg"])
	assert.Equal(t, "chunked", entry["strategy"])
}

func TestSetup_NoSinksDiscards(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stderr = false

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()
	logger.Info("nowhere")
}

func TestRotatingWriter_Rotates(t *testing.T) {
	// Given: a 1MB writer keeping two backups
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	chunk := bytes.Repeat([]byte("x"), 600*1024)

	// When: writing four chunks, each forcing a rotation after the first
	for i := 0; i < 4; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	// Then: current file plus exactly two backups remain
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}

func TestRotatingWriter_WriteAfterClose(t *testing.T) {
	w, err := NewRotatingWriter(filepath.Join(t.TempDir(), "server.log"), 1, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.NoError(t, w.Close())
}
