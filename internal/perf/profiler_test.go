package perf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_WritesRequestedFiles(t *testing.T) {
	dir := t.TempDir()
	opts := ProfileOptions{
		CPUPath:   filepath.Join(dir, "cpu.prof"),
		MemPath:   filepath.Join(dir, "mem.prof"),
		TracePath: filepath.Join(dir, "trace.out"),
	}
	require.True(t, opts.Enabled())

	p := NewProfiler(opts)
	require.NoError(t, p.Start())

	sum := 0
	for i := 0; i < 1000000; i++ {
		sum += i
	}
	_ = sum

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	for _, path := range []string{opts.CPUPath, opts.MemPath, opts.TracePath} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0), path)
	}
}

func TestProfiler_Disabled(t *testing.T) {
	p := NewProfiler(ProfileOptions{})
	assert.False(t, ProfileOptions{}.Enabled())
	assert.NoError(t, p.Start())
	assert.NoError(t, p.Stop())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.50 KB", FormatBytes(1536))
	assert.Equal(t, "2.00 MB", FormatBytes(2*1024*1024))
}
