package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every perfshop path at a fresh temp directory and makes it
// the working directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir+"/.config")
	t.Chdir(dir)
	return dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	return executeContext(context.Background(), t, stdin, args...)
}

func executeContext(ctx context.Context, t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(bytes.NewBufferString(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestRootCmd_ListsCommands(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "--help")

	require.NoError(t, err)
	for _, name := range []string{"search", "flags", "bench", "budget", "stats", "live", "serve", "config", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "checkout")

	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	isolate(t)

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "perfshop")

	out, err = execute(t, "", "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)
}

func TestRootCmd_ProfileFlagsWriteFiles(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "", "--profile-cpu", dir+"/cpu.out", "--profile-mem", dir+"/mem.out", "version")

	require.NoError(t, err)
	assert.FileExists(t, dir+"/cpu.out")
	assert.FileExists(t, dir+"/mem.out")
}
