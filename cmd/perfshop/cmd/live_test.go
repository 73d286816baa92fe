package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveCmd_PlainModeWithoutTerminal(t *testing.T) {
	// Given: piped input
	isolate(t)

	// When: running live with an initial query and one more line
	out, err := execute(t, "wireless\n:toggle chunked-search\ncase\n:quit\n", "live", "desk")

	// Then: each query is answered in line mode and the toggle applies
	require.NoError(t, err)
	assert.Contains(t, out, "Desk Lamp")
	assert.Contains(t, out, "Wireless Mouse")
	assert.Contains(t, out, "chunked-search is now on")
	assert.Contains(t, out, "via chunked")
}
