package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_RejectsUnknownTransport(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "serve", "--transport", "carrier-pigeon")

	assert.Error(t, err)
}

func TestServeCmd_HTTPStopsOnCancel(t *testing.T) {
	// Given: an HTTP server on a free port
	isolate(t)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := executeContext(ctx, t, "", "serve", "--addr", "127.0.0.1:0")
		errCh <- err
	}()

	// When: the context is cancelled
	time.Sleep(200 * time.Millisecond)
	cancel()

	// Then: serve returns cleanly
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
