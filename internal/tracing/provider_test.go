package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: false})

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_EnabledReturnsShutdown(t *testing.T) {
	// The exporter connects lazily, so no collector is needed to build it.
	shutdown, err := Init(context.Background(), Config{
		Enabled:     true,
		Endpoint:    "http://127.0.0.1:4318",
		ServiceName: "perfshop-test",
	})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = shutdown(ctx)
}

func TestNewProvider_RecordsSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp, err := NewProvider(context.Background(), Config{ServiceName: "perfshop-test"}, sdktrace.WithSpanProcessor(sr))
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer("test").Start(context.Background(), "search.dispatch")
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "search.dispatch", sr.Ended()[0].Name())
	name, ok := sr.Ended()[0].Resource().Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "perfshop-test", name.AsString())
}
