package errors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func failing() (int, error) { return 0, errors.New("channel down") }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker allowing 3 failures
	cb := NewCircuitBreaker("worker", WithMaxFailures(3))

	// When: three calls fail
	for i := 0; i < 3; i++ {
		_, _ = CircuitExecuteWithResult(context.Background(), cb, failing, func(error) (int, error) { return -1, nil })
	}

	// Then: the circuit is open and calls go straight to fallback
	assert.Equal(t, StateOpen, cb.State())

	called := false
	var reason error
	got, err := CircuitExecuteWithResult(context.Background(), cb,
		func() (int, error) { called = true; return 1, nil },
		func(e error) (int, error) { reason = e; return -1, nil },
	)
	require.NoError(t, err)
	assert.Equal(t, -1, got)
	assert.False(t, called)
	assert.ErrorIs(t, reason, ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenAllowsSingleProbe(t *testing.T) {
	// Given: an open breaker whose cooldown has elapsed
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker("worker", WithMaxFailures(1), WithCooldown(time.Second), withClock(clock.Now))
	cb.RecordFailure()
	require.Equal(t, StateOpen, cb.State())
	clock.Advance(time.Second)

	// Then: half-open admits exactly one caller
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())

	// When: the probe succeeds
	cb.RecordSuccess()

	// Then: the circuit closes
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker("worker", WithMaxFailures(2), WithCooldown(time.Second), withClock(clock.Now))
	cb.RecordFailure()
	cb.RecordFailure()
	clock.Advance(2 * time.Second)

	require.True(t, cb.Allow())
	cb.RecordFailure()

	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_CancelledCallIsNotAFailure(t *testing.T) {
	// Given: a breaker that opens on the first failure
	cb := NewCircuitBreaker("worker", WithMaxFailures(1))
	ctx, cancel := context.WithCancel(context.Background())

	// When: the caller gives up while the call is running
	fallbackCalled := false
	_, err := CircuitExecuteWithResult(ctx, cb,
		func() (int, error) { cancel(); return 0, ctx.Err() },
		func(error) (int, error) { fallbackCalled = true; return -1, nil },
	)

	// Then: the cancellation is returned and the circuit stays closed
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, fallbackCalled)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_AbandonedProbeFreesSlot(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker("worker", WithMaxFailures(1), WithCooldown(time.Second), withClock(clock.Now))
	cb.RecordFailure()
	clock.Advance(time.Second)

	require.True(t, cb.Allow())
	cb.RecordAbandoned()

	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb := NewCircuitBreaker("worker", WithMaxFailures(3))
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Failures())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
