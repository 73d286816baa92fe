package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	value string
	at    time.Duration
}

type recorder struct {
	start time.Time
	mu    sync.Mutex
	calls []call
	fired chan struct{}
}

func newRecorder() *recorder {
	return &recorder{start: time.Now(), fired: make(chan struct{}, 16)}
}

func (r *recorder) fn(v string) {
	r.mu.Lock()
	r.calls = append(r.calls, call{value: v, at: time.Since(r.start)})
	r.mu.Unlock()
	r.fired <- struct{}{}
}

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func TestDebouncer_LastCallWins(t *testing.T) {
	// Given: a 300ms debouncer
	rec := newRecorder()
	d := New(300*time.Millisecond, rec.fn)
	defer d.Stop()

	// When: triggering at t=0 and t=100ms
	d.Trigger("ph")
	time.Sleep(100 * time.Millisecond)
	d.Trigger("phone")

	// Then: exactly one call, at about t=400ms, with the later value
	select {
	case <-rec.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced call never fired")
	}
	time.Sleep(150 * time.Millisecond)

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "phone", calls[0].value)
	assert.GreaterOrEqual(t, calls[0].at, 390*time.Millisecond)
	assert.Less(t, calls[0].at, 700*time.Millisecond)
}

func TestDebouncer_SpacedTriggersFireSeparately(t *testing.T) {
	rec := newRecorder()
	d := New(30*time.Millisecond, rec.fn)
	defer d.Stop()

	d.Trigger("a")
	<-rec.fired
	d.Trigger("b")
	<-rec.fired

	calls := rec.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].value)
	assert.Equal(t, "b", calls[1].value)
}

func TestDebouncer_Flush(t *testing.T) {
	rec := newRecorder()
	d := New(time.Hour, rec.fn)
	defer d.Stop()

	assert.False(t, d.Flush())

	d.Trigger("now")
	assert.True(t, d.Pending())
	assert.True(t, d.Flush())
	assert.False(t, d.Pending())

	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "now", calls[0].value)
}

func TestDebouncer_Cancel(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.fn)
	defer d.Stop()

	d.Trigger("dropped")
	assert.True(t, d.Cancel())
	assert.False(t, d.Cancel())

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestDebouncer_StopIsIdempotentAndFinal(t *testing.T) {
	rec := newRecorder()
	d := New(20*time.Millisecond, rec.fn)

	d.Trigger("pending")
	d.Stop()
	d.Stop()
	d.Trigger("ignored")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.False(t, d.Pending())
	assert.False(t, d.Flush())
}

func TestNew_DefaultWindow(t *testing.T) {
	d := New(0, func(int) {})
	assert.Equal(t, DefaultWindow, d.Window())
}
