// Package worker runs handlers on a dedicated goroutine that can only be
// reached through serialized request and response messages. Nothing is
// shared with the caller except bytes.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	shoperrors "github.com/Aman-CERP/perfshop/internal/errors"
)

var (
	// ErrTerminated is returned by Call once the worker has been terminated.
	ErrTerminated = shoperrors.New(shoperrors.ErrCodeChannelTerminated, "worker terminated", nil)

	// ErrUnknownOp is returned when no handler is registered for an op.
	ErrUnknownOp = shoperrors.New(shoperrors.ErrCodeChannelRejected, "unknown operation", nil)
)

// Handler processes one request payload and returns the response payload.
// It runs on the worker goroutine, one request at a time.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// Request is the message sent to the worker.
type Request struct {
	ID       string          `json:"id"`
	Op       string          `json:"op"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Deadline *time.Time      `json:"deadline,omitempty"`
}

// Response is the message the worker sends back for exactly one Request.
type Response struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// Stats counts what the worker has processed.
type Stats struct {
	Handled  int64 `json:"handled"`
	Failed   int64 `json:"failed"`
	Panicked int64 `json:"panicked"`
}

type envelope struct {
	data  []byte
	reply chan []byte
}

// Worker owns a goroutine, its handlers and a single-slot mailbox.
type Worker struct {
	handlers map[string]Handler

	inbox  chan envelope
	quit   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	handled  atomic.Int64
	failed   atomic.Int64
	panicked atomic.Int64
}

// Spawn starts a worker serving the given handlers. The caller owns the
// worker and must Terminate it.
func Spawn(handlers map[string]Handler) *Worker {
	hs := make(map[string]Handler, len(handlers))
	for op, h := range handlers {
		hs[op] = h
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		handlers: hs,
		inbox:    make(chan envelope, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	go w.loop(ctx)
	return w
}

// Call sends one request and waits for its response. payload must be JSON.
// A deadline on ctx is forwarded to the handler.
func (w *Worker) Call(ctx context.Context, op string, payload []byte) ([]byte, error) {
	select {
	case <-w.quit:
		return nil, ErrTerminated
	default:
	}

	req := Request{ID: uuid.NewString(), Op: op, Payload: payload}
	if dl, ok := ctx.Deadline(); ok {
		req.Deadline = &dl
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeChannelProtocol, "failed to encode request", err)
	}

	// The reply slot is buffered so a worker finishing after the caller gave
	// up never blocks.
	env := envelope{data: data, reply: make(chan []byte, 1)}

	select {
	case w.inbox <- env:
	case <-w.quit:
		return nil, ErrTerminated
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var raw []byte
	select {
	case raw = <-env.reply:
	case <-w.quit:
		return nil, ErrTerminated
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, shoperrors.New(shoperrors.ErrCodeChannelProtocol, "failed to decode response", err)
	}
	if resp.ID != req.ID {
		return nil, shoperrors.New(shoperrors.ErrCodeChannelProtocol, "response does not match request", nil).
			WithDetail("request_id", req.ID).
			WithDetail("response_id", resp.ID)
	}
	if resp.Error != "" {
		// A handler cut short by Terminate reports the termination.
		if w.Terminated() {
			return nil, ErrTerminated
		}
		code := resp.Code
		if code == "" {
			code = shoperrors.ErrCodeChannelFailed
		}
		return nil, shoperrors.New(code, resp.Error, nil).
			WithDetail("op", op).
			WithDetail("request_id", req.ID)
	}
	return resp.Payload, nil
}

// Terminate stops the worker and waits for its goroutine to exit. An
// in-flight handler is cancelled. Safe to call multiple times.
func (w *Worker) Terminate() {
	w.once.Do(func() {
		close(w.quit)
		w.cancel()
	})
	<-w.done
}

// Terminated reports whether Terminate has been called.
func (w *Worker) Terminated() bool {
	select {
	case <-w.quit:
		return true
	default:
		return false
	}
}

// Stats returns processing counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Handled:  w.handled.Load(),
		Failed:   w.failed.Load(),
		Panicked: w.panicked.Load(),
	}
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case env := <-w.inbox:
			env.reply <- w.handle(ctx, env.data)
		}
	}
}

// handle decodes one request, dispatches it and encodes the response.
func (w *Worker) handle(ctx context.Context, data []byte) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		w.failed.Add(1)
		return encode(Response{Error: "malformed request: " + err.Error(), Code: shoperrors.ErrCodeChannelProtocol})
	}

	resp := Response{ID: req.ID}
	h, ok := w.handlers[req.Op]
	if !ok {
		w.failed.Add(1)
		resp.Error = fmt.Sprintf("%s: %q", ErrUnknownOp.Message, req.Op)
		resp.Code = ErrUnknownOp.Code
		return encode(resp)
	}

	if req.Deadline != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, *req.Deadline)
		defer cancel()
	}

	out, err := w.invoke(ctx, req, h)
	w.handled.Add(1)
	if err != nil {
		w.failed.Add(1)
		resp.Error = err.Error()
		resp.Code = shoperrors.GetCode(err)
		return encode(resp)
	}
	resp.Payload = out
	return encode(resp)
}

// invoke runs h, converting a panic into an error.
func (w *Worker) invoke(ctx context.Context, req Request, h Handler) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.panicked.Add(1)
			slog.Error("worker handler panicked",
				slog.String("op", req.Op),
				slog.String("request_id", req.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			out = nil
			err = shoperrors.New(shoperrors.ErrCodeChannelFailed, fmt.Sprintf("handler panicked: %v", r), nil)
		}
	}()
	return h(ctx, req.Payload)
}

func encode(resp Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// Only reachable with an invalid RawMessage payload.
		data, _ = json.Marshal(Response{ID: resp.ID, Error: "failed to encode response: " + err.Error(), Code: shoperrors.ErrCodeChannelProtocol})
	}
	return data
}
