// Package search filters the product catalog for a query. A Dispatcher picks
// one of three execution strategies per call: delegate to a background
// worker, scan in cooperative chunks, or scan synchronously.
package search

import (
	"context"
	"time"

	"github.com/Aman-CERP/perfshop/internal/catalog"
)

// Default limits.
const (
	DefaultMaxResults    = 20
	DefaultChunkSize     = 50
	DefaultWorkerTimeout = 2 * time.Second
)

// WorkerOp is the operation name the worker handler is registered under.
const WorkerOp = "search"

// Strategy names how a search was executed.
type Strategy string

const (
	StrategyWorker  Strategy = "worker"
	StrategyChunked Strategy = "chunked"
	StrategySync    Strategy = "sync"
	// StrategyNone is reported for empty queries, where nothing runs.
	StrategyNone Strategy = "none"
)

// ExecutionFlags selects the strategy for one call. It is a snapshot taken
// from the flag store at call time.
type ExecutionFlags struct {
	UseWorker   bool `json:"useWorker"`
	UseChunking bool `json:"useChunking"`
	UseDebounce bool `json:"useDebounce"`
}

// SearchResult is a matched product. Relevance is a display value only and
// never affects ordering.
type SearchResult struct {
	catalog.Product
	Relevance int `json:"relevance"`
}

// Outcome is the result of one dispatched search.
type Outcome struct {
	Query          string         `json:"query"`
	Results        []SearchResult `json:"results"`
	Strategy       Strategy       `json:"strategy"`
	Fallback       bool           `json:"fallback"`
	FallbackReason string         `json:"fallbackReason,omitempty"`
	MatchCount     int            `json:"matchCount"`
	ChunkCount     int            `json:"chunkCount"`
	Duration       time.Duration  `json:"duration"`
	RequestID      string         `json:"requestId"`
}

// Truncated reports whether more products matched than were returned.
func (o *Outcome) Truncated() bool {
	return o.MatchCount > len(o.Results)
}

// IDs returns the product IDs of the results in order.
func (o *Outcome) IDs() []string {
	ids := make([]string, len(o.Results))
	for i, r := range o.Results {
		ids[i] = r.ID
	}
	return ids
}

// Channel is a background execution channel. payload and the returned bytes
// are serialized messages; nothing else is shared.
type Channel interface {
	Call(ctx context.Context, op string, payload []byte) ([]byte, error)
}

// Yielder gives other goroutines a chance to run between chunks.
type Yielder func()

// workerRequest is the message sent over the channel.
type workerRequest struct {
	Query    string            `json:"query"`
	Products []catalog.Product `json:"products"`
}

// workerReply carries every match; truncation happens in the dispatcher.
type workerReply struct {
	Results []SearchResult `json:"results"`
}
