package search

import (
	"sync"
	"sync/atomic"
)

// Ticket orders overlapping searches. Later tickets are newer.
type Ticket uint64

// Latest keeps the outcome of the newest search that has completed.
// An outcome published with an older ticket than the one already accepted
// is dropped, so a slow response never overwrites a newer one.
type Latest struct {
	seq atomic.Uint64

	mu       sync.Mutex
	accepted Ticket
	outcome  *Outcome
}

// Begin issues a ticket for a search that is about to start.
func (l *Latest) Begin() Ticket {
	return Ticket(l.seq.Add(1))
}

// Publish offers an outcome. It reports whether the outcome was accepted.
func (l *Latest) Publish(t Ticket, o *Outcome) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if t <= l.accepted {
		return false
	}
	l.accepted = t
	l.outcome = o
	return true
}

// IsCurrent reports whether t is the most recently issued ticket.
func (l *Latest) IsCurrent(t Ticket) bool {
	return Ticket(l.seq.Load()) == t
}

// Current returns the accepted outcome and its ticket.
func (l *Latest) Current() (*Outcome, Ticket) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.outcome, l.accepted
}
