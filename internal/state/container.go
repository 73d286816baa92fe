// Package state provides a small observable value container shared by the
// flag store and the cart.
package state

import "sync"

// Container owns one value of type T. Updates are applied one at a time and
// subscribers see them in the order they were applied.
//
// Subscribers run synchronously on the updating goroutine and must not call
// Update on the same container.
type Container[T any] struct {
	// updateMu serializes Update so notifications keep update order.
	updateMu sync.Mutex

	mu      sync.RWMutex
	value   T
	nextID  int
	subs    map[int]func(T)
	version uint64
}

// New creates a container holding initial.
func New[T any](initial T) *Container[T] {
	return &Container[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value.
func (c *Container[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Version returns how many updates have been applied.
func (c *Container[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Update replaces the value with fn(current) and notifies subscribers.
// fn must not retain or mutate the value it is given if T holds references;
// return a fresh value instead.
func (c *Container[T]) Update(fn func(T) T) T {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	c.mu.Lock()
	next := fn(c.value)
	c.value = next
	c.version++
	subs := make([]func(T), 0, len(c.subs))
	for id := 0; id < c.nextID; id++ {
		if sub, ok := c.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	c.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next
}

// Set replaces the value.
func (c *Container[T]) Set(v T) {
	c.Update(func(T) T { return v })
}

// Subscribe registers fn for every future update, in subscription order.
// The returned func removes the subscription.
func (c *Container[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}
