package appstate

import (
	"slices"
	"sync"
)

// Ticket orders requests for one cache slice. Later requests get larger tickets.
type Ticket uint64

// Cache is one list slice of the client cache. Each refresh takes a ticket with Begin;
// Apply drops a response whose ticket is older than the one already applied.
type Cache[T any] struct {
	mu      sync.Mutex
	items   []T
	issued  Ticket
	applied Ticket
	loaded  bool
	err     error
}

func (c *Cache[T]) Begin() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return c.issued
}

// Apply stores the result of the request holding t. It reports false when the result
// is stale and was discarded. A failed refresh keeps the previous items.
func (c *Cache[T]) Apply(t Ticket, items []T, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.applied || t > c.issued {
		return false
	}
	c.applied = t
	c.err = err
	if err == nil {
		c.items = slices.Clone(items)
		c.loaded = true
	}
	return true
}

// Items returns a copy of the cached list.
func (c *Cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *Cache[T]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Err is the error of the last applied refresh.
func (c *Cache[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Find returns the first item matching fn.
func (c *Cache[T]) Find(fn func(T) bool) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if fn(it) {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Upsert replaces the first item matching fn with v, or prepends v.
func (c *Cache[T]) Upsert(v T, fn func(T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if fn(it) {
			c.items[i] = v
			return
		}
	}
	c.items = append([]T{v}, c.items...)
}

// Remove drops every item matching fn.
func (c *Cache[T]) Remove(fn func(T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = slices.DeleteFunc(c.items, fn)
}

// Update applies fn to every item in place. It is used for local edits such as
// optimistic read flags.
func (c *Cache[T]) Update(fn func(*T)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		fn(&c.items[i])
	}
}

func (c *Cache[T]) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.loaded = false
	c.err = nil
	// Tickets keep counting so responses issued before the reset can never apply.
	c.applied = c.issued + 1
	c.issued = c.applied
}
