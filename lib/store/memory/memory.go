// Package memory implements an in-process cache, the default backend when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/store"
)

// Memory is a map of entries guarded by a mutex. It is safe for concurrent use.
type Memory struct {
	mu  sync.RWMutex
	m   map[string]store.Entry
	clk clock.Clock
}

// New returns an empty cache timestamping entries with clk. A nil clk uses the wall clock.
func New(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real
	}

	return &Memory{m: make(map[string]store.Entry), clk: clk}
}

// Get implements store.Cache.
func (c *Memory) Get(_ context.Context, source string, fresh time.Duration) (store.Entry, error) {
	c.mu.RLock()
	e, ok := c.m[source]
	c.mu.RUnlock()

	if !ok || !e.Fresh(c.clk.Now(), fresh) {
		return store.Entry{}, store.ErrDataNotFound
	}

	return e, nil
}

// Put implements store.Cache.
func (c *Memory) Put(_ context.Context, source string, payload []byte) (store.Entry, error) {
	if source == "" {
		return store.Entry{}, store.ErrNoSource
	}

	e := store.Entry{Payload: append([]byte(nil), payload...), FetchedAt: c.clk.Now()}

	c.mu.Lock()
	c.m[source] = e
	c.mu.Unlock()

	return e, nil
}

// Purge implements store.Cache.
func (c *Memory) Purge(context.Context) error {
	c.mu.Lock()
	c.m = make(map[string]store.Entry)
	c.mu.Unlock()

	return nil
}

// Close implements store.Cache.
func (c *Memory) Close() error { return nil }

// Len returns the number of entries, fresh or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.m)
}
