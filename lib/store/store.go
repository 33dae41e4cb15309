// Package store defines the interface for the cache backends shared by the dashboard panels.
package store

import (
	"context"
	"errors"
	"time"
)

// Cache maps a source id to the most recent successful result of that source. Each panel writes its own key only.
type Cache interface {
	// Get returns the entry for source only if it was fetched less than fresh ago, ErrDataNotFound otherwise.
	Get(ctx context.Context, source string, fresh time.Duration) (Entry, error)
	// Put overwrites the entry for source, recording the store's current time as FetchedAt.
	Put(ctx context.Context, source string, payload []byte) (Entry, error)
	// Purge drops every entry, called when the dashboard stops.
	Purge(ctx context.Context) error
	Close() error
}

// Errors returned
var (
	ErrDataNotFound = errors.New("data was not found in store")
	ErrNoSource     = errors.New("source id is empty")
)
