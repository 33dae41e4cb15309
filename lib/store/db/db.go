// Package db implements the opening and graceful closing of the cache backends.
package db

import (
	"fmt"
	"time"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/store"
	"github.com/tarancss/soldash/lib/store/memory"
	"github.com/tarancss/soldash/lib/store/mongo"
	"github.com/tarancss/soldash/lib/store/postgres"
	"github.com/tarancss/soldash/lib/store/redis"
)

const (
	MEMORY   string = "memory"
	MONGODB  string = "mongodb"
	POSTGRES string = "postgresql"
	REDIS    string = "redis"
)

// ErrUnknownType is returned for an unsupported database type.
var ErrUnknownType = fmt.Errorf("unknown database type")

// New returns a new cache connection according to the options (database type). An empty type is the memory cache.
// ttl bounds how long redis keeps an entry.
func New(options, connection string, ttl time.Duration, clk clock.Clock) (store.Cache, error) {
	switch options {
	case "", MEMORY:
		return memory.New(clk), nil
	case MONGODB:
		return mongo.New(connection, clk)
	case POSTGRES:
		return postgres.New(connection, clk)
	case REDIS:
		return redis.New(connection, ttl, clk)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownType, options)
}
