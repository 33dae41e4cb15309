// Package redis implements the cache on a Redis server, so that several dashboards can share upstream results. Each
// cache tracks the sources it wrote in a key set of its own, Purge removes those and leaves the peers' entries alone.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/store"
)

const (
	prefix    = "soldash:cache:"
	keyPrefix = "soldash:keys:"
)

// Redis is a cache backed by a go-redis client.
type Redis struct {
	c    redis.UniversalClient
	clk  clock.Clock
	ttl  time.Duration
	keys string // sources written through this cache
}

// New parses a redis:// url and connects to the server. Entries are written with ttl so that a crashed dashboard
// does not leave them behind; zero disables expiry.
func New(uri string, ttl time.Duration, clk clock.Clock) (*Redis, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("cannot parse redis url: %w", err)
	}

	c := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if err = c.Ping(ctx).Err(); err != nil {
		_ = c.Close()

		return nil, fmt.Errorf("error connecting to redis in %s: %w", opts.Addr, err)
	}

	return NewWithClient(c, ttl, clk), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(c redis.UniversalClient, ttl time.Duration, clk clock.Clock) *Redis {
	if clk == nil {
		clk = clock.Real
	}

	return &Redis{c: c, clk: clk, ttl: ttl, keys: keyPrefix + uuid.NewString()}
}

// Get implements store.Cache.
func (r *Redis) Get(ctx context.Context, source string, fresh time.Duration) (store.Entry, error) {
	val, err := r.c.Get(ctx, prefix+source).Bytes()
	if errors.Is(err, redis.Nil) {
		return store.Entry{}, store.ErrDataNotFound
	}

	if err != nil {
		return store.Entry{}, fmt.Errorf("redis get %s: %w", source, err)
	}

	var e store.Entry
	if err = json.Unmarshal(val, &e); err != nil {
		return store.Entry{}, fmt.Errorf("redis get %s: %w", source, err)
	}

	if !e.Fresh(r.clk.Now(), fresh) {
		return store.Entry{}, store.ErrDataNotFound
	}

	return e, nil
}

// Put implements store.Cache.
func (r *Redis) Put(ctx context.Context, source string, payload []byte) (store.Entry, error) {
	if source == "" {
		return store.Entry{}, store.ErrNoSource
	}

	e := store.Entry{Payload: payload, FetchedAt: r.clk.Now().UTC()}

	val, err := json.Marshal(e)
	if err != nil {
		return store.Entry{}, fmt.Errorf("redis put %s: %w", source, err)
	}

	_, err = r.c.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, prefix+source, val, r.ttl)
		p.SAdd(ctx, r.keys, source)
		if r.ttl > 0 {
			p.Expire(ctx, r.keys, r.ttl)
		}

		return nil
	})
	if err != nil {
		return store.Entry{}, fmt.Errorf("redis put %s: %w", source, err)
	}

	return e, nil
}

// Purge implements store.Cache. It removes the keys written through this cache only.
func (r *Redis) Purge(ctx context.Context) error {
	sources, err := r.c.SMembers(ctx, r.keys).Result()
	if err != nil {
		return fmt.Errorf("redis purge: %w", err)
	}

	keys := make([]string, 0, len(sources)+1)
	for _, s := range sources {
		keys = append(keys, prefix+s)
	}

	keys = append(keys, r.keys)

	return r.c.Del(ctx, keys...).Err()
}

// Close implements store.Cache.
func (r *Redis) Close() error {
	return r.c.Close()
}
