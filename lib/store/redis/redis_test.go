//go:build integration
// +build integration

package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/store"
)

func uri() string {
	if u := os.Getenv("SOLDASH_REDIS"); u != "" {
		return u
	}

	return "redis://localhost:6379/0"
}

func TestRedis(t *testing.T) {
	clk := clock.NewMock(time.Now())

	r, err := New(uri(), time.Hour, clk)
	require.NoError(t, err)

	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Purge(ctx))

	_, err = r.Get(ctx, "defi", time.Minute)
	assert.ErrorIs(t, err, store.ErrDataNotFound)

	_, err = r.Put(ctx, "defi", []byte(`[{"name":"Jito"}]`))
	require.NoError(t, err)

	e, err := r.Get(ctx, "defi", time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Jito"}]`, string(e.Payload))

	clk.Add(2 * time.Minute)
	_, err = r.Get(ctx, "defi", time.Minute)
	assert.ErrorIs(t, err, store.ErrDataNotFound)

	require.NoError(t, r.Purge(ctx))
	_, err = r.Get(ctx, "defi", time.Hour)
	assert.ErrorIs(t, err, store.ErrDataNotFound)
}

func TestRedisPurgeOwnKeys(t *testing.T) {
	clk := clock.NewMock(time.Now())
	ctx := context.Background()

	a, err := New(uri(), time.Hour, clk)
	require.NoError(t, err)

	defer a.Close()

	b, err := New(uri(), time.Hour, clk)
	require.NoError(t, err)

	defer b.Close()

	_, err = a.Put(ctx, "defi", []byte(`[]`))
	require.NoError(t, err)
	_, err = b.Put(ctx, "nft", []byte(`[]`))
	require.NoError(t, err)

	require.NoError(t, a.Purge(ctx))

	_, err = a.Get(ctx, "defi", time.Hour)
	assert.ErrorIs(t, err, store.ErrDataNotFound)

	// b's entry survives and stays visible to a
	_, err = a.Get(ctx, "nft", time.Hour)
	assert.NoError(t, err)

	require.NoError(t, b.Purge(ctx))
	_, err = b.Get(ctx, "nft", time.Hour)
	assert.ErrorIs(t, err, store.ErrDataNotFound)
}
