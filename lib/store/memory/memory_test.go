package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarancss/soldash/lib/clock"
	"github.com/tarancss/soldash/lib/store"
)

func TestMemory(t *testing.T) {
	clk := clock.NewMock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New(clk)
	ctx := context.Background()

	_, err := c.Get(ctx, "defi", time.Minute)
	assert.ErrorIs(t, err, store.ErrDataNotFound)

	_, err = c.Put(ctx, "", []byte(`{}`))
	assert.ErrorIs(t, err, store.ErrNoSource)

	e, err := c.Put(ctx, "defi", []byte(`[1,2]`))
	require.NoError(t, err)
	assert.Equal(t, clk.Now(), e.FetchedAt)

	clk.Add(4 * time.Minute)
	got, err := c.Get(ctx, "defi", 5*time.Minute)
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(got.Payload))

	// other keys untouched
	_, err = c.Get(ctx, "nft", 5*time.Minute)
	assert.ErrorIs(t, err, store.ErrDataNotFound)

	clk.Add(time.Minute)
	_, err = c.Get(ctx, "defi", 5*time.Minute)
	assert.ErrorIs(t, err, store.ErrDataNotFound)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Purge(ctx))
	assert.Equal(t, 0, c.Len())
	assert.NoError(t, c.Close())
}

func TestMemoryConcurrent(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, src := range []string{"defi", "tokens", "market", "network"} {
		wg.Add(1)

		go func(src string) {
			defer wg.Done()

			for i := 0; i < 100; i++ {
				_, _ = c.Put(ctx, src, []byte(`{}`))
				_, _ = c.Get(ctx, src, time.Minute)
			}
		}(src)
	}
	wg.Wait()

	assert.Equal(t, 4, c.Len())
}
