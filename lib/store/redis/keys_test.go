package redis

import (
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKeySetPerCache(t *testing.T) {
	c := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer c.Close()

	a := NewWithClient(c, time.Hour, nil)
	b := NewWithClient(c, time.Hour, nil)

	assert.True(t, strings.HasPrefix(a.keys, keyPrefix))
	assert.False(t, strings.HasPrefix(a.keys, prefix))
	assert.NotEqual(t, a.keys, b.keys)
}
