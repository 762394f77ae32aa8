package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airfreight/trackingd/pkg/config"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(config.CacheConfig{Addr: mr.Addr(), TTL: ttl})
	return c, mr
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "123-45678901", []byte(`{"status":"in_transit"}`))

	payload, ok := c.Get(ctx, "123-45678901")
	require.True(t, ok)
	assert.JSONEq(t, `{"status":"in_transit"}`, string(payload))
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)

	payload, ok := c.Get(context.Background(), "000-00000000")
	assert.False(t, ok)
	assert.Nil(t, payload)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, mr := newTestCache(t, 50*time.Millisecond)
	ctx := context.Background()

	c.Set(ctx, "123-45678901", []byte("snapshot"))

	_, ok := c.Get(ctx, "123-45678901")
	require.True(t, ok)

	mr.FastForward(60 * time.Millisecond)

	_, ok = c.Get(ctx, "123-45678901")
	assert.False(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "123-45678901", []byte("snapshot"))
	c.Invalidate(ctx, "123-45678901")

	_, ok := c.Get(ctx, "123-45678901")
	assert.False(t, ok)
}

func TestCache_NilCacheIsNoOp(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	assert.NotPanics(t, func() {
		c.Set(ctx, "123-45678901", []byte("snapshot"))
		c.Invalidate(ctx, "123-45678901")
	})

	payload, ok := c.Get(ctx, "123-45678901")
	assert.False(t, ok)
	assert.Nil(t, payload)
}
