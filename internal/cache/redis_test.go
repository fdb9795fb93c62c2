package cache

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, ttl time.Duration) (*RedisCache, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return NewRedisCache(client, "test:search:", ttl), m
}

func TestRedisCache_SetGet(t *testing.T) {
	c, _ := newCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "invoice")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "invoice", []byte(`{"used_fulltext":false}`)))
	got, ok, err := c.Get(ctx, "invoice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"used_fulltext":false}`, string(got))
}

func TestRedisCache_Invalidate(t *testing.T) {
	c, _ := newCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "q", []byte("old")))
	require.NoError(t, c.Invalidate(ctx))
	_, ok, err := c.Get(ctx, "q")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Set(ctx, "q", []byte("new")))
	got, ok, err := c.Get(ctx, "q")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "new", string(got))
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	c, m := newCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "q", []byte("v")))
	m.FastForward(2 * time.Second)
	_, ok, err := c.Get(ctx, "q")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisCache_ServerDown(t *testing.T) {
	c, m := newCache(t, time.Minute)
	m.Close()
	_, _, err := c.Get(context.Background(), "q")
	require.Error(t, err)
}
