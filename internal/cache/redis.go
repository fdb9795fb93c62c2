// Package cache stores serialized search responses in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache keys entries by "<prefix>q:<generation>:<sha256(key)>" with a
// TTL. Invalidate bumps the generation so every older entry becomes
// unreachable and simply expires.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache. Prefix may be empty.
func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "ocrsearch:search:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) genKey() string { return c.prefix + "gen" }

func (c *RedisCache) entryKey(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Result()
	if errors.Is(err, redis.Nil) {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(key))
	return c.prefix + "q:" + gen + ":" + hex.EncodeToString(sum[:]), nil
}

// Get returns the cached value and whether it was present.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	k, err := c.entryKey(ctx, key)
	if err != nil {
		return nil, false, err
	}
	b, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	k, err := c.entryKey(ctx, key)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, k, value, c.ttl).Err()
}

// Invalidate drops every cached entry.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, c.genKey()).Err()
}
