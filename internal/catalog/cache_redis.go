package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultSnapshotKey = "enrollplan:catalog:snapshot"

// RedisCache stores the serialized snapshot under a single key.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisCacheConfig holds connection settings for RedisCache.
type RedisCacheConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
	TTL      time.Duration
}

// NewRedisCache creates a cache backed by Redis.
func NewRedisCache(cfg RedisCacheConfig) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	key := cfg.Key
	if key == "" {
		key = defaultSnapshotKey
	}
	return &RedisCache{client: rdb, key: key, ttl: cfg.TTL}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Get implements SnapshotCache. A missing key is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context) (*Snapshot, bool, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", c.key, err)
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

// Put implements SnapshotCache.
func (c *RedisCache) Put(ctx context.Context, snap *Snapshot) error {
	data, err := snap.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode catalog snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", c.key, err)
	}
	return nil
}

// Invalidate implements SnapshotCache.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

// Close releases the client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
