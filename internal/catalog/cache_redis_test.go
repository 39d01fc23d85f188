package catalog

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRedisCacheRoundTrip needs a Redis server at REDIS_ADDR (default
// localhost:6379) and is skipped when none answers.
func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	cache := NewRedisCache(RedisCacheConfig{
		Addr: addr,
		Key:  fmt.Sprintf("enrollplan:test:%d", time.Now().UnixNano()),
		TTL:  time.Minute,
	})
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	defer cache.Invalidate(ctx)

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	courses, sections := testCatalog(t)
	snap, err := NewSnapshot(courses, sections)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, snap))

	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snap.Courses(), got.Courses())
	assert.Equal(t, snap.Sections(), got.Sections())

	ttl, err := cache.client.TTL(ctx, cache.key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.client.Set(ctx, cache.key, "{broken", time.Minute).Err())
	_, ok, err = cache.Get(ctx)
	assert.Error(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Invalidate(ctx))
	_, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheUnreachable(t *testing.T) {
	cache := NewRedisCache(RedisCacheConfig{Addr: "127.0.0.1:1"})
	defer cache.Close()
	assert.Equal(t, defaultSnapshotKey, cache.key)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, ok, err := cache.Get(ctx)
	assert.Error(t, err)
	assert.False(t, ok)

	courses, sections := testCatalog(t)
	store, err := NewMemoryStore(courses, sections)
	require.NoError(t, err)

	p := NewProvider(store, cache, zerolog.Nop())
	require.NoError(t, p.Warm(context.Background()))
	snap, err := p.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Len())
}
