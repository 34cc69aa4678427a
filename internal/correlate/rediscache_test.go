package correlate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache := NewRedisCache(testRedis(t), time.Minute, nil)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "T1190")
	assert.False(t, ok)

	incidents := []string{"http://example.org/veris#incident-1"}
	cache.Set(ctx, "T1190", incidents)

	got, ok := cache.Get(ctx, "T1190")
	require.True(t, ok)
	assert.Equal(t, incidents, got)
}

func TestRedisCacheEmptyResultIsCached(t *testing.T) {
	cache := NewRedisCache(testRedis(t), 0, nil)
	ctx := context.Background()

	cache.Set(ctx, "T9999", []string{})
	got, ok := cache.Get(ctx, "T9999")
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	client := testRedis(t)
	cache := NewRedisCache(client, 0, nil)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, redisKeyPrefix+"bad", "{not json", 0).Err())
	_, ok := cache.Get(ctx, "bad")
	assert.False(t, ok)
}

func TestRedisCacheBackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	cache := NewRedisCache(client, 0, nil)
	ctx := context.Background()

	// A dead backend degrades to cache misses, never to errors.
	cache.Set(ctx, "T1190", []string{"x"})
	_, ok := cache.Get(ctx, "T1190")
	assert.False(t, ok)
}

func TestEngineWithRedisCache(t *testing.T) {
	cache := NewRedisCache(testRedis(t), time.Minute, nil)
	e := newEngine(t, engineStore(t), WithCache(cache))
	ctx := context.Background()

	first, err := e.IncidentsForTechniques(ctx, []string{"T1190"})
	require.NoError(t, err)
	assert.Equal(t, PathSelect, first.Path)

	second, err := e.IncidentsForTechniques(ctx, []string{"T1190"})
	require.NoError(t, err)
	assert.Equal(t, PathCache, second.Path)
	assert.Equal(t, incidentStrings(first.Incidents), incidentStrings(second.Incidents))
}
