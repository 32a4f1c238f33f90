package lookup

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client, "partsdesk:lookup:", ttl, nil, nil), mr
}

func TestRedisCacheHitAndExpiry(t *testing.T) {
	cache, mr := newTestRedisCache(t, 300*time.Second)
	fetcher := &countingFetcher{data: map[string]string{"3": "Sedan"}}
	ctx := context.Background()
	key := Key("subcategories", []string{"3"})

	got, err := cache.GetOrFetch(ctx, key, fetcher.Fetch)
	require.NoError(t, err)
	assert.Equal(t, "Sedan", got["3"])
	assert.True(t, mr.Exists("partsdesk:lookup:"+key))

	mr.FastForward(299 * time.Second)
	_, err = cache.GetOrFetch(ctx, key, fetcher.Fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fetcher.calls.Load())

	mr.FastForward(2 * time.Second)
	_, err = cache.GetOrFetch(ctx, key, fetcher.Fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, fetcher.calls.Load())
}

func TestRedisCacheInvalidateByPrefix(t *testing.T) {
	cache, mr := newTestRedisCache(t, time.Minute)
	fetcher := &countingFetcher{data: map[string]string{"1": "x"}}
	ctx := context.Background()

	_, err := cache.GetOrFetch(ctx, Key("categories", []string{"1"}), fetcher.Fetch)
	require.NoError(t, err)
	_, err = cache.GetOrFetch(ctx, Key("subcategories", []string{"1"}), fetcher.Fetch)
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, "categories"))
	assert.False(t, mr.Exists("partsdesk:lookup:categories_1"))
	assert.True(t, mr.Exists("partsdesk:lookup:subcategories_1"))
}

func TestRedisCacheDegradesWhenRedisIsDown(t *testing.T) {
	cache, mr := newTestRedisCache(t, time.Minute)
	mr.Close()
	fetcher := &countingFetcher{data: map[string]string{"9": "Hatch"}}

	got, err := cache.GetOrFetch(context.Background(), "subcategories_9", fetcher.Fetch)
	require.NoError(t, err)
	assert.Equal(t, "Hatch", got["9"])
	assert.EqualValues(t, 1, fetcher.calls.Load())
}
