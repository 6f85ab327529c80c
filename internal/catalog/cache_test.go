package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*PriceCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewPriceCache(client, time.Minute), mr
}

func TestPriceCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "X")
	require.False(t, ok)

	cache.Set(ctx, "X", Pricing{Price: 12, TaxPercent: 12})
	got, ok := cache.Get(ctx, "X")
	require.True(t, ok)
	require.Equal(t, 12.0, got.Price)
	require.Equal(t, 12.0, got.TaxPercent)

	require.NoError(t, cache.Invalidate(ctx, "X"))
	_, ok = cache.Get(ctx, "X")
	require.False(t, ok)
}

func TestPriceCacheExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "X", Pricing{Price: 10})
	mr.FastForward(2 * time.Minute)
	_, ok := cache.Get(ctx, "X")
	require.False(t, ok)
}

func TestNilCacheIsInert(t *testing.T) {
	var cache *PriceCache
	ctx := context.Background()

	_, ok := cache.Get(ctx, "X")
	require.False(t, ok)
	cache.Set(ctx, "X", Pricing{Price: 1})
	require.NoError(t, cache.Invalidate(ctx, "X"))
}
