package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// PriceCache keeps price/tax pairs in Redis with a TTL. A miss or a
// Redis failure falls through to the store; the cache is never
// authoritative.
type PriceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPriceCache builds PriceCache.
func NewPriceCache(client *redis.Client, ttl time.Duration) *PriceCache {
	return &PriceCache{client: client, ttl: ttl}
}

func priceKey(code string) string {
	return "catalog:price:" + code
}

// Get returns the cached pricing for a product, or ok=false on a miss.
func (c *PriceCache) Get(ctx context.Context, code string) (Pricing, bool) {
	if c == nil || c.client == nil {
		return Pricing{}, false
	}
	raw, err := c.client.Get(ctx, priceKey(code)).Bytes()
	if err != nil {
		return Pricing{}, false
	}
	var p Pricing
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pricing{}, false
	}
	return p, true
}

// Set stores the pricing for a product.
func (c *PriceCache) Set(ctx context.Context, code string, p Pricing) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, priceKey(code), raw, c.ttl).Err()
}

// Invalidate drops the cached pricing for a product.
func (c *PriceCache) Invalidate(ctx context.Context, code string) error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Del(ctx, priceKey(code)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
