package marketdata

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CachedProvider decorates a Provider with a Redis price cache so bulk
// refreshes and repeated first-buy lookups do not hammer the upstream
// quote API. Cache failures fall through to the inner provider.
type CachedProvider struct {
	inner Provider
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedProvider wraps inner with a Redis cache using the given TTL.
func NewCachedProvider(inner Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
	}
}

// FetchAssetInfo delegates to the inner provider and caches the price
// for subsequent FetchLatestPrice calls.
func (c *CachedProvider) FetchAssetInfo(ctx context.Context, symbol, assetClass string) (*AssetInfo, error) {
	info, err := c.inner.FetchAssetInfo(ctx, symbol, assetClass)
	if err != nil {
		return nil, err
	}
	c.storePrice(ctx, symbol, info.LastPrice)
	return info, nil
}

// FetchLatestPrice serves from cache when possible.
func (c *CachedProvider) FetchLatestPrice(ctx context.Context, symbol, assetClass string) (*decimal.Decimal, error) {
	if cached, err := c.rdb.Get(ctx, priceKey(symbol)).Result(); err == nil {
		if price, perr := decimal.NewFromString(cached); perr == nil {
			return &price, nil
		}
	} else if err != redis.Nil {
		log.Printf("Price cache read failed for %s: %v", symbol, err)
	}

	price, err := c.inner.FetchLatestPrice(ctx, symbol, assetClass)
	if err != nil || price == nil {
		return price, err
	}
	c.storePrice(ctx, symbol, *price)
	return price, nil
}

func (c *CachedProvider) storePrice(ctx context.Context, symbol string, price decimal.Decimal) {
	if err := c.rdb.Set(ctx, priceKey(symbol), price.String(), c.ttl).Err(); err != nil {
		log.Printf("Price cache write failed for %s: %v", symbol, err)
	}
}

func priceKey(symbol string) string {
	return fmt.Sprintf("price:%s", symbol)
}
