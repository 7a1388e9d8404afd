package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
)

// OverviewCache stores assembled overviews for a short TTL.
type OverviewCache interface {
	Get(ctx context.Context, key string) (*Overview, bool, error)
	Set(ctx context.Context, key string, ov *Overview, ttl time.Duration) error
}

// OverviewKey identifies an overview by class, symbol, period and data mode.
func OverviewKey(class AssetClass, symbol string, period Period, synthetic bool) string {
	key := fmt.Sprintf("%s:%s:%s", class, strings.ToUpper(strings.TrimSpace(symbol)), period)
	if synthetic {
		key += ":demo"
	}
	return key
}

// MemoryCache is an in-process OverviewCache.
type MemoryCache struct {
	cache *collection.Cache
}

// NewMemoryCache creates an in-process cache whose entries default to ttl.
func NewMemoryCache(ttl time.Duration) (*MemoryCache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("market cache: ttl must be positive")
	}
	c, err := collection.NewCache(ttl, collection.WithName("market-overview"))
	if err != nil {
		return nil, err
	}
	return &MemoryCache{cache: c}, nil
}

// Get implements OverviewCache.
func (m *MemoryCache) Get(_ context.Context, key string) (*Overview, bool, error) {
	v, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	ov, ok := v.(*Overview)
	return ov, ok, nil
}

// Set implements OverviewCache.
func (m *MemoryCache) Set(_ context.Context, key string, ov *Overview, ttl time.Duration) error {
	if ttl > 0 {
		m.cache.SetWithExpire(key, ov, ttl)
		return nil
	}
	m.cache.Set(key, ov)
	return nil
}
