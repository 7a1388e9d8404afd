package marketpersist

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeromicro/go-zero/core/stores/redis"

	cachekeys "tradequest-api/internal/cache"
	"tradequest-api/pkg/market"
)

// RedisOverviewCache implements market.OverviewCache on Redis with msgpack values.
type RedisOverviewCache struct {
	rds *redis.Redis
}

// NewRedisOverviewCache wraps rds; nil yields nil.
func NewRedisOverviewCache(rds *redis.Redis) *RedisOverviewCache {
	if rds == nil {
		return nil
	}
	return &RedisOverviewCache{rds: rds}
}

// Get implements market.OverviewCache.
func (c *RedisOverviewCache) Get(ctx context.Context, key string) (*market.Overview, bool, error) {
	raw, err := c.rds.GetCtx(ctx, cachekeys.OverviewKey(key))
	if err != nil {
		return nil, false, err
	}
	if raw == "" {
		return nil, false, nil
	}
	ov, err := decodeOverview([]byte(raw))
	if err != nil {
		return nil, false, err
	}
	return ov, true, nil
}

// Set implements market.OverviewCache. Sub-second TTLs round up to one second.
func (c *RedisOverviewCache) Set(ctx context.Context, key string, ov *market.Overview, ttl time.Duration) error {
	if ov == nil || ttl <= 0 {
		return nil
	}
	data, err := encodeOverview(ov)
	if err != nil {
		return err
	}
	seconds := int((ttl + time.Second - 1) / time.Second)
	return c.rds.SetexCtx(ctx, cachekeys.OverviewKey(key), string(data), seconds)
}

func encodeOverview(ov *market.Overview) ([]byte, error) {
	data, err := msgpack.Marshal(ov)
	if err != nil {
		return nil, fmt.Errorf("marketpersist: encode overview: %w", err)
	}
	return data, nil
}

func decodeOverview(data []byte) (*market.Overview, error) {
	var ov market.Overview
	if err := msgpack.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("marketpersist: decode overview: %w", err)
	}
	return &ov, nil
}
