package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// SeenMessage records messageID and reports whether it was already present.
// SET NX makes the check-and-record a single round trip, so two concurrent
// deliveries of the same message cannot both see "not seen".
func (c *RedisCache) SeenMessage(ctx context.Context, messageID string) (bool, error) {
	set, err := c.rdb.SetNX(ctx, "inbound:"+messageID, 1, c.ttl).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
