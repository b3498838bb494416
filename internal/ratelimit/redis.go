package ratelimit

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis shares counters between instances. The first hit of a window sets
// the expiry.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "worktime:rate:"}
}

func (r *Redis) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	redisKey := r.prefix + key

	hits, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if hits == 1 {
		if err := r.client.PExpire(ctx, redisKey, window).Err(); err != nil {
			return false, err
		}
	} else if ttl, err := r.client.PTTL(ctx, redisKey).Result(); err == nil && ttl < 0 {
		// a previous caller died between INCR and PEXPIRE
		r.client.PExpire(ctx, redisKey, window)
	}
	return hits <= int64(max), nil
}
