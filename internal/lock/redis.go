package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"worktime-backend/internal/apperr"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a lease lock shared by every instance pointing at the same Redis.
// A lease expires after TTL so a crashed holder cannot wedge a user forever.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

func NewRedis(client *redis.Client, ttl, wait time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: "worktime:lock:",
		ttl:    ttl,
		wait:   wait,
		retry:  25 * time.Millisecond,
	}
}

// Acquire polls for the lease until wait elapses, then gives up with a
// Conflict so the caller can retry.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := r.prefix + key
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "lock unavailable", err)
		}
		if ok {
			return func() {
				_ = releaseScript.Run(context.Background(), r.client, []string{redisKey}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, apperr.Conflictf("timer is busy, try again")
		}

		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.Conflict, "timer is busy, try again", ctx.Err())
		case <-time.After(r.retry):
		}
	}
}
