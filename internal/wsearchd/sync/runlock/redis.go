package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces lock keys in Redis
const KeyPrefix = "wsearch:lock:"

// releaseScript deletes the key only while it still carries our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implements Locker with SET NX PX so that every server instance
// sharing the database also shares the lock.
type Redis struct {
	client redis.Cmdable
}

// NewRedis creates a Redis-backed locker
func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

var _ Locker = (*Redis)(nil)

// Acquire implements Locker
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	redisKey := KeyPrefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, redisKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, errHeld("Redis.Acquire", key)
	}

	return func(ctx context.Context) error {
		err := releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("releasing lock %s: %w", key, err)
		}
		return nil
	}, nil
}
