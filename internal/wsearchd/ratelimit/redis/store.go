// Package redis stores rate limit windows in Redis so every replica shares them
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wrale/wrale-search/internal/wsearchd/ratelimit"
)

// KeyPrefix namespaces rate limit counters
const KeyPrefix = "wsearch:rate:"

// incrScript bumps the counter and opens the window on first use, returning
// the count and the remaining window in milliseconds.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// Store implements ratelimit.Store on Redis
type Store struct {
	client redis.Cmdable
	now    func() time.Time
}

var _ ratelimit.Store = (*Store)(nil)

// NewStore creates a Redis-backed store
func NewStore(client redis.Cmdable) *Store {
	return &Store{client: client, now: time.Now}
}

// Increment implements ratelimit.Store
func (s *Store) Increment(ctx context.Context, key string, period time.Duration) (int, time.Time, error) {
	res, err := incrScript.Run(ctx, s.client, []string{KeyPrefix + key}, period.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("increment %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("increment %s: unexpected reply %v", key, res)
	}
	return int(res[0]), s.now().Add(time.Duration(res[1]) * time.Millisecond), nil
}
