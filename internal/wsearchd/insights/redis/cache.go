// Package redis implements the insights read cache on Redis
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wrale/wrale-search/internal/wsearchd/insights"
)

// DefaultTTL bounds how long an entry is served when no sync invalidates it
const DefaultTTL = 10 * time.Minute

// Cache stores entries under a generation number. Invalidate bumps the
// generation so older entries are never read again and expire on their own.
type Cache struct {
	client redis.Cmdable
	prefix string
}

// NewCache creates a cache whose keys start with prefix
func NewCache(client redis.Cmdable, prefix string) *Cache {
	if prefix == "" {
		prefix = "wsearch:insights"
	}
	return &Cache{client: client, prefix: prefix}
}

var _ insights.Cache = (*Cache)(nil)

func (c *Cache) genKey() string {
	return c.prefix + ":gen"
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading cache generation: %w", err)
	}
	return gen, nil
}

func (c *Cache) entryKey(gen int64, key string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, key)
}

// Get implements insights.Cache
func (c *Cache) Get(ctx context.Context, key string) ([]byte, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	val, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if err == redis.Nil {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, gen, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return val, gen, true, nil
}

// Set implements insights.Cache. A value for a superseded generation is
// dropped rather than written where no reader looks.
func (c *Cache) Set(ctx context.Context, gen int64, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	current, err := c.generation(ctx)
	if err != nil {
		return err
	}
	if gen != current {
		return nil
	}

	if err := c.client.Set(ctx, c.entryKey(gen, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Invalidate implements insights.Cache
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		return fmt.Errorf("bumping cache generation: %w", err)
	}
	return nil
}
