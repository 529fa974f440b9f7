package insights

import (
	"context"
	"time"
)

// Cache stores serialized read results. Invalidate makes every entry written
// before the call unreachable.
//
// Get also returns the generation it read from. Set writes under that
// generation, so a value loaded before an Invalidate lands in a generation
// that is never read again.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// noCache is used when no cache is configured
type noCache struct{}

func (noCache) Get(context.Context, string) ([]byte, int64, bool, error) { return nil, 0, false, nil }
func (noCache) Set(context.Context, int64, string, []byte, time.Duration) error { return nil }
func (noCache) Invalidate(context.Context) error { return nil }
