// Package content maps public page URLs to identifiers in the host content
// repository.
package content

import (
	"context"
	"log/slog"
	"sync"
)

// Resolver looks up the content item published at a URL. A nil ID with a
// nil error means the URL is not known to the content repository.
type Resolver interface {
	ContentID(ctx context.Context, url string) (*int64, error)
}

// Static resolves from a fixed URL table
type Static map[string]int64

// ContentID implements Resolver
func (s Static) ContentID(_ context.Context, url string) (*int64, error) {
	if id, ok := s[url]; ok {
		return &id, nil
	}
	return nil, nil
}

// Memo caches lookups for the lifetime of one sync run. Resolution is best
// effort: lookup errors are logged and remembered as misses.
type Memo struct {
	resolver Resolver
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]*int64
	// Lookups counts calls made to the underlying resolver
	Lookups int
	// Skipped counts URLs left unresolved because ctx was already done
	Skipped int
}

// NewMemo wraps resolver with a per-run cache
func NewMemo(resolver Resolver, logger *slog.Logger) *Memo {
	return &Memo{
		resolver: resolver,
		logger:   logger,
		cache:    make(map[string]*int64),
	}
}

// Lookup returns the content ID for url, or nil on a miss. Once ctx is done
// no further lookups are made and every uncached URL is a miss.
func (m *Memo) Lookup(ctx context.Context, url string) *int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.cache[url]; ok {
		return id
	}
	if m.resolver == nil {
		m.cache[url] = nil
		return nil
	}

	if ctx.Err() != nil {
		m.Skipped++
		m.cache[url] = nil
		return nil
	}

	m.Lookups++
	id, err := m.resolver.ContentID(ctx, url)
	if err != nil {
		m.logger.Warn("content lookup failed",
			"url", url,
			"error", err,
		)
		id = nil
	}
	m.cache[url] = id
	return id
}
