// Package ratelimit throttles API callers with fixed-window counters
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Limit types used by the server
const (
	TypeAPIRequest  = "api_request"
	TypeSyncTrigger = "sync_trigger"
)

// Limit allows Rate operations per Period
type Limit struct {
	Rate   int
	Period time.Duration
}

// Status describes a counter after an increment
type Status struct {
	Limit     Limit
	Count     int
	Remaining int
	Reset     time.Time
}

// Exceeded reports whether the counter went past the limit
func (s *Status) Exceeded() bool {
	return s.Count > s.Limit.Rate
}

// Store persists window counters
type Store interface {
	// Increment bumps the counter for key, starting a new window of length
	// period when none is open, and returns the count and window end.
	Increment(ctx context.Context, key string, period time.Duration) (int, time.Time, error)
}

// Limiter checks callers against registered limits
type Limiter struct {
	store   Store
	logger  *slog.Logger
	limits  map[string]Limit
	limitsM sync.RWMutex
}

// NewLimiter creates a limiter backed by store
func NewLimiter(store Store, logger *slog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		logger: logger,
		limits: make(map[string]Limit),
	}
}

// Register adds or replaces the limit for a type
func (l *Limiter) Register(limitType string, limit Limit) error {
	if limit.Rate <= 0 || limit.Period <= 0 {
		return fmt.Errorf("invalid rate limit for %s: %d per %s", limitType, limit.Rate, limit.Period)
	}
	l.limitsM.Lock()
	defer l.limitsM.Unlock()
	l.limits[limitType] = limit
	return nil
}

// Limit returns the registered limit for a type
func (l *Limiter) Limit(limitType string) (Limit, bool) {
	l.limitsM.RLock()
	defer l.limitsM.RUnlock()
	limit, ok := l.limits[limitType]
	return limit, ok
}

// Allow counts one operation by caller. A nil status means the type has no
// registered limit.
func (l *Limiter) Allow(ctx context.Context, limitType, caller string) (*Status, error) {
	limit, ok := l.Limit(limitType)
	if !ok {
		return nil, nil
	}

	count, reset, err := l.store.Increment(ctx, limitType+":"+caller, limit.Period)
	if err != nil {
		return nil, fmt.Errorf("rate limit store: %w", err)
	}

	remaining := limit.Rate - count
	if remaining < 0 {
		remaining = 0
	}

	l.logger.Debug("rate limit check",
		"type", limitType,
		"caller", caller,
		"count", count,
		"limit", limit.Rate,
	)
	return &Status{Limit: limit, Count: count, Remaining: remaining, Reset: reset}, nil
}

// Memory keeps counters in process
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count int
	reset time.Time
}

// NewMemory creates an in-process store
func NewMemory() *Memory {
	return &Memory{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Increment implements Store
func (m *Memory) Increment(_ context.Context, key string, period time.Duration) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(period)}
		m.windows[key] = w
	}
	w.count++
	return w.count, w.reset, nil
}
