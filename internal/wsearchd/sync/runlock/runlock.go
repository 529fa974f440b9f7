// Package runlock serializes sync runs across goroutines and processes
package runlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wrale/wrale-search/internal/wsearchd/errors"
)

// Release gives up a held lock. Releasing after the lock expired, or after
// another holder took it over, is a no-op.
type Release func(ctx context.Context) error

// Locker hands out exclusive, expiring locks by key
type Locker interface {
	// Acquire returns errors.ErrSyncInProgress when the key is already held
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

func errHeld(op, key string) error {
	return errors.NewError("SYNC_IN_PROGRESS", "lock "+key+" is held", op, errors.ErrSyncInProgress)
}

type localLease struct {
	token   string
	expires time.Time
}

// Local is an in-process Locker for single-instance deployments
type Local struct {
	mu     sync.Mutex
	leases map[string]localLease
	now    func() time.Time
}

// NewLocal creates an in-process locker
func NewLocal() *Local {
	return &Local{
		leases: make(map[string]localLease),
		now:    time.Now,
	}
}

var _ Locker = (*Local)(nil)

// Acquire implements Locker
func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (Release, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if lease, ok := l.leases[key]; ok && now.Before(lease.expires) {
		return nil, errHeld("Local.Acquire", key)
	}

	token := uuid.NewString()
	l.leases[key] = localLease{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if lease, ok := l.leases[key]; ok && lease.token == token {
			delete(l.leases, key)
		}
		return nil
	}, nil
}
