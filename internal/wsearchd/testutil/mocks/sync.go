package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
	"github.com/wrale/wrale-search/internal/wsearchd/retention"
	wsync "github.com/wrale/wrale-search/internal/wsearchd/sync"
)

// StateRepository implements a mock sync.StateRepository
type StateRepository struct {
	mock.Mock
}

var _ wsync.StateRepository = (*StateRepository)(nil)

func (m *StateRepository) RecordAttempt(ctx context.Context, site string, runID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, site, runID, at)
	return args.Error(0)
}

func (m *StateRepository) RecordSuccess(ctx context.Context, site string, runID uuid.UUID, at time.Time, queryRows, pageRows int) error {
	args := m.Called(ctx, site, runID, at, queryRows, pageRows)
	return args.Error(0)
}

func (m *StateRepository) RecordFailure(ctx context.Context, site string, runID uuid.UUID, message string) error {
	args := m.Called(ctx, site, runID, message)
	return args.Error(0)
}

func (m *StateRepository) Get(ctx context.Context, site string) (*wsync.State, error) {
	args := m.Called(ctx, site)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wsync.State), args.Error(1)
}

// Detector implements a mock sync.Detector
type Detector struct {
	mock.Mock
}

var _ wsync.Detector = (*Detector)(nil)

func (m *Detector) DetectAll(ctx context.Context) (*opportunity.Summary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*opportunity.Summary), args.Error(1)
}

// Sweeper implements a mock sync.Sweeper
type Sweeper struct {
	mock.Mock
}

var _ wsync.Sweeper = (*Sweeper)(nil)

func (m *Sweeper) Sweep(ctx context.Context, horizonDays int) (*retention.Result, error) {
	args := m.Called(ctx, horizonDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*retention.Result), args.Error(1)
}

// Runner implements a mock sync.Runner
type Runner struct {
	mock.Mock
}

var _ wsync.Runner = (*Runner)(nil)

func (m *Runner) RunNow(ctx context.Context) (*wsync.Result, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wsync.Result), args.Error(1)
}

// Invalidator implements a mock sync.Invalidator
type Invalidator struct {
	mock.Mock
}

var _ wsync.Invalidator = (*Invalidator)(nil)

func (m *Invalidator) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *Runner) Site() string {
	args := m.Called()
	return args.String(0)
}
