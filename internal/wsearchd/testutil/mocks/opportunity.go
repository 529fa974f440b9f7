package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
)

// OpportunityRepository implements a mock opportunity.Repository
type OpportunityRepository struct {
	mock.Mock
}

var _ opportunity.Repository = (*OpportunityRepository)(nil)

func (m *OpportunityRepository) Upsert(ctx context.Context, opps []opportunity.Opportunity, at time.Time) error {
	args := m.Called(ctx, opps, at)
	return args.Error(0)
}

func (m *OpportunityRepository) RetireStale(ctx context.Context, typ opportunity.Type, before time.Time) (int64, error) {
	args := m.Called(ctx, typ, before)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OpportunityRepository) List(ctx context.Context, filter opportunity.Filter) ([]opportunity.Opportunity, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]opportunity.Opportunity), args.Error(1)
}

func (m *OpportunityRepository) CountByType(ctx context.Context, status opportunity.Status) (map[opportunity.Type]int64, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[opportunity.Type]int64), args.Error(1)
}

func (m *OpportunityRepository) Dismiss(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
