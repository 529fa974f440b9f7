// Package mocks provides testify mocks for the server's collaborator interfaces
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
)

// MetricRepository implements a mock metrics.Repository
type MetricRepository struct {
	mock.Mock
}

var _ metrics.Repository = (*MetricRepository)(nil)

func (m *MetricRepository) UpsertQueryMetrics(ctx context.Context, rows []metrics.QueryMetric) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MetricRepository) UpsertPageMetrics(ctx context.Context, rows []metrics.PageMetric) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

func (m *MetricRepository) AggregateQueriesByKeyword(ctx context.Context, from, to time.Time) ([]metrics.KeywordAggregate, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metrics.KeywordAggregate), args.Error(1)
}

func (m *MetricRepository) AggregatePagesByURL(ctx context.Context, from, to time.Time) ([]metrics.PageAggregate, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metrics.PageAggregate), args.Error(1)
}

func (m *MetricRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MetricRepository) QueryMetricsForKeyword(ctx context.Context, keyword string, from, to time.Time) ([]metrics.QueryMetric, error) {
	args := m.Called(ctx, keyword, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metrics.QueryMetric), args.Error(1)
}

func (m *MetricRepository) PageMetricsForContent(ctx context.Context, contentID int64, from, to time.Time) ([]metrics.PageMetric, error) {
	args := m.Called(ctx, contentID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metrics.PageMetric), args.Error(1)
}

func (m *MetricRepository) Totals(ctx context.Context, from, to time.Time) (*metrics.Totals, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*metrics.Totals), args.Error(1)
}

func (m *MetricRepository) TopQueries(ctx context.Context, from, to time.Time, limit int) ([]metrics.KeywordAggregate, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metrics.KeywordAggregate), args.Error(1)
}

func (m *MetricRepository) TopPages(ctx context.Context, from, to time.Time, limit int) ([]metrics.PageAggregate, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]metrics.PageAggregate), args.Error(1)
}
