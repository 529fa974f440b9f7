package metrics

import (
	"context"
	"time"
)

// Repository defines the interface for metric series persistence
type Repository interface {
	// UpsertQueryMetrics writes query rows, overwriting rows with the same keyword and date
	UpsertQueryMetrics(ctx context.Context, rows []QueryMetric) error

	// UpsertPageMetrics writes page rows, overwriting rows with the same url and date
	UpsertPageMetrics(ctx context.Context, rows []PageMetric) error

	// AggregateQueriesByKeyword groups the query series by keyword over an inclusive range
	AggregateQueriesByKeyword(ctx context.Context, from, to time.Time) ([]KeywordAggregate, error)

	// AggregatePagesByURL groups the page series by url over an inclusive range
	AggregatePagesByURL(ctx context.Context, from, to time.Time) ([]PageAggregate, error)

	// DeleteOlderThan removes rows of both series dated on or before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (queries int64, pages int64, err error)

	// QueryMetricsForKeyword returns one keyword's daily rows within a range
	QueryMetricsForKeyword(ctx context.Context, keyword string, from, to time.Time) ([]QueryMetric, error)

	// PageMetricsForContent returns daily rows of every page mapped to a content ID within a range
	PageMetricsForContent(ctx context.Context, contentID int64, from, to time.Time) ([]PageMetric, error)

	// Totals summarizes the query series within a range
	Totals(ctx context.Context, from, to time.Time) (*Totals, error)

	// TopQueries returns keyword aggregates ordered by clicks
	TopQueries(ctx context.Context, from, to time.Time, limit int) ([]KeywordAggregate, error)

	// TopPages returns page aggregates ordered by clicks
	TopPages(ctx context.Context, from, to time.Time, limit int) ([]PageAggregate, error)
}
