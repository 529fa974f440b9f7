package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrale/wrale-search/internal/wsearchd/errors"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
	wsync "github.com/wrale/wrale-search/internal/wsearchd/sync"
)

// SyncRunner triggers a sync for the configured site
type SyncRunner interface {
	RunNow(ctx context.Context) (*wsync.Result, error)
	Site() string
}

// Service implements the read facade. It never writes metric data; its only
// mutations are dismissing an opportunity and triggering a sync.
type Service struct {
	metrics       metrics.Repository
	opportunities opportunity.Repository
	state         wsync.StateRepository
	runner        SyncRunner
	cache         Cache
	cacheTTL      time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// Option configures optional service behavior
type Option func(*Service)

// WithCache enables read-through caching
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
			s.cacheTTL = ttl
		}
	}
}

// NewService creates a new insights service
func NewService(
	metricsRepo metrics.Repository,
	oppRepo opportunity.Repository,
	state wsync.StateRepository,
	runner SyncRunner,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		metrics:       metricsRepo,
		opportunities: oppRepo,
		state:         state,
		runner:        runner,
		cache:         noCache{},
		logger:        logger,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DashboardTotals returns headline totals for the last days and the time of
// the last successful sync.
func (s *Service) DashboardTotals(ctx context.Context, days int) (*Dashboard, error) {
	const op = "InsightsService.DashboardTotals"

	days, err := normalizeDays(days, op)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s, fmt.Sprintf("dashboard:%d", days), func() (*Dashboard, error) {
		w := metrics.LastDays(s.now(), days)
		totals, err := s.metrics.Totals(ctx, w.From, w.To)
		if err != nil {
			return nil, err
		}

		d := &Dashboard{
			From:        w.From,
			To:          w.To,
			Clicks:      totals.Clicks,
			Impressions: totals.Impressions,
			AvgCTR:      totals.AvgCTR,
			AvgPosition: totals.AvgPosition,
		}

		state, err := s.state.Get(ctx, s.runner.Site())
		switch {
		case err == nil:
			d.LastSyncAt = state.LastSuccessAt
		case errors.IsNotFound(err):
		default:
			return nil, err
		}
		return d, nil
	})
}

// TopQueries returns the keywords with the most clicks over the last days
func (s *Service) TopQueries(ctx context.Context, days, limit int) ([]metrics.KeywordAggregate, error) {
	const op = "InsightsService.TopQueries"

	days, err := normalizeDays(days, op)
	if err != nil {
		return nil, err
	}
	limit, err = normalizeLimit(limit, DefaultLimit, MaxLimit, op)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s, fmt.Sprintf("queries:%d:%d", days, limit), func() ([]metrics.KeywordAggregate, error) {
		w := metrics.LastDays(s.now(), days)
		return s.metrics.TopQueries(ctx, w.From, w.To, limit)
	})
}

// TopPages returns the pages with the most clicks over the last days
func (s *Service) TopPages(ctx context.Context, days, limit int) ([]metrics.PageAggregate, error) {
	const op = "InsightsService.TopPages"

	days, err := normalizeDays(days, op)
	if err != nil {
		return nil, err
	}
	limit, err = normalizeLimit(limit, DefaultLimit, MaxLimit, op)
	if err != nil {
		return nil, err
	}

	return cached(ctx, s, fmt.Sprintf("pages:%d:%d", days, limit), func() ([]metrics.PageAggregate, error) {
		w := metrics.LastDays(s.now(), days)
		return s.metrics.TopPages(ctx, w.From, w.To, limit)
	})
}

// OpportunityCounts returns active opportunity counts by type
func (s *Service) OpportunityCounts(ctx context.Context) (map[opportunity.Type]int64, error) {
	return cached(ctx, s, "opportunities:counts", func() (map[opportunity.Type]int64, error) {
		return s.opportunities.CountByType(ctx, opportunity.StatusActive)
	})
}

// Opportunities lists active opportunities by descending score. An empty
// type lists every type.
func (s *Service) Opportunities(ctx context.Context, typ string, limit, offset int) (*OpportunityPage, error) {
	const op = "InsightsService.Opportunities"

	filter := opportunity.Filter{Status: opportunity.StatusActive}
	if typ != "" {
		t, err := opportunity.ParseType(typ)
		if err != nil {
			return nil, errors.NewError("INVALID_INPUT", err.Error(), op, errors.ErrInvalidInput)
		}
		filter.Type = t
	}

	limit, err := normalizeLimit(limit, DefaultOpportunityLimit, MaxOpportunityLimit, op)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, errors.NewError("INVALID_INPUT", "offset must not be negative", op, errors.ErrInvalidInput)
	}
	filter.Limit = limit
	filter.Offset = offset

	key := fmt.Sprintf("opportunities:%s:%d:%d", filter.Type, limit, offset)
	return cached(ctx, s, key, func() (*OpportunityPage, error) {
		items, err := s.opportunities.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []opportunity.Opportunity{}
		}
		return &OpportunityPage{Items: items, Limit: limit, Offset: offset}, nil
	})
}

// ContentTrend classifies a content item's rank movement by comparing the
// last week's average position with the rest of the range.
func (s *Service) ContentTrend(ctx context.Context, contentID int64, days int) (*Trend, error) {
	const op = "InsightsService.ContentTrend"

	if contentID <= 0 {
		return nil, errors.NewError("INVALID_INPUT", "content ID must be positive", op, errors.ErrInvalidInput)
	}
	days, err := normalizeDays(days, op)
	if err != nil {
		return nil, err
	}
	if days <= trendRecentDays {
		return nil, errors.NewError("INVALID_INPUT",
			fmt.Sprintf("days must exceed the %d-day recent window", trendRecentDays), op, errors.ErrInvalidInput)
	}

	return cached(ctx, s, fmt.Sprintf("trend:%d:%d", contentID, days), func() (*Trend, error) {
		w := metrics.LastDays(s.now(), days)
		rows, err := s.metrics.PageMetricsForContent(ctx, contentID, w.From, w.To)
		if err != nil {
			return nil, err
		}
		return classifyTrend(contentID, rows, w), nil
	})
}

// DismissOpportunity hides an opportunity from listings. It stays dismissed
// even when later detection passes flag the keyword again.
func (s *Service) DismissOpportunity(ctx context.Context, id uuid.UUID) error {
	if err := s.opportunities.Dismiss(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// RunSyncNow runs a sync immediately. It fails with errors.ErrSyncInProgress
// when a run is already underway.
func (s *Service) RunSyncNow(ctx context.Context) (*wsync.Result, error) {
	return s.runner.RunNow(ctx)
}

// SyncStatus returns the bookkeeping of the configured site
func (s *Service) SyncStatus(ctx context.Context) (*wsync.State, error) {
	state, err := s.state.Get(ctx, s.runner.Site())
	if errors.IsNotFound(err) {
		return &wsync.State{Site: s.runner.Site()}, nil
	}
	return state, err
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate insight cache", "error", err)
	}
}

// cached serves key from the cache or computes, stores and returns it. Cache
// failures degrade to uncached reads.
func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	var zero T

	data, gen, ok, getErr := s.cache.Get(ctx, key)
	if getErr != nil {
		s.logger.Warn("insight cache read failed", "key", key, "error", getErr)
	} else if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
		s.logger.Warn("discarding undecodable cache entry", "key", key)
	}

	v, err := load()
	if err != nil {
		return zero, err
	}
	if getErr != nil {
		// generation unknown, storing could outlive an invalidation
		return v, nil
	}

	if data, err := json.Marshal(v); err == nil {
		if err := s.cache.Set(ctx, gen, key, data, s.cacheTTL); err != nil {
			s.logger.Warn("insight cache write failed", "key", key, "error", err)
		}
	}
	return v, nil
}

func normalizeDays(days int, op string) (int, error) {
	switch {
	case days == 0:
		return DefaultDays, nil
	case days < 0 || days > MaxDays:
		return 0, errors.NewError("INVALID_INPUT",
			fmt.Sprintf("days must be between 1 and %d", MaxDays), op, errors.ErrInvalidInput)
	}
	return days, nil
}

func normalizeLimit(limit, def, maxLimit int, op string) (int, error) {
	switch {
	case limit == 0:
		return def, nil
	case limit < 0 || limit > maxLimit:
		return 0, errors.NewError("INVALID_INPUT",
			fmt.Sprintf("limit must be between 1 and %d", maxLimit), op, errors.ErrInvalidInput)
	}
	return limit, nil
}
