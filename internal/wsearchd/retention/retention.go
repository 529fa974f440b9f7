// Package retention removes metric rows that have aged out of the analysis horizon
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/wrale/wrale-search/internal/wsearchd/errors"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
)

// DefaultHorizonDays is how long metric rows are kept
const DefaultHorizonDays = 180

// Result reports what a sweep deleted
type Result struct {
	Cutoff  time.Time
	Queries int64
	Pages   int64
}

// Sweeper deletes expired rows from both metric series. Opportunities are
// never touched.
type Sweeper struct {
	metrics metrics.Repository
	logger  *slog.Logger
	now     func() time.Time
}

// NewSweeper creates a sweeper over the metric store
func NewSweeper(repo metrics.Repository, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		metrics: repo,
		logger:  logger,
		now:     time.Now,
	}
}

// Cutoff returns the latest day deleted for the given horizon. A row exactly
// horizonDays old is expired; one day younger is kept.
func Cutoff(now time.Time, horizonDays int) time.Time {
	return metrics.Day(now).AddDate(0, 0, -horizonDays)
}

// Sweep deletes rows dated at or before today minus horizonDays
func (s *Sweeper) Sweep(ctx context.Context, horizonDays int) (*Result, error) {
	const op = "Sweeper.Sweep"

	if horizonDays <= 0 {
		return nil, errors.NewError("INVALID_INPUT", "retention horizon must be positive", op, errors.ErrInvalidInput)
	}

	cutoff := Cutoff(s.now(), horizonDays)
	queries, pages, err := s.metrics.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to sweep expired metrics",
			"cutoff", cutoff.Format(time.DateOnly),
			"error", err,
			"operation", op,
		)
		return nil, err
	}

	s.logger.Info("retention sweep complete",
		"cutoff", cutoff.Format(time.DateOnly),
		"queries", queries,
		"pages", pages,
	)
	return &Result{Cutoff: cutoff, Queries: queries, Pages: pages}, nil
}
