package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/wrale/wrale-search/internal/wsearchd/errors"
)

// Runner performs one sync over the default range
type Runner interface {
	RunNow(ctx context.Context) (*Result, error)
}

// Scheduler triggers a sync on a fixed interval. Failures are logged and the
// next tick proceeds normally.
type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger
}

// NewScheduler creates a scheduler for runner
func NewScheduler(runner Runner, interval time.Duration, runOnStart bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("sync scheduler started",
		"interval", s.interval.String(),
		"runOnStart", s.runOnStart,
	)

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sync scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.runner.RunNow(ctx)
	switch {
	case err == nil:
	case errors.IsSyncInProgress(err):
		s.logger.Info("scheduled sync skipped, run already in progress")
	case ctx.Err() != nil:
		s.logger.Info("scheduled sync interrupted by shutdown")
	default:
		s.logger.Error("scheduled sync failed", "error", err)
	}
}
