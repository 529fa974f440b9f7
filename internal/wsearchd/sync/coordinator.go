// Package sync pulls search analytics into the metric store and drives
// detection and retention after each successful import.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrale/wrale-search/internal/wsearchd/content"
	"github.com/wrale/wrale-search/internal/wsearchd/errors"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
	"github.com/wrale/wrale-search/internal/wsearchd/retention"
	"github.com/wrale/wrale-search/internal/wsearchd/sync/runlock"
	"github.com/wrale/wrale-search/internal/wsearchd/telemetry"
	"github.com/wrale/wrale-search/internal/wsearchd/upstream"
)

// Detector runs every opportunity classifier
type Detector interface {
	DetectAll(ctx context.Context) (*opportunity.Summary, error)
}

// Sweeper removes expired metric rows
type Sweeper interface {
	Sweep(ctx context.Context, horizonDays int) (*retention.Result, error)
}

// Invalidator is told when freshly synced data makes cached reads stale
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Config holds the coordinator's run settings
type Config struct {
	// Site is the property synced by RunNow
	Site string
	// LookbackDays is the trailing range fetched by RunNow
	LookbackDays int
	// MaxRows caps the rows fetched per report
	MaxRows int
	// HorizonDays is the retention horizon applied after detection
	HorizonDays int
	// LockTTL bounds how long a crashed run can block the next one
	LockTTL time.Duration
	// ResolveBudget caps the time spent resolving page URLs in one run.
	// Pages left when it runs out are stored unresolved. Zero means a third
	// of LockTTL.
	ResolveBudget time.Duration
}

func (c Config) resolveBudget() time.Duration {
	if c.ResolveBudget > 0 {
		return c.ResolveBudget
	}
	if c.LockTTL > 0 {
		return c.LockTTL / 3
	}
	return 10 * time.Minute
}

// DefaultConfig returns the standard run settings for site
func DefaultConfig(site string) Config {
	return Config{
		Site:         site,
		LookbackDays: 28,
		MaxRows:      5000,
		HorizonDays:  retention.DefaultHorizonDays,
		LockTTL:      30 * time.Minute,
	}
}

// Result summarizes a completed run
type Result struct {
	RunID       uuid.UUID
	Site        string
	From        time.Time
	To          time.Time
	QueryRows   int
	PageRows    int
	Resolved    int
	Detected    map[opportunity.Type]int
	Retired     map[opportunity.Type]int64
	DeletedRows int64
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Coordinator runs the import pipeline
type Coordinator struct {
	source   upstream.Source
	metrics  metrics.Repository
	resolver content.Resolver
	detector Detector
	sweeper  Sweeper
	state    StateRepository
	locker   runlock.Locker
	cfg      Config
	logger   *slog.Logger

	telemetry   *telemetry.Metrics
	invalidator Invalidator
	now         func() time.Time
}

// Option configures optional coordinator collaborators
type Option func(*Coordinator)

// WithTelemetry reports runs to Prometheus collectors
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(c *Coordinator) {
		c.telemetry = m
	}
}

// WithInvalidator notifies a read cache after each successful run
func WithInvalidator(inv Invalidator) Option {
	return func(c *Coordinator) {
		c.invalidator = inv
	}
}

// NewCoordinator creates a coordinator. A nil resolver leaves every page
// unresolved; a nil locker falls back to an in-process lock.
func NewCoordinator(
	source upstream.Source,
	metricsRepo metrics.Repository,
	resolver content.Resolver,
	detector Detector,
	sweeper Sweeper,
	state StateRepository,
	locker runlock.Locker,
	cfg Config,
	logger *slog.Logger,
	opts ...Option,
) *Coordinator {
	if locker == nil {
		locker = runlock.NewLocal()
	}
	c := &Coordinator{
		source:   source,
		metrics:  metricsRepo,
		resolver: resolver,
		detector: detector,
		sweeper:  sweeper,
		state:    state,
		locker:   locker,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Site returns the configured site
func (c *Coordinator) Site() string {
	return c.cfg.Site
}

// RunNow syncs the configured site over the trailing lookback range
func (c *Coordinator) RunNow(ctx context.Context) (*Result, error) {
	r := metrics.LastDays(c.now(), c.cfg.LookbackDays)
	return c.RunSync(ctx, c.cfg.Site, r.From, r.To)
}

// RunSync imports [from, to] for site, then detects and sweeps. Any upstream
// or storage failure stops the run before detection; re-running the same
// range is safe because every write is an idempotent upsert.
func (c *Coordinator) RunSync(ctx context.Context, site string, from, to time.Time) (*Result, error) {
	const op = "Coordinator.RunSync"

	if site == "" {
		return nil, errors.NewError("INVALID_INPUT", "site is required", op, errors.ErrInvalidInput)
	}
	from, to = metrics.Day(from), metrics.Day(to)
	if to.Before(from) {
		return nil, errors.NewError("INVALID_INPUT", "end date precedes start date", op, errors.ErrInvalidInput)
	}

	started := c.now()
	release, err := c.locker.Acquire(ctx, "sync:"+site, c.cfg.LockTTL)
	if err != nil {
		if errors.IsSyncInProgress(err) {
			c.telemetry.ObserveRun(telemetry.OutcomeSkipped, started, started)
			c.logger.Info("sync skipped, another run holds the lock", "site", site)
		}
		return nil, err
	}
	defer func() {
		// the run context may already be cancelled
		if err := release(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("failed to release sync lock", "site", site, "error", err)
		}
	}()

	res := &Result{
		RunID:     uuid.New(),
		Site:      site,
		From:      from,
		To:        to,
		StartedAt: started,
	}
	logger := c.logger.With("site", site, "runId", res.RunID)

	if err := c.state.RecordAttempt(ctx, site, res.RunID, started); err != nil {
		logger.Error("failed to record sync attempt", "error", err, "operation", op)
		c.telemetry.ObserveRun(telemetry.OutcomeFailure, started, c.now())
		return nil, err
	}

	logger.Info("sync started",
		"from", from.Format(time.DateOnly),
		"to", to.Format(time.DateOnly),
	)

	if err := c.run(ctx, logger, res); err != nil {
		c.fail(ctx, logger, res, err)
		return nil, err
	}

	res.FinishedAt = c.now()
	if err := c.state.RecordSuccess(ctx, site, res.RunID, res.FinishedAt, res.QueryRows, res.PageRows); err != nil {
		c.fail(ctx, logger, res, err)
		return nil, err
	}
	c.telemetry.ObserveRun(telemetry.OutcomeSuccess, started, res.FinishedAt)

	if c.invalidator != nil {
		if err := c.invalidator.Invalidate(ctx); err != nil {
			logger.Warn("failed to invalidate insight cache", "error", err)
		}
	}

	logger.Info("sync complete",
		"queryRows", res.QueryRows,
		"pageRows", res.PageRows,
		"resolved", res.Resolved,
		"deletedRows", res.DeletedRows,
		"duration", res.FinishedAt.Sub(started).String(),
	)
	return res, nil
}

func (c *Coordinator) run(ctx context.Context, logger *slog.Logger, res *Result) error {
	queries, err := c.fetchQueries(ctx, res)
	if err != nil {
		return fmt.Errorf("fetching query rows: %w", err)
	}
	if err := c.metrics.UpsertQueryMetrics(ctx, queries); err != nil {
		return fmt.Errorf("storing query rows: %w", err)
	}
	res.QueryRows = len(queries)
	c.telemetry.AddUpserted("queries", len(queries))

	pages, err := c.fetchPages(ctx, res)
	if err != nil {
		return fmt.Errorf("fetching page rows: %w", err)
	}
	if err := c.metrics.UpsertPageMetrics(ctx, pages); err != nil {
		return fmt.Errorf("storing page rows: %w", err)
	}
	res.PageRows = len(pages)
	c.telemetry.AddUpserted("pages", len(pages))

	summary, err := c.detector.DetectAll(ctx)
	if err != nil {
		return fmt.Errorf("detecting opportunities: %w", err)
	}
	res.Detected = summary.Detected
	res.Retired = summary.Retired
	for typ, n := range summary.Detected {
		c.telemetry.SetDetected(string(typ), n)
	}

	swept, err := c.sweeper.Sweep(ctx, c.cfg.HorizonDays)
	if err != nil {
		return fmt.Errorf("sweeping expired metrics: %w", err)
	}
	res.DeletedRows = swept.Queries + swept.Pages
	c.telemetry.AddDeleted("queries", swept.Queries)
	c.telemetry.AddDeleted("pages", swept.Pages)

	logger.Debug("sync stages complete", "detected", res.Detected, "retired", res.Retired)
	return nil
}

func (c *Coordinator) fail(ctx context.Context, logger *slog.Logger, res *Result, cause error) {
	logger.Error("sync failed", "error", cause)
	c.telemetry.ObserveRun(telemetry.OutcomeFailure, res.StartedAt, c.now())

	if err := c.state.RecordFailure(context.WithoutCancel(ctx), res.Site, res.RunID, cause.Error()); err != nil {
		logger.Error("failed to record sync failure", "error", err)
	}
}

func (c *Coordinator) fetchQueries(ctx context.Context, res *Result) ([]metrics.QueryMetric, error) {
	rows, err := c.source.Query(ctx, upstream.Request{
		Site:       res.Site,
		From:       res.From,
		To:         res.To,
		Dimensions: []string{upstream.DimensionQuery, upstream.DimensionDate},
		RowLimit:   c.cfg.MaxRows,
	})
	if err != nil {
		return nil, err
	}

	out := make([]metrics.QueryMetric, 0, len(rows))
	for _, row := range rows {
		if len(row.Keys) < 2 || row.Keys[0] == "" {
			continue
		}
		day, err := time.Parse(upstream.DateLayout, row.Keys[1])
		if err != nil {
			c.logger.Warn("skipping row with malformed date", "date", row.Keys[1])
			continue
		}
		m := metrics.QueryMetric{
			Keyword:     row.Keys[0],
			Clicks:      int64(row.Clicks),
			Impressions: int64(row.Impressions),
			CTR:         row.CTR,
			Position:    row.Position,
			Date:        day,
		}
		m.Sanitize()
		out = append(out, m)
	}
	return out, nil
}

func (c *Coordinator) fetchPages(ctx context.Context, res *Result) ([]metrics.PageMetric, error) {
	rows, err := c.source.Query(ctx, upstream.Request{
		Site:       res.Site,
		From:       res.From,
		To:         res.To,
		Dimensions: []string{upstream.DimensionPage, upstream.DimensionDate},
		RowLimit:   c.cfg.MaxRows,
	})
	if err != nil {
		return nil, err
	}

	// lookups must not hold the run lock past its TTL
	resolveCtx, cancel := context.WithTimeout(ctx, c.cfg.resolveBudget())
	defer cancel()

	memo := content.NewMemo(c.resolver, c.logger)
	out := make([]metrics.PageMetric, 0, len(rows))
	for _, row := range rows {
		if len(row.Keys) < 2 || row.Keys[0] == "" {
			continue
		}
		day, err := time.Parse(upstream.DateLayout, row.Keys[1])
		if err != nil {
			c.logger.Warn("skipping row with malformed date", "date", row.Keys[1])
			continue
		}
		m := metrics.PageMetric{
			URL:         row.Keys[0],
			ContentID:   memo.Lookup(resolveCtx, row.Keys[0]),
			Clicks:      int64(row.Clicks),
			Impressions: int64(row.Impressions),
			CTR:         row.CTR,
			Position:    row.Position,
			Date:        day,
		}
		if m.ContentID != nil {
			res.Resolved++
		}
		m.Sanitize()
		out = append(out, m)
	}

	if memo.Skipped > 0 {
		c.logger.Warn("content resolution budget exhausted, pages stored unresolved",
			"budget", c.cfg.resolveBudget().String(),
			"skipped", memo.Skipped,
		)
	}
	c.logger.Debug("resolved page content", "pages", len(out), "lookups", memo.Lookups)
	return out, nil
}
