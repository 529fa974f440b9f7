package opportunity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wrale/wrale-search/internal/wsearchd/benchmark"
	"github.com/wrale/wrale-search/internal/wsearchd/errors"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
)

// Config tunes the detection windows and output size
type Config struct {
	// WindowDays is the trailing analysis window
	WindowDays int
	// RecentDays is the recent window compared against the rest of the analysis window
	RecentDays int
	// MaxPerType caps the opportunities written per classifier
	MaxPerType int
	// RetireStale dismisses active opportunities a pass did not re-flag
	RetireStale bool
	// Curve is the benchmark CTR curve used by the low-CTR classifier
	Curve benchmark.Curve
}

// DefaultConfig returns the standard 28-day analysis settings
func DefaultConfig() Config {
	return Config{
		WindowDays:  28,
		RecentDays:  7,
		MaxPerType:  50,
		RetireStale: true,
		Curve:       benchmark.Default,
	}
}

// Summary reports what a detection run wrote
type Summary struct {
	Detected map[Type]int
	Retired  map[Type]int64
}

// Detector runs the four classifiers against the metric store
type Detector struct {
	metrics metrics.Repository
	repo    Repository
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewDetector creates a detector over the given stores
func NewDetector(metricsRepo metrics.Repository, repo Repository, cfg Config, logger *slog.Logger) *Detector {
	if cfg.Curve == nil {
		cfg.Curve = benchmark.Default
	}
	return &Detector{
		metrics: metricsRepo,
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// DetectAll runs every classifier concurrently. Each classifier writes only
// its own type, so a failure in one does not roll back the others.
func (d *Detector) DetectAll(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		Detected: make(map[Type]int, len(Types)),
		Retired:  make(map[Type]int64, len(Types)),
	}
	var mu sync.Mutex

	passes := map[Type]func(context.Context) ([]Opportunity, error){
		TypeQuickWin:   d.quickWins,
		TypeLowCTR:     d.lowCTR,
		TypeDeclining:  d.declining,
		TypeContentGap: d.contentGaps,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, typ := range Types {
		typ, classify := typ, passes[typ]
		g.Go(func() error {
			detected, retired, err := d.run(gctx, typ, classify)
			if err != nil {
				return err
			}
			mu.Lock()
			summary.Detected[typ] = detected
			summary.Retired[typ] = retired
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}

	return summary, nil
}

// Detect runs a single classifier
func (d *Detector) Detect(ctx context.Context, typ Type) (int, error) {
	var classify func(context.Context) ([]Opportunity, error)
	switch typ {
	case TypeQuickWin:
		classify = d.quickWins
	case TypeLowCTR:
		classify = d.lowCTR
	case TypeDeclining:
		classify = d.declining
	case TypeContentGap:
		classify = d.contentGaps
	default:
		return 0, errors.NewError("INVALID_INPUT", "unknown opportunity type", "Detector.Detect", errors.ErrInvalidInput)
	}
	n, _, err := d.run(ctx, typ, classify)
	return n, err
}

func (d *Detector) run(ctx context.Context, typ Type, classify func(context.Context) ([]Opportunity, error)) (int, int64, error) {
	const op = "Detector.run"

	// Postgres keeps microseconds; a finer pass time would make fresh rows look stale
	passStart := d.now().UTC().Truncate(time.Microsecond)

	opps, err := classify(ctx)
	if err != nil {
		d.logger.Error("failed to classify keywords",
			"type", typ,
			"error", err,
			"operation", op,
		)
		return 0, 0, err
	}

	for i := range opps {
		opps[i].ID = uuid.New()
	}
	if err := d.repo.Upsert(ctx, opps, passStart); err != nil {
		d.logger.Error("failed to store opportunities",
			"type", typ,
			"count", len(opps),
			"error", err,
			"operation", op,
		)
		return 0, 0, err
	}

	var retired int64
	if d.cfg.RetireStale {
		retired, err = d.repo.RetireStale(ctx, typ, passStart)
		if err != nil {
			d.logger.Error("failed to retire stale opportunities",
				"type", typ,
				"error", err,
				"operation", op,
			)
			return len(opps), 0, err
		}
	}

	d.logger.Info("detection pass complete",
		"type", typ,
		"detected", len(opps),
		"retired", retired,
	)
	return len(opps), retired, nil
}

func (d *Detector) window() metrics.DateRange {
	return metrics.LastDays(d.now(), d.cfg.WindowDays)
}

func (d *Detector) quickWins(ctx context.Context) ([]Opportunity, error) {
	w := d.window()
	aggs, err := d.metrics.AggregateQueriesByKeyword(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}
	return QuickWins(aggs, d.cfg.MaxPerType), nil
}

func (d *Detector) lowCTR(ctx context.Context) ([]Opportunity, error) {
	w := d.window()
	aggs, err := d.metrics.AggregateQueriesByKeyword(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}
	return LowCTR(aggs, d.cfg.Curve, d.cfg.MaxPerType), nil
}

// declining compares the last RecentDays against the remainder of the window
func (d *Detector) declining(ctx context.Context) ([]Opportunity, error) {
	w := d.window()
	recentFrom := w.To.AddDate(0, 0, -d.cfg.RecentDays)
	olderTo := recentFrom.AddDate(0, 0, -1)

	recent, err := d.metrics.AggregateQueriesByKeyword(ctx, recentFrom, w.To)
	if err != nil {
		return nil, err
	}
	older, err := d.metrics.AggregateQueriesByKeyword(ctx, w.From, olderTo)
	if err != nil {
		return nil, err
	}
	return Declining(recent, older, d.cfg.MaxPerType), nil
}

func (d *Detector) contentGaps(ctx context.Context) ([]Opportunity, error) {
	w := d.window()
	aggs, err := d.metrics.AggregateQueriesByKeyword(ctx, w.From, w.To)
	if err != nil {
		return nil, err
	}
	return ContentGaps(aggs, d.cfg.MaxPerType), nil
}
