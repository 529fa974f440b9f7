package sync_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wrale/wrale-search/internal/wsearchd/content"
	werrors "github.com/wrale/wrale-search/internal/wsearchd/errors"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
	"github.com/wrale/wrale-search/internal/wsearchd/retention"
	wsync "github.com/wrale/wrale-search/internal/wsearchd/sync"
	"github.com/wrale/wrale-search/internal/wsearchd/sync/runlock"
	"github.com/wrale/wrale-search/internal/wsearchd/telemetry"
	"github.com/wrale/wrale-search/internal/wsearchd/testutil/mocks"
	"github.com/wrale/wrale-search/internal/wsearchd/upstream"
)

const testSite = "https://example.com/"

var testNow = time.Date(2026, 10, 15, 3, 0, 0, 0, time.UTC)

type fixture struct {
	source   *mocks.Source
	metrics  *mocks.MetricRepository
	detector *mocks.Detector
	sweeper  *mocks.Sweeper
	state    *mocks.StateRepository
	inv      *mocks.Invalidator
	locker   *runlock.Local
	tel      *telemetry.Metrics
	coord    *wsync.Coordinator
}

func newFixture(t *testing.T, resolver content.Resolver, configure ...func(*wsync.Config)) *fixture {
	t.Helper()
	f := &fixture{
		source:   new(mocks.Source),
		metrics:  new(mocks.MetricRepository),
		detector: new(mocks.Detector),
		sweeper:  new(mocks.Sweeper),
		state:    new(mocks.StateRepository),
		inv:      new(mocks.Invalidator),
		locker:   runlock.NewLocal(),
		tel:      telemetry.New(),
	}
	cfg := wsync.DefaultConfig(testSite)
	for _, fn := range configure {
		fn(&cfg)
	}
	f.coord = wsync.NewCoordinator(
		f.source, f.metrics, resolver, f.detector, f.sweeper, f.state, f.locker,
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		wsync.WithTelemetry(f.tel),
		wsync.WithInvalidator(f.inv),
	)
	f.coord.SetClock(func() time.Time { return testNow })
	return f
}

func hasDimension(dim string) interface{} {
	return mock.MatchedBy(func(req upstream.Request) bool {
		return len(req.Dimensions) == 2 && req.Dimensions[0] == dim && req.Dimensions[1] == upstream.DimensionDate
	})
}

var queryRows = []upstream.Row{
	{Keys: []string{"go generics", "2026-10-01"}, Clicks: 10, Impressions: 200, CTR: 0.05, Position: 12},
	{Keys: []string{"go generics", "2026-10-02"}, Clicks: 12, Impressions: 210, CTR: 0.057, Position: 11.5},
	{Keys: []string{"broken", "not-a-date"}, Clicks: 1, Impressions: 1, CTR: 1, Position: 1},
	{Keys: []string{"bad ctr", "2026-10-02"}, Clicks: 50, Impressions: 10, CTR: 5, Position: 0.2},
}

var pageRows = []upstream.Row{
	{Keys: []string{"https://example.com/a", "2026-10-01"}, Clicks: 5, Impressions: 50, CTR: 0.1, Position: 3},
	{Keys: []string{"https://example.com/a", "2026-10-02"}, Clicks: 6, Impressions: 60, CTR: 0.1, Position: 3},
	{Keys: []string{"https://example.com/unknown", "2026-10-02"}, Clicks: 1, Impressions: 60, CTR: 0.016, Position: 30},
}

func TestCoordinator_RunSync(t *testing.T) {
	f := newFixture(t, content.Static{"https://example.com/a": 77})
	ctx := context.Background()
	from, to := time.Date(2026, 9, 17, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	var storedQueries []metrics.QueryMetric
	var storedPages []metrics.PageMetric

	f.state.On("RecordAttempt", mock.Anything, testSite, mock.Anything, testNow).Return(nil)
	f.source.On("Query", mock.Anything, hasDimension(upstream.DimensionQuery)).Return(queryRows, nil)
	f.source.On("Query", mock.Anything, hasDimension(upstream.DimensionPage)).Return(pageRows, nil)
	f.metrics.On("UpsertQueryMetrics", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedQueries = args.Get(1).([]metrics.QueryMetric)
	}).Return(nil)
	f.metrics.On("UpsertPageMetrics", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedPages = args.Get(1).([]metrics.PageMetric)
	}).Return(nil)
	f.detector.On("DetectAll", mock.Anything).Return(&opportunity.Summary{
		Detected: map[opportunity.Type]int{opportunity.TypeQuickWin: 1},
		Retired:  map[opportunity.Type]int64{},
	}, nil)
	f.sweeper.On("Sweep", mock.Anything, retention.DefaultHorizonDays).Return(&retention.Result{Queries: 4, Pages: 2}, nil)
	f.state.On("RecordSuccess", mock.Anything, testSite, mock.Anything, testNow, 3, 3).Return(nil)
	f.inv.On("Invalidate", mock.Anything).Return(nil)

	res, err := f.coord.RunSync(ctx, testSite, from, to)
	require.NoError(t, err)

	assert.Equal(t, 3, res.QueryRows)
	assert.Equal(t, 3, res.PageRows)
	assert.Equal(t, 2, res.Resolved)
	assert.Equal(t, int64(6), res.DeletedRows)
	assert.Equal(t, 1, res.Detected[opportunity.TypeQuickWin])

	require.Len(t, storedQueries, 3)
	for _, q := range storedQueries {
		assert.LessOrEqual(t, q.CTR, 1.0)
		assert.GreaterOrEqual(t, q.Position, 1.0)
		assert.GreaterOrEqual(t, q.Impressions, q.Clicks)
	}

	require.Len(t, storedPages, 3)
	require.NotNil(t, storedPages[0].ContentID)
	assert.Equal(t, int64(77), *storedPages[0].ContentID)
	assert.Nil(t, storedPages[2].ContentID)

	f.source.AssertExpectations(t)
	f.metrics.AssertExpectations(t)
	f.detector.AssertExpectations(t)
	f.sweeper.AssertExpectations(t)
	f.state.AssertExpectations(t)
	f.inv.AssertExpectations(t)
}

// stallingResolver never answers before ctx is done
type stallingResolver struct {
	calls int
}

func (r *stallingResolver) ContentID(ctx context.Context, _ string) (*int64, error) {
	r.calls++
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCoordinator_ResolutionBudget(t *testing.T) {
	resolver := &stallingResolver{}
	f := newFixture(t, resolver, func(cfg *wsync.Config) {
		cfg.ResolveBudget = 20 * time.Millisecond
	})

	var storedPages []metrics.PageMetric
	f.state.On("RecordAttempt", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)
	f.source.On("Query", mock.Anything, hasDimension(upstream.DimensionQuery)).Return([]upstream.Row{}, nil)
	f.source.On("Query", mock.Anything, hasDimension(upstream.DimensionPage)).Return(pageRows, nil)
	f.metrics.On("UpsertQueryMetrics", mock.Anything, mock.Anything).Return(nil)
	f.metrics.On("UpsertPageMetrics", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		storedPages = args.Get(1).([]metrics.PageMetric)
	}).Return(nil)
	f.detector.On("DetectAll", mock.Anything).Return(&opportunity.Summary{}, nil)
	f.sweeper.On("Sweep", mock.Anything, mock.Anything).Return(&retention.Result{}, nil)
	f.state.On("RecordSuccess", mock.Anything, testSite, mock.Anything, mock.Anything, 0, 3).Return(nil)
	f.inv.On("Invalidate", mock.Anything).Return(nil)

	start := time.Now()
	res, err := f.coord.RunNow(context.Background())
	require.NoError(t, err, "an exhausted budget leaves pages unresolved without failing the run")
	assert.Less(t, time.Since(start), 5*time.Second)

	assert.Equal(t, 0, res.Resolved)
	assert.Equal(t, 1, resolver.calls, "no lookups start once the budget is spent")
	require.Len(t, storedPages, 3)
	for _, p := range storedPages {
		assert.Nil(t, p.ContentID)
	}
	f.detector.AssertExpectations(t)
}

func TestConfig_ResolveBudgetDefaults(t *testing.T) {
	cfg := wsync.DefaultConfig(testSite)
	assert.Equal(t, 10*time.Minute, cfg.EffectiveResolveBudget())

	cfg.LockTTL = 9 * time.Minute
	assert.Equal(t, 3*time.Minute, cfg.EffectiveResolveBudget())

	cfg.ResolveBudget = time.Minute
	assert.Equal(t, time.Minute, cfg.EffectiveResolveBudget())
}

func TestCoordinator_UpstreamFailureStopsBeforeDetection(t *testing.T) {
	f := newFixture(t, nil)
	upErr := &upstream.Error{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}

	f.state.On("RecordAttempt", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)
	f.source.On("Query", mock.Anything, hasDimension(upstream.DimensionQuery)).Return(queryRows, nil)
	f.metrics.On("UpsertQueryMetrics", mock.Anything, mock.Anything).Return(nil)
	f.source.On("Query", mock.Anything, hasDimension(upstream.DimensionPage)).Return(nil, upErr)
	f.state.On("RecordFailure", mock.Anything, testSite, mock.Anything, mock.AnythingOfType("string")).Return(nil)

	_, err := f.coord.RunNow(context.Background())
	require.Error(t, err)
	assert.True(t, werrors.IsUpstream(err))

	f.metrics.AssertNotCalled(t, "UpsertPageMetrics", mock.Anything, mock.Anything)
	f.detector.AssertNotCalled(t, "DetectAll", mock.Anything)
	f.sweeper.AssertNotCalled(t, "Sweep", mock.Anything, mock.Anything)
	f.state.AssertNotCalled(t, "RecordSuccess", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.inv.AssertNotCalled(t, "Invalidate", mock.Anything)
	f.state.AssertExpectations(t)
}

func TestCoordinator_StorageFailureStopsRun(t *testing.T) {
	f := newFixture(t, nil)

	f.state.On("RecordAttempt", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)
	f.source.On("Query", mock.Anything, hasDimension(upstream.DimensionQuery)).Return(queryRows, nil)
	f.metrics.On("UpsertQueryMetrics", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	f.state.On("RecordFailure", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)

	_, err := f.coord.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing query rows")

	f.source.AssertNumberOfCalls(t, "Query", 1)
	f.detector.AssertNotCalled(t, "DetectAll", mock.Anything)
}

func TestCoordinator_DetectionFailureSkipsSweep(t *testing.T) {
	f := newFixture(t, nil)

	f.state.On("RecordAttempt", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)
	f.source.On("Query", mock.Anything, mock.Anything).Return([]upstream.Row{}, nil)
	f.metrics.On("UpsertQueryMetrics", mock.Anything, mock.Anything).Return(nil)
	f.metrics.On("UpsertPageMetrics", mock.Anything, mock.Anything).Return(nil)
	f.detector.On("DetectAll", mock.Anything).Return(nil, errors.New("aggregate failed"))
	f.state.On("RecordFailure", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)

	_, err := f.coord.RunNow(context.Background())
	require.Error(t, err)
	f.sweeper.AssertNotCalled(t, "Sweep", mock.Anything, mock.Anything)
}

func TestCoordinator_RunNowRange(t *testing.T) {
	f := newFixture(t, nil)
	wantFrom := time.Date(2026, 9, 17, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	f.state.On("RecordAttempt", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)
	f.source.On("Query", mock.Anything, mock.MatchedBy(func(req upstream.Request) bool {
		return req.Site == testSite && req.From.Equal(wantFrom) && req.To.Equal(wantTo) && req.RowLimit == 5000
	})).Return([]upstream.Row{}, nil)
	f.metrics.On("UpsertQueryMetrics", mock.Anything, mock.Anything).Return(nil)
	f.metrics.On("UpsertPageMetrics", mock.Anything, mock.Anything).Return(nil)
	f.detector.On("DetectAll", mock.Anything).Return(&opportunity.Summary{}, nil)
	f.sweeper.On("Sweep", mock.Anything, mock.Anything).Return(&retention.Result{}, nil)
	f.state.On("RecordSuccess", mock.Anything, testSite, mock.Anything, mock.Anything, 0, 0).Return(nil)
	f.inv.On("Invalidate", mock.Anything).Return(errors.New("cache down"))

	res, err := f.coord.RunNow(context.Background())
	require.NoError(t, err, "cache invalidation failures do not fail the run")
	assert.Equal(t, wantFrom, res.From)
	assert.Equal(t, wantTo, res.To)
	f.source.AssertNumberOfCalls(t, "Query", 2)
}

func TestCoordinator_LockHeld(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	release, err := f.locker.Acquire(ctx, "sync:"+testSite, time.Minute)
	require.NoError(t, err)
	defer release(ctx)

	_, err = f.coord.RunNow(ctx)
	require.Error(t, err)
	assert.True(t, werrors.IsSyncInProgress(err))
	f.state.AssertNotCalled(t, "RecordAttempt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.source.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestCoordinator_LockReleasedAfterFailure(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.state.On("RecordAttempt", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)
	f.source.On("Query", mock.Anything, mock.Anything).Return(nil, &upstream.Error{Message: "timeout"})
	f.state.On("RecordFailure", mock.Anything, testSite, mock.Anything, mock.Anything).Return(nil)

	_, err := f.coord.RunNow(ctx)
	require.Error(t, err)

	release, err := f.locker.Acquire(ctx, "sync:"+testSite, time.Minute)
	require.NoError(t, err)
	require.NoError(t, release(ctx))
}

func TestCoordinator_InvalidRange(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.coord.RunSync(context.Background(), testSite, testNow, testNow.AddDate(0, 0, -1))
	require.Error(t, err)
	assert.True(t, werrors.IsInvalidInput(err))

	_, err = f.coord.RunSync(context.Background(), "", testNow, testNow)
	assert.True(t, werrors.IsInvalidInput(err))
}
