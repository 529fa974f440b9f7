package opportunity_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	werrors "github.com/wrale/wrale-search/internal/wsearchd/errors"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
	"github.com/wrale/wrale-search/internal/wsearchd/testutil/mocks"
)

var testNow = time.Date(2026, 10, 15, 13, 45, 30, 123456789, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestDetector(t *testing.T, cfg opportunity.Config) (*opportunity.Detector, *mocks.MetricRepository, *mocks.OpportunityRepository) {
	t.Helper()
	metricRepo := new(mocks.MetricRepository)
	oppRepo := new(mocks.OpportunityRepository)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d := opportunity.NewDetector(metricRepo, oppRepo, cfg, logger)
	d.SetClock(func() time.Time { return testNow })
	return d, metricRepo, oppRepo
}

func opportunitiesOfType(typ opportunity.Type) interface{} {
	return mock.MatchedBy(func(opps []opportunity.Opportunity) bool {
		for _, o := range opps {
			if o.Type != typ {
				return false
			}
		}
		return true
	})
}

func TestDetector_DetectAll(t *testing.T) {
	d, metricRepo, oppRepo := newTestDetector(t, opportunity.DefaultConfig())
	ctx := context.Background()

	windowFrom, windowTo := day(2026, 9, 17), day(2026, 10, 15)
	recentFrom, olderTo := day(2026, 10, 8), day(2026, 10, 7)
	passStart := testNow.Truncate(time.Microsecond)

	metricRepo.On("AggregateQueriesByKeyword", mock.Anything, windowFrom, windowTo).Return([]metrics.KeywordAggregate{
		{Keyword: "x", AvgPosition: 15, SumImpressions: 500},
		{Keyword: "y", AvgPosition: 3, AvgCTR: 0.05, SumImpressions: 1000},
		{Keyword: "w", AvgPosition: 35, SumImpressions: 300},
	}, nil)
	metricRepo.On("AggregateQueriesByKeyword", mock.Anything, recentFrom, windowTo).Return([]metrics.KeywordAggregate{
		{Keyword: "z", AvgPosition: 8, SumImpressions: 40},
	}, nil)
	metricRepo.On("AggregateQueriesByKeyword", mock.Anything, windowFrom, olderTo).Return([]metrics.KeywordAggregate{
		{Keyword: "z", AvgPosition: 4, SumImpressions: 200},
	}, nil)

	for _, typ := range opportunity.Types {
		oppRepo.On("Upsert", mock.Anything, opportunitiesOfType(typ), passStart).Return(nil).Once()
		oppRepo.On("RetireStale", mock.Anything, typ, passStart).Return(int64(0), nil).Once()
	}

	summary, err := d.DetectAll(ctx)
	require.NoError(t, err)
	for _, typ := range opportunity.Types {
		assert.Equal(t, 1, summary.Detected[typ], "type %s", typ)
	}

	metricRepo.AssertExpectations(t)
	oppRepo.AssertExpectations(t)
}

func TestDetector_AssignsIDs(t *testing.T) {
	d, metricRepo, oppRepo := newTestDetector(t, opportunity.DefaultConfig())

	metricRepo.On("AggregateQueriesByKeyword", mock.Anything, mock.Anything, mock.Anything).Return([]metrics.KeywordAggregate{
		{Keyword: "x", AvgPosition: 15, SumImpressions: 500},
		{Keyword: "x2", AvgPosition: 12, SumImpressions: 400},
	}, nil)

	var written []opportunity.Opportunity
	oppRepo.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		written = args.Get(1).([]opportunity.Opportunity)
	}).Return(nil)
	oppRepo.On("RetireStale", mock.Anything, opportunity.TypeQuickWin, mock.Anything).Return(int64(3), nil)

	n, err := d.Detect(context.Background(), opportunity.TypeQuickWin)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, written, 2)
	assert.NotEqual(t, written[0].ID, written[1].ID)
	for _, o := range written {
		assert.NotEmpty(t, o.ID.String())
		assert.Equal(t, opportunity.StatusActive, o.Status)
	}
}

func TestDetector_RetireStaleDisabled(t *testing.T) {
	cfg := opportunity.DefaultConfig()
	cfg.RetireStale = false
	d, metricRepo, oppRepo := newTestDetector(t, cfg)

	metricRepo.On("AggregateQueriesByKeyword", mock.Anything, mock.Anything, mock.Anything).Return([]metrics.KeywordAggregate{}, nil)
	oppRepo.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := d.Detect(context.Background(), opportunity.TypeContentGap)
	require.NoError(t, err)
	oppRepo.AssertNotCalled(t, "RetireStale", mock.Anything, mock.Anything, mock.Anything)
}

func TestDetector_UnknownType(t *testing.T) {
	d, _, _ := newTestDetector(t, opportunity.DefaultConfig())

	_, err := d.Detect(context.Background(), opportunity.Type("bogus"))
	require.Error(t, err)
	assert.True(t, werrors.IsInvalidInput(err))
}

func TestDetector_MetricFailureAborts(t *testing.T) {
	d, metricRepo, oppRepo := newTestDetector(t, opportunity.DefaultConfig())
	boom := errors.New("connection refused")

	metricRepo.On("AggregateQueriesByKeyword", mock.Anything, mock.Anything, mock.Anything).Return(nil, boom)

	_, err := d.DetectAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	oppRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
}

func TestDetector_UpsertFailureSkipsRetire(t *testing.T) {
	d, metricRepo, oppRepo := newTestDetector(t, opportunity.DefaultConfig())

	metricRepo.On("AggregateQueriesByKeyword", mock.Anything, mock.Anything, mock.Anything).Return([]metrics.KeywordAggregate{
		{Keyword: "w", AvgPosition: 35, SumImpressions: 300},
	}, nil)
	oppRepo.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := d.Detect(context.Background(), opportunity.TypeContentGap)
	require.Error(t, err)
	oppRepo.AssertNotCalled(t, "RetireStale", mock.Anything, mock.Anything, mock.Anything)
}
