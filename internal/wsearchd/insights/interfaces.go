package insights

import (
	"context"

	"github.com/google/uuid"

	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
	wsync "github.com/wrale/wrale-search/internal/wsearchd/sync"
)

// Facade defines the operations exposed to presentation layers
type Facade interface {
	DashboardTotals(ctx context.Context, days int) (*Dashboard, error)
	TopQueries(ctx context.Context, days, limit int) ([]metrics.KeywordAggregate, error)
	TopPages(ctx context.Context, days, limit int) ([]metrics.PageAggregate, error)
	OpportunityCounts(ctx context.Context) (map[opportunity.Type]int64, error)
	Opportunities(ctx context.Context, typ string, limit, offset int) (*OpportunityPage, error)
	ContentTrend(ctx context.Context, contentID int64, days int) (*Trend, error)
	DismissOpportunity(ctx context.Context, id uuid.UUID) error
	RunSyncNow(ctx context.Context) (*wsync.Result, error)
	SyncStatus(ctx context.Context) (*wsync.State, error)
}

var _ Facade = (*Service)(nil)
