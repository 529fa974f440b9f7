// Package insights answers the read queries behind dashboards: totals, top
// queries and pages, opportunity listings and per-content trends.
package insights

import (
	"time"

	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
)

// Request bounds
const (
	DefaultDays  = 28
	MaxDays      = 365
	DefaultLimit = 10
	MaxLimit     = 100

	DefaultOpportunityLimit = 50
	MaxOpportunityLimit     = 200

	// trendRecentDays is the recent window compared against the rest of the range
	trendRecentDays = 7
	// trendThreshold is the position change that counts as a real movement
	trendThreshold = 2.0
)

// Dashboard holds headline totals over a window
type Dashboard struct {
	From        time.Time  `json:"from"`
	To          time.Time  `json:"to"`
	Clicks      int64      `json:"clicks"`
	Impressions int64      `json:"impressions"`
	AvgCTR      float64    `json:"avgCtr"`
	AvgPosition float64    `json:"avgPosition"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
}

// TrendDirection labels a content item's rank movement
type TrendDirection string

const (
	// TrendRising means the average position improved (moved toward 1)
	TrendRising    TrendDirection = "rising"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// Trend is the rank movement of one content item
type Trend struct {
	ContentID         int64          `json:"contentId"`
	Direction         TrendDirection `json:"trend"`
	RecentAvgPosition *float64       `json:"recentAvgPosition,omitempty"`
	PriorAvgPosition  *float64       `json:"priorAvgPosition,omitempty"`
	PositionChange    *float64       `json:"positionChange,omitempty"`
}

// OpportunityPage is one page of an opportunity listing
type OpportunityPage struct {
	Items  []opportunity.Opportunity `json:"items"`
	Limit  int                       `json:"limit"`
	Offset int                       `json:"offset"`
}

// classifyTrend compares the recent part of the range with the rest. Rows
// outside either part are ignored; with either part empty the trend is stable.
func classifyTrend(contentID int64, rows []metrics.PageMetric, window metrics.DateRange) *Trend {
	recentFrom := window.To.AddDate(0, 0, -trendRecentDays)

	var recentSum, priorSum float64
	var recentN, priorN int
	for _, r := range rows {
		day := metrics.Day(r.Date)
		switch {
		case !window.Contains(day):
		case !day.Before(recentFrom):
			recentSum += r.Position
			recentN++
		default:
			priorSum += r.Position
			priorN++
		}
	}

	t := &Trend{ContentID: contentID, Direction: TrendStable}
	if recentN == 0 || priorN == 0 {
		return t
	}

	recent := recentSum / float64(recentN)
	prior := priorSum / float64(priorN)
	change := recent - prior
	t.RecentAvgPosition = &recent
	t.PriorAvgPosition = &prior
	t.PositionChange = &change

	switch {
	case change <= -trendThreshold:
		t.Direction = TrendRising
	case change >= trendThreshold:
		t.Direction = TrendDeclining
	}
	return t
}
