// Package v1alpha1 contains API types for the Wrale Search insights API.
package v1alpha1

import (
	"time"
)

// Dashboard reports headline search totals over a window
type Dashboard struct {
	// From is the first day of the window (inclusive)
	From time.Time `json:"from"`
	// To is the last day of the window (inclusive)
	To time.Time `json:"to"`
	// Clicks is the sum of clicks over the window
	Clicks int64 `json:"clicks"`
	// Impressions is the sum of impressions over the window
	Impressions int64 `json:"impressions"`
	// AvgCTR is the mean daily click-through rate
	AvgCTR float64 `json:"avgCtr"`
	// AvgPosition is the mean daily rank
	AvgPosition float64 `json:"avgPosition"`
	// LastSyncAt is when the last sync completed, absent before the first one
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`
}

// QueryStat summarizes one keyword over a window
type QueryStat struct {
	Keyword     string  `json:"keyword"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	AvgCTR      float64 `json:"avgCtr"`
	AvgPosition float64 `json:"avgPosition"`
}

// PageStat summarizes one page over a window
type PageStat struct {
	URL         string  `json:"url"`
	ContentID   *int64  `json:"contentId,omitempty"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	AvgCTR      float64 `json:"avgCtr"`
	AvgPosition float64 `json:"avgPosition"`
}

// Opportunity is a scored recommendation for a keyword
type Opportunity struct {
	ID              string    `json:"id"`
	Keyword         string    `json:"keyword"`
	Type            string    `json:"type"`
	Score           float64   `json:"score"`
	PageURL         *string   `json:"pageUrl,omitempty"`
	ContentID       *int64    `json:"contentId,omitempty"`
	CurrentPosition *float64  `json:"currentPosition,omitempty"`
	CurrentCTR      *float64  `json:"currentCtr,omitempty"`
	Impressions     int64     `json:"impressions"`
	Clicks          int64     `json:"clicks"`
	PositionChange  *float64  `json:"positionChange,omitempty"`
	SuggestedAction string    `json:"suggestedAction"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// OpportunityList is one page of opportunities ordered by score
type OpportunityList struct {
	// Items contains the listed opportunities
	Items []Opportunity `json:"items"`
	// Limit is the page size that was applied
	Limit int `json:"limit"`
	// Offset is the number of opportunities skipped
	Offset int `json:"offset"`
}

// OpportunityCounts maps each opportunity type to its active count
type OpportunityCounts map[string]int64

// ContentTrend labels the rank movement of one content item
type ContentTrend struct {
	ContentID int64 `json:"contentId"`
	// Trend is "rising", "declining" or "stable"
	Trend             string   `json:"trend"`
	RecentAvgPosition *float64 `json:"recentAvgPosition,omitempty"`
	PriorAvgPosition  *float64 `json:"priorAvgPosition,omitempty"`
	PositionChange    *float64 `json:"positionChange,omitempty"`
}

// SyncResult reports a completed manual sync
type SyncResult struct {
	RunID       string           `json:"runId"`
	Site        string           `json:"site"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	QueryRows   int              `json:"queryRows"`
	PageRows    int              `json:"pageRows"`
	Resolved    int              `json:"resolved"`
	Detected    map[string]int   `json:"detected"`
	Retired     map[string]int64 `json:"retired,omitempty"`
	DeletedRows int64            `json:"deletedRows"`
	StartedAt   time.Time        `json:"startedAt"`
	FinishedAt  time.Time        `json:"finishedAt"`
}

// SyncStatus reports the latest sync bookkeeping for the site
type SyncStatus struct {
	Site          string     `json:"site"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	LastRunID     string     `json:"lastRunId,omitempty"`
	QueryRows     int        `json:"queryRows"`
	PageRows      int        `json:"pageRows"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	// Code is a machine-readable error code
	Code string `json:"code"`
	// Message is a human-readable description
	Message string `json:"message"`
}
