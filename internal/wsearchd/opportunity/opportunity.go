// Package opportunity classifies keyword performance into scored,
// actionable recommendations and keeps them current across sync runs.
package opportunity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type identifies which classifier flagged an opportunity
type Type string

const (
	// TypeQuickWin marks keywords ranking just off page one
	TypeQuickWin Type = "quick_win"
	// TypeLowCTR marks first-page keywords earning fewer clicks than their rank should
	TypeLowCTR Type = "low_ctr"
	// TypeDeclining marks keywords whose rank dropped over the last week
	TypeDeclining Type = "declining"
	// TypeContentGap marks keywords with demand but no ranking content
	TypeContentGap Type = "content_gap"
)

// Types lists every opportunity type in display order
var Types = []Type{TypeQuickWin, TypeLowCTR, TypeDeclining, TypeContentGap}

// ParseType validates a type name
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown opportunity type %q", s)
}

// Status tracks whether an opportunity is still being surfaced
type Status string

const (
	StatusActive    Status = "active"
	StatusDismissed Status = "dismissed"
)

// Opportunity is a scored recommendation for a single keyword
type Opportunity struct {
	ID              uuid.UUID `json:"id"`
	Keyword         string    `json:"keyword"`
	PageURL         *string   `json:"pageUrl,omitempty"`
	ContentID       *int64    `json:"contentId,omitempty"`
	Type            Type      `json:"type"`
	Score           float64   `json:"score"`
	CurrentPosition *float64  `json:"currentPosition,omitempty"`
	CurrentCTR      *float64  `json:"currentCtr,omitempty"`
	Impressions     int64     `json:"impressions"`
	Clicks          int64     `json:"clicks"`
	PositionChange  *float64  `json:"positionChange,omitempty"`
	SuggestedAction string    `json:"suggestedAction"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Filter defines criteria for listing opportunities
type Filter struct {
	// Type restricts results to one classifier; empty means all
	Type Type
	// Status defaults to active
	Status Status
	Limit  int
	Offset int
}
