// Package upstream defines the contract for the search analytics source that
// feeds the metric store.
package upstream

import (
	"context"
	"fmt"
	"time"

	"github.com/wrale/wrale-search/internal/wsearchd/errors"
)

// Dimension names accepted by the analytics source
const (
	DimensionQuery = "query"
	DimensionPage  = "page"
	DimensionDate  = "date"
)

// DateLayout is the calendar day format used on the wire
const DateLayout = "2006-01-02"

// Request selects one report from the analytics source
type Request struct {
	Site       string
	From       time.Time
	To         time.Time
	Dimensions []string
	// RowLimit caps the total rows returned across all pages
	RowLimit int
}

// Row is one report row; Keys follow the order of Request.Dimensions
type Row struct {
	Keys        []string `json:"keys"`
	Clicks      float64  `json:"clicks"`
	Impressions float64  `json:"impressions"`
	CTR         float64  `json:"ctr"`
	Position    float64  `json:"position"`
}

// Source fetches search analytics rows
type Source interface {
	Query(ctx context.Context, req Request) ([]Row, error)
}

// Error describes a failed call to the analytics source
type Error struct {
	// StatusCode is the HTTP status, zero when the request never completed
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream: HTTP %d: %s", e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("upstream: %s: %v", e.Message, e.Err)
	}
	return "upstream: " + e.Message
}

// Unwrap lets errors.Is match both the cause and errors.ErrUpstream
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{errors.ErrUpstream, e.Err}
	}
	return []error{errors.ErrUpstream}
}
