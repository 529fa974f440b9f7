package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// State is the persisted outcome of the latest sync runs for a site
type State struct {
	Site          string     `json:"site"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`
	LastError     string     `json:"lastError,omitempty"`
	LastRunID     *uuid.UUID `json:"lastRunId,omitempty"`
	QueryRows     int        `json:"queryRows"`
	PageRows      int        `json:"pageRows"`
}

// StateRepository persists sync bookkeeping
type StateRepository interface {
	// RecordAttempt marks the start of a run
	RecordAttempt(ctx context.Context, site string, runID uuid.UUID, at time.Time) error

	// RecordSuccess marks a run complete and clears the last error
	RecordSuccess(ctx context.Context, site string, runID uuid.UUID, at time.Time, queryRows, pageRows int) error

	// RecordFailure stores the error of a failed run; the last success is kept
	RecordFailure(ctx context.Context, site string, runID uuid.UUID, message string) error

	// Get returns the state for site, or errors.ErrNotFound before the first run
	Get(ctx context.Context, site string) (*State, error)
}
