// Package postgres implements sync state persistence using PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wrale/wrale-search/internal/wsearchd/database"
	wsync "github.com/wrale/wrale-search/internal/wsearchd/sync"
)

// StateRepository implements the sync.StateRepository interface using PostgreSQL
type StateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStateRepository creates a new PostgreSQL sync state repository
func NewStateRepository(db *sql.DB, logger *slog.Logger) *StateRepository {
	return &StateRepository{db: db, logger: logger}
}

var _ wsync.StateRepository = (*StateRepository)(nil)

// RecordAttempt implements sync.StateRepository.RecordAttempt
func (r *StateRepository) RecordAttempt(ctx context.Context, site string, runID uuid.UUID, at time.Time) error {
	const op = "StateRepository.RecordAttempt"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (site, last_attempt_at, last_run_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (site) DO UPDATE
		SET last_attempt_at = EXCLUDED.last_attempt_at,
			last_run_id = EXCLUDED.last_run_id
	`, site, at, runID)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

// RecordSuccess implements sync.StateRepository.RecordSuccess
func (r *StateRepository) RecordSuccess(ctx context.Context, site string, runID uuid.UUID, at time.Time, queryRows, pageRows int) error {
	const op = "StateRepository.RecordSuccess"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (site, last_attempt_at, last_success_at, last_error, last_run_id, query_rows, page_rows)
		VALUES ($1, $2, $2, NULL, $3, $4, $5)
		ON CONFLICT (site) DO UPDATE
		SET last_success_at = EXCLUDED.last_success_at,
			last_error = NULL,
			last_run_id = EXCLUDED.last_run_id,
			query_rows = EXCLUDED.query_rows,
			page_rows = EXCLUDED.page_rows
	`, site, at, runID, queryRows, pageRows)
	if err != nil {
		r.logger.Error("failed to record sync success",
			"site", site,
			"error", err,
			"operation", op,
		)
		return database.MapError(err, op)
	}
	return nil
}

// RecordFailure implements sync.StateRepository.RecordFailure
func (r *StateRepository) RecordFailure(ctx context.Context, site string, runID uuid.UUID, message string) error {
	const op = "StateRepository.RecordFailure"

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (site, last_attempt_at, last_error, last_run_id)
		VALUES ($1, NOW(), $2, $3)
		ON CONFLICT (site) DO UPDATE
		SET last_error = EXCLUDED.last_error,
			last_run_id = EXCLUDED.last_run_id
	`, site, message, runID)
	if err != nil {
		return database.MapError(err, op)
	}
	return nil
}

// Get implements sync.StateRepository.Get
func (r *StateRepository) Get(ctx context.Context, site string) (*wsync.State, error) {
	const op = "StateRepository.Get"

	var (
		s           wsync.State
		lastAttempt sql.NullTime
		lastSuccess sql.NullTime
		lastError   sql.NullString
		lastRunID   uuid.NullUUID
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT site, last_attempt_at, last_success_at, last_error, last_run_id, query_rows, page_rows
		FROM sync_state
		WHERE site = $1
	`, site).Scan(&s.Site, &lastAttempt, &lastSuccess, &lastError, &lastRunID, &s.QueryRows, &s.PageRows)
	if err != nil {
		return nil, database.MapError(err, op)
	}

	if lastAttempt.Valid {
		s.LastAttemptAt = &lastAttempt.Time
	}
	if lastSuccess.Valid {
		s.LastSuccessAt = &lastSuccess.Time
	}
	if lastError.Valid {
		s.LastError = lastError.String
	}
	if lastRunID.Valid {
		s.LastRunID = &lastRunID.UUID
	}
	return &s, nil
}
