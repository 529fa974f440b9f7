// Package postgres implements the opportunity repository using PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wrale/wrale-search/internal/wsearchd/database"
	werrors "github.com/wrale/wrale-search/internal/wsearchd/errors"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
)

// Repository implements the opportunity.Repository interface using PostgreSQL
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL opportunity repository
func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

var _ opportunity.Repository = (*Repository)(nil)

// Upsert implements opportunity.Repository.Upsert. A row dismissed by a user
// stays dismissed; a row retired by the detector becomes active again when
// it is flagged anew.
func (r *Repository) Upsert(ctx context.Context, opps []opportunity.Opportunity, at time.Time) error {
	const op = "OpportunityRepository.Upsert"

	if len(opps) == 0 {
		return nil
	}

	err := database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO opportunities (
				id, keyword, type, page_url, content_id, score,
				current_position, current_ctr, impressions, clicks,
				position_change, suggested_action, status,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'active', $13, $13)
			ON CONFLICT (keyword, type) DO UPDATE
			SET page_url = EXCLUDED.page_url,
				content_id = EXCLUDED.content_id,
				score = EXCLUDED.score,
				current_position = EXCLUDED.current_position,
				current_ctr = EXCLUDED.current_ctr,
				impressions = EXCLUDED.impressions,
				clicks = EXCLUDED.clicks,
				position_change = EXCLUDED.position_change,
				suggested_action = EXCLUDED.suggested_action,
				status = CASE WHEN opportunities.dismissed_by = 'user'
					THEN opportunities.status ELSE 'active' END,
				dismissed_by = CASE WHEN opportunities.dismissed_by = 'user'
					THEN opportunities.dismissed_by ELSE NULL END,
				updated_at = EXCLUDED.updated_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, o := range opps {
			id := o.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			_, err := stmt.ExecContext(ctx,
				id,
				o.Keyword,
				string(o.Type),
				o.PageURL,
				o.ContentID,
				o.Score,
				o.CurrentPosition,
				o.CurrentCTR,
				o.Impressions,
				o.Clicks,
				o.PositionChange,
				o.SuggestedAction,
				at,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to upsert opportunities",
			"error", err,
			"count", len(opps),
			"operation", op,
		)
		return database.MapError(err, op)
	}

	return nil
}

// RetireStale implements opportunity.Repository.RetireStale
func (r *Repository) RetireStale(ctx context.Context, typ opportunity.Type, before time.Time) (int64, error) {
	const op = "OpportunityRepository.RetireStale"

	res, err := r.db.ExecContext(ctx, `
		UPDATE opportunities
		SET status = 'dismissed', dismissed_by = 'detector'
		WHERE type = $1 AND status = 'active' AND updated_at < $2
	`, string(typ), before)
	if err != nil {
		return 0, database.MapError(err, op)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, database.MapError(err, op)
	}
	return n, nil
}

// List implements opportunity.Repository.List
func (r *Repository) List(ctx context.Context, filter opportunity.Filter) ([]opportunity.Opportunity, error) {
	const op = "OpportunityRepository.List"

	status := filter.Status
	if status == "" {
		status = opportunity.StatusActive
	}

	conditions := []string{"status = $1"}
	args := []interface{}{string(status)}
	argPos := 2

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, string(filter.Type))
		argPos++
	}

	query := `
		SELECT id, keyword, type, page_url, content_id, score,
			current_position, current_ctr, impressions, clicks,
			position_change, suggested_action, status,
			created_at, updated_at
		FROM opportunities
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY score DESC, keyword`

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var result []opportunity.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, database.MapError(err, op)
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}

	return result, nil
}

// CountByType implements opportunity.Repository.CountByType. Every type is
// present in the result, with zero when nothing matches.
func (r *Repository) CountByType(ctx context.Context, status opportunity.Status) (map[opportunity.Type]int64, error) {
	const op = "OpportunityRepository.CountByType"

	counts := make(map[opportunity.Type]int64, len(opportunity.Types))
	for _, t := range opportunity.Types {
		counts[t] = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT type, COUNT(*)
		FROM opportunities
		WHERE status = $1
		GROUP BY type
	`, string(status))
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	for rows.Next() {
		var typ string
		var n int64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, database.MapError(err, op)
		}
		counts[opportunity.Type(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}

	return counts, nil
}

// Dismiss implements opportunity.Repository.Dismiss
func (r *Repository) Dismiss(ctx context.Context, id uuid.UUID) error {
	const op = "OpportunityRepository.Dismiss"

	res, err := r.db.ExecContext(ctx, `
		UPDATE opportunities
		SET status = 'dismissed', dismissed_by = 'user', updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return database.MapError(err, op)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return database.MapError(err, op)
	}
	if n == 0 {
		return werrors.NewError("NOT_FOUND", "opportunity not found", op, werrors.ErrNotFound)
	}

	r.logger.Info("opportunity dismissed", "id", id)
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOpportunity(row scanner) (*opportunity.Opportunity, error) {
	var (
		o               opportunity.Opportunity
		typ, status     string
		pageURL         sql.NullString
		contentID       sql.NullInt64
		currentPosition sql.NullFloat64
		currentCTR      sql.NullFloat64
		positionChange  sql.NullFloat64
	)

	err := row.Scan(
		&o.ID,
		&o.Keyword,
		&typ,
		&pageURL,
		&contentID,
		&o.Score,
		&currentPosition,
		&currentCTR,
		&o.Impressions,
		&o.Clicks,
		&positionChange,
		&o.SuggestedAction,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Type = opportunity.Type(typ)
	o.Status = opportunity.Status(status)
	if pageURL.Valid {
		o.PageURL = &pageURL.String
	}
	if contentID.Valid {
		o.ContentID = &contentID.Int64
	}
	if currentPosition.Valid {
		o.CurrentPosition = &currentPosition.Float64
	}
	if currentCTR.Valid {
		o.CurrentCTR = &currentCTR.Float64
	}
	if positionChange.Valid {
		o.PositionChange = &positionChange.Float64
	}

	return &o, nil
}
