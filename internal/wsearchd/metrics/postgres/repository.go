// Package postgres implements the metric series repository using PostgreSQL
package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/wrale/wrale-search/internal/wsearchd/database"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
)

// batchSize bounds the number of rows sent in one unnest statement
const batchSize = 500

// Repository implements the metrics.Repository interface using PostgreSQL
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL metric repository
func NewRepository(db *sql.DB, logger *slog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

var _ metrics.Repository = (*Repository)(nil)

// UpsertQueryMetrics writes the batch in a single transaction so a failure
// leaves no part of it applied.
func (r *Repository) UpsertQueryMetrics(ctx context.Context, rows []metrics.QueryMetric) error {
	const op = "MetricRepository.UpsertQueryMetrics"

	rows = dedupeQueries(rows)
	if len(rows) == 0 {
		return nil
	}

	err := database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		for start := 0; start < len(rows); start += batchSize {
			end := min(start+batchSize, len(rows))
			chunk := rows[start:end]

			keywords := make([]string, len(chunk))
			dates := make([]string, len(chunk))
			clicks := make([]int64, len(chunk))
			impressions := make([]int64, len(chunk))
			ctrs := make([]float64, len(chunk))
			positions := make([]float64, len(chunk))
			for i, m := range chunk {
				m.Sanitize()
				keywords[i] = m.Keyword
				dates[i] = database.DateString(m.Date)
				clicks[i] = m.Clicks
				impressions[i] = m.Impressions
				ctrs[i] = m.CTR
				positions[i] = m.Position
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO search_queries (
					keyword, date, clicks, impressions, ctr, position, updated_at
				)
				SELECT k, d, c, i, r, p, NOW()
				FROM unnest($1::text[], $2::date[], $3::int[], $4::int[], $5::float8[], $6::float8[])
					AS t(k, d, c, i, r, p)
				ON CONFLICT (keyword, date) DO UPDATE
				SET clicks = EXCLUDED.clicks,
					impressions = EXCLUDED.impressions,
					ctr = EXCLUDED.ctr,
					position = EXCLUDED.position,
					updated_at = NOW()
			`,
				pq.Array(keywords),
				pq.Array(dates),
				pq.Array(clicks),
				pq.Array(impressions),
				pq.Array(ctrs),
				pq.Array(positions),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to upsert query metrics",
			"error", err,
			"rows", len(rows),
			"operation", op,
		)
		return database.MapError(err, op)
	}

	r.logger.Debug("upserted query metrics", "rows", len(rows), "operation", op)
	return nil
}

// UpsertPageMetrics writes the batch in a single transaction. A row whose
// content ID did not resolve keeps any content ID stored by an earlier sync.
func (r *Repository) UpsertPageMetrics(ctx context.Context, rows []metrics.PageMetric) error {
	const op = "MetricRepository.UpsertPageMetrics"

	rows = dedupePages(rows)
	if len(rows) == 0 {
		return nil
	}

	err := database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		for start := 0; start < len(rows); start += batchSize {
			end := min(start+batchSize, len(rows))
			chunk := rows[start:end]

			urls := make([]string, len(chunk))
			dates := make([]string, len(chunk))
			contentIDs := make([]sql.NullInt64, len(chunk))
			clicks := make([]int64, len(chunk))
			impressions := make([]int64, len(chunk))
			ctrs := make([]float64, len(chunk))
			positions := make([]float64, len(chunk))
			for i, m := range chunk {
				m.Sanitize()
				urls[i] = m.URL
				dates[i] = database.DateString(m.Date)
				if m.ContentID != nil {
					contentIDs[i] = sql.NullInt64{Int64: *m.ContentID, Valid: true}
				}
				clicks[i] = m.Clicks
				impressions[i] = m.Impressions
				ctrs[i] = m.CTR
				positions[i] = m.Position
			}

			_, err := tx.ExecContext(ctx, `
				INSERT INTO search_pages (
					url, date, content_id, clicks, impressions, ctr, position, updated_at
				)
				SELECT u, d, cid, c, i, r, p, NOW()
				FROM unnest($1::text[], $2::date[], $3::bigint[], $4::int[], $5::int[], $6::float8[], $7::float8[])
					AS t(u, d, cid, c, i, r, p)
				ON CONFLICT (url, date) DO UPDATE
				SET content_id = COALESCE(EXCLUDED.content_id, search_pages.content_id),
					clicks = EXCLUDED.clicks,
					impressions = EXCLUDED.impressions,
					ctr = EXCLUDED.ctr,
					position = EXCLUDED.position,
					updated_at = NOW()
			`,
				pq.Array(urls),
				pq.Array(dates),
				pq.Array(contentIDs),
				pq.Array(clicks),
				pq.Array(impressions),
				pq.Array(ctrs),
				pq.Array(positions),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to upsert page metrics",
			"error", err,
			"rows", len(rows),
			"operation", op,
		)
		return database.MapError(err, op)
	}

	r.logger.Debug("upserted page metrics", "rows", len(rows), "operation", op)
	return nil
}

// AggregateQueriesByKeyword implements metrics.Repository.AggregateQueriesByKeyword
func (r *Repository) AggregateQueriesByKeyword(ctx context.Context, from, to time.Time) ([]metrics.KeywordAggregate, error) {
	const op = "MetricRepository.AggregateQueriesByKeyword"

	rows, err := r.db.QueryContext(ctx, `
		SELECT keyword,
			AVG(position),
			AVG(ctr),
			COALESCE(SUM(impressions), 0),
			COALESCE(SUM(clicks), 0)
		FROM search_queries
		WHERE date BETWEEN $1::date AND $2::date
		GROUP BY keyword
	`, database.DateString(from), database.DateString(to))
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	aggs, err := scanKeywordAggregates(rows)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	return aggs, nil
}

// AggregatePagesByURL implements metrics.Repository.AggregatePagesByURL
func (r *Repository) AggregatePagesByURL(ctx context.Context, from, to time.Time) ([]metrics.PageAggregate, error) {
	const op = "MetricRepository.AggregatePagesByURL"

	rows, err := r.db.QueryContext(ctx, `
		SELECT url,
			MAX(content_id),
			AVG(position),
			AVG(ctr),
			COALESCE(SUM(impressions), 0),
			COALESCE(SUM(clicks), 0)
		FROM search_pages
		WHERE date BETWEEN $1::date AND $2::date
		GROUP BY url
	`, database.DateString(from), database.DateString(to))
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	aggs, err := scanPageAggregates(rows)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	return aggs, nil
}

// DeleteOlderThan implements metrics.Repository.DeleteOlderThan
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, int64, error) {
	const op = "MetricRepository.DeleteOlderThan"

	var queries, pages int64
	err := database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM search_queries WHERE date <= $1::date`, database.DateString(cutoff))
		if err != nil {
			return err
		}
		if queries, err = res.RowsAffected(); err != nil {
			return err
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM search_pages WHERE date <= $1::date`, database.DateString(cutoff))
		if err != nil {
			return err
		}
		pages, err = res.RowsAffected()
		return err
	})
	if err != nil {
		r.logger.Error("failed to delete expired metrics",
			"error", err,
			"cutoff", database.DateString(cutoff),
			"operation", op,
		)
		return 0, 0, database.MapError(err, op)
	}

	return queries, pages, nil
}

// QueryMetricsForKeyword implements metrics.Repository.QueryMetricsForKeyword
func (r *Repository) QueryMetricsForKeyword(ctx context.Context, keyword string, from, to time.Time) ([]metrics.QueryMetric, error) {
	const op = "MetricRepository.QueryMetricsForKeyword"

	rows, err := r.db.QueryContext(ctx, `
		SELECT keyword, clicks, impressions, ctr, position, date
		FROM search_queries
		WHERE keyword = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date
	`, keyword, database.DateString(from), database.DateString(to))
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var result []metrics.QueryMetric
	for rows.Next() {
		var m metrics.QueryMetric
		if err := rows.Scan(&m.Keyword, &m.Clicks, &m.Impressions, &m.CTR, &m.Position, &m.Date); err != nil {
			return nil, database.MapError(err, op)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return result, nil
}

// PageMetricsForContent implements metrics.Repository.PageMetricsForContent
func (r *Repository) PageMetricsForContent(ctx context.Context, contentID int64, from, to time.Time) ([]metrics.PageMetric, error) {
	const op = "MetricRepository.PageMetricsForContent"

	rows, err := r.db.QueryContext(ctx, `
		SELECT url, content_id, clicks, impressions, ctr, position, date
		FROM search_pages
		WHERE content_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date, url
	`, contentID, database.DateString(from), database.DateString(to))
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	var result []metrics.PageMetric
	for rows.Next() {
		var m metrics.PageMetric
		var cid sql.NullInt64
		if err := rows.Scan(&m.URL, &cid, &m.Clicks, &m.Impressions, &m.CTR, &m.Position, &m.Date); err != nil {
			return nil, database.MapError(err, op)
		}
		if cid.Valid {
			m.ContentID = &cid.Int64
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, database.MapError(err, op)
	}
	return result, nil
}

// Totals implements metrics.Repository.Totals
func (r *Repository) Totals(ctx context.Context, from, to time.Time) (*metrics.Totals, error) {
	const op = "MetricRepository.Totals"

	var t metrics.Totals
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(clicks), 0),
			COALESCE(SUM(impressions), 0),
			COALESCE(AVG(ctr), 0),
			COALESCE(AVG(position), 0)
		FROM search_queries
		WHERE date BETWEEN $1::date AND $2::date
	`, database.DateString(from), database.DateString(to)).Scan(&t.Clicks, &t.Impressions, &t.AvgCTR, &t.AvgPosition)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	return &t, nil
}

// TopQueries implements metrics.Repository.TopQueries
func (r *Repository) TopQueries(ctx context.Context, from, to time.Time, limit int) ([]metrics.KeywordAggregate, error) {
	const op = "MetricRepository.TopQueries"

	rows, err := r.db.QueryContext(ctx, `
		SELECT keyword,
			AVG(position),
			AVG(ctr),
			COALESCE(SUM(impressions), 0),
			COALESCE(SUM(clicks), 0) AS total_clicks
		FROM search_queries
		WHERE date BETWEEN $1::date AND $2::date
		GROUP BY keyword
		ORDER BY total_clicks DESC, keyword
		LIMIT $3
	`, database.DateString(from), database.DateString(to), limit)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	aggs, err := scanKeywordAggregates(rows)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	return aggs, nil
}

// TopPages implements metrics.Repository.TopPages
func (r *Repository) TopPages(ctx context.Context, from, to time.Time, limit int) ([]metrics.PageAggregate, error) {
	const op = "MetricRepository.TopPages"

	rows, err := r.db.QueryContext(ctx, `
		SELECT url,
			MAX(content_id),
			AVG(position),
			AVG(ctr),
			COALESCE(SUM(impressions), 0),
			COALESCE(SUM(clicks), 0) AS total_clicks
		FROM search_pages
		WHERE date BETWEEN $1::date AND $2::date
		GROUP BY url
		ORDER BY total_clicks DESC, url
		LIMIT $3
	`, database.DateString(from), database.DateString(to), limit)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	defer rows.Close()

	aggs, err := scanPageAggregates(rows)
	if err != nil {
		return nil, database.MapError(err, op)
	}
	return aggs, nil
}

func scanKeywordAggregates(rows *sql.Rows) ([]metrics.KeywordAggregate, error) {
	var result []metrics.KeywordAggregate
	for rows.Next() {
		var a metrics.KeywordAggregate
		if err := rows.Scan(&a.Keyword, &a.AvgPosition, &a.AvgCTR, &a.SumImpressions, &a.SumClicks); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func scanPageAggregates(rows *sql.Rows) ([]metrics.PageAggregate, error) {
	var result []metrics.PageAggregate
	for rows.Next() {
		var a metrics.PageAggregate
		var cid sql.NullInt64
		if err := rows.Scan(&a.URL, &cid, &a.AvgPosition, &a.AvgCTR, &a.SumImpressions, &a.SumClicks); err != nil {
			return nil, err
		}
		if cid.Valid {
			a.ContentID = &cid.Int64
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
