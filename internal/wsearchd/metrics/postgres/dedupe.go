package postgres

import (
	"github.com/wrale/wrale-search/internal/wsearchd/database"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
)

// ON CONFLICT DO UPDATE rejects a statement that touches the same key twice,
// so repeated keys inside one batch collapse to their last occurrence.

func dedupeQueries(rows []metrics.QueryMetric) []metrics.QueryMetric {
	index := make(map[[2]string]int, len(rows))
	out := make([]metrics.QueryMetric, 0, len(rows))
	for _, m := range rows {
		key := [2]string{m.Keyword, database.DateString(m.Date)}
		if i, ok := index[key]; ok {
			out[i] = m
			continue
		}
		index[key] = len(out)
		out = append(out, m)
	}
	return out
}

func dedupePages(rows []metrics.PageMetric) []metrics.PageMetric {
	index := make(map[[2]string]int, len(rows))
	out := make([]metrics.PageMetric, 0, len(rows))
	for _, m := range rows {
		key := [2]string{m.URL, database.DateString(m.Date)}
		if i, ok := index[key]; ok {
			out[i] = m
			continue
		}
		index[key] = len(out)
		out = append(out, m)
	}
	return out
}
