package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueryMetric_Sanitize(t *testing.T) {
	tests := []struct {
		name string
		in   QueryMetric
		want QueryMetric
	}{
		{
			name: "valid_row_unchanged",
			in:   QueryMetric{Keyword: "a", Clicks: 5, Impressions: 100, CTR: 0.05, Position: 3.2},
			want: QueryMetric{Keyword: "a", Clicks: 5, Impressions: 100, CTR: 0.05, Position: 3.2},
		},
		{
			name: "ctr_clamped",
			in:   QueryMetric{Keyword: "a", Clicks: 5, Impressions: 4, CTR: 1.25, Position: 0.4},
			want: QueryMetric{Keyword: "a", Clicks: 4, Impressions: 4, CTR: 1, Position: 1},
		},
		{
			name: "negative_and_nan",
			in:   QueryMetric{Keyword: "a", Clicks: -3, Impressions: -1, CTR: math.NaN(), Position: math.NaN()},
			want: QueryMetric{Keyword: "a", Clicks: 0, Impressions: 0, CTR: 0, Position: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := tt.in
			row.Sanitize()
			tt.want.Date = Day(time.Time{})
			assert.Equal(t, tt.want, row)
			assert.GreaterOrEqual(t, row.CTR, 0.0)
			assert.LessOrEqual(t, row.CTR, 1.0)
			assert.GreaterOrEqual(t, row.Position, 1.0)
			assert.GreaterOrEqual(t, row.Impressions, row.Clicks)
		})
	}
}

func TestPageMetric_SanitizeKeepsContentID(t *testing.T) {
	id := int64(42)
	row := PageMetric{
		URL:         "https://example.com/a",
		ContentID:   &id,
		Clicks:      2,
		Impressions: 10,
		CTR:         0.2,
		Position:    7,
		Date:        time.Date(2026, 10, 1, 18, 30, 0, 0, time.UTC),
	}
	row.Sanitize()
	assert.Equal(t, &id, row.ContentID)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), row.Date)
}

func TestLastDays(t *testing.T) {
	now := time.Date(2026, 10, 15, 13, 45, 0, 0, time.UTC)
	r := LastDays(now, 28)

	assert.Equal(t, time.Date(2026, 9, 17, 0, 0, 0, 0, time.UTC), r.From)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), r.To)
	assert.True(t, r.Contains(now))
	assert.True(t, r.Contains(r.From))
	assert.False(t, r.Contains(r.From.AddDate(0, 0, -1)))

	week := LastDays(now, 7)
	var days int
	for d := week.From; !d.After(week.To); d = d.AddDate(0, 0, 1) {
		days++
	}
	assert.Equal(t, 8, days)
}
