// Package metrics defines the search-performance time series and the
// aggregations the detectors and the query facade read from them.
package metrics

import (
	"time"
)

// QueryMetric is one day of performance for a search keyword
type QueryMetric struct {
	Keyword     string    `json:"keyword"`
	Clicks      int64     `json:"clicks"`
	Impressions int64     `json:"impressions"`
	CTR         float64   `json:"ctr"`
	Position    float64   `json:"position"`
	Date        time.Time `json:"date"`
}

// PageMetric is one day of performance for a page URL
type PageMetric struct {
	URL         string    `json:"url"`
	ContentID   *int64    `json:"contentId,omitempty"`
	Clicks      int64     `json:"clicks"`
	Impressions int64     `json:"impressions"`
	CTR         float64   `json:"ctr"`
	Position    float64   `json:"position"`
	Date        time.Time `json:"date"`
}

// KeywordAggregate summarizes a keyword over a date range
type KeywordAggregate struct {
	Keyword        string  `json:"keyword"`
	AvgPosition    float64 `json:"avgPosition"`
	AvgCTR         float64 `json:"avgCtr"`
	SumImpressions int64   `json:"impressions"`
	SumClicks      int64   `json:"clicks"`
}

// PageAggregate summarizes a page over a date range
type PageAggregate struct {
	URL            string  `json:"url"`
	ContentID      *int64  `json:"contentId,omitempty"`
	AvgPosition    float64 `json:"avgPosition"`
	AvgCTR         float64 `json:"avgCtr"`
	SumImpressions int64   `json:"impressions"`
	SumClicks      int64   `json:"clicks"`
}

// Totals summarizes the whole query series over a date range
type Totals struct {
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	AvgCTR      float64 `json:"avgCtr"`
	AvgPosition float64 `json:"avgPosition"`
}

// sanitize clamps a reported row into the stored invariants: ctr within
// [0,1], position of at least 1 and no more clicks than impressions.
func sanitize(clicks, impressions int64, ctr, position float64) (int64, int64, float64, float64) {
	if clicks < 0 {
		clicks = 0
	}
	if impressions < 0 {
		impressions = 0
	}
	if clicks > impressions {
		clicks = impressions
	}
	if ctr != ctr || ctr < 0 { // NaN
		ctr = 0
	}
	if ctr > 1 {
		ctr = 1
	}
	if position != position || position < 1 {
		position = 1
	}
	return clicks, impressions, ctr, position
}

// Sanitize normalizes the row in place
func (m *QueryMetric) Sanitize() {
	m.Clicks, m.Impressions, m.CTR, m.Position = sanitize(m.Clicks, m.Impressions, m.CTR, m.Position)
	m.Date = Day(m.Date)
}

// Sanitize normalizes the row in place
func (m *PageMetric) Sanitize() {
	m.Clicks, m.Impressions, m.CTR, m.Position = sanitize(m.Clicks, m.Impressions, m.CTR, m.Position)
	m.Date = Day(m.Date)
}

// Day truncates t to its UTC calendar day
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive span of calendar days
type DateRange struct {
	From time.Time
	To   time.Time
}

// LastDays returns the range covering the day of now and the n days before
// it, n+1 calendar days in total. The detectors rely on this: with n = 28 the
// recent week is today and the 7 days before, the older span is 8 to 28 days back.
func LastDays(now time.Time, n int) DateRange {
	to := Day(now)
	return DateRange{From: to.AddDate(0, 0, -n), To: to}
}

// Contains reports whether day falls inside the range
func (r DateRange) Contains(day time.Time) bool {
	day = Day(day)
	return !day.Before(Day(r.From)) && !day.After(Day(r.To))
}
