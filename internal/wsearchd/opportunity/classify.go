package opportunity

import (
	"fmt"
	"math"
	"sort"

	"github.com/wrale/wrale-search/internal/wsearchd/benchmark"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
)

// Classifier thresholds
const (
	quickWinMinPosition    = 11.0
	quickWinMaxPosition    = 20.0
	quickWinMinImpressions = 50

	lowCTRMaxPosition    = 10.0
	lowCTRMinImpressions = 100
	lowCTRGate           = 0.7

	decliningMinChange = 3.0

	contentGapMinPosition    = 20.0
	contentGapMinImpressions = 200

	maxScore = 100.0
)

// QuickWins flags keywords ranking between 11 and 20 with enough impressions
// to matter. The score weighs closeness to page one over search volume.
func QuickWins(aggs []metrics.KeywordAggregate, limit int) []Opportunity {
	var candidates []metrics.KeywordAggregate
	for _, a := range aggs {
		if a.AvgPosition >= quickWinMinPosition && a.AvgPosition <= quickWinMaxPosition &&
			a.SumImpressions >= quickWinMinImpressions {
			candidates = append(candidates, a)
		}
	}
	candidates = topByImpressions(candidates, limit)

	opps := make([]Opportunity, 0, len(candidates))
	for _, a := range candidates {
		opps = append(opps, Opportunity{
			Keyword:         a.Keyword,
			Type:            TypeQuickWin,
			Score:           QuickWinScore(a.AvgPosition, a.SumImpressions),
			CurrentPosition: ptr(a.AvgPosition),
			CurrentCTR:      ptr(a.AvgCTR),
			Impressions:     a.SumImpressions,
			Clicks:          a.SumClicks,
			SuggestedAction: fmt.Sprintf(
				"%q ranks at position %.1f with %d impressions. Strengthen the page's on-page optimization and internal links to move it onto page one.",
				a.Keyword, a.AvgPosition, a.SumImpressions),
			Status: StatusActive,
		})
	}
	return opps
}

// QuickWinScore rates proximity to page one (60%) and impression volume (40%) on a 0-100 scale
func QuickWinScore(position float64, impressions int64) float64 {
	proximity := (21 - position) / 10
	volume := math.Min(float64(impressions)/1000, 1)
	return round2((proximity*0.6 + volume*0.4) * 100)
}

// LowCTR flags first-page keywords whose CTR sits well below the benchmark
// for their rank. Candidates are capped before the CTR gate is applied.
func LowCTR(aggs []metrics.KeywordAggregate, curve benchmark.Curve, limit int) []Opportunity {
	var candidates []metrics.KeywordAggregate
	for _, a := range aggs {
		if a.AvgPosition <= lowCTRMaxPosition && a.SumImpressions >= lowCTRMinImpressions {
			candidates = append(candidates, a)
		}
	}
	candidates = topByImpressions(candidates, limit)

	var opps []Opportunity
	for _, a := range candidates {
		expected := curve.CTR(a.AvgPosition)
		if a.AvgCTR >= expected*lowCTRGate {
			continue
		}
		opps = append(opps, Opportunity{
			Keyword:         a.Keyword,
			Type:            TypeLowCTR,
			Score:           LowCTRScore(a.SumImpressions, expected, a.AvgCTR),
			CurrentPosition: ptr(a.AvgPosition),
			CurrentCTR:      ptr(a.AvgCTR),
			Impressions:     a.SumImpressions,
			Clicks:          a.SumClicks,
			SuggestedAction: fmt.Sprintf(
				"%q has a %.1f%% CTR at position %.1f where about %.1f%% is expected. Rewrite the title and meta description to earn more clicks.",
				a.Keyword, a.AvgCTR*100, a.AvgPosition, expected*100),
			Status: StatusActive,
		})
	}
	return opps
}

// LowCTRScore is the number of clicks lost against the benchmark, capped at 100
func LowCTRScore(impressions int64, expected, actual float64) float64 {
	return round2(math.Min(float64(impressions)*(expected-actual), maxScore))
}

// Declining flags keywords present in both windows whose average position
// worsened by at least three places.
func Declining(recent, older []metrics.KeywordAggregate, limit int) []Opportunity {
	prior := make(map[string]metrics.KeywordAggregate, len(older))
	for _, a := range older {
		prior[a.Keyword] = a
	}

	type candidate struct {
		recent metrics.KeywordAggregate
		older  metrics.KeywordAggregate
		change float64
	}
	var candidates []candidate
	for _, a := range recent {
		o, ok := prior[a.Keyword]
		if !ok {
			continue
		}
		change := a.AvgPosition - o.AvgPosition
		if change >= decliningMinChange {
			candidates = append(candidates, candidate{recent: a, older: o, change: change})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].change != candidates[j].change {
			return candidates[i].change > candidates[j].change
		}
		return candidates[i].recent.Keyword < candidates[j].recent.Keyword
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	opps := make([]Opportunity, 0, len(candidates))
	for _, c := range candidates {
		opps = append(opps, Opportunity{
			Keyword:         c.recent.Keyword,
			Type:            TypeDeclining,
			Score:           DecliningScore(c.change),
			CurrentPosition: ptr(c.recent.AvgPosition),
			CurrentCTR:      ptr(c.recent.AvgCTR),
			Impressions:     c.recent.SumImpressions,
			Clicks:          c.recent.SumClicks,
			PositionChange:  ptr(c.change),
			SuggestedAction: fmt.Sprintf(
				"%q fell from position %.1f to %.1f (%.1f places) in the last week. Refresh the ranking content and check competing pages.",
				c.recent.Keyword, c.older.AvgPosition, c.recent.AvgPosition, c.change),
			Status: StatusActive,
		})
	}
	return opps
}

// DecliningScore grows ten points per lost place, capped at 100
func DecliningScore(change float64) float64 {
	return round2(math.Min(change*10, maxScore))
}

// ContentGaps flags keywords with real demand that rank beyond page two
func ContentGaps(aggs []metrics.KeywordAggregate, limit int) []Opportunity {
	var candidates []metrics.KeywordAggregate
	for _, a := range aggs {
		if a.AvgPosition > contentGapMinPosition && a.SumImpressions >= contentGapMinImpressions {
			candidates = append(candidates, a)
		}
	}
	candidates = topByImpressions(candidates, limit)

	opps := make([]Opportunity, 0, len(candidates))
	for _, a := range candidates {
		opps = append(opps, Opportunity{
			Keyword:         a.Keyword,
			Type:            TypeContentGap,
			Score:           ContentGapScore(a.SumImpressions),
			CurrentPosition: ptr(a.AvgPosition),
			CurrentCTR:      ptr(a.AvgCTR),
			Impressions:     a.SumImpressions,
			Clicks:          a.SumClicks,
			SuggestedAction: fmt.Sprintf(
				"%q drew %d impressions but ranks at position %.1f. Publish content that targets this query directly.",
				a.Keyword, a.SumImpressions, a.AvgPosition),
			Status: StatusActive,
		})
	}
	return opps
}

// ContentGapScore is one point per 50 impressions, capped at 100
func ContentGapScore(impressions int64) float64 {
	return round2(math.Min(float64(impressions)/50, maxScore))
}

// topByImpressions orders by impressions descending, keyword ascending on ties
func topByImpressions(aggs []metrics.KeywordAggregate, limit int) []metrics.KeywordAggregate {
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].SumImpressions != aggs[j].SumImpressions {
			return aggs[i].SumImpressions > aggs[j].SumImpressions
		}
		return aggs[i].Keyword < aggs[j].Keyword
	})
	if limit > 0 && len(aggs) > limit {
		aggs = aggs[:limit]
	}
	return aggs
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func ptr[T any](v T) *T {
	return &v
}
