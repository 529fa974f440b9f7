package http

import (
	"time"

	"github.com/wrale/wrale-search/api/types/v1alpha1"
	"github.com/wrale/wrale-search/internal/wsearchd/metrics"
	"github.com/wrale/wrale-search/internal/wsearchd/opportunity"
	wsync "github.com/wrale/wrale-search/internal/wsearchd/sync"
)

func toQueryStats(aggs []metrics.KeywordAggregate) []v1alpha1.QueryStat {
	out := make([]v1alpha1.QueryStat, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, v1alpha1.QueryStat{
			Keyword:     a.Keyword,
			Clicks:      a.SumClicks,
			Impressions: a.SumImpressions,
			AvgCTR:      a.AvgCTR,
			AvgPosition: a.AvgPosition,
		})
	}
	return out
}

func toPageStats(aggs []metrics.PageAggregate) []v1alpha1.PageStat {
	out := make([]v1alpha1.PageStat, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, v1alpha1.PageStat{
			URL:         a.URL,
			ContentID:   a.ContentID,
			Clicks:      a.SumClicks,
			Impressions: a.SumImpressions,
			AvgCTR:      a.AvgCTR,
			AvgPosition: a.AvgPosition,
		})
	}
	return out
}

func toOpportunity(o opportunity.Opportunity) v1alpha1.Opportunity {
	return v1alpha1.Opportunity{
		ID:              o.ID.String(),
		Keyword:         o.Keyword,
		Type:            string(o.Type),
		Score:           o.Score,
		PageURL:         o.PageURL,
		ContentID:       o.ContentID,
		CurrentPosition: o.CurrentPosition,
		CurrentCTR:      o.CurrentCTR,
		Impressions:     o.Impressions,
		Clicks:          o.Clicks,
		PositionChange:  o.PositionChange,
		SuggestedAction: o.SuggestedAction,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toSyncResult(res *wsync.Result) v1alpha1.SyncResult {
	out := v1alpha1.SyncResult{
		RunID:       res.RunID.String(),
		Site:        res.Site,
		From:        res.From.Format(time.DateOnly),
		To:          res.To.Format(time.DateOnly),
		QueryRows:   res.QueryRows,
		PageRows:    res.PageRows,
		Resolved:    res.Resolved,
		Detected:    make(map[string]int, len(res.Detected)),
		Retired:     make(map[string]int64, len(res.Retired)),
		DeletedRows: res.DeletedRows,
		StartedAt:   res.StartedAt,
		FinishedAt:  res.FinishedAt,
	}
	for t, n := range res.Detected {
		out.Detected[string(t)] = n
	}
	for t, n := range res.Retired {
		out.Retired[string(t)] = n
	}
	return out
}

func toSyncStatus(s *wsync.State) v1alpha1.SyncStatus {
	out := v1alpha1.SyncStatus{
		Site:          s.Site,
		LastAttemptAt: s.LastAttemptAt,
		LastSuccessAt: s.LastSuccessAt,
		LastError:     s.LastError,
		QueryRows:     s.QueryRows,
		PageRows:      s.PageRows,
	}
	if s.LastRunID != nil {
		out.LastRunID = s.LastRunID.String()
	}
	return out
}
