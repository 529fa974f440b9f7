package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wrale/wrale-search/api/types/v1alpha1"
)

// intParam reads an optional integer query parameter; absent means zero
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrInvalidRequest("invalid " + name + " parameter")
	}
	return v, nil
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	d, err := h.service.DashboardTotals(r.Context(), days)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, v1alpha1.Dashboard{
		From:        d.From,
		To:          d.To,
		Clicks:      d.Clicks,
		Impressions: d.Impressions,
		AvgCTR:      d.AvgCTR,
		AvgPosition: d.AvgPosition,
		LastSyncAt:  d.LastSyncAt,
	})
}

func (h *Handler) handleTopQueries(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	aggs, err := h.service.TopQueries(r.Context(), days, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toQueryStats(aggs))
}

func (h *Handler) handleTopPages(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	aggs, err := h.service.TopPages(r.Context(), days, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toPageStats(aggs))
}

func (h *Handler) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	offset, err := intParam(r, "offset")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	page, err := h.service.Opportunities(r.Context(), r.URL.Query().Get("type"), limit, offset)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	list := v1alpha1.OpportunityList{
		Items:  make([]v1alpha1.Opportunity, 0, len(page.Items)),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, o := range page.Items {
		list.Items = append(list.Items, toOpportunity(o))
	}
	h.respondJSON(w, http.StatusOK, list)
}

func (h *Handler) handleOpportunityCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.OpportunityCounts(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	out := make(v1alpha1.OpportunityCounts, len(counts))
	for t, n := range counts {
		out[string(t)] = n
	}
	h.respondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDismissOpportunity(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, ErrInvalidRequest("invalid opportunity ID"))
		return
	}

	if err := h.service.DismissOpportunity(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}

	h.logger.Info().Str("opportunityId", id.String()).Msg("opportunity dismissed")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleContentTrend(w http.ResponseWriter, r *http.Request) {
	contentID, err := strconv.ParseInt(chi.URLParam(r, "contentID"), 10, 64)
	if err != nil {
		h.respondError(w, r, ErrInvalidRequest("invalid content ID"))
		return
	}
	days, err := intParam(r, "days")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	trend, err := h.service.ContentTrend(r.Context(), contentID, days)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, v1alpha1.ContentTrend{
		ContentID:         trend.ContentID,
		Trend:             string(trend.Direction),
		RecentAvgPosition: trend.RecentAvgPosition,
		PriorAvgPosition:  trend.PriorAvgPosition,
		PositionChange:    trend.PositionChange,
	})
}

func (h *Handler) handleRunSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.RunSyncNow(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.logger.Info().
		Str("runId", res.RunID.String()).
		Int("queryRows", res.QueryRows).
		Int("pageRows", res.PageRows).
		Msg("manual sync complete")
	h.respondJSON(w, http.StatusOK, toSyncResult(res))
}

func (h *Handler) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.SyncStatus(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toSyncStatus(state))
}
