package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wrale/wrale-search/api/types/v1alpha1"
)

// ListOptions pages and filters an opportunity listing. Zero values leave
// the server defaults in place.
type ListOptions struct {
	Type   string
	Limit  int
	Offset int
}

func windowQuery(days, limit int) url.Values {
	q := url.Values{}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}

// Dashboard returns headline totals for the last days
func (c *Client) Dashboard(ctx context.Context, days int) (*v1alpha1.Dashboard, error) {
	var d v1alpha1.Dashboard
	if err := c.get(ctx, "/dashboard", windowQuery(days, 0), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// TopQueries returns the keywords with the most clicks
func (c *Client) TopQueries(ctx context.Context, days, limit int) ([]v1alpha1.QueryStat, error) {
	var stats []v1alpha1.QueryStat
	if err := c.get(ctx, "/queries/top", windowQuery(days, limit), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// TopPages returns the pages with the most clicks
func (c *Client) TopPages(ctx context.Context, days, limit int) ([]v1alpha1.PageStat, error) {
	var stats []v1alpha1.PageStat
	if err := c.get(ctx, "/pages/top", windowQuery(days, limit), &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Opportunities lists active opportunities by score
func (c *Client) Opportunities(ctx context.Context, opts ListOptions) (*v1alpha1.OpportunityList, error) {
	q := url.Values{}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}

	var list v1alpha1.OpportunityList
	if err := c.get(ctx, "/opportunities", q, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// OpportunityCounts returns the active count per type
func (c *Client) OpportunityCounts(ctx context.Context) (v1alpha1.OpportunityCounts, error) {
	var counts v1alpha1.OpportunityCounts
	if err := c.get(ctx, "/opportunities/counts", nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// DismissOpportunity hides an opportunity from future listings
func (c *Client) DismissOpportunity(ctx context.Context, id string) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/opportunities/"+url.PathEscape(id)+"/dismiss", nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return handleResponse(resp)
}

// ContentTrend returns the rank movement of a content item
func (c *Client) ContentTrend(ctx context.Context, contentID int64, days int) (*v1alpha1.ContentTrend, error) {
	var trend v1alpha1.ContentTrend
	p := "/content/" + strconv.FormatInt(contentID, 10) + "/trend"
	if err := c.get(ctx, p, windowQuery(days, 0), &trend); err != nil {
		return nil, err
	}
	return &trend, nil
}

// RunSync triggers a sync and waits for it to finish
func (c *Client) RunSync(ctx context.Context) (*v1alpha1.SyncResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/sync", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res v1alpha1.SyncResult
	if err := decodeResponse(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SyncStatus returns the latest sync bookkeeping
func (c *Client) SyncStatus(ctx context.Context) (*v1alpha1.SyncStatus, error) {
	var status v1alpha1.SyncStatus
	if err := c.get(ctx, "/sync/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
