// Package searchconsole implements upstream.Source against the Search Console
// search analytics API.
package searchconsole

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/wrale/wrale-search/internal/wsearchd/upstream"
)

const (
	// DefaultBaseURL is the public API endpoint
	DefaultBaseURL = "https://www.googleapis.com"
	// DefaultPageSize is the number of rows requested per call
	DefaultPageSize = 1000
	// DefaultMaxRows caps the rows fetched for one report
	DefaultMaxRows = 5000
	// DefaultTimeout bounds each HTTP call
	DefaultTimeout = 30 * time.Second
)

// Client fetches search analytics reports over HTTP
type Client struct {
	// baseURL is the root URL for all API requests
	baseURL string
	// httpClient attaches the bearer credential to every request
	httpClient *http.Client
	pageSize   int
	maxRows    int
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithBaseURL points the client at another endpoint
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithPageSize sets the rows requested per call
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithMaxRows sets the default row cap for requests that carry none
func WithMaxRows(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRows = n
		}
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client that authenticates with tokens from ts. Token
// acquisition and refresh belong to the caller.
func NewClient(ts oauth2.TokenSource, options ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		pageSize: DefaultPageSize,
		maxRows:  DefaultMaxRows,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}

	base := &http.Client{Timeout: c.timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c.httpClient = oauth2.NewClient(ctx, ts)
	c.httpClient.Timeout = c.timeout

	return c
}

// NewStaticClient creates a client for a fixed bearer token
func NewStaticClient(token string, options ...ClientOption) *Client {
	return NewClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), options...)
}

var _ upstream.Source = (*Client)(nil)

type queryRequest struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions"`
	RowLimit   int      `json:"rowLimit"`
	StartRow   int      `json:"startRow"`
}

type queryResponse struct {
	Rows []upstream.Row `json:"rows"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Query pages through the report until it is exhausted or the row cap is
// reached. Cancellation is checked between pages.
func (c *Client) Query(ctx context.Context, req upstream.Request) ([]upstream.Row, error) {
	if req.Site == "" {
		return nil, &upstream.Error{Message: "site is required"}
	}
	if len(req.Dimensions) == 0 {
		return nil, &upstream.Error{Message: "at least one dimension is required"}
	}
	if req.To.Before(req.From) {
		return nil, &upstream.Error{Message: "end date precedes start date"}
	}

	limit := req.RowLimit
	if limit <= 0 {
		limit = c.maxRows
	}

	endpoint := c.baseURL + "/webmasters/v3/sites/" + url.PathEscape(req.Site) + "/searchAnalytics/query"

	var rows []upstream.Row
	for len(rows) < limit {
		if err := ctx.Err(); err != nil {
			return nil, &upstream.Error{Message: "query cancelled", Err: err}
		}

		pageSize := min(c.pageSize, limit-len(rows))
		page, err := c.fetchPage(ctx, endpoint, queryRequest{
			StartDate:  req.From.UTC().Format(upstream.DateLayout),
			EndDate:    req.To.UTC().Format(upstream.DateLayout),
			Dimensions: req.Dimensions,
			RowLimit:   pageSize,
			StartRow:   len(rows),
		})
		if err != nil {
			return nil, err
		}

		rows = append(rows, page...)
		if len(page) < pageSize {
			break
		}
	}

	c.logger.Debug("fetched search analytics",
		"site", req.Site,
		"dimensions", req.Dimensions,
		"rows", len(rows),
	)
	return rows, nil
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, body queryRequest) ([]upstream.Row, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &upstream.Error{Message: "error encoding request body", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &upstream.Error{Message: "error creating request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &upstream.Error{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &upstream.Error{Message: "error decoding response", Err: err}
	}
	return out.Rows, nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &upstream.Error{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &upstream.Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("%.200s", msg)}
}
