// Package http resolves content IDs through the host application's lookup endpoint
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wrale/wrale-search/internal/wsearchd/content"
)

// Resolver calls GET {baseURL}/lookup?url=...
type Resolver struct {
	baseURL    string
	httpClient *http.Client
}

// ResolverOption configures a Resolver
type ResolverOption func(*Resolver)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.httpClient = c
	}
}

// WithTimeout bounds each lookup
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d > 0 {
			r.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewResolver creates a resolver for the given host application URL
func NewResolver(baseURL string, options ...ResolverOption) (*Resolver, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}

	r := &Resolver{
		baseURL:    strings.TrimRight(u.String(), "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

var _ content.Resolver = (*Resolver)(nil)

type lookupResponse struct {
	ID *int64 `json:"id"`
}

// ContentID implements content.Resolver. A 404 is a miss, not an error.
func (r *Resolver) ContentID(ctx context.Context, pageURL string) (*int64, error) {
	endpoint := r.baseURL + "/lookup?" + url.Values{"url": {pageURL}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("content lookup: HTTP %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return out.ID, nil
}
