// Package client provides an HTTP client for the Wrale Search insights API
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// basePath is where the server mounts the insights API
const basePath = "/api/v1alpha1/insights"

// Client provides methods for interacting with the insights API
type Client struct {
	// baseURL is the root URL for all API requests
	baseURL *url.URL
	// httpClient is the underlying HTTP client
	httpClient *http.Client
	// token is sent as a bearer token when set
	token string
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithToken sets the API token
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithTLSConfig sets custom TLS configuration
func WithTLSConfig(config *tls.Config) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{
			Transport: &http.Transport{TLSClientConfig: config},
			Timeout:   c.httpClient.Timeout,
		}
	}
}

// WithTimeout bounds each request. Manual syncs can run for minutes.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient creates a new API client
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	u.Path = ""
	u.RawQuery = ""

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// doRequest performs a request against the insights API
func (c *Client) doRequest(ctx context.Context, method, pathStr string, query url.Values, body interface{}) (*http.Response, error) {
	u := *c.baseURL
	u.Path = path.Join(basePath, pathStr)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	return resp, nil
}

// get performs a GET and decodes the response into target
func (c *Client) get(ctx context.Context, pathStr string, query url.Values, target interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodGet, pathStr, query, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, target)
}
