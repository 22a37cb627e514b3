// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package commerce provides a client for the commerce backend GraphQL endpoint.
package commerce

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/traylinx/storefront-bridge/internal/buildinfo"
)

const defaultTimeout = 15 * time.Second

// Config configures a Client.
type Config struct {
	// Endpoint is the absolute GraphQL URL of the commerce backend.
	Endpoint string
	// Headers are sent with every request (e.g. Store).
	Headers map[string]string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client performs GraphQL queries against the commerce backend.
type Client struct {
	endpoint   string
	headers    map[string]string
	httpClient *http.Client
}

// NewClient creates a new commerce GraphQL client.
func NewClient(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("commerce: endpoint is required")
	}
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("commerce: invalid endpoint %q", endpoint)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	return &Client{endpoint: endpoint, headers: headers, httpClient: httpClient}, nil
}

// Endpoint returns the configured GraphQL URL.
func (c *Client) Endpoint() string { return c.endpoint }

type queryOptions struct {
	get   bool
	token string
}

// QueryOption customizes a single query.
type QueryOption func(*queryOptions)

// WithGET sends the query as a cacheable GET request instead of a POST.
func WithGET() QueryOption {
	return func(o *queryOptions) { o.get = true }
}

// WithToken authenticates the query with a customer bearer token. An empty token is ignored.
func WithToken(token string) QueryOption {
	return func(o *queryOptions) { o.token = token }
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// Query runs a GraphQL operation. GraphQL errors are reported in Response.Errors;
// the returned error covers transport failures and non-GraphQL responses only.
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, opts ...QueryOption) (*Response, error) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	req, err := c.newRequest(ctx, query, variables, o)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("commerce: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("commerce: read response: %w", err)
	}

	parsed, errParse := parseResponse(body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if errParse == nil && (parsed.Data != "" || len(parsed.Errors) > 0) {
			log.Debugf("commerce: graphql status %d with errors: %v", resp.StatusCode, parsed.Errors)
			return parsed, nil
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	if errParse != nil {
		return nil, errParse
	}
	return parsed, nil
}

func (c *Client) newRequest(ctx context.Context, query string, variables map[string]any, o queryOptions) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if o.get {
		u, _ := url.Parse(c.endpoint)
		q := u.Query()
		q.Set("query", query)
		if len(variables) > 0 {
			vars, errMarshal := json.Marshal(variables)
			if errMarshal != nil {
				return nil, fmt.Errorf("commerce: encode variables: %w", errMarshal)
			}
			q.Set("variables", string(vars))
		}
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	} else {
		payload, errMarshal := json.Marshal(requestBody{Query: query, Variables: variables})
		if errMarshal != nil {
			return nil, fmt.Errorf("commerce: encode request: %w", errMarshal)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("commerce: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}
	return req, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Response is a decoded GraphQL response.
type Response struct {
	// Data is the raw JSON of the data member; empty when absent or null.
	Data   string
	Errors Errors
}

// Get reads a field of Data by gjson path, e.g. "generateCustomerToken.token".
func (r *Response) Get(path string) gjson.Result {
	if r == nil || r.Data == "" {
		return gjson.Result{}
	}
	return gjson.Get(r.Data, path)
}

func parseResponse(body []byte) (*Response, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("commerce: response is not valid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, fmt.Errorf("commerce: response is not a JSON object")
	}
	resp := &Response{}
	if data := root.Get("data"); data.Exists() && data.Type != gjson.Null {
		resp.Data = data.Raw
	}
	if errs := root.Get("errors"); errs.IsArray() {
		if err := json.Unmarshal([]byte(errs.Raw), &resp.Errors); err != nil {
			return nil, fmt.Errorf("commerce: decode errors: %w", err)
		}
	}
	return resp, nil
}

// StatusError is returned for non-2xx responses that carry no GraphQL payload.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("commerce: unexpected status %d: %s", e.StatusCode, e.Body)
}
