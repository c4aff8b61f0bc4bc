package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds a single request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Client sends requests to the Signals API through the interceptor pipeline.
type Client struct {
	baseURL string
	client  *http.Client
	pipe    pipeline
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout of the underlying http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithRequestInterceptor appends request interceptors.
func WithRequestInterceptor(ri ...RequestInterceptor) Option {
	return func(c *Client) {
		c.pipe.before = append(c.pipe.before, ri...)
	}
}

// WithResponseInterceptor appends response interceptors.
func WithResponseInterceptor(re ...ResponseInterceptor) Option {
	return func(c *Client) {
		c.pipe.after = append(c.pipe.after, re...)
	}
}

// NewClient creates a client for the API rooted at server
// (e.g. "localhost:8080/api/v1"; http:// is assumed when no scheme is given).
func NewClient(server string, opts ...Option) *Client {
	baseURL := server
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// NewRequest builds a request for path (relative to the base URL).
// A non-nil body is encoded as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req through the pipeline.
//
// Request interceptors see a clone, so the caller's request is never
// modified. A non-2xx response is turned into a *StatusError before the
// response interceptors run. On error the response is nil.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req, err := c.pipe.prepare(req.Clone(req.Context()))
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err == nil && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		err = newStatusError(req, resp)
	}

	resp, err = c.pipe.settle(req, resp, err)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// Post performs a POST request with an optional JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetJSON performs a GET request and decodes the response into target.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) error {
	resp, err := c.Get(ctx, path, query)
	if err != nil {
		return err
	}
	return ParseResponse(resp, target)
}

// PostJSON performs a POST request and decodes the response into target.
func (c *Client) PostJSON(ctx context.Context, path string, body, target any) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	return ParseResponse(resp, target)
}

// ParseResponse decodes a JSON response body into target and closes it.
// Responses outside 2xx become a *StatusError. An empty body leaves
// target untouched.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(resp.Request, resp)
	}

	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil && err != io.EOF {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
