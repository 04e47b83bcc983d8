// Package httputil provides an HTTP client with bounded retries,
// exponential backoff and a resumable streaming download, returning
// outcomes in the shared result contract.
package httputil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/inodevs/inoutils/result"
)

// ErrBodyNotAllowed is returned for GET/DELETE requests carrying a body.
var ErrBodyNotAllowed = errors.New("httputil: request body not allowed for this method")

// Client is a retrying HTTP client. Transient transport errors and
// retryable status codes (429 and 5xx by default) are retried with
// exponential backoff plus a small jitter; everything else is reported as a
// failure result after the first attempt.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	headers       map[string]string
	username      string
	password      string
	hasAuth       bool
	maxRetries    int
	baseBackoff   time.Duration
	retryStatuses map[int]struct{}
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a base URL prepended to relative request URLs.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient sets a custom underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers[key] = value
	}
}

// WithBasicAuth sets default basic-auth credentials.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
		c.hasAuth = true
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.baseBackoff = d
		}
	}
}

// WithRetryStatuses replaces the set of status codes that trigger a retry.
func WithRetryStatuses(statuses ...int) Option {
	return func(c *Client) {
		c.retryStatuses = make(map[int]struct{}, len(statuses))
		for _, s := range statuses {
			c.retryStatuses[s] = struct{}{}
		}
	}
}

// NewClient creates a Client with 2 retries, 500ms base backoff and a 30s
// request timeout.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		headers:     make(map[string]string),
		maxRetries:  2,
		baseBackoff: 500 * time.Millisecond,
		retryStatuses: map[int]struct{}{
			http.StatusTooManyRequests:     {},
			http.StatusInternalServerError: {},
			http.StatusBadGateway:          {},
			http.StatusServiceUnavailable:  {},
			http.StatusGatewayTimeout:      {},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one HTTP call.
type Request struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        []byte
	ContentType string
}

// Response is the outcome of an HTTP call. Success means a status code
// below 400. Data is the full response body; it is empty when the request
// never produced a response.
type Response struct {
	result.Status
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"-"`
	Data       []byte      `json:"-"`
	URL        string      `json:"url,omitempty"`
	Method     string      `json:"method,omitempty"`
	Attempts   int         `json:"attempts"`
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, url string) Response {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url})
}

// Post issues a POST request with the given body.
func (c *Client) Post(ctx context.Context, url, contentType string, body []byte) Response {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, ContentType: contentType, Body: body})
}

// Put issues a PUT request with the given body.
func (c *Client) Put(ctx context.Context, url, contentType string, body []byte) Response {
	return c.Do(ctx, Request{Method: http.MethodPut, URL: url, ContentType: contentType, Body: body})
}

// Patch issues a PATCH request with the given body.
func (c *Client) Patch(ctx context.Context, url, contentType string, body []byte) Response {
	return c.Do(ctx, Request{Method: http.MethodPatch, URL: url, ContentType: contentType, Body: body})
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) Response {
	return c.Do(ctx, Request{Method: http.MethodDelete, URL: url})
}

// Do executes the request with the client's retry policy.
func (c *Client) Do(ctx context.Context, req Request) Response {
	fullURL := c.composeURL(req.URL)
	attempts := c.maxRetries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.once(ctx, req, fullURL)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			if attempt < attempts {
				if serr := c.sleepBackoff(ctx, attempt); serr != nil {
					break
				}
				continue
			}
			break
		}

		if _, retry := c.retryStatuses[resp.StatusCode]; retry && attempt < attempts {
			if serr := c.sleepBackoff(ctx, attempt); serr != nil {
				break
			}
			continue
		}

		resp.URL = fullURL
		resp.Method = req.Method
		resp.Attempts = attempt
		return resp
	}

	return Response{
		Status:   result.Err("request failed: %v", lastErr),
		URL:      fullURL,
		Method:   req.Method,
		Attempts: attempts,
	}
}

// once performs a single request/response cycle, reading the body fully.
func (c *Client) once(ctx context.Context, req Request, fullURL string) (Response, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, bodyReader)
	if err != nil {
		return Response{}, err
	}

	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if c.hasAuth {
		httpReq.SetBasicAuth(c.username, c.password)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return Response{}, err
	}

	resp := Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header.Clone(),
		Data:       data,
	}
	if httpResp.StatusCode < 400 {
		resp.Status = result.Ok(httpResp.Status)
	} else {
		resp.Status = result.Err("%s", httpResp.Status)
	}
	return resp, nil
}

func (c *Client) composeURL(url string) string {
	lower := strings.ToLower(url)
	if c.baseURL == "" || strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return url
	}
	return c.baseURL + "/" + strings.TrimLeft(url, "/")
}

// sleepBackoff waits baseBackoff * 2^(attempt-1) with a small deterministic
// jitter, honoring context cancellation.
func (c *Client) sleepBackoff(ctx context.Context, attempt int) error {
	delay := c.baseBackoff * (1 << (attempt - 1))
	delay += delay / 10 * time.Duration(attempt%3)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
