// Package api is a minimal client for the declarative layout endpoints of
// the analytics platform REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultTimeout = 5 * time.Minute

// Error is returned for responses with a status code of 400 or above.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: server error (%d): %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHeaders adds headers sent with every request.
func WithHeaders(h map[string]string) Option {
	return func(c *Client) {
		for k, v := range h {
			c.headers[k] = v
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client talks to one organization host with a bearer token.
type Client struct {
	host       string
	token      string
	headers    map[string]string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for host (e.g. https://example.cloud.gooddata.com).
func NewClient(host, token string, opts ...Option) *Client {
	c := &Client{
		host:    strings.TrimRight(host, "/"),
		token:   token,
		headers: map[string]string{},
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Host returns the base URL the client talks to.
func (c *Client) Host() string {
	return c.host
}

// getJSON performs a GET request and decodes the response into v.
func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return nil
}

// putJSON performs a PUT request with a JSON body. Layout PUTs return 204.
func (c *Client) putJSON(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("PUT %s: marshal error: %w", path, err)
	}
	_, err = c.doRequest(ctx, http.MethodPut, path, bytes.NewReader(data))
	return err
}

// doRequest performs an HTTP request and returns the response body bytes.
// It returns an *Error if the status code indicates a failure.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	url := c.host + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("sending request", "method", method, "url", url, "requestId", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.host, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		// Try to extract error message from the problem document.
		var errResp struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Detail != "" {
			msg = errResp.Detail
		} else if errResp.Title != "" {
			msg = errResp.Title
		}
		return nil, &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Message: msg}
	}

	return respBody, nil
}
