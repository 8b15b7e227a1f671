// Package remote performs JSON requests against the upstream services the admin
// service aggregates.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Client struct {
	url     string
	client  *http.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

type Option func(*Client)

// WithRateLimit caps outgoing requests per second. Zero or less leaves requests unlimited.
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

func New(c *http.Client, url string, logger *zap.Logger, opts ...Option) *Client {
	rc := &Client{
		url:     url,
		client:  c,
		logger:  logger.With(zap.String("upstream", url)),
		limiter: rate.NewLimiter(rate.Inf, 0),
	}

	for _, opt := range opts {
		opt(rc)
	}

	return rc
}

// APIError is returned when an upstream responds with an unexpected status.
type APIError struct {
	StatusCode int
	Body       string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s responded with %v http code: %s", e.Endpoint, e.StatusCode, e.Body)
}

// GetJSON sends a GET request for path and decodes a 200 response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newAPIError(resp, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// GetRaw sends a GET request for path and returns the 200 response body unchanged.
func (c *Client) GetRaw(ctx context.Context, path string) (json.RawMessage, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("decode response: invalid json from %s", path)
	}

	return json.RawMessage(bytes.TrimSpace(body)), nil
}

// PostJSON sends body as JSON to path and expects wantStatus back.
func (c *Client) PostJSON(ctx context.Context, path string, body any, wantStatus int) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshall request data: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, path, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return newAPIError(resp, path)
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	logger := c.logger.With(zap.String("method", method), zap.String("path", path))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	// path segments are sent as given, without dot-segment cleaning
	reqURL := strings.TrimRight(c.url, "/") + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	logger.Debug("finish request", zap.Duration("duration", time.Since(start)))
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", method, err)
	}

	return resp, nil
}

func newAPIError(resp *http.Response, path string) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       string(bytes.TrimSpace(body)),
		Endpoint:   path,
	}
}
