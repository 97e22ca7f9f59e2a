// Package http provides the retrying HTTP client behind the metrics and
// notification side-channel. It only knows how to POST a payload and probe
// reachability; backup operations never pass through it.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for side-channel requests.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the exponential backoff between retries.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns sensible default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Client posts metrics and notifications with retries. Transport errors and
// transient server statuses are retried with exponential backoff; any other
// response is handed back to the caller, who decides what a bad status means.
type Client struct {
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new side-channel HTTP client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry:  DefaultRetryConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Response is the outcome of a completed request.
type Response struct {
	StatusCode int
	Body       []byte
}

// Post sends the payload, retrying transport errors and transient server
// statuses. A response with a non-transient status (or one received on the
// final attempt) is returned as-is, not as an error.
func (c *Client) Post(ctx context.Context, url string, contentType string, body []byte) (*Response, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.backoff(ctx, attempt-1); err != nil {
				return nil, err
			}
		}

		resp, err := c.post(ctx, url, contentType, body)
		if err != nil {
			lastErr = err
			c.logger.Warn("side-channel request failed",
				"url", url,
				"attempt", attempt,
				"max_attempts", c.retry.MaxAttempts,
				"error", err,
			)
			continue
		}

		if transientStatus(resp.StatusCode) && attempt < c.retry.MaxAttempts {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(resp.Body))
			c.logger.Warn("side-channel request returned transient status",
				"url", url,
				"status", resp.StatusCode,
				"attempt", attempt,
			)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// post performs one POST attempt and drains the response.
func (c *Client) post(ctx context.Context, url string, contentType string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// Ping reports whether the endpoint answers a GET with a 2xx within a short
// deadline. Used by the validate command and by notifier/pusher Validate.
func (c *Client) Ping(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("connectivity check returned status %d", resp.StatusCode)
	}
	return nil
}

// backoff sleeps before the given retry, honoring context cancellation.
// Delays grow as initialDelay * 2^(retry-1), capped at maxDelay.
func (c *Client) backoff(ctx context.Context, retry int) error {
	delay := float64(c.retry.InitialDelay) * math.Pow(2, float64(retry-1))
	if delay > float64(c.retry.MaxDelay) {
		delay = float64(c.retry.MaxDelay)
	}

	c.logger.Debug("retrying after delay", "delay", time.Duration(delay))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(delay)):
		return nil
	}
}

// transientStatus reports whether the status code is worth retrying.
func transientStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
