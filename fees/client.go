package fees

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxResponseSize limits the fee service response body.
const maxResponseSize = 64 * 1024

// Client fetches fees from the fees-and-payments service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// NewClient creates a client for the fee service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches the current version of the fee identified by code. Transient
// failures are retried with backoff up to the configured attempt limit.
func (c *Client) Get(ctx context.Context, code string) (Fee, error) {
	if code == "" {
		return Fee{}, NewFatalError(fmt.Errorf("fee code is required"))
	}

	attempts := c.retryConfig.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		fee, err := c.doRequest(ctx, code)
		if err == nil {
			return fee, nil
		}
		lastErr = err

		if IsFatal(err) || ctx.Err() != nil {
			return Fee{}, err
		}

		if attempt < attempts {
			backoff := c.retryConfig.backoff(attempt)
			c.logger.Debug("Fee lookup failed, retrying",
				"fee_code", code,
				"attempt", attempt,
				"max_attempts", attempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return Fee{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return Fee{}, fmt.Errorf("fee %s: %d attempts failed: %w", code, attempts, lastErr)
}

func (c *Client) doRequest(ctx context.Context, code string) (Fee, error) {
	endpoint := c.baseURL + "/fees-and-payments/version/1/" + url.PathEscape(code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Fee{}, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and timeouts are transient
		return Fee{}, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Fee{}, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return Fee{}, classifyHTTPError(code, resp.StatusCode, body)
	}

	var fee Fee
	if err := json.Unmarshal(body, &fee); err != nil {
		return Fee{}, NewFatalError(fmt.Errorf("decode fee %s: %w", code, err))
	}
	if fee.FeeCode == "" {
		fee.FeeCode = code
	}
	return fee, nil
}

// classifyHTTPError turns a non-200 response into a LookupError. 429 and 5xx
// are retried; anything else, including an unknown code, is not.
func classifyHTTPError(code string, statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}
	return statusError(code, statusCode, fmt.Errorf("fee %s: service error (status %d): %s", code, statusCode, bodyStr))
}
