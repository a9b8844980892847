package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/richxcame/agroverify/pkg/resilience"
)

const defaultTimeout = 30 * time.Second

// HTTPError represents a non-2xx response from the remote service.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a JSON HTTP client with optional retry support.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig *resilience.RetryConfig
}

// NewClient creates a client for the given base URL. An optional
// timeout overrides the 30s default; zero keeps the default.
func NewClient(baseURL string, timeout ...time.Duration) *Client {
	t := defaultTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: t},
	}
}

// WithRetry enables retries with the given configuration.
func (c *Client) WithRetry(config resilience.RetryConfig) *Client {
	c.retryConfig = &config
	return c
}

// WithDefaultRetry enables retries with defaults tuned for HTTP:
// only transient failures (network errors, 429, 5xx) are retried.
func (c *Client) WithDefaultRetry() *Client {
	config := resilience.DefaultRetryConfig()
	config.RetryableChecker = isHTTPRetryable
	c.retryConfig = &config
	return c
}

// Get performs a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, headers)
}

// Post performs a POST request with a JSON body and returns the response body.
func (c *Client) Post(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, headers)
}

// PostForm performs a POST request with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, headers map[string]string) ([]byte, error) {
	op := func(ctx context.Context) (interface{}, error) {
		return c.doRaw(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", headers)
	}

	var result interface{}
	var err error
	if c.retryConfig != nil {
		result, err = resilience.Retry(ctx, *c.retryConfig, op)
	} else {
		result, err = op(ctx)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// PostWithIdempotency performs a POST with an Idempotency-Key header.
func (c *Client) PostWithIdempotency(ctx context.Context, path string, body interface{}, headers map[string]string, idempotencyKey string) ([]byte, error) {
	if headers == nil {
		headers = make(map[string]string)
	}
	headers["Idempotency-Key"] = idempotencyKey
	return c.do(ctx, http.MethodPost, path, body, headers)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string) ([]byte, error) {
	op := func(ctx context.Context) (interface{}, error) {
		return c.doOnce(ctx, method, path, body, headers)
	}

	var result interface{}
	var err error
	if c.retryConfig != nil {
		result, err = resilience.Retry(ctx, *c.retryConfig, op)
	} else {
		result, err = op(ctx)
	}
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, body interface{}, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.doRaw(ctx, method, path, reader, contentType, headers)
}

func (c *Client) doRaw(ctx context.Context, method, path string, body io.Reader, contentType string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

// isHTTPRetryable reports whether an error is worth retrying: network
// errors and 429/5xx responses are, other HTTP statuses are not.
func isHTTPRetryable(err error) bool {
	if err == nil {
		return false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	return true
}
