// Package apiclient is the HTTP transport shared by the agent and experiment
// stores. It speaks JSON to the PerplexiPlay backend and turns non-2xx answers
// into *APIError values carrying the backend's "detail" message.
package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hairizuan-noorazman/perplexiplay/logger"
)

// Config holds backend connection settings.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	Debug      bool
}

// Client is an HTTP client for the PerplexiPlay backend API.
type Client struct {
	rest   *resty.Client
	logger logger.Logger
}

// New creates a new backend client.
func New(cfg Config, log logger.Logger) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(100 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetDebug(cfg.Debug)

	rest.AddRetryCondition(retryCondition)

	return &Client{
		rest:   rest,
		logger: log,
	}
}

// retryCondition retries GET requests on network errors and 5xx answers.
// Mutating requests are never replayed.
func retryCondition(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	return r.StatusCode() >= 500
}

// Get issues a GET request and decodes the JSON answer into result.
func (c *Client) Get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, nil, body, result)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result interface{}) error {
	req := c.rest.R().
		SetContext(ctx).
		ExpectContentType("application/json").
		SetError(&errorBody{})

	if token := Token(ctx); token != "" {
		req.SetAuthToken(token)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error(ctx, "backend request failed", map[string]interface{}{
			"method": method,
			"path":   path,
			"error":  err.Error(),
		})
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	c.logger.Debug(ctx, "backend request completed", map[string]interface{}{
		"method":      method,
		"path":        path,
		"status":      resp.StatusCode(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.IsError() {
		return newAPIError(resp)
	}
	return nil
}
