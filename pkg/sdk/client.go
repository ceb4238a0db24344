// Copyright 2025 Gosayram Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sdk provides a Go client for invoking fngate operations over HTTP.
package sdk

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gosayram/fngate/internal/failure"
)

const (
	// defaultClientTimeout is the default timeout for HTTP client requests
	defaultClientTimeout = 30 * time.Second
	// httpStatusBadRequest is the HTTP status code for bad requests
	httpStatusBadRequest = 400
	// defaultMaxRetries is the default number of retries for idempotent requests
	defaultMaxRetries = 3
)

// ErrEmptyOperation is returned when no operation name is given
var ErrEmptyOperation = errors.New("operation name is required")

// Client is the fngate SDK client
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	retryDelay time.Duration
}

// Config contains client configuration
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	TLSConfig  *tls.Config
	HTTPClient *http.Client
	// RetryDelay is the backoff unit for idempotent requests (default: 1s)
	RetryDelay time.Duration
}

// APIError is a failure envelope returned by the server. Code is always one of
// the known failure kinds; codes this client does not know become "internal".
type APIError struct {
	StatusCode int
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements error
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == string(failure.ParseKind(code))
}

// NewClient creates a new fngate client
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	// Create HTTP client
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultClientTimeout
		}

		transport := &http.Transport{
			TLSClientConfig: config.TLSConfig,
		}

		httpClient = &http.Client{
			Transport: transport,
			Timeout:   timeout,
		}
	}

	retryDelay := config.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		token:      config.Token,
		retryDelay: retryDelay,
	}, nil
}

// SetToken sets the bearer credential sent with every request
func (c *Client) SetToken(token string) {
	c.token = token
}

// Invoke calls operation with payload and decodes the success data into out.
// A nil payload sends an empty body; a nil out discards the data.
func (c *Client) Invoke(ctx context.Context, operation string, payload, out any) error {
	if operation == "" {
		return ErrEmptyOperation
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/"+url.PathEscape(operation), payload)
	if err != nil {
		return err
	}
	return c.parseResponse(resp, out)
}

// Call invokes operation through the callable route, wrapping payload as {"data": payload}
func (c *Client) Call(ctx context.Context, operation string, payload, out any) error {
	if operation == "" {
		return ErrEmptyOperation
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/callable/"+url.PathEscape(operation), map[string]any{"data": payload})
	if err != nil {
		return err
	}
	return c.parseResponse(resp, out)
}

// Health runs the healthCheck operation
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, "/health", defaultMaxRetries)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := c.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Operations lists the operation names served
func (c *Client) Operations(ctx context.Context) ([]string, error) {
	resp, err := c.doRequestWithRetry(ctx, http.MethodGet, "/v1/operations", defaultMaxRetries)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= httpStatusBadRequest {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var body struct {
		Operations []string `json:"operations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Operations, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	// Add authentication token if available
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// doRequestWithRetry retries idempotent requests on transport errors and 5xx responses
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, maxRetries int) (*http.Response, error) {
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			// Linear backoff
			backoff := time.Duration(i) * c.retryDelay
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.doRequest(ctx, method, path, nil)
		if err == nil {
			if resp.StatusCode < 500 || i == maxRetries {
				return resp, nil
			}
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("HTTP error: %d", resp.StatusCode)
			continue
		}

		lastErr = err
	}

	return nil, fmt.Errorf("request failed after %d retries: %w", maxRetries, lastErr)
}

// parseResponse decodes a success or failure envelope
func (c *Client) parseResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error *APIError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= httpStatusBadRequest {
			return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if envelope.Error != nil {
		envelope.Error.StatusCode = resp.StatusCode
		envelope.Error.Code = string(failure.ParseKind(envelope.Error.Code))
		return envelope.Error
	}
	if resp.StatusCode >= httpStatusBadRequest {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}

	return nil
}
