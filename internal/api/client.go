// Package api is the thin REST client the synchronization layer talks
// through. It owns routes and verbs; the sync core only sees the Remote and
// SnapshotSource interfaces implemented here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	gosync "sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/pawsync/pawsync/pkg/logger"
)

const (
	maxErrorBody    = 64 << 10
	maxResponseBody = 8 << 20
)

// Config configures the API client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is a JSON REST client with bearer-token auth. It is safe for
// concurrent use; the token may be swapped at any time by the session
// layer.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logger.Logger

	mu    gosync.RWMutex
	token string
}

// New creates a client for the given backend.
func New(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewDefault("api")
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		log:        log,
	}
}

// SetToken installs the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken removes the bearer token.
func (c *Client) ClearToken() { c.SetToken("") }

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Do executes a JSON request against the backend.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Patch performs a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// DecodeResponse reads a response body into target, treating any status of
// 400 or above as a failure. The error body shape is opaque; the message is
// pulled out of its "error" field when present.
func DecodeResponse(resp *http.Response, target interface{}) error {
	_, err := decodeBody(resp, target)
	return err
}

func decodeBody(resp *http.Response, target interface{}) ([]byte, error) {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if m := gjson.GetBytes(body, "error"); m.Exists() {
			msg = m.String()
		}
		return nil, &StatusError{Status: resp.StatusCode, Message: msg}
	}

	if resp.StatusCode == http.StatusNoContent || target == nil {
		if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody)); err != nil {
			return nil, fmt.Errorf("discard response body: %w", err)
		}
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body, nil
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Message)
}
