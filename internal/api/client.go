// Package api implements the HTTP transport client: request building,
// bearer-token lifecycle, response decoding, and classification of
// HTTP/network failures into a uniform error shape.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/igebriel/taskweave/internal/storage"
)

// DefaultTimeout bounds every request unless the caller's context
// carries an earlier deadline.
const DefaultTimeout = 30 * time.Second

// Client issues authenticated requests against the REST API.
// It owns the current bearer token, mirroring it into the local store
// so sessions survive restarts; the token is cleared automatically when
// a request is rejected as unauthorized.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	store   *storage.Store // optional; nil disables token persistence

	mu    sync.Mutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient swaps the underlying *http.Client (for tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithStore attaches the persistence layer used to mirror the bearer
// token. A previously persisted token is loaded immediately.
func WithStore(s *storage.Store) Option {
	return func(c *Client) { c.store = s }
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store != nil {
		var tok string
		if found, err := c.store.Get(storage.KeyAuthToken, &tok); err == nil && found {
			c.token = tok
		}
	}

	return c
}

// SetToken sets the bearer token and mirrors it into the store.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Set(storage.KeyAuthToken, token); err != nil {
			slog.Warn("Failed to persist auth token", "error", err)
		}
	}
}

// Token returns the current bearer token, or "" when unauthenticated.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// ClearToken drops the bearer token from memory and from the store.
func (c *Client) ClearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Delete(storage.KeyAuthToken); err != nil {
			slog.Warn("Failed to remove persisted auth token", "error", err)
		}
	}
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Envelope, error) {
	return c.Do(ctx, http.MethodGet, path, nil, query, nil)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPost, path, body, nil, nil)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPut, path, body, nil, nil)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) (*Envelope, error) {
	return c.Do(ctx, http.MethodPatch, path, body, nil, nil)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Envelope, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do issues a request with full control over query parameters and
// headers. Caller-supplied headers win on conflict with the defaults.
func (c *Client) Do(ctx context.Context, method, path string, body any, query url.Values, headers http.Header) (*Envelope, error) {
	resp, raw, err := c.send(ctx, method, path, body, query, headers)
	if err != nil {
		return nil, err
	}
	return c.decode(resp, raw)
}

// send builds and executes the request, returning the raw body.
// Network-level failures are normalized here; HTTP-level failures are
// left for decode.
func (c *Client) send(ctx context.Context, method, path string, body any, query url.Values, headers http.Header) (*http.Response, []byte, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for key, values := range headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, normalizeTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, normalizeTransportError(err)
	}

	return resp, raw, nil
}

// decode interprets the response per the envelope contract.
func (c *Client) decode(resp *http.Response, raw []byte) (*Envelope, error) {
	if resp.StatusCode >= 400 {
		return nil, c.httpError(resp.StatusCode, raw)
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return &Envelope{Success: true}, nil
	}

	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return nil, nonJSONError(resp.StatusCode, raw)
		}

		if _, hasSuccess := fields["success"]; hasSuccess {
			var env Envelope
			if err := json.Unmarshal(trimmed, &env); err != nil {
				return nil, nonJSONError(resp.StatusCode, raw)
			}
			if !env.Success {
				// API-level failure despite the 2xx status
				msg := env.Message
				if msg == "" {
					msg = "Request failed"
				}
				return nil, &Error{Status: resp.StatusCode, Message: msg, Errors: env.Errors}
			}
			return &env, nil
		}

		// No success field: auto-wrap the body as the data payload
		return &Envelope{Success: true, Data: json.RawMessage(trimmed)}, nil
	}

	if json.Valid(trimmed) {
		return &Envelope{Success: true, Data: json.RawMessage(trimmed)}, nil
	}

	return nil, nonJSONError(resp.StatusCode, raw)
}

// httpError maps a failed HTTP response into an *Error, preferring the
// server-supplied message and errors list over the canned mapping.
func (c *Client) httpError(status int, raw []byte) error {
	if status == http.StatusUnauthorized {
		c.ClearToken()
	}

	apiErr := &Error{Status: status, Message: StatusMessage(status)}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Message != "" {
			apiErr.Message = env.Message
		}
		apiErr.Errors = env.Errors
	}

	return apiErr
}

// buildURL joins the base URL, path, and query. Query parameters with
// empty values are omitted; everything else is stringified by the
// caller before it reaches url.Values.
func (c *Client) buildURL(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	if len(query) == 0 {
		return u
	}

	filtered := url.Values{}
	for key, values := range query {
		for _, v := range values {
			if v == "" {
				continue
			}
			filtered.Add(key, v)
		}
	}
	if encoded := filtered.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

// normalizeTransportError collapses network-level failures into the
// uniform error shape: timeouts become 408, everything else status 0.
func normalizeTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Status: 408, Message: "Request timeout"}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &Error{Status: 408, Message: "Request timeout"}
	}
	return &Error{Status: 0, Message: "Network error"}
}

// nonJSONError wraps an unparseable body as an error, keeping a
// truncated excerpt for diagnostics.
func nonJSONError(status int, raw []byte) error {
	excerpt := string(raw)
	if len(excerpt) > 200 {
		excerpt = excerpt[:200]
	}
	return &Error{Status: status, Message: "Unexpected non-JSON response", Errors: []string{excerpt}}
}
