// File: internal/backend/client.go
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is used when no API_BASE_URL is configured.
const DefaultBaseURL = "http://localhost:8080/api"

var (
	ErrAuthRequired      = errors.New("Authentication required. Please sign in again.")
	ErrMissingAuthParams = errors.New("Missing required authentication parameters")
	ErrInvalidTokenData  = errors.New("Server returned invalid token data")
)

// APIError is a failed backend response after envelope normalization.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// TokenStore supplies the bearer token and lets the client drop it when the
// backend reports it invalid.
type TokenStore interface {
	Token() string
	Clear() error
}

// Client talks to the marketplace REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenStore attaches a token source for authenticated calls.
func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

// NewClient creates a backend client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("backend"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StaticToken is a TokenStore holding one caller-supplied token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }
func (t StaticToken) Clear() error  { return nil }

// WithToken returns a copy of c that authenticates as token. The gateway
// uses it to forward a request's bearer token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.tokens = StaticToken(token)
	return &cp
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// WebSocketURL derives the realtime endpoint from the API base URL.
func (c *Client) WebSocketURL() string {
	return strings.Replace(c.baseURL, "http", "ws", 1) + "/ws"
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// do sends one request and normalizes the response into out. out may be nil.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s request: %w", method, endpoint, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens.Token()); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.Debug("Backend request", zap.String("method", method), zap.String("endpoint", endpoint))
	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Backend request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNoContent {
		return nil
	}

	if res.StatusCode == http.StatusUnauthorized {
		c.handleUnauthorized(res)
		return ErrAuthRequired
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read %s %s response: %w", method, endpoint, err)
	}

	if !strings.Contains(res.Header.Get("Content-Type"), "application/json") {
		c.logger.Warn("Backend returned non-JSON response",
			zap.String("endpoint", endpoint),
			zap.Int("status_code", res.StatusCode),
		)
		return &APIError{Status: res.StatusCode, Message: "Server returned non-JSON response: " + truncate(string(raw), 100)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Success != nil {
		if *env.Success && len(env.Data) > 0 && string(env.Data) != "null" {
			return decodeInto(env.Data, out)
		}
		msg := env.Error
		if msg == "" {
			msg = "Unknown API error"
		}
		return &APIError{Status: res.StatusCode, Message: msg}
	}

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return decodeInto(raw, out)
	}

	msg := env.Error
	if msg == "" {
		msg = string(bytes.TrimSpace(raw))
	}
	return &APIError{Status: res.StatusCode, Message: msg}
}

// handleUnauthorized clears the stored token only when the backend marks it as invalid.
func (c *Client) handleUnauthorized(res *http.Response) {
	invalid := res.Header.Get("X-Auth-Failed") == "true" ||
		strings.Contains(res.Header.Get("WWW-Authenticate"), "invalid_token")
	if !invalid || c.tokens == nil {
		return
	}
	c.logger.Info("Backend rejected token, clearing session")
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("Failed to clear rejected token", zap.Error(err))
	}
}

func decodeInto(data []byte, out interface{}) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// truncate keeps the first n runes of s and marks a cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
