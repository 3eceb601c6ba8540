package chat

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
)

// Request is the body posted to the chat endpoint.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// response is the endpoint's reply. A 2xx body may still carry an error.
type response struct {
	Reply   string `json:"reply"`
	Error   string `json:"error,omitempty"`
	Success *bool  `json:"success,omitempty"`
}

// TokenSource supplies the bearer token attached to each request. An empty
// token sends the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// HTTPStatusError captures non-2xx responses from the chat endpoint.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if msg := errorMessage(e.Body); msg != "" {
		return fmt.Sprintf("chat: status %d: %s", e.StatusCode, msg)
	}
	return fmt.Sprintf("chat: unexpected status %d from %s", e.StatusCode, e.URL)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// EndpointError is an error reported inside a successful response body.
type EndpointError struct {
	Message string
}

func (e *EndpointError) Error() string {
	return "chat: " + e.Message
}

// Client posts messages to a remote chat endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// NewClient returns a client for the endpoint URL.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("chat: endpoint must not be empty")
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Post sends one message and returns the reply text.
func (c *Client) Post(ctx context.Context, in Request) (string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("chat: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("chat: resolve token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	raw, err := c.doJSONRequest(req)
	if err != nil {
		return "", err
	}

	var payload response
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if payload.Error != "" {
		return "", &EndpointError{Message: payload.Error}
	}
	if payload.Success != nil && !*payload.Success {
		return "", &EndpointError{Message: "request was not successful"}
	}
	return payload.Reply, nil
}

func (c *Client) doJSONRequest(req *http.Request) ([]byte, error) {
	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	res, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        c.endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("chat: read response body: %w", err)
	}
	return buf, nil
}

// errorMessage pulls {"error": "..."} out of an error body, if present.
func errorMessage(body string) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return ""
	}
	return payload.Error
}
