// Package backend is the HTTP client for the external answering service.
//
// The service exposes a single endpoint:
//
//	POST {baseURL}/ask  {"question": "..."}  ->  {"answer": "..."}
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mtlprog/askwidget/internal/domain"
)

const (
	askPath = "ask"

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes int64 = 1 << 20
)

// AskRequest is the JSON body sent to the backend.
type AskRequest struct {
	Question string `json:"question"`
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", domain.ErrServerStatus, e.Code, http.StatusText(e.Code))
}

// Unwrap lets errors.Is match domain.ErrServerStatus.
func (e *StatusError) Unwrap() error {
	return domain.ErrServerStatus
}

// Client posts questions to the answering service.
type Client struct {
	http             *http.Client
	askURL           string
	maxResponseBytes int64
	defaultHeaders   map[string]string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithMaxResponseBytes caps the response body size. Larger bodies are truncated
// and fail to decode.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// New creates a Client for baseURL. The base URL is resolved once here.
// Per-request deadlines come from the caller's context; the http.Client
// itself has no timeout.
func New(baseURL string, opts ...Option) (*Client, error) {
	askURL, err := url.JoinPath(baseURL, askPath)
	if err != nil {
		return nil, fmt.Errorf("build ask URL: %w", err)
	}

	c := &Client{
		http:             &http.Client{},
		askURL:           askURL,
		maxResponseBytes: DefaultMaxResponseBytes,
		defaultHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AskURL returns the resolved endpoint.
func (c *Client) AskURL() string {
	return c.askURL
}

// Ask sends one question and returns the answer text.
//
// Errors wrap the domain sentinels: ErrTransport (network, DNS, timeout, cancel),
// ErrServerStatus (non-2xx, as *StatusError), ErrUndecodableResponse (body is not
// JSON) and ErrMalformedResponse (JSON without a non-empty string "answer").
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	result := c.Do(ctx, question)
	return result.Answer, result.Err
}

// Result describes one round trip. Status is zero when no response arrived.
type Result struct {
	Answer  string
	Status  int
	Latency time.Duration
	Err     error
}

// Do performs the round trip and reports status and latency alongside the answer.
func (c *Client) Do(ctx context.Context, question string) Result {
	start := time.Now()
	res := c.do(ctx, question)
	res.Latency = time.Since(start)
	return res
}

func (c *Client) do(ctx context.Context, question string) Result {
	body, err := json.Marshal(AskRequest{Question: question})
	if err != nil {
		return Result{Err: fmt.Errorf("marshal ask request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.askURL, bytes.NewReader(body))
	if err != nil {
		return Result{Err: fmt.Errorf("create ask request: %w", err)}
	}
	for key, value := range c.defaultHeaders {
		req.Header.Set(key, value)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %w", domain.ErrTransport, err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes))
	if err != nil {
		return Result{Status: resp.StatusCode, Err: fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Status: resp.StatusCode, Err: &StatusError{Code: resp.StatusCode}}
	}

	answer, err := decodeAnswer(raw)
	return Result{Answer: answer, Status: resp.StatusCode, Err: err}
}

// decodeAnswer extracts the "answer" string. Valid JSON of any other shape
// counts as a missing answer; invalid JSON is undecodable.
func decodeAnswer(raw []byte) (string, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUndecodableResponse, err)
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%w: body is %T, not an object", domain.ErrMalformedResponse, payload)
	}

	answer, ok := obj["answer"].(string)
	if !ok || answer == "" {
		return "", domain.ErrMalformedResponse
	}

	return answer, nil
}

// IsTimeout reports whether err came from a deadline rather than a refusal.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
