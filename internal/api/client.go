// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the patent drafting agent backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the agent backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Status  int // HTTP status for server errors, 0 otherwise
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNetwork           // No response / connection failure
	ErrTypeServer            // Non-2xx response
	ErrTypeStream            // Explicit error event from the backend
	ErrTypeParse             // Malformed payload (recovered locally)
	ErrTypeAborted           // Cancelled by the caller
	ErrTypeTimeout
)

// Sentinel errors for easy checking.
var (
	ErrNoResponse = &ClientError{Type: ErrTypeNetwork, Message: "no response from server"}
	ErrTimeout    = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrAborted    = &ClientError{Type: ErrTypeAborted, Message: "request aborted"}
)

// IsAborted checks if an error is a cancellation.
func IsAborted(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeAborted
	}
	return errors.Is(err, context.Canceled)
}

// IsNetworkError checks if an error indicates the backend was unreachable.
func IsNetworkError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNetwork
	}
	return false
}

// IsServerError checks if an error is a non-2xx response.
func IsServerError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeServer
	}
	return false
}

// =============================================================================
// TOKEN SOURCE
// =============================================================================

// TokenSource supplies the bearer token for outbound requests. Implemented
// by the auth package's in-memory store; injected rather than read from a
// process-wide singleton so the client stays independently testable.
type TokenSource interface {
	AccessToken() string
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the agent backend client.
type ClientConfig struct {
	// BaseURL is the agent backend base URL.
	BaseURL string

	// Timeout for the run registration request (default: 30s)
	Timeout time.Duration

	// RunsPerSecond caps run registrations client-side (default: 1/s,
	// burst 3). Retries and rapid resends share the same budget.
	RunsPerSecond float64
	RunBurst      int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:       "http://127.0.0.1:8000",
		Timeout:       30 * time.Second,
		RunsPerSecond: 1,
		RunBurst:      3,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the agent backend. It covers the
// two-phase streaming handshake (register a run, then read its event
// stream) plus the small session inspection endpoints.
//
// The Client is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	tokens       TokenSource
	httpClient   *http.Client
	streamClient *http.Client
	runLimiter   *rate.Limiter
}

// NewClient creates a client with default configuration.
func NewClient(tokens TokenSource) *Client {
	return NewClientWithConfig(DefaultConfig(), tokens)
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig, tokens TokenSource) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RunsPerSecond == 0 {
		config.RunsPerSecond = 1
	}
	if config.RunBurst == 0 {
		config.RunBurst = 3
	}

	return &Client{
		config: config,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		// No timeout for streaming; lifetime is governed by context.
		streamClient: &http.Client{},
		runLimiter:   rate.NewLimiter(rate.Limit(config.RunsPerSecond), config.RunBurst),
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// bearer returns the Authorization header value. An absent token sends an
// empty bearer rather than omitting the header; the backend distinguishes
// the two.
func (c *Client) bearer() string {
	token := ""
	if c.tokens != nil {
		token = c.tokens.AccessToken()
	}
	return "Bearer " + token
}

// =============================================================================
// RUN REGISTRATION
// =============================================================================

// StartRun registers a run with the backend and returns its correlation
// handles. This is phase one of the streaming handshake; no stream is opened.
func (c *Client) StartRun(ctx context.Context, request ChatRequest) (*RunResponse, error) {
	if err := c.runLimiter.Wait(ctx); err != nil {
		return nil, &ClientError{Type: ErrTypeAborted, Message: "run registration cancelled", Cause: err}
	}

	if request.ClientRequestID == "" {
		request.ClientRequestID = uuid.NewString()
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/patent/run", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.bearer())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp)
	}

	var result RunResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeParse, Message: "failed to decode run response", Cause: err}
	}
	if result.RunID == "" {
		return nil, &ClientError{Type: ErrTypeServer, Message: "run registration returned no run id"}
	}

	return &result, nil
}

// =============================================================================
// STREAM OPENING
// =============================================================================

// OpenStream opens the long-lived event stream for a registered run. Phase
// two of the handshake. The caller owns the returned body and must close it;
// cancelling ctx also tears the connection down.
func (c *Client) OpenStream(ctx context.Context, runID string) (io.ReadCloser, error) {
	endpoint := c.config.BaseURL + "/api/patent/stream?run_id=" + url.QueryEscape(runID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to create stream request", Cause: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", c.bearer())

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := c.statusError(resp)
		drainAndClose(resp.Body)
		return nil, err
	}

	if resp.Body == nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "stream response has no body"}
	}

	return resp.Body, nil
}

// =============================================================================
// SESSION INSPECTION
// =============================================================================

// Health checks whether the backend is reachable.
func (c *Client) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", c.bearer())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer drainAndClose(resp.Body)
	return resp.StatusCode == http.StatusOK
}

// Sessions lists the backend's active sessions. Diagnostic; failures are
// returned to the caller rather than retried.
func (c *Client) Sessions(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "/api/sessions")
}

// SessionDetails returns backend-side detail for one session.
func (c *Client) SessionDetails(ctx context.Context, sessionID string) (json.RawMessage, error) {
	return c.getJSON(ctx, "/api/debug/session/"+url.PathEscape(sessionID))
}

func (c *Client) getJSON(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", c.bearer())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.statusError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNetwork, Message: "failed to read response", Cause: err}
	}
	return json.RawMessage(data), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// transportError maps a transport failure to a typed client error.
func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) || ctx.Err() == context.Canceled {
		return &ClientError{Type: ErrTypeAborted, Message: "request aborted", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return &ClientError{Type: ErrTypeNetwork, Message: "no response from server", Cause: err}
}

// statusError builds a server error from a non-2xx response, preferring the
// server-reported message when the body carries one.
func (c *Client) statusError(resp *http.Response) error {
	msg := "server error: " + resp.Status

	var body serverError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		if body.Message != "" {
			msg = body.Message
		} else if body.Detail != "" {
			msg = body.Detail
		}
	}

	return &ClientError{Type: ErrTypeServer, Message: msg, Status: resp.StatusCode}
}

// drainAndClose drains and closes a response body so the connection can be
// reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, r)
	r.Close()
}
