// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// staticTokens is a TokenSource returning a fixed token.
type staticTokens string

func (s staticTokens) AccessToken() string { return string(s) }

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestNewClientWithConfig_Defaults(t *testing.T) {
	client := NewClientWithConfig(nil, nil)
	config := client.GetConfig()

	if config.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("BaseURL = %q", config.BaseURL)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", config.Timeout)
	}
}

func TestNewClientWithConfig_ZeroValuesFilled(t *testing.T) {
	client := NewClientWithConfig(&ClientConfig{BaseURL: "http://example.test"}, nil)
	config := client.GetConfig()

	if config.BaseURL != "http://example.test" {
		t.Errorf("BaseURL = %q, explicit value should survive", config.BaseURL)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, zero value should be defaulted", config.Timeout)
	}
	if config.RunsPerSecond != 1 || config.RunBurst != 3 {
		t.Errorf("rate limit = %v/%v, want defaults", config.RunsPerSecond, config.RunBurst)
	}
}

// =============================================================================
// AUTHORIZATION TESTS
// =============================================================================

func TestClient_BearerAlwaysPresent(t *testing.T) {
	tests := []struct {
		name   string
		tokens TokenSource
		want   string
	}{
		{"with token", staticTokens("tok-123"), "Bearer tok-123"},
		{"empty token", staticTokens(""), "Bearer "},
		{"nil source", nil, "Bearer "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.Header.Get("Authorization")
				json.NewEncoder(w).Encode(RunResponse{RunID: "run-1"})
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			client.tokens = tc.tokens
			if _, err := client.StartRun(context.Background(), ChatRequest{UserMessage: "hi"}); err != nil {
				t.Fatalf("StartRun() error: %v", err)
			}

			// The header is always sent, empty bearer included; the
			// backend distinguishes a missing header from an empty one.
			if got != tc.want {
				t.Errorf("Authorization = %q, want %q", got, tc.want)
			}
		})
	}
}

// =============================================================================
// RUN REGISTRATION TESTS
// =============================================================================

func TestStartRun_FillsClientRequestID(t *testing.T) {
	var received ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(RunResponse{RunID: "run-1", SessionID: "sess-1"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.StartRun(context.Background(), ChatRequest{UserMessage: "hi"})
	if err != nil {
		t.Fatalf("StartRun() error: %v", err)
	}

	if received.ClientRequestID == "" {
		t.Error("ClientRequestID was not generated")
	}
	if resp.RunID != "run-1" || resp.SessionID != "sess-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestStartRun_KeepsCallerRequestID(t *testing.T) {
	var received ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		json.NewEncoder(w).Encode(RunResponse{RunID: "run-1"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.StartRun(context.Background(), ChatRequest{UserMessage: "hi", ClientRequestID: "retry-key"})
	if err != nil {
		t.Fatalf("StartRun() error: %v", err)
	}

	// Retries reuse the caller's idempotency key.
	if received.ClientRequestID != "retry-key" {
		t.Errorf("ClientRequestID = %q, want caller's key preserved", received.ClientRequestID)
	}
}

func TestStartRun_ServerErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message field", 500, `{"message": "agent unavailable"}`, "agent unavailable"},
		{"detail field", 422, `{"detail": "user_message is required"}`, "user_message is required"},
		{"opaque body", 502, `upstream timeout`, "server error: 502 Bad Gateway"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.StartRun(context.Background(), ChatRequest{UserMessage: "hi"})
			if err == nil {
				t.Fatal("expected error")
			}

			var clientErr *ClientError
			if !errors.As(err, &clientErr) {
				t.Fatalf("error = %v, want *ClientError", err)
			}
			if clientErr.Type != ErrTypeServer {
				t.Errorf("Type = %v, want ErrTypeServer", clientErr.Type)
			}
			if clientErr.Status != tc.status {
				t.Errorf("Status = %d, want %d", clientErr.Status, tc.status)
			}
			if clientErr.Message != tc.wantMsg {
				t.Errorf("Message = %q, want %q", clientErr.Message, tc.wantMsg)
			}
		})
	}
}

func TestStartRun_EmptyRunIDRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(RunResponse{SessionID: "sess-1"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.StartRun(context.Background(), ChatRequest{UserMessage: "hi"})
	if !IsServerError(err) {
		t.Errorf("error = %v, want server error for missing run id", err)
	}
}

func TestStartRun_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // Nothing listening anymore.

	client := newTestClient(server.URL)
	_, err := client.StartRun(context.Background(), ChatRequest{UserMessage: "hi"})
	if !IsNetworkError(err) {
		t.Errorf("error = %v, want network error", err)
	}
}

// =============================================================================
// STREAM OPENING TESTS
// =============================================================================

func TestOpenStream_PassesRunID(t *testing.T) {
	var gotRunID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRunID = r.URL.Query().Get("run_id")
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		w.Write([]byte("data: {}\n\n"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	body, err := client.OpenStream(context.Background(), "run with spaces")
	if err != nil {
		t.Fatalf("OpenStream() error: %v", err)
	}
	body.Close()

	if gotRunID != "run with spaces" {
		t.Errorf("run_id = %q, want query escaping round-trip", gotRunID)
	}
}

func TestOpenStream_NonOKFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail": "unknown run"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.OpenStream(context.Background(), "run-x")
	if !IsServerError(err) {
		t.Errorf("error = %v, want server error", err)
	}
}

// =============================================================================
// ERROR HELPER TESTS
// =============================================================================

func TestErrorHelpers(t *testing.T) {
	if !IsAborted(ErrAborted) {
		t.Error("IsAborted(ErrAborted) = false")
	}
	if !IsAborted(context.Canceled) {
		t.Error("IsAborted(context.Canceled) = false")
	}
	if !IsNetworkError(ErrNoResponse) {
		t.Error("IsNetworkError(ErrNoResponse) = false")
	}
	if IsServerError(ErrNoResponse) {
		t.Error("IsServerError(ErrNoResponse) = true")
	}
	if IsAborted(nil) {
		t.Error("IsAborted(nil) = true")
	}

	wrapped := &ClientError{Type: ErrTypeNetwork, Message: "outer", Cause: errors.New("inner")}
	if wrapped.Error() != "outer: inner" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
	if !IsNetworkError(wrapped) {
		t.Error("IsNetworkError(wrapped) = false")
	}
}

// =============================================================================
// HEALTH CHECK TESTS
// =============================================================================

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if !client.Health(context.Background()) {
		t.Error("Health() = false for healthy backend")
	}

	server.Close()
	if client.Health(context.Background()) {
		t.Error("Health() = true for unreachable backend")
	}
}
