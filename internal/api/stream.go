// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the patent drafting agent backend.
//
// This file implements the stream session: the state machine that owns one
// in-flight run, consumes its server-sent event stream, classifies each
// event, accumulates thoughts and the final answer, and resolves to exactly
// one terminal outcome.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync/atomic"
	"time"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionState tracks where a session is in its lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRequesting
	StateStreaming
	StateCompleted
	StateFailed
	StateAborted
)

// String returns the state name for logs and tests.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// =============================================================================
// INCREMENTAL UPDATES
// =============================================================================

// Update is the incremental snapshot delivered while a session streams.
// Thoughts are in arrival order; Partial holds the most recent result text
// (result text replaces, never appends).
type Update struct {
	Thoughts []string
	Partial  string
}

// UpdateFunc receives incremental updates. Called synchronously from the
// read loop, in event arrival order, never after cancellation is observed.
type UpdateFunc func(Update)

// =============================================================================
// ACCUMULATOR
// =============================================================================

// accumulator is the session-private running state. Owned by exactly one
// session and discarded when it reaches a terminal state.
type accumulator struct {
	thoughts []string
	result   string
	response *ChatResponse
}

// addThought appends a thought in arrival order. Any previously set result
// text is cleared: partial results never survive a later thought.
func (a *accumulator) addThought(text string) {
	if text == "" {
		return
	}
	a.thoughts = append(a.thoughts, text)
	a.result = ""
	a.response = nil
}

// setResult replaces the result text.
func (a *accumulator) setResult(text string, resp *ChatResponse) {
	a.result = text
	a.response = resp
}

// snapshot returns the current incremental view.
func (a *accumulator) snapshot() Update {
	thoughts := make([]string, len(a.thoughts))
	copy(thoughts, a.thoughts)
	return Update{Thoughts: thoughts, Partial: a.result}
}

// =============================================================================
// SESSION
// =============================================================================

// Session owns one in-flight run against the backend. Create with
// NewSession, drive with Run, cancel through the context passed to Run.
// A Session is single-use.
type Session struct {
	client   *Client
	onUpdate UpdateFunc

	// IdleTimeout, when positive, fails the session if no event arrives
	// within the window. Zero disables it (the backend's terminal sentinel
	// is normally relied on instead).
	IdleTimeout time.Duration

	// Debug enables wire-level logging of skipped malformed lines.
	Debug bool

	state SessionState
	acc   accumulator
}

// NewSession creates a session bound to a client. onUpdate may be nil.
func NewSession(client *Client, onUpdate UpdateFunc) *Session {
	return &Session{
		client:   client,
		onUpdate: onUpdate,
		state:    StateIdle,
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	return s.state
}

// Run executes the full session lifecycle: register the run, open the
// stream, consume events until a terminal condition, and return the single
// terminal outcome. Cancelling ctx aborts the session; aborted sessions are
// silent (no update delivered at or after the point cancellation is
// observed) and report OutcomeAborted.
func (s *Session) Run(ctx context.Context, request ChatRequest) Outcome {
	started := time.Now()

	outcome := s.run(ctx, request)
	outcome.StartedAt = started
	outcome.EndedAt = time.Now()
	return outcome
}

func (s *Session) run(ctx context.Context, request ChatRequest) Outcome {
	// Phase one: register the run. Failure here never opens a stream.
	s.state = StateRequesting
	runResp, err := s.client.StartRun(ctx, request)
	if err != nil {
		return s.terminal(ctx, err, "")
	}

	// Phase two: open the event stream scoped to the run.
	body, err := s.client.OpenStream(ctx, runResp.RunID)
	if err != nil {
		return s.terminal(ctx, err, runResp.SessionID)
	}
	defer body.Close()

	s.state = StateStreaming

	// The read loop blocks inside Read; cancellation must close the body
	// to release it, which also guarantees the connection is not leaked.
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	go func() {
		<-readCtx.Done()
		body.Close()
	}()

	// Idle timeout, when enabled, fails the session if no line arrives
	// within the window.
	var idleFired atomic.Bool
	var resetIdle func()
	if s.IdleTimeout > 0 {
		timer := time.AfterFunc(s.IdleTimeout, func() {
			idleFired.Store(true)
			cancelRead()
		})
		defer timer.Stop()
		resetIdle = func() { timer.Reset(s.IdleTimeout) }
	}

	return s.consume(ctx, body, runResp, resetIdle, &idleFired)
}

// consume runs the read loop: buffer partial lines, track event tags,
// classify data payloads, and resolve the terminal outcome.
func (s *Session) consume(userCtx context.Context, body io.Reader, runResp *RunResponse, resetIdle func(), idleFired *atomic.Bool) Outcome {
	reader := bufio.NewReader(body)
	eventType := ""

	for {
		// Cooperative cancellation: checked every iteration before
		// touching the wire or invoking a callback.
		if userCtx.Err() != nil {
			return s.abort()
		}

		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			// A trailing partial line on EOF is still processed; every
			// other read error is terminal.
			if userCtx.Err() != nil {
				return s.abort()
			}
			if idleFired.Load() {
				return s.fail(&ClientError{Type: ErrTypeNetwork, Message: "stream idle timeout"}, runResp.SessionID)
			}
			if errors.Is(err, io.EOF) {
				// Clean end of stream without the sentinel: finalize from
				// whatever was accumulated.
				return s.finalize(runResp)
			}
			return s.fail(&ClientError{Type: ErrTypeNetwork, Message: "stream read failed", Cause: err}, runResp.SessionID)
		}
		if resetIdle != nil {
			resetIdle()
		}

		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			// Block separator; pending event tag stays armed until data
			// arrives.
			continue

		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(line[len("event:"):])
			continue

		case strings.HasPrefix(line, "data:"):
			content := strings.TrimSpace(line[len("data:"):])

			// Terminal sentinel: the stream has no more events.
			if content == "{}" {
				return s.finalize(runResp)
			}
			// Legacy end-of-stream marker from older backend revisions.
			if eventType == "done" {
				return s.finalize(runResp)
			}

			var payload map[string]any
			if err := json.Unmarshal([]byte(content), &payload); err != nil {
				// Malformed payload: recovered locally, line skipped, the
				// session continues.
				if s.Debug {
					log.Printf("api: skipping malformed stream payload (event=%q): %v", eventType, err)
				}
				continue
			}

			if done, outcome := s.dispatch(userCtx, eventType, payload, runResp); done {
				return outcome
			}
		}
	}
}

// dispatch classifies one event and applies it to the accumulator. Returns
// (true, outcome) when the event is terminal for the session.
func (s *Session) dispatch(userCtx context.Context, eventType string, payload map[string]any, runResp *RunResponse) (bool, Outcome) {
	event := Classify(eventType, payload)

	switch event.Kind {
	case KindIgnorable:
		return false, Outcome{}

	case KindThought:
		s.acc.addThought(event.Text)
		s.notify(userCtx)
		return false, Outcome{}

	case KindError:
		// Keep the failure in the thought log so the record of what the
		// user saw stays complete.
		s.acc.addThought("Error: " + event.Text)
		s.notify(userCtx)
		return true, s.fail(&ClientError{Type: ErrTypeStream, Message: event.Text}, runResp.SessionID)

	case KindResult:
		s.acc.setResult(event.Text, decodeResponse(event, runResp))
		s.notify(userCtx)
		// A result finalizes immediately rather than waiting for the
		// sentinel; once the only meaningful payload has arrived there is
		// nothing left to wait for, and a backend that omits the sentinel
		// must not hang the session.
		return true, s.finalize(runResp)
	}

	return false, Outcome{}
}

// notify delivers an incremental snapshot unless cancellation was observed.
func (s *Session) notify(userCtx context.Context) {
	if s.onUpdate == nil || userCtx.Err() != nil {
		return
	}
	s.onUpdate(s.acc.snapshot())
}

// =============================================================================
// TERMINAL TRANSITIONS
// =============================================================================

// finalize resolves the session once the stream has ended. A session that
// never produced a result fails rather than completing empty-handed.
func (s *Session) finalize(runResp *RunResponse) Outcome {
	if s.acc.result == "" {
		return s.fail(&ClientError{Type: ErrTypeStream, Message: "stream ended without a result"}, runResp.SessionID)
	}

	s.state = StateCompleted

	resp := s.acc.response
	if resp == nil {
		resp = &ChatResponse{Response: s.acc.result}
	}
	sessionID := resp.SessionID
	if sessionID == "" {
		sessionID = runResp.SessionID
		resp.SessionID = sessionID
	}

	return Outcome{
		Kind:          OutcomeCompleted,
		AssistantText: s.acc.result,
		Thoughts:      nonEmpty(s.acc.thoughts),
		Response:      resp,
		SessionID:     sessionID,
	}
}

// fail resolves the session as Failed with a human-readable error.
func (s *Session) fail(err error, sessionID string) Outcome {
	s.state = StateFailed
	return Outcome{
		Kind:      OutcomeFailed,
		Thoughts:  nonEmpty(s.acc.thoughts),
		SessionID: sessionID,
		Err:       err,
	}
}

// abort resolves the session silently. Buffered state is discarded; by
// contract no completion or error surfaces for an aborted session.
func (s *Session) abort() Outcome {
	s.state = StateAborted
	s.acc = accumulator{}
	return Outcome{Kind: OutcomeAborted, Err: ErrAborted}
}

// terminal maps a pre-stream error to the right terminal outcome.
func (s *Session) terminal(ctx context.Context, err error, sessionID string) Outcome {
	if IsAborted(err) || ctx.Err() != nil {
		return s.abort()
	}
	return s.fail(err, sessionID)
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeResponse builds the structured final response from a result event's
// raw payload.
func decodeResponse(event StreamEvent, runResp *RunResponse) *ChatResponse {
	resp := &ChatResponse{
		Response:  event.Text,
		SessionID: runResp.SessionID,
	}

	raw := event.Raw
	if raw == nil {
		return resp
	}

	// Round-trip the payload fragments we understand through JSON so the
	// decode rules stay in one place (the struct tags).
	if meta, ok := raw["metadata"]; ok {
		if data, err := json.Marshal(meta); err == nil {
			json.Unmarshal(data, &resp.Metadata)
		}
	}
	if d, ok := raw["data"]; ok {
		if data, err := json.Marshal(d); err == nil {
			var claims ClaimsData
			if json.Unmarshal(data, &claims) == nil {
				resp.Data = &claims
			}
		}
	}
	// Top-level claims on legacy completion payloads.
	if cl, ok := raw["claims"]; ok {
		if data, err := json.Marshal(cl); err == nil {
			var claims []string
			if json.Unmarshal(data, &claims) == nil && len(claims) > 0 {
				if resp.Data == nil {
					resp.Data = &ClaimsData{}
				}
				resp.Data.Claims = claims
				if resp.Data.NumClaims == 0 {
					resp.Data.NumClaims = len(claims)
				}
				resp.Metadata.HasClaims = true
				resp.Metadata.ShouldDraftClaims = true
			}
		}
	}
	if sid := stringField(raw, "session_id"); sid != "" {
		resp.SessionID = sid
	}

	return resp
}

// nonEmpty filters blank entries while preserving order.
func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
