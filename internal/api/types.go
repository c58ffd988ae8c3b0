// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the patent drafting agent backend.
package api

import "time"

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatMessage represents one turn of conversation history sent to the backend.
type ChatMessage struct {
	Role      string   `json:"role"`                // "user" or "assistant"
	Content   string   `json:"content"`             // The message content
	Timestamp string   `json:"timestamp,omitempty"` // RFC 3339
	Thoughts  []string `json:"thoughts,omitempty"`  // Agent reasoning steps, assistant turns only
}

// DocumentContent carries the working document snapshot included with a request.
// All fields are best-effort; an empty document is valid.
type DocumentContent struct {
	Text       string   `json:"text"`
	Paragraphs []string `json:"paragraphs,omitempty"`
	Selection  string   `json:"selection,omitempty"`
}

// ChatRequest is the request body for the run registration endpoint.
type ChatRequest struct {
	UserMessage         string          `json:"user_message"`
	ConversationHistory []ChatMessage   `json:"conversation_history"`
	DocumentContent     DocumentContent `json:"document_content"`
	SessionID           string          `json:"session_id,omitempty"`
	ClientRequestID     string          `json:"client_request_id,omitempty"` // Idempotency key
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RunResponse is returned by run registration and correlates the stream.
type RunResponse struct {
	RunID     string `json:"run_id"`
	SessionID string `json:"session_id"`
}

// ChatResponse is the finalized answer assembled from a result event.
type ChatResponse struct {
	Response  string      `json:"response"`
	Metadata  RunMetadata `json:"metadata"`
	Data      *ClaimsData `json:"data,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
}

// RunMetadata describes how the backend handled the request.
type RunMetadata struct {
	ShouldDraftClaims bool   `json:"should_draft_claims"`
	HasClaims         bool   `json:"has_claims"`
	Reasoning         string `json:"reasoning"`
}

// ClaimsData carries structured claim output when the run drafted claims.
type ClaimsData struct {
	Claims         []string        `json:"claims,omitempty"`
	NumClaims      int             `json:"num_claims,omitempty"`
	ReviewComments []ReviewComment `json:"review_comments,omitempty"`
}

// ReviewComment is one issue raised by a claim review run.
type ReviewComment struct {
	Comment  string `json:"comment"`
	Severity string `json:"severity"`
}

// serverError is the error body some non-2xx responses carry.
type serverError struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// =============================================================================
// STREAM EVENT TYPES
// =============================================================================

// EventKind is the semantic category of a classified stream event.
type EventKind int

const (
	// KindThought is intermediate progress or reasoning.
	KindThought EventKind = iota
	// KindResult is the final user-facing answer for the run.
	KindResult
	// KindError is a backend-reported failure, fatal to the session.
	KindError
	// KindIgnorable carries nothing displayable (keepalives and the like).
	KindIgnorable
)

// String returns the kind name for logs and tests.
func (k EventKind) String() string {
	switch k {
	case KindThought:
		return "thought"
	case KindResult:
		return "result"
	case KindError:
		return "error"
	case KindIgnorable:
		return "ignorable"
	default:
		return "unknown"
	}
}

// StreamEvent is one classified event from the wire. Transient: it exists
// only inside a single session's lifetime and is never persisted.
type StreamEvent struct {
	Kind EventKind
	// Text is the display text. Non-empty for thought/result/error.
	Text string
	// Stage is enrichment metadata from the richer historical event
	// taxonomy (a pipeline stage or tool name). Thought events only.
	Stage string
	// Raw is the decoded payload, kept for caller-specific enrichment
	// such as claim counts on a result event.
	Raw map[string]any
}

// =============================================================================
// OUTCOME TYPES
// =============================================================================

// OutcomeKind is the terminal state of a stream session.
type OutcomeKind int

const (
	// OutcomeCompleted means a result was produced.
	OutcomeCompleted OutcomeKind = iota
	// OutcomeFailed means the session ended in error; Err is set.
	OutcomeFailed
	// OutcomeAborted means the session was cancelled; silent by contract.
	OutcomeAborted
)

// String returns the outcome name for logs and tests.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Outcome is the single terminal result a session resolves to.
type Outcome struct {
	Kind OutcomeKind

	// Completed fields
	AssistantText string
	Thoughts      []string // Arrival order, non-empty entries only
	Response      *ChatResponse
	SessionID     string

	// Failed field
	Err error

	// Timing
	StartedAt time.Time
	EndedAt   time.Time
}
