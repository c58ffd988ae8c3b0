// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"testing"
)

// =============================================================================
// CLASSIFICATION TESTS
// =============================================================================

func TestClassify_Results(t *testing.T) {
	event := Classify("results", map[string]any{"response": "1. A method comprising..."})

	if event.Kind != KindResult {
		t.Errorf("Kind = %v, want KindResult", event.Kind)
	}
	if event.Text != "1. A method comprising..." {
		t.Errorf("Text = %q", event.Text)
	}
}

func TestClassify_CompleteIsResult(t *testing.T) {
	event := Classify("complete", map[string]any{"response": "done"})
	if event.Kind != KindResult {
		t.Errorf("Kind = %v, want KindResult", event.Kind)
	}
}

func TestClassify_Error(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{"error field", map[string]any{"error": "backend exploded"}, "backend exploded"},
		{"message field", map[string]any{"message": "something failed"}, "something failed"},
		{"no text", map[string]any{}, "An error occurred"},
		{"nil payload", nil, "An error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			event := Classify("error", tc.payload)
			if event.Kind != KindError {
				t.Errorf("Kind = %v, want KindError", event.Kind)
			}
			if event.Text != tc.want {
				t.Errorf("Text = %q, want %q", event.Text, tc.want)
			}
		})
	}
}

func TestClassify_Ignorable(t *testing.T) {
	for _, tag := range []string{"ping", "heartbeat", "done"} {
		event := Classify(tag, nil)
		if event.Kind != KindIgnorable {
			t.Errorf("Classify(%q) kind = %v, want KindIgnorable", tag, event.Kind)
		}
	}
}

func TestClassify_StageTagsAreThoughts(t *testing.T) {
	tests := []struct {
		eventType string
		payload   map[string]any
		wantText  string
		wantStage string
	}{
		{"thoughts", map[string]any{"text": "Analyzing the invention disclosure"}, "Analyzing the invention disclosure", ""},
		{"intent_analysis", nil, "Analyzing your request...", "intent_analysis"},
		{"claims_drafting_start", map[string]any{}, "Starting patent claims drafting...", "claims_drafting_start"},
		{"claims_progress", map[string]any{"message": "Drafting claim 3"}, "Drafting claim 3", "claims_progress"},
		{"prior_art_progress", map[string]any{"stage": "search"}, "Stage: search", "search"},
		{"status", map[string]any{"tool": "prior_art_search"}, "Tool: prior_art_search", "prior_art_search"},
		{"low_confidence", nil, "I need more information to help you effectively.", "low_confidence"},
	}

	for _, tc := range tests {
		t.Run(tc.eventType, func(t *testing.T) {
			event := Classify(tc.eventType, tc.payload)
			if event.Kind != KindThought {
				t.Fatalf("Kind = %v, want KindThought", event.Kind)
			}
			if event.Text != tc.wantText {
				t.Errorf("Text = %q, want %q", event.Text, tc.wantText)
			}
			if event.Stage != tc.wantStage {
				t.Errorf("Stage = %q, want %q", event.Stage, tc.wantStage)
			}
		})
	}
}

func TestClassify_UnknownTagPrefixed(t *testing.T) {
	// Unknown tags must surface as thoughts with the tag name preserved,
	// never be dropped.
	event := Classify("quantum_flux", map[string]any{"text": "recalibrating"})

	if event.Kind != KindThought {
		t.Fatalf("Kind = %v, want KindThought", event.Kind)
	}
	if event.Text != "quantum_flux: recalibrating" {
		t.Errorf("Text = %q, want tag-prefixed text", event.Text)
	}
}

func TestClassify_UnknownTagEmptyPayload(t *testing.T) {
	event := Classify("mystery_event", nil)

	if event.Kind != KindThought {
		t.Fatalf("Kind = %v, want KindThought", event.Kind)
	}
	if event.Text != "mystery_event: Processing..." {
		t.Errorf("Text = %q", event.Text)
	}
}

func TestClassify_Total(t *testing.T) {
	// Every input maps to exactly one kind; no input panics or yields an
	// out-of-range kind.
	inputs := []struct {
		eventType string
		payload   map[string]any
	}{
		{"", nil},
		{"", map[string]any{}},
		{"results", nil},
		{"error", nil},
		{"thoughts", map[string]any{"text": 42}},
		{"claims_progress", map[string]any{"claim_number": "three"}},
		{"anything_at_all", map[string]any{"nested": map[string]any{"x": 1}}},
	}

	for _, in := range inputs {
		event := Classify(in.eventType, in.payload)
		switch event.Kind {
		case KindThought, KindResult, KindError, KindIgnorable:
		default:
			t.Errorf("Classify(%q, %v) kind = %v, out of range", in.eventType, in.payload, event.Kind)
		}
	}
}

func TestClassify_ThoughtTextNeverEmpty(t *testing.T) {
	payloads := []map[string]any{
		nil,
		{},
		{"text": ""},
		{"irrelevant": true},
	}
	tags := []string{"thoughts", "status", "reasoning", "never_seen_before"}

	for _, tag := range tags {
		for _, payload := range payloads {
			event := Classify(tag, payload)
			if event.Kind == KindThought && event.Text == "" {
				t.Errorf("Classify(%q, %v) produced an empty thought", tag, payload)
			}
		}
	}
}

// =============================================================================
// TEXT EXTRACTION TESTS
// =============================================================================

func TestExtractText_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    string
	}{
		{
			name:    "text wins over message",
			payload: map[string]any{"text": "from text", "message": "from message"},
			want:    "from text",
		},
		{
			name:    "message wins over tool",
			payload: map[string]any{"message": "from message", "tool": "search"},
			want:    "from message",
		},
		{
			name:    "tool fallback",
			payload: map[string]any{"tool": "prior_art_search"},
			want:    "Tool: prior_art_search",
		},
		{
			name:    "claim counters",
			payload: map[string]any{"claim_number": float64(2), "total_claims": float64(5)},
			want:    "Claim 2 of 5",
		},
		{
			name:    "num_claims summary",
			payload: map[string]any{"num_claims": float64(4)},
			want:    "Drafted 4 patent claims",
		},
		{
			name:    "patents found",
			payload: map[string]any{"patents_found": float64(12)},
			want:    "Found 12 relevant patents",
		},
		{
			name:    "nothing usable",
			payload: map[string]any{"opaque": true},
			want:    "Processing...",
		},
		{
			name:    "non-string text ignored",
			payload: map[string]any{"text": 7, "message": "fallthrough"},
			want:    "fallthrough",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractText(tc.payload, ""); got != tc.want {
				t.Errorf("extractText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractText_SuppliedFallbackBeatsGeneric(t *testing.T) {
	if got := extractText(nil, "Reviewing claims..."); got != "Reviewing claims..." {
		t.Errorf("extractText() = %q, want supplied fallback", got)
	}
}

func TestIntField_AcceptsBothNumericForms(t *testing.T) {
	// JSON decoding yields float64, tests and local callers may use int.
	if n, ok := intField(map[string]any{"k": float64(3)}, "k"); !ok || n != 3 {
		t.Errorf("intField(float64) = %d, %v", n, ok)
	}
	if n, ok := intField(map[string]any{"k": 3}, "k"); !ok || n != 3 {
		t.Errorf("intField(int) = %d, %v", n, ok)
	}
	if _, ok := intField(map[string]any{"k": "3"}, "k"); ok {
		t.Error("intField should reject strings")
	}
}
