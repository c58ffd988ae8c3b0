// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the patent drafting agent backend.
package api

import "strconv"

// =============================================================================
// EVENT CLASSIFICATION
// =============================================================================

// The backend settled on a two-category scheme: everything is either a
// final "results" block or a "thought" (progress, reasoning, tool chatter),
// plus explicit "error". Older backend revisions emitted a richer set of
// stage events; those all map to thought, with the stage kept as metadata.

// fallbackThoughtText is emitted when no payload field yields display text.
const fallbackThoughtText = "Processing..."

// stageTags maps the historical stage event taxonomy to thought
// classification. The value is the default text when the payload carries
// none of its own.
var stageTags = map[string]string{
	"intent_analysis":       "Analyzing your request...",
	"intent_classified":     "Intent classified",
	"claims_drafting_start": "Starting patent claims drafting...",
	"claims_progress":       "Processing claims...",
	"claim_generated":       "Generated a claim",
	"claims_complete":       "Patent claims completed",
	"prior_art_start":       "Starting prior art search...",
	"prior_art_progress":    "Processing prior art...",
	"prior_art_complete":    "Prior art search completed",
	"review_start":          "Starting patent claim review...",
	"review_progress":       "Reviewing claims...",
	"review_complete":       "Claim review completed",
	"processing":            "Processing your request...",
	"status":                "Processing...",
	"reasoning":             "Analyzing...",
	"search_progress":       "Searching...",
	"report_progress":       "Generating report...",
	"low_confidence":        "I need more information to help you effectively.",
	"thoughts":              "",
}

// ignorableTags carry nothing displayable. "done" is the legacy
// end-of-stream marker; the session framing layer handles it before
// classification, this entry only keeps Classify total.
var ignorableTags = map[string]bool{
	"ping":      true,
	"heartbeat": true,
	"done":      true,
}

// Classify maps a raw (eventType, payload) pair to a semantic stream event.
// It is total: every input maps to exactly one kind, and unknown tags become
// thoughts rather than vanishing. Pure function, no state.
func Classify(eventType string, payload map[string]any) StreamEvent {
	if ignorableTags[eventType] {
		return StreamEvent{Kind: KindIgnorable, Raw: payload}
	}

	switch eventType {
	case "results", "complete":
		text := stringField(payload, "response")
		if text == "" {
			text = extractText(payload, "")
		}
		return StreamEvent{Kind: KindResult, Text: text, Raw: payload}

	case "error":
		text := stringField(payload, "error")
		if text == "" {
			text = stringField(payload, "message")
		}
		if text == "" {
			text = "An error occurred"
		}
		return StreamEvent{Kind: KindError, Text: text, Raw: payload}
	}

	if fallback, known := stageTags[eventType]; known {
		return StreamEvent{
			Kind:  KindThought,
			Text:  extractText(payload, fallback),
			Stage: stageName(eventType, payload),
			Raw:   payload,
		}
	}

	// Unknown tag: surface it as a thought, prefixed so the event type is
	// never silently lost.
	return StreamEvent{
		Kind: KindThought,
		Text: eventType + ": " + extractText(payload, ""),
		Raw:  payload,
	}
}

// extractText resolves display text from a payload using a fixed precedence:
// explicit text/message fields first, then a semantic fallback built from
// structured fields, then the supplied default, then a generic placeholder.
// Never returns an empty string.
func extractText(payload map[string]any, fallback string) string {
	if t := stringField(payload, "text"); t != "" {
		return t
	}
	if t := stringField(payload, "message"); t != "" {
		return t
	}
	if t := stringField(payload, "response"); t != "" {
		return t
	}
	if t := semanticFallback(payload); t != "" {
		return t
	}
	if fallback != "" {
		return fallback
	}
	return fallbackThoughtText
}

// semanticFallback builds display text from structured payload fields when
// no explicit text field is present.
func semanticFallback(payload map[string]any) string {
	if tool := stringField(payload, "tool"); tool != "" {
		return "Tool: " + tool
	}
	if stage := stringField(payload, "stage"); stage != "" {
		return "Stage: " + stage
	}
	if step := stringField(payload, "step"); step != "" {
		return "Stage: " + step
	}
	if n, total, ok := claimProgress(payload); ok {
		return "Claim " + strconv.Itoa(n) + " of " + strconv.Itoa(total)
	}
	if n, ok := intField(payload, "num_claims"); ok && n > 0 {
		return "Drafted " + strconv.Itoa(n) + " patent claims"
	}
	if n, ok := intField(payload, "patents_found"); ok && n > 0 {
		return "Found " + strconv.Itoa(n) + " relevant patents"
	}
	return ""
}

// stageName extracts the enrichment stage for a thought event. The payload's
// own stage/step field wins over the event tag.
func stageName(eventType string, payload map[string]any) string {
	if s := stringField(payload, "stage"); s != "" {
		return s
	}
	if s := stringField(payload, "step"); s != "" {
		return s
	}
	if s := stringField(payload, "tool"); s != "" {
		return s
	}
	if eventType == "thoughts" {
		return ""
	}
	return eventType
}

// claimProgress reads claim_number/total_claims counters if both are present.
func claimProgress(payload map[string]any) (n, total int, ok bool) {
	n, okN := intField(payload, "claim_number")
	total, okT := intField(payload, "total_claims")
	return n, total, okN && okT && n > 0 && total > 0
}

// stringField returns a payload field as a string, or "" when absent or not
// a string.
func stringField(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// intField returns a payload field as an int. JSON numbers decode as
// float64, so both representations are accepted.
func intField(payload map[string]any, key string) (int, bool) {
	if payload == nil {
		return 0, false
	}
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
