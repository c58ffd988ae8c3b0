// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single finalized turn in a conversation. Messages
// are immutable once appended to a Conversation; identity is position in
// the ordered log.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Content string `json:"content"`

	// Thoughts is the ordered agent reasoning log recorded while this
	// assistant turn was generated. Omitted when the run surfaced none.
	Thoughts []string `json:"thoughts,omitempty"`

	// Claims carries structured claim output attached to an assistant
	// turn, when the run drafted claims.
	Claims []string `json:"claims,omitempty"`

	// Synthetic marks an assistant turn the client fabricated to record a
	// failure, as opposed to backend output.
	Synthetic bool `json:"synthetic,omitempty"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates a finalized assistant message with its
// recorded thought log. An empty thoughts slice is dropped.
func NewAssistantMessage(content string, thoughts []string) *Message {
	msg := NewMessage(RoleAssistant, content)
	if len(thoughts) > 0 {
		msg.Thoughts = append([]string(nil), thoughts...)
	}
	return msg
}

// NewFailureMessage creates a synthetic assistant message recording a
// failure the user experienced.
func NewFailureMessage(content string) *Message {
	msg := NewMessage(RoleAssistant, content)
	msg.Synthetic = true
	return msg
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Preview returns a truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxLen {
		return m.Content
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0
}

// ThoughtCount returns the number of recorded reasoning steps.
func (m *Message) ThoughtCount() int {
	return len(m.Thoughts)
}

// Clone returns a copy safe to hand across package boundaries.
func (m *Message) Clone() *Message {
	dup := *m
	if m.Thoughts != nil {
		dup.Thoughts = append([]string(nil), m.Thoughts...)
	}
	if m.Claims != nil {
		dup.Claims = append([]string(nil), m.Claims...)
	}
	return &dup
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
