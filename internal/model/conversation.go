// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jeranaias/patentforge-tui/internal/api"
)

// MaxMessages is the maximum number of messages to keep in conversation
// history. When exceeded, old messages are pruned to prevent unbounded
// memory growth.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered log of finalized turns plus the backend
// session correlation handle. Insertion order is the only ordering
// guarantee: no deduplication, no reordering, and messages are immutable
// once appended.
//
// Conversation is not internally synchronized; the orchestrator serializes
// all mutations.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages
	Messages []*Message `json:"messages"`

	// SessionID is the opaque backend-assigned correlation handle.
	// Last-write-wins; cleared with the log.
	SessionID string `json:"session_id,omitempty"`
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        generateConversationID(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append inserts a message at the end of the ordered log.
func (c *Conversation) Append(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldMessages()
}

// AppendUserMessage creates and appends a user message.
func (c *Conversation) AppendUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.Append(msg)
	return msg
}

// AppendAssistantMessage creates and appends a finalized assistant message.
func (c *Conversation) AppendAssistantMessage(content string, thoughts []string) *Message {
	msg := NewAssistantMessage(content, thoughts)
	c.Append(msg)
	return msg
}

// History returns the full ordered log. The returned slice is shared;
// callers must not mutate it.
func (c *Conversation) History() []*Message {
	return c.Messages
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// GetLastUserMessage returns the most recent user message.
func (c *Conversation) GetLastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i]
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// SESSION CORRELATION
// =============================================================================

// SetSessionID records the backend session handle. Last-write-wins.
func (c *Conversation) SetSessionID(id string) {
	c.SessionID = id
}

// CurrentSessionID returns the backend session handle, or "" when none.
func (c *Conversation) CurrentSessionID() string {
	return c.SessionID
}

// =============================================================================
// CLEAR / RESTORE
// =============================================================================

// Clear empties the log and the session id. The caller snapshots first if
// undo is wanted; the conversation holds no undo state of its own.
func (c *Conversation) Clear() {
	c.Messages = make([]*Message, 0)
	c.SessionID = ""
	c.Title = ""
	c.UpdatedAt = time.Now()
}

// Restore appends each turn in the given order and adopts the session id
// if present. Restoring after further turns were appended adds to the log
// rather than replacing it, so an undo can never lose newer messages.
func (c *Conversation) Restore(turns []*Message, sessionID string) {
	for _, turn := range turns {
		c.Append(turn)
	}
	if sessionID != "" {
		c.SessionID = sessionID
	}
}

// Snapshot returns a deep copy of the log and the session id, suitable for
// an undo buffer.
func (c *Conversation) Snapshot() ([]*Message, string) {
	turns := make([]*Message, len(c.Messages))
	for i, msg := range c.Messages {
		turns[i] = msg.Clone()
	}
	return turns, c.SessionID
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// ToChatHistory converts the log to the backend's history format for the
// next outbound request.
func (c *Conversation) ToChatHistory() []api.ChatMessage {
	history := make([]api.ChatMessage, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if msg.Content == "" {
			continue
		}
		history = append(history, api.ChatMessage{
			Role:      msg.Role.String(),
			Content:   msg.Content,
			Timestamp: msg.Timestamp.Format(time.RFC3339),
			Thoughts:  msg.Thoughts,
		})
	}
	return history
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// Preview returns a short preview of the conversation.
func (c *Conversation) Preview() string {
	if len(c.Messages) == 0 {
		return "Empty conversation"
	}
	first := c.GetLastUserMessage()
	if first == nil {
		first = c.Messages[0]
	}
	return first.Preview(100)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}

// pruneOldMessages removes old messages when the log exceeds MaxMessages,
// keeping the most recent entries.
func (c *Conversation) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}
	start := len(c.Messages) - MaxMessages
	c.Messages = append([]*Message(nil), c.Messages[start:]...)
}
