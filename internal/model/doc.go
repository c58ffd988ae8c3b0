// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing drafting conversations and their finalized turns.
//
// # Key Types
//
//   - Conversation: Ordered log of turns plus the backend session handle
//   - Message: Single finalized turn with role, content, and agent thoughts
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Create a new conversation and append turns:
//
//	conv := model.NewConversation()
//	conv.AppendUserMessage("Draft claims for a widget.")
//	conv.AppendAssistantMessage("1. A widget comprising...", thoughts)
//
// Snapshot and restore around a destructive clear:
//
//	turns, sessionID := conv.Snapshot()
//	conv.Clear()
//	conv.Restore(turns, sessionID)
package model
