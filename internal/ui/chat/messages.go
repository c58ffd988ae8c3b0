// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file defines the Bubble Tea message types used by the chat
// interface. The orchestrator runs outside the Bubble Tea event loop;
// its change callback is bridged into the loop as a StateChangedMsg.
package chat

// StateChangedMsg signals that the orchestrator's conversation or
// transient run state changed and the view should re-read it.
type StateChangedMsg struct{}

// InsertDoneMsg reports the result of inserting an answer into the
// active patent draft.
type InsertDoneMsg struct {
	Err error
}

// ToastClearMsg clears the status toast after its display window.
type ToastClearMsg struct {
	// ID matches the toast that scheduled the clear so a newer toast
	// is not wiped by an older timer.
	ID int
}
