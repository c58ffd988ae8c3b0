// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The model is a thin projection of the orchestrator: all conversation
// and run state lives in the orchestrator, and the view re-reads it
// whenever a StateChangedMsg arrives. Key presses translate directly
// into orchestrator calls.
package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/patentforge-tui/internal/orchestrator"
	"github.com/jeranaias/patentforge-tui/internal/ui/styles"
)

// =============================================================================
// MODEL DEFINITION
// =============================================================================

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	orch  *orchestrator.Orchestrator
	theme *styles.Theme
	keys  KeyMap

	width  int
	height int
	ready  bool

	viewport viewport.Model
	input    textinput.Model
	spin     spinner.Model
	spinning bool

	markdown *glamour.TermRenderer

	showThoughts bool
	toast        string
	toastID      int
	quitting     bool
}

// New creates a chat model bound to the orchestrator.
func New(orch *orchestrator.Orchestrator, theme *styles.Theme, showThoughts bool) Model {
	input := textinput.New()
	input.Placeholder = "Describe your invention or ask about claims..."
	input.Prompt = "> "
	input.PromptStyle = theme.Prompt
	input.PlaceholderStyle = theme.Placeholder
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.RunStatus

	return Model{
		orch:         orch,
		theme:        theme,
		keys:         DefaultKeyMap(),
		viewport:     viewport.New(0, 0),
		input:        input,
		spin:         sp,
		showThoughts: showThoughts,
	}
}

// Init starts the cursor blink.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}
