// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/patentforge-tui/internal/model"
	"github.com/jeranaias/patentforge-tui/internal/orchestrator"
)

const toastWindow = 3 * time.Second

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case StateChangedMsg:
		(&m).refreshContent()
		if m.orch.Transient().Active && !m.spinning {
			m.spinning = true
			return m, m.spin.Tick
		}
		return m, nil

	case spinner.TickMsg:
		if !m.orch.Transient().Active {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		(&m).refreshContent()
		return m, cmd

	case InsertDoneMsg:
		if msg.Err != nil {
			return m.setToast("Insert failed: " + msg.Err.Error())
		}
		return m.setToast("Answer inserted into the draft.")

	case ToastClearMsg:
		if msg.ID == m.toastID {
			m.toast = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Everything else (cursor blink etc.) goes to the input.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.orch.CancelActive()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		// Sending while a run is active is allowed; the orchestrator
		// aborts the old run and the new request wins.
		m.orch.Send(text)
		m.input.Reset()
		(&m).refreshContent()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if m.orch.Transient().Active {
			m.orch.CancelActive()
			return m.setToast("Run cancelled.")
		}
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if len(m.orch.History()) == 0 {
			return m, nil
		}
		m.orch.ClearConversation()
		(&m).refreshContent()
		return m.setToast("Conversation cleared. Press Ctrl+Z to undo.")

	case key.Matches(msg, m.keys.Undo):
		if !m.orch.Undo() {
			return m.setToast("Nothing to undo.")
		}
		(&m).refreshContent()
		return m.setToast("Conversation restored.")

	case key.Matches(msg, m.keys.ToggleThoughts):
		m.showThoughts = !m.showThoughts
		(&m).refreshContent()
		return m, nil

	case key.Matches(msg, m.keys.Insert):
		text := m.lastAnswer()
		if text == "" {
			return m.setToast("No answer to insert yet.")
		}
		return m, insertCmd(m.orch, text)

	case key.Matches(msg, m.keys.Up),
		key.Matches(msg, m.keys.Down),
		key.Matches(msg, m.keys.PageUp),
		key.Matches(msg, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// lastAnswer returns the content of the most recent real assistant turn.
func (m Model) lastAnswer() string {
	history := m.orch.History()
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role == model.RoleAssistant && !msg.Synthetic {
			return msg.Content
		}
	}
	return ""
}

// insertCmd appends the answer to the patent draft off the event loop.
func insertCmd(orch *orchestrator.Orchestrator, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return InsertDoneMsg{Err: orch.InsertIntoDocument(ctx, text)}
	}
}

// =============================================================================
// STATE HELPERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height

	// Chrome is fixed height: header, input and status are one line each.
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
	m.input.Width = m.width - 4
	m.markdown = newMarkdownRenderer(m.width - 4)
	m.ready = true

	(&m).refreshContent()
	return m
}

func (m Model) setToast(text string) (tea.Model, tea.Cmd) {
	m.toast = text
	m.toastID++
	id := m.toastID
	return m, tea.Tick(toastWindow, func(time.Time) tea.Msg {
		return ToastClearMsg{ID: id}
	})
}
