// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// This file contains the rendering logic for the chat interface:
// the header, the scrollable conversation log, the live run panel,
// the input line and the status bar.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/patentforge-tui/internal/model"
	"github.com/jeranaias/patentforge-tui/internal/orchestrator"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete chat interface.
// Layout: header (1 line) + conversation viewport + input (1 line) + status (1 line).
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.input.View(),
		m.renderStatusBar(),
	)
}

// refreshContent rebuilds the viewport content from orchestrator state.
// Keeps the view pinned to the bottom unless the user scrolled away.
func (m *Model) refreshContent() {
	atBottom := m.viewport.AtBottom()

	var b strings.Builder
	for i, msg := range m.orch.History() {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderTurn(msg))
		b.WriteString("\n")
	}

	if t := m.orch.Transient(); t.Active {
		b.WriteString("\n")
		b.WriteString(m.renderRunPanel(t))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// renderTurn renders one committed conversation turn.
func (m *Model) renderTurn(msg *model.Message) string {
	switch {
	case msg.Role == model.RoleUser:
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + "\n" +
			m.theme.UserBubble.Width(m.bubbleWidth()).Render(msg.Content)

	case msg.Synthetic:
		return m.theme.AssistantLabel.Render(msg.Role.DisplayName()) + "\n" +
			m.theme.FailureBubble.Width(m.bubbleWidth()).Render(msg.Content)

	default:
		var parts []string
		parts = append(parts, m.theme.AssistantLabel.Render(msg.Role.DisplayName()))
		if section := m.renderThoughts(msg.Thoughts); section != "" {
			parts = append(parts, section)
		}
		parts = append(parts, m.theme.Answer.Render(m.renderMarkdown(msg.Content)))
		if len(msg.Claims) > 0 {
			parts = append(parts, m.renderClaims(msg.Claims))
		}
		return strings.Join(parts, "\n")
	}
}

// renderThoughts renders the reasoning trace for a committed turn.
// Collapsed it is a one-line summary; expanded it lists every step.
func (m *Model) renderThoughts(thoughts []string) string {
	if len(thoughts) == 0 {
		return ""
	}
	if !m.showThoughts {
		label := fmt.Sprintf("+ %d reasoning steps (Ctrl+T to expand)", len(thoughts))
		return m.theme.ThoughtHeader.Render(label)
	}

	var b strings.Builder
	b.WriteString(m.theme.ThoughtHeader.Render("Reasoning:"))
	for _, t := range thoughts {
		b.WriteString("\n")
		b.WriteString(m.theme.ThoughtLine.Render("  . " + t))
	}
	return b.String()
}

// renderClaims renders drafted claims as a numbered block.
func (m *Model) renderClaims(claims []string) string {
	var b strings.Builder
	b.WriteString(m.theme.AssistantLabel.Render("Claims"))
	for i, c := range claims {
		b.WriteString("\n")
		b.WriteString(m.theme.Answer.Render(fmt.Sprintf("%d. %s", i+1, c)))
	}
	return b.String()
}

// =============================================================================
// LIVE RUN PANEL
// =============================================================================

// renderRunPanel renders the in-flight run: spinner, status, the agent
// reasoning seen so far and any partial answer text.
func (m *Model) renderRunPanel(t orchestrator.Transient) string {
	var b strings.Builder

	b.WriteString(m.spin.View())
	b.WriteString(" ")
	if t.Attempt > 0 {
		b.WriteString(m.theme.RetryNote.Render(t.Status))
	} else {
		b.WriteString(m.theme.RunStatus.Render(t.Status))
	}

	for _, th := range t.Thoughts {
		b.WriteString("\n")
		b.WriteString(m.theme.ThoughtLine.Render("  . " + th))
	}

	if t.Partial != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.RunPartial.Render(t.Partial))
	}

	return b.String()
}

// =============================================================================
// CHROME
// =============================================================================

func (m Model) renderHeader() string {
	title := "PatentForge"
	if t := m.orch.ConversationTitle(); t != "" {
		title += "  " + t
	}
	if sid := m.orch.SessionID(); sid != "" {
		title += "  [" + sid + "]"
	}
	title = runewidth.Truncate(title, max(m.width-2, 4), "...")
	return m.theme.Header.Width(m.width).Render(title)
}

func (m Model) renderStatusBar() string {
	// Truncate before styling so escape sequences stay intact.
	style := m.theme.StatusBar
	var text string
	switch {
	case m.toast != "":
		style = m.theme.UndoToast
		text = m.toast
	case m.orch.UndoAvailable():
		style = m.theme.UndoToast
		text = "Cleared. Ctrl+Z restores the conversation."
	default:
		var parts []string
		for _, b := range m.keys.HelpEntries() {
			h := b.Help()
			parts = append(parts, h.Key+" "+h.Desc)
		}
		text = strings.Join(parts, "  |  ")
	}
	text = runewidth.Truncate(text, max(m.width-2, 4), "...")
	return style.Width(m.width).Render(text)
}

func (m Model) bubbleWidth() int {
	w := m.width - 4
	if w < 10 {
		w = 10
	}
	return w
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
