// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// THEME DEFINITION
// =============================================================================

// Theme holds every pre-built style used by the chat interface.
// Styles are constructed once at startup so rendering never allocates them.
type Theme struct {
	// Terminal capabilities
	Profile        termenv.Profile
	DarkBackground bool

	// Chrome
	Header    lipgloss.Style
	StatusBar lipgloss.Style
	HelpLine  lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantLabel lipgloss.Style
	Answer         lipgloss.Style
	FailureBubble  lipgloss.Style

	// Reasoning traces
	ThoughtHeader lipgloss.Style
	ThoughtLine   lipgloss.Style

	// Live run panel
	RunStatus  lipgloss.Style
	RunPartial lipgloss.Style
	RetryNote  lipgloss.Style

	// Transient chrome
	ErrorBanner lipgloss.Style
	UndoToast   lipgloss.Style

	// Input
	Prompt      lipgloss.Style
	Placeholder lipgloss.Style
}

// NewTheme builds a theme for the requested variant.
// The variant is "dark" or "light"; anything else falls back to
// querying the terminal background via termenv.
func NewTheme(variant string) *Theme {
	t := &Theme{
		Profile: termenv.ColorProfile(),
	}

	switch variant {
	case "dark":
		t.DarkBackground = true
	case "light":
		t.DarkBackground = false
	default:
		t.DarkBackground = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(t.DarkBackground)

	t.initStyles()
	return t
}

// initStyles builds all the lipgloss styles. Separated from NewTheme
// so tests can rebuild styles after flipping the background flag.
func (t *Theme) initStyles() {
	// ===== CHROME =====
	t.Header = lipgloss.NewStyle().
		Foreground(Indigo).
		Background(SurfaceDim).
		Bold(true).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.HelpLine = lipgloss.NewStyle().
		Foreground(TextMuted)

	// ===== MESSAGES =====
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Indigo).
		Bold(true)

	t.Answer = lipgloss.NewStyle().
		Foreground(TextPrimary)

	t.FailureBubble = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Foreground(Rose).
		Padding(0, 1)

	// ===== REASONING TRACES =====
	t.ThoughtHeader = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.ThoughtLine = lipgloss.NewStyle().
		Foreground(TextMuted)

	// ===== LIVE RUN PANEL =====
	t.RunStatus = lipgloss.NewStyle().
		Foreground(Emerald)

	t.RunPartial = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.RetryNote = lipgloss.NewStyle().
		Foreground(Amber)

	// ===== TRANSIENT CHROME =====
	t.ErrorBanner = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true).
		Padding(0, 1)

	t.UndoToast = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true).
		Padding(0, 1)

	// ===== INPUT =====
	t.Prompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.Placeholder = lipgloss.NewStyle().
		Foreground(TextMuted)
}
