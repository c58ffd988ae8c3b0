// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package styles

import "testing"

func TestNewTheme_Variants(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.DarkBackground {
		t.Error("dark variant should set DarkBackground")
	}

	light := NewTheme("light")
	if light.DarkBackground {
		t.Error("light variant should clear DarkBackground")
	}
}

func TestNewTheme_StylesRender(t *testing.T) {
	th := NewTheme("dark")

	// Styles should produce non-empty output for non-empty input.
	for name, out := range map[string]string{
		"Header":        th.Header.Render("patentforge"),
		"UserBubble":    th.UserBubble.Render("hello"),
		"FailureBubble": th.FailureBubble.Render("boom"),
		"UndoToast":     th.UndoToast.Render("undo"),
	} {
		if out == "" {
			t.Errorf("%s rendered empty string", name)
		}
	}
}
