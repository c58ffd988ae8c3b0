// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"testing"
	"time"

	"github.com/jeranaias/patentforge-tui/internal/api"
	"github.com/jeranaias/patentforge-tui/internal/orchestrator"
)

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, req api.ChatRequest, onUpdate api.UpdateFunc) api.Outcome {
	return api.Outcome{Kind: api.OutcomeCompleted, AssistantText: "done"}
}

func newTestREPL(t *testing.T) *REPL {
	t.Helper()
	orch := orchestrator.New(stubRunner{}, orchestrator.Config{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		UndoWindow: time.Minute,
	})
	return &REPL{
		orch:    orch,
		changes: make(chan struct{}, 1),
	}
}

func TestCommand_QuitExits(t *testing.T) {
	r := newTestREPL(t)
	for _, cmd := range []string{"/quit", "/exit", "/QUIT"} {
		if !r.command(cmd) {
			t.Errorf("command(%q) should exit", cmd)
		}
	}
	if r.command("/help") {
		t.Error("command(/help) should not exit")
	}
	if r.command("/bogus") {
		t.Error("unknown command should not exit")
	}
}

func TestCommand_ThoughtsToggle(t *testing.T) {
	r := newTestREPL(t)
	r.command("/thoughts")
	if !r.showThoughts {
		t.Error("first /thoughts should enable the trace")
	}
	r.command("/thoughts")
	if r.showThoughts {
		t.Error("second /thoughts should disable the trace")
	}
}

func TestCommand_ClearAndUndo(t *testing.T) {
	r := newTestREPL(t)
	r.orch.SetOnChange(func() {
		select {
		case r.changes <- struct{}{}:
		default:
		}
	})
	r.runTurn("draft a claim for a widget")

	if len(r.orch.History()) != 2 {
		t.Fatalf("history length = %d, want 2", len(r.orch.History()))
	}

	r.command("/clear")
	if len(r.orch.History()) != 0 {
		t.Fatal("clear left turns behind")
	}
	r.command("/undo")
	if len(r.orch.History()) != 2 {
		t.Fatal("undo did not restore the conversation")
	}
}

func TestRenderAnswer_FallsBackToRawText(t *testing.T) {
	if got := renderAnswer("plain answer"); got == "" {
		t.Error("renderAnswer returned empty string")
	}
}

func TestOnOff(t *testing.T) {
	if onOff(true) != "on" || onOff(false) != "off" {
		t.Error("onOff mapping wrong")
	}
}
