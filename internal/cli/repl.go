// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/jeranaias/patentforge-tui/internal/config"
	"github.com/jeranaias/patentforge-tui/internal/model"
	"github.com/jeranaias/patentforge-tui/internal/orchestrator"
)

// markdownRenderer renders assistant answers for the terminal.
// Nil when the renderer cannot be built; output falls back to raw text.
var markdownRenderer, _ = glamour.NewTermRenderer(
	glamour.WithAutoStyle(),
	glamour.WithWordWrap(80),
)

// =============================================================================
// REPL
// =============================================================================

// REPL is the line-based chat front end with input history.
type REPL struct {
	orch         *orchestrator.Orchestrator
	line         *liner.State
	historyFile  string
	showThoughts bool

	// changes is signalled by the orchestrator whenever run state moves.
	changes chan struct{}
}

// NewREPL creates a REPL bound to the orchestrator. It registers
// itself as the orchestrator's change listener.
func NewREPL(orch *orchestrator.Orchestrator, showThoughts bool) *REPL {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	historyFile := ""
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, "chat_history")
	}

	r := &REPL{
		orch:         orch,
		line:         line,
		historyFile:  historyFile,
		showThoughts: showThoughts,
		changes:      make(chan struct{}, 1),
	}
	r.loadHistory()

	orch.SetOnChange(func() {
		select {
		case r.changes <- struct{}{}:
		default:
		}
	})
	return r
}

// Close flushes input history and restores the terminal.
func (r *REPL) Close() {
	r.saveHistory()
	r.line.Close()
}

func (r *REPL) loadHistory() {
	if r.historyFile == "" {
		return
	}
	if f, err := os.Open(r.historyFile); err == nil {
		r.line.ReadHistory(f)
		f.Close()
	}
}

func (r *REPL) saveHistory() {
	if r.historyFile == "" {
		return
	}
	if f, err := os.Create(r.historyFile); err == nil {
		r.line.WriteHistory(f)
		f.Close()
	}
}

// =============================================================================
// MAIN LOOP
// =============================================================================

// Run reads lines until EOF or /quit. Returns on input errors.
func (r *REPL) Run() error {
	fmt.Println("PatentForge chat. Type /help for commands, /quit to exit.")

	for {
		input, err := r.line.Prompt("> ")
		if err == liner.ErrPromptAborted {
			// Ctrl+C at the prompt cancels any active run, not the REPL.
			r.orch.CancelActive()
			fmt.Println("(cancelled)")
			continue
		}
		if err != nil {
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if r.command(input) {
				return nil
			}
			continue
		}

		r.runTurn(input)
	}
}

// command handles slash commands. Returns true to exit the REPL.
func (r *REPL) command(input string) bool {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit":
		return true
	case "/clear":
		r.orch.ClearConversation()
		fmt.Println("Conversation cleared. /undo restores it for a few seconds.")
	case "/undo":
		if r.orch.Undo() {
			fmt.Println("Conversation restored.")
		} else {
			fmt.Println("Nothing to undo.")
		}
	case "/thoughts":
		r.showThoughts = !r.showThoughts
		fmt.Printf("Reasoning trace %s.\n", onOff(r.showThoughts))
	case "/insert":
		r.insertLastAnswer()
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /clear     clear the conversation")
		fmt.Println("  /undo      restore a cleared conversation")
		fmt.Println("  /thoughts  toggle the agent reasoning trace")
		fmt.Println("  /insert    append the last answer to the patent draft")
		fmt.Println("  /quit      exit")
	default:
		fmt.Printf("Unknown command %q. Try /help.\n", input)
	}
	return false
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// runTurn sends the message and blocks until the run settles, echoing
// reasoning steps and retry notices as they arrive.
func (r *REPL) runTurn(text string) {
	before := len(r.orch.History())

	// Drain any stale change signal from a previous turn.
	select {
	case <-r.changes:
	default:
	}

	r.orch.Send(text)

	printed := 0
	lastStatus := ""
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.changes:
		case <-ticker.C:
		}

		t := r.orch.Transient()

		// A retry restarts the reasoning trace from scratch.
		if printed > len(t.Thoughts) {
			printed = 0
		}
		if r.showThoughts {
			for _, th := range t.Thoughts[printed:] {
				fmt.Println("  . " + th)
			}
		}
		printed = len(t.Thoughts)

		if t.Attempt > 0 && t.Status != lastStatus {
			fmt.Println(t.Status)
		}
		lastStatus = t.Status

		if !t.Active {
			break
		}
	}

	history := r.orch.History()
	if len(history) <= before+1 {
		// Run was cancelled; nothing was committed beyond the user turn.
		return
	}
	last := history[len(history)-1]
	fmt.Println(renderAnswer(last.Content))
	for i, c := range last.Claims {
		fmt.Printf("  %d. %s\n", i+1, c)
	}
}

func (r *REPL) insertLastAnswer() {
	history := r.orch.History()
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role == model.RoleAssistant && !msg.Synthetic {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.orch.InsertIntoDocument(ctx, msg.Content); err != nil {
				fmt.Println("Insert failed:", err)
			} else {
				fmt.Println("Answer inserted into the draft.")
			}
			return
		}
	}
	fmt.Println("No answer to insert yet.")
}

func renderAnswer(text string) string {
	if markdownRenderer == nil {
		return text
	}
	out, err := markdownRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
