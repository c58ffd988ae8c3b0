// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/patentforge-tui/internal/api"
	"github.com/jeranaias/patentforge-tui/internal/document"
	"github.com/jeranaias/patentforge-tui/internal/model"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds orchestrator tuning knobs.
type Config struct {
	// MaxRetries is how many times a failed send is retried before a
	// failure turn is recorded (default: 3).
	MaxRetries int

	// RetryDelay is the pause between retries (default: 1s).
	RetryDelay time.Duration

	// UndoWindow is how long a cleared conversation stays restorable
	// (default: 5s).
	UndoWindow time.Duration

	// DocumentTimeout bounds the best-effort draft read before a send
	// (default: 2s).
	DocumentTimeout time.Duration

	// Debug enables logging of swallowed best-effort failures.
	Debug bool
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		RetryDelay:      time.Second,
		UndoWindow:      5 * time.Second,
		DocumentTimeout: 2 * time.Second,
	}
}

// =============================================================================
// TRANSIENT STATE
// =============================================================================

// Transient is the live view of an in-flight send: the thought list and
// partial answer as they stream, plus a status line. It never touches the
// conversation; the store only changes on terminal outcomes.
type Transient struct {
	// Active is true while a send is in flight.
	Active bool

	// Thoughts is the live reasoning trail, arrival order.
	Thoughts []string

	// Partial is the latest result text, replaced (never appended) as
	// result events arrive.
	Partial string

	// Status is a short human-readable state line.
	Status string

	// Attempt is the current retry number, 0 on the first try.
	Attempt int
}

// Archiver persists finalized conversations. Best-effort; failures never
// block the chat flow.
type Archiver interface {
	SaveConversation(conv *model.Conversation) error
}

// undoSlot is the single-slot buffer holding the last cleared conversation.
type undoSlot struct {
	turns     []*model.Message
	sessionID string
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator owns the conversation and coordinates everything around one
// send: snapshotting the draft document, running the stream session,
// mirroring incremental updates, retrying failures, and committing exactly
// one turn per terminal outcome. Starting a new send cancels any in-flight
// one; the superseded session resolves silently.
type Orchestrator struct {
	mu sync.Mutex

	runner    Runner
	config    Config
	conv      *model.Conversation
	docHost   document.Host
	archiver  Archiver
	cancelMgr *cancelManager

	// generation tags the active send; callbacks from superseded sends
	// carry a stale generation and are dropped.
	generation int
	transient  Transient

	undo      *undoSlot
	undoTimer *time.Timer

	onChange func()
}

// New creates an orchestrator around a fresh conversation.
func New(runner Runner, cfg Config) *Orchestrator {
	def := DefaultConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.UndoWindow == 0 {
		cfg.UndoWindow = def.UndoWindow
	}
	if cfg.DocumentTimeout == 0 {
		cfg.DocumentTimeout = def.DocumentTimeout
	}

	return &Orchestrator{
		runner:    runner,
		config:    cfg,
		conv:      model.NewConversation(),
		docHost:   document.NopHost{},
		cancelMgr: newCancelManager(),
	}
}

// SetDocumentHost replaces the draft document host.
func (o *Orchestrator) SetDocumentHost(h document.Host) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if h == nil {
		h = document.NopHost{}
	}
	o.docHost = h
}

// SetArchiver installs the conversation archive sink.
func (o *Orchestrator) SetArchiver(a Archiver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.archiver = a
}

// SetOnChange installs the change callback. Called after every observable
// state change, outside the orchestrator's lock, from whichever goroutine
// made the change.
func (o *Orchestrator) SetOnChange(fn func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onChange = fn
}

// =============================================================================
// SENDING
// =============================================================================

// Send submits a user message. The user turn is committed to the
// conversation synchronously before Send returns; the network work runs in
// the background. An in-flight send is cancelled first (last-request-wins).
// Blank input is ignored.
func (o *Orchestrator) Send(userText string) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return
	}

	o.mu.Lock()
	// History as the backend sees it: everything before this message.
	history := o.conv.ToChatHistory()
	o.conv.AppendUserMessage(userText)
	sessionID := o.conv.CurrentSessionID()
	docHost := o.docHost
	o.generation++
	gen := o.generation
	o.transient = Transient{Active: true, Status: "Sending..."}
	o.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	o.cancelMgr.set(cancel)
	o.notify()

	go o.deliver(ctx, gen, userText, history, sessionID, docHost)
}

// deliver runs the send lifecycle for one user message: draft snapshot,
// stream session, bounded retry, terminal commit.
func (o *Orchestrator) deliver(ctx context.Context, gen int, userText string, history []api.ChatMessage, sessionID string, docHost document.Host) {
	request := api.ChatRequest{
		UserMessage:         userText,
		ConversationHistory: history,
		SessionID:           sessionID,
		// One idempotency key for the whole send; retries reuse it.
		ClientRequestID: uuid.NewString(),
	}

	// Best-effort draft snapshot. A missing or unreadable document never
	// blocks the message.
	docCtx, docCancel := context.WithTimeout(ctx, o.config.DocumentTimeout)
	content, err := docHost.Content(docCtx)
	docCancel()
	if err == nil {
		request.DocumentContent = content
	} else if o.config.Debug {
		log.Printf("orchestrator: draft snapshot skipped: %v", err)
	}

	for attempt := 0; ; attempt++ {
		outcome := o.runner.Run(ctx, request, func(u api.Update) {
			o.applyUpdate(gen, u)
		})

		switch outcome.Kind {
		case api.OutcomeAborted:
			// Superseded or cancelled: silent by contract.
			return

		case api.OutcomeCompleted:
			o.complete(gen, outcome)
			return

		case api.OutcomeFailed:
			if attempt >= o.config.MaxRetries {
				o.exhausted(gen, outcome)
				return
			}
			o.setRetrying(gen, attempt+1)
			select {
			case <-ctx.Done():
				return
			case <-time.After(o.config.RetryDelay):
			}
		}
	}
}

// applyUpdate mirrors an incremental session update into transient state.
func (o *Orchestrator) applyUpdate(gen int, u api.Update) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	o.transient.Thoughts = u.Thoughts
	o.transient.Partial = u.Partial
	o.transient.Status = "Streaming..."
	o.mu.Unlock()
	o.notify()
}

// complete commits the assistant turn for a completed send.
func (o *Orchestrator) complete(gen int, outcome api.Outcome) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}

	msg := model.NewAssistantMessage(outcome.AssistantText, outcome.Thoughts)
	if outcome.Response != nil && outcome.Response.Data != nil {
		msg.Claims = outcome.Response.Data.Claims
	}
	o.conv.Append(msg)
	if outcome.SessionID != "" {
		o.conv.SetSessionID(outcome.SessionID)
	}
	o.transient = Transient{}

	archiver := o.archiver
	archive := o.archiveCopyLocked()
	o.mu.Unlock()
	o.notify()

	if archiver != nil {
		if err := archiver.SaveConversation(archive); err != nil && o.config.Debug {
			log.Printf("orchestrator: archive save failed: %v", err)
		}
	}
}

// setRetrying surfaces a retry in the transient status.
func (o *Orchestrator) setRetrying(gen, attempt int) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	o.transient.Attempt = attempt
	o.transient.Status = fmt.Sprintf("Request failed, retrying (%d/%d)...", attempt, o.config.MaxRetries)
	o.mu.Unlock()
	o.notify()
}

// exhausted records a synthetic failure turn once retries are spent.
func (o *Orchestrator) exhausted(gen int, outcome api.Outcome) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}

	text := "Something went wrong while processing your request. Please try again."
	if outcome.Err != nil {
		text = fmt.Sprintf("%s (%v)", text, outcome.Err)
	}
	o.conv.Append(model.NewFailureMessage(text))
	o.transient = Transient{}
	o.mu.Unlock()
	o.notify()
}

// CancelActive cancels the in-flight send, if any. Idempotent; the
// cancelled session resolves silently and no turn is committed.
func (o *Orchestrator) CancelActive() {
	o.mu.Lock()
	o.generation++
	o.transient = Transient{}
	o.mu.Unlock()

	o.cancelMgr.cancel()
	o.notify()
}

// =============================================================================
// CLEAR / UNDO
// =============================================================================

// ClearConversation snapshots the conversation into the undo slot, cancels
// any active send, and empties the store. The snapshot stays restorable for
// the undo window; a second clear overwrites the slot and restarts the
// window.
func (o *Orchestrator) ClearConversation() {
	o.mu.Lock()
	turns, sessionID := o.conv.Snapshot()
	o.conv.Clear()
	o.generation++
	o.transient = Transient{}

	o.undo = &undoSlot{turns: turns, sessionID: sessionID}
	if o.undoTimer != nil {
		o.undoTimer.Stop()
	}
	o.undoTimer = time.AfterFunc(o.config.UndoWindow, o.expireUndo)
	o.mu.Unlock()

	o.cancelMgr.cancel()
	o.notify()
}

// Undo restores the last cleared conversation if the window is still open.
// Restored turns append after anything sent since the clear. Returns whether
// a restore happened.
func (o *Orchestrator) Undo() bool {
	o.mu.Lock()
	slot := o.undo
	if slot == nil {
		o.mu.Unlock()
		return false
	}
	o.undo = nil
	if o.undoTimer != nil {
		o.undoTimer.Stop()
		o.undoTimer = nil
	}
	o.conv.Restore(slot.turns, slot.sessionID)
	o.mu.Unlock()
	o.notify()
	return true
}

// UndoAvailable reports whether an undo window is currently open.
func (o *Orchestrator) UndoAvailable() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.undo != nil
}

// expireUndo drops the undo slot when the window closes. Expiry racing a
// completed Undo is a no-op.
func (o *Orchestrator) expireUndo() {
	o.mu.Lock()
	if o.undo == nil {
		o.mu.Unlock()
		return
	}
	o.undo = nil
	o.undoTimer = nil
	o.mu.Unlock()
	o.notify()
}

// =============================================================================
// DOCUMENT ACTIONS
// =============================================================================

// InsertIntoDocument writes text into the working draft.
func (o *Orchestrator) InsertIntoDocument(ctx context.Context, text string) error {
	o.mu.Lock()
	host := o.docHost
	o.mu.Unlock()
	return host.Insert(ctx, text)
}

// =============================================================================
// OBSERVATION
// =============================================================================

// History returns a deep copy of the committed turns.
func (o *Orchestrator) History() []*model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	turns, _ := o.conv.Snapshot()
	return turns
}

// Transient returns a copy of the live in-flight state.
func (o *Orchestrator) Transient() Transient {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.transient
	if t.Thoughts != nil {
		t.Thoughts = append([]string(nil), t.Thoughts...)
	}
	return t
}

// SessionID returns the backend session handle, "" before the first
// completed exchange.
func (o *Orchestrator) SessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conv.CurrentSessionID()
}

// ConversationTitle returns the display title for the current conversation.
func (o *Orchestrator) ConversationTitle() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conv.GetTitle()
}

// archiveCopyLocked builds a detached copy of the conversation for the
// archive sink. Caller holds o.mu.
func (o *Orchestrator) archiveCopyLocked() *model.Conversation {
	turns, sessionID := o.conv.Snapshot()
	return &model.Conversation{
		ID:        o.conv.ID,
		Title:     o.conv.Title,
		CreatedAt: o.conv.CreatedAt,
		UpdatedAt: o.conv.UpdatedAt,
		Messages:  turns,
		SessionID: sessionID,
	}
}

// notify fires the change callback, if any. Never called with o.mu held.
func (o *Orchestrator) notify() {
	o.mu.Lock()
	fn := o.onChange
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}
