// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"time"

	"github.com/jeranaias/patentforge-tui/internal/api"
)

// =============================================================================
// SESSION RUNNER
// =============================================================================

// Runner executes one streaming run and resolves to its terminal outcome.
// The orchestrator depends on this rather than on the api package's session
// directly so tests can drive it with a scripted backend.
type Runner interface {
	Run(ctx context.Context, request api.ChatRequest, onUpdate api.UpdateFunc) api.Outcome
}

// sessionRunner is the production Runner: one single-use api.Session per run.
type sessionRunner struct {
	client      *api.Client
	idleTimeout time.Duration
	debug       bool
}

// NewSessionRunner creates a Runner backed by the given client. idleTimeout
// zero disables the stream idle watchdog.
func NewSessionRunner(client *api.Client, idleTimeout time.Duration, debug bool) Runner {
	return &sessionRunner{client: client, idleTimeout: idleTimeout, debug: debug}
}

func (r *sessionRunner) Run(ctx context.Context, request api.ChatRequest, onUpdate api.UpdateFunc) api.Outcome {
	session := api.NewSession(r.client, onUpdate)
	session.IdleTimeout = r.idleTimeout
	session.Debug = r.debug
	return session.Run(ctx, request)
}
