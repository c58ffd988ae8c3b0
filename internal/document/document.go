// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package document abstracts the working draft the assistant reads and
// writes into. The original product lived inside a word processor; here the
// host is an interface with a local-file implementation so the client works
// against any draft surface.
package document

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/jeranaias/patentforge-tui/internal/api"
	"github.com/jeranaias/patentforge-tui/internal/util"
)

// =============================================================================
// HOST INTERFACE
// =============================================================================

// Host provides access to the working draft. Content reads are best-effort:
// the orchestrator swallows failures and sends an empty document rather than
// blocking the user's message.
type Host interface {
	// Content returns a snapshot of the current draft.
	Content(ctx context.Context) (api.DocumentContent, error)

	// Insert appends formatted text to the draft.
	Insert(ctx context.Context, text string) error
}

// =============================================================================
// FILE HOST
// =============================================================================

// FileHost is a Host backed by a plain text file on disk. Writes go through
// an atomic replace so a crash never leaves a half-written draft.
type FileHost struct {
	mu   sync.Mutex
	path string
}

// NewFileHost creates a file-backed host. The file does not need to exist
// yet; the first Insert creates it.
func NewFileHost(path string) *FileHost {
	return &FileHost{path: path}
}

// Path returns the draft file path.
func (h *FileHost) Path() string {
	return h.path
}

// Content reads the draft file. A missing file is an empty draft, not an
// error.
func (h *FileHost) Content(ctx context.Context) (api.DocumentContent, error) {
	if err := ctx.Err(); err != nil {
		return api.DocumentContent{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	data, err := os.ReadFile(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return api.DocumentContent{}, nil
		}
		return api.DocumentContent{}, err
	}

	text := string(data)
	return api.DocumentContent{
		Text:       text,
		Paragraphs: splitParagraphs(text),
	}, nil
}

// Insert appends text to the end of the draft, separated from existing
// content by a blank line.
func (h *FileHost) Insert(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	existing, err := os.ReadFile(h.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	var b strings.Builder
	b.Write(existing)
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n\n") {
		if strings.HasSuffix(string(existing), "\n") {
			b.WriteString("\n")
		} else {
			b.WriteString("\n\n")
		}
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}

	return util.AtomicWriteFile(h.path, []byte(b.String()), 0644)
}

// splitParagraphs breaks draft text on blank lines, dropping empty chunks.
func splitParagraphs(text string) []string {
	chunks := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}
	return paragraphs
}

// =============================================================================
// NOP HOST
// =============================================================================

// NopHost is a Host with no backing draft. Used when the client runs as a
// pure chat surface.
type NopHost struct{}

// Content returns an empty draft.
func (NopHost) Content(ctx context.Context) (api.DocumentContent, error) {
	return api.DocumentContent{}, nil
}

// Insert discards the text.
func (NopHost) Insert(ctx context.Context, text string) error {
	return nil
}
