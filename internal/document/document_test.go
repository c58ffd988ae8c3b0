// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileHost_MissingFileIsEmptyDraft(t *testing.T) {
	host := NewFileHost(filepath.Join(t.TempDir(), "draft.md"))

	content, err := host.Content(context.Background())
	if err != nil {
		t.Fatalf("Content() error: %v", err)
	}
	if content.Text != "" || content.Paragraphs != nil {
		t.Errorf("Content() = %+v, want empty draft", content)
	}
}

func TestFileHost_ContentSplitsParagraphs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")
	if err := os.WriteFile(path, []byte("Background of the invention.\n\n1. A method comprising...\n"), 0644); err != nil {
		t.Fatal(err)
	}

	host := NewFileHost(path)
	content, err := host.Content(context.Background())
	if err != nil {
		t.Fatalf("Content() error: %v", err)
	}

	if len(content.Paragraphs) != 2 {
		t.Fatalf("Paragraphs = %v, want 2", content.Paragraphs)
	}
	if content.Paragraphs[1] != "1. A method comprising..." {
		t.Errorf("Paragraphs[1] = %q", content.Paragraphs[1])
	}
}

func TestFileHost_InsertCreatesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")
	host := NewFileHost(path)
	ctx := context.Background()

	if err := host.Insert(ctx, "1. A widget comprising a base."); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := host.Insert(ctx, "2. The widget of claim 1."); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	first := strings.Index(text, "1. A widget")
	second := strings.Index(text, "2. The widget")
	if first < 0 || second < 0 || second < first {
		t.Errorf("draft content out of order:\n%s", text)
	}
	// Appended claims are separated by a blank line.
	if !strings.Contains(text, "base.\n\n2.") {
		t.Errorf("missing blank-line separator:\n%s", text)
	}
}

func TestFileHost_InsertIgnoresBlankText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "draft.md")
	host := NewFileHost(path)

	if err := host.Insert(context.Background(), "   \n"); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("blank insert should not create the draft file")
	}
}

func TestFileHost_CancelledContext(t *testing.T) {
	host := NewFileHost(filepath.Join(t.TempDir(), "draft.md"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := host.Content(ctx); err == nil {
		t.Error("Content() with cancelled context should fail")
	}
	if err := host.Insert(ctx, "text"); err == nil {
		t.Error("Insert() with cancelled context should fail")
	}
}

func TestNopHost(t *testing.T) {
	var host NopHost
	ctx := context.Background()

	content, err := host.Content(ctx)
	if err != nil || content.Text != "" {
		t.Errorf("Content() = %+v, %v", content, err)
	}
	if err := host.Insert(ctx, "anything"); err != nil {
		t.Errorf("Insert() error: %v", err)
	}
}
