// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local conversation archive for patentforge.
//
// Finalized exchanges are persisted to a SQLite database so past drafting
// sessions can be listed, searched, reloaded, and exported. The archive is
// best-effort from the chat flow's point of view; a broken archive never
// blocks a send.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/patentforge-tui/internal/model"
	"github.com/jeranaias/patentforge-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound = errors.New("conversation not found")
)

// timeLayout is fixed-width so stored timestamps sort correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    id            TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    preview       TEXT NOT NULL DEFAULT '',
    session_id    TEXT NOT NULL DEFAULT '',
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL,
    message_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
    seq             INTEGER NOT NULL,
    id              TEXT NOT NULL,
    role            TEXT NOT NULL,
    content         TEXT NOT NULL,
    thoughts        TEXT NOT NULL DEFAULT '[]',
    claims          TEXT NOT NULL DEFAULT '[]',
    synthetic       INTEGER NOT NULL DEFAULT 0,
    timestamp       TEXT NOT NULL,
    PRIMARY KEY (conversation_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated
    ON conversations(updated_at DESC);
`

// =============================================================================
// ARCHIVE STORE
// =============================================================================

// Meta contains conversation metadata for listing without loading messages.
type Meta struct {
	ID           string
	Title        string
	Preview      string
	SessionID    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Store is the SQLite-backed conversation archive. Safe for concurrent use;
// SQLite's single-writer model is respected by capping the pool at one
// connection.
type Store struct {
	db *sql.DB

	// MaxConversations limits stored conversations; oldest are pruned on
	// save (0 = unlimited).
	MaxConversations int
}

// Open opens (creating if needed) the archive database at path.
func Open(path string, maxConversations int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, MaxConversations: maxConversations}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE
// =============================================================================

// SaveConversation upserts a conversation and its full message log. Called
// after each completed exchange, so the same conversation id is written
// repeatedly with a growing log.
func (s *Store) SaveConversation(conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("conversation has no id")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, title, preview, session_id, created_at, updated_at, message_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			preview = excluded.preview,
			session_id = excluded.session_id,
			updated_at = excluded.updated_at,
			message_count = excluded.message_count`,
		conv.ID,
		conv.GetTitle(),
		previewOf(conv),
		conv.SessionID,
		conv.CreatedAt.UTC().Format(timeLayout),
		conv.UpdatedAt.UTC().Format(timeLayout),
		len(conv.Messages),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	// Replace the message log wholesale; per-message diffing is not worth
	// it at this scale.
	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO messages (conversation_id, seq, id, role, content, thoughts, claims, synthetic, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range conv.Messages {
		thoughts, _ := json.Marshal(msg.Thoughts)
		claims, _ := json.Marshal(msg.Claims)
		if _, err := stmt.Exec(
			conv.ID, i, msg.ID, msg.Role.String(), msg.Content,
			string(thoughts), string(claims), boolToInt(msg.Synthetic),
			msg.Timestamp.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("failed to save message: %w", err)
		}
	}

	if err := s.pruneLocked(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// pruneLocked removes the oldest conversations beyond MaxConversations.
// Runs inside the save transaction.
func (s *Store) pruneLocked(tx *sql.Tx) error {
	if s.MaxConversations <= 0 {
		return nil
	}
	_, err := tx.Exec(`
		DELETE FROM conversations WHERE id IN (
			SELECT id FROM conversations
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, s.MaxConversations)
	if err != nil {
		return fmt.Errorf("failed to prune archive: %w", err)
	}
	return nil
}

// =============================================================================
// LIST / LOAD
// =============================================================================

// List returns metadata for all archived conversations, most recent first.
func (s *Store) List() ([]Meta, error) {
	rows, err := s.db.Query(`
		SELECT id, title, preview, session_id, created_at, updated_at, message_count
		FROM conversations
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// Load returns a full conversation by id.
func (s *Store) Load(id string) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id}

	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT title, session_id, created_at, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&conv.Title, &conv.SessionID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	conv.CreatedAt = parseTime(createdAt)
	conv.UpdatedAt = parseTime(updatedAt)

	rows, err := s.db.Query(`
		SELECT id, role, content, thoughts, claims, synthetic, timestamp
		FROM messages WHERE conversation_id = ?
		ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg       model.Message
			role      string
			thoughts  string
			claims    string
			synthetic int
			timestamp string
		)
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &thoughts, &claims, &synthetic, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = parseRole(role)
		msg.Synthetic = synthetic != 0
		msg.Timestamp = parseTime(timestamp)
		json.Unmarshal([]byte(thoughts), &msg.Thoughts)
		json.Unmarshal([]byte(claims), &msg.Claims)
		m := msg
		conv.Messages = append(conv.Messages, &m)
	}
	return conv, rows.Err()
}

// Search returns metadata for conversations whose title or message content
// matches the query, most recent first.
func (s *Store) Search(query string) ([]Meta, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.Query(`
		SELECT DISTINCT c.id, c.title, c.preview, c.session_id, c.created_at, c.updated_at, c.message_count
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		WHERE c.title LIKE ? OR m.content LIKE ?
		ORDER BY c.updated_at DESC`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// Delete removes a conversation and its messages.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown writes a conversation to a markdown file.
func (s *Store) ExportMarkdown(id, path string) error {
	conv, err := s.Load(id)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", conv.GetTitle())
	fmt.Fprintf(&b, "Exported: %s\n\n", time.Now().Format("2006-01-02 15:04"))

	for _, msg := range conv.Messages {
		fmt.Fprintf(&b, "## %s\n\n", msg.Role.DisplayName())
		b.WriteString(msg.Content)
		b.WriteString("\n\n")
		for _, thought := range msg.Thoughts {
			fmt.Fprintf(&b, "> %s\n", thought)
		}
		if len(msg.Thoughts) > 0 {
			b.WriteString("\n")
		}
	}

	return util.AtomicWriteFile(path, []byte(b.String()), 0644)
}

// =============================================================================
// HELPERS
// =============================================================================

func scanMetas(rows *sql.Rows) ([]Meta, error) {
	var metas []Meta
	for rows.Next() {
		var (
			m                    Meta
			createdAt, updatedAt string
		)
		if err := rows.Scan(&m.ID, &m.Title, &m.Preview, &m.SessionID, &createdAt, &updatedAt, &m.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		m.CreatedAt = parseTime(createdAt)
		m.UpdatedAt = parseTime(updatedAt)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// previewOf summarizes a conversation by its first user message.
func previewOf(conv *model.Conversation) string {
	for _, msg := range conv.Messages {
		if msg.Role == model.RoleUser {
			return msg.Preview(100)
		}
	}
	return ""
}

func parseRole(role string) model.Role {
	if role == "assistant" {
		return model.RoleAssistant
	}
	return model.RoleUser
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
