// Package sqlite provides a SQLite-backed chatstore.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/answerline/pkg/chatstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id                 TEXT PRIMARY KEY,
	owner_id           TEXT NOT NULL,
	title              TEXT NOT NULL,
	background_prompt  TEXT NOT NULL DEFAULT '',
	role_name          TEXT NOT NULL DEFAULT '',
	runtime_profile_id TEXT NOT NULL DEFAULT '',
	reasoning_enabled  INTEGER NOT NULL DEFAULT 0,
	reasoning_budget   INTEGER NOT NULL DEFAULT 0,
	show_reasoning     INTEGER NOT NULL DEFAULT 0,
	context_limit      INTEGER NOT NULL DEFAULT 0,
	default_tool_ids   TEXT NOT NULL DEFAULT '[]',
	archived           INTEGER NOT NULL DEFAULT 0,
	created_at         TIMESTAMP NOT NULL,
	updated_at         TIMESTAMP NOT NULL,
	deleted_at         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS turns (
	id                TEXT PRIMARY KEY,
	conversation_id   TEXT NOT NULL REFERENCES conversations(id),
	role              TEXT NOT NULL,
	content           TEXT NOT NULL,
	reasoning_content TEXT NOT NULL DEFAULT '',
	seq               INTEGER NOT NULL,
	created_at        TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id, seq);

CREATE TABLE IF NOT EXISTS attachments (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	file_name       TEXT NOT NULL,
	content_type    TEXT NOT NULL DEFAULT '',
	parse_status    TEXT NOT NULL,
	sanitized_text  TEXT NOT NULL DEFAULT '',
	sanitized_path  TEXT NOT NULL DEFAULT ''
);
`

// Store implements chatstore.Store over SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at dbPath and ensures the
// schema exists. dbPath may be ":memory:".
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv *chatstore.Conversation) error {
	if conv == nil {
		return errors.New("cannot store nil conversation")
	}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	toolIDs, err := json.Marshal(conv.DefaultToolIDs)
	if err != nil {
		return fmt.Errorf("encoding tool ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, owner_id, title, background_prompt, role_name,
			runtime_profile_id, reasoning_enabled, reasoning_budget,
			show_reasoning, context_limit, default_tool_ids, archived,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.OwnerID, conv.Title, conv.BackgroundPrompt, conv.RoleName,
		conv.RuntimeProfileID, conv.ReasoningEnabled, conv.ReasoningBudget,
		conv.ShowReasoning, conv.ContextLimit, string(toolIDs), conv.Archived,
		conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting conversation: %w", err)
	}
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id, ownerID string) (*chatstore.Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, background_prompt, role_name,
		       runtime_profile_id, reasoning_enabled, reasoning_budget,
		       show_reasoning, context_limit, default_tool_ids, archived,
		       created_at, updated_at
		FROM conversations
		WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`,
		id, ownerID,
	)
	return scanConversation(row, id)
}

func (s *Store) UpdateConversation(ctx context.Context, conv *chatstore.Conversation) error {
	if conv == nil {
		return errors.New("cannot update nil conversation")
	}

	toolIDs, err := json.Marshal(conv.DefaultToolIDs)
	if err != nil {
		return fmt.Errorf("encoding tool ids: %w", err)
	}
	conv.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET
			title = ?, background_prompt = ?, role_name = ?,
			runtime_profile_id = ?, reasoning_enabled = ?,
			reasoning_budget = ?, show_reasoning = ?, context_limit = ?,
			default_tool_ids = ?, archived = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		conv.Title, conv.BackgroundPrompt, conv.RoleName,
		conv.RuntimeProfileID, conv.ReasoningEnabled,
		conv.ReasoningBudget, conv.ShowReasoning, conv.ContextLimit,
		string(toolIDs), conv.Archived, conv.UpdatedAt,
		conv.ID,
	)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chatstore.NotFoundError{Kind: "conversation", ID: conv.ID}
	}
	return nil
}

func (s *Store) ListConversations(ctx context.Context, ownerID string) ([]*chatstore.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, background_prompt, role_name,
		       runtime_profile_id, reasoning_enabled, reasoning_budget,
		       show_reasoning, context_limit, default_tool_ids, archived,
		       created_at, updated_at
		FROM conversations
		WHERE owner_id = ? AND deleted_at IS NULL
		ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	result := make([]*chatstore.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows, "")
		if err != nil {
			return nil, err
		}
		result = append(result, conv)
	}
	return result, rows.Err()
}

func (s *Store) DeleteConversation(ctx context.Context, id, ownerID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`,
		now, now, id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return chatstore.NotFoundError{Kind: "conversation", ID: id}
	}
	return nil
}

func (s *Store) AppendTurn(ctx context.Context, conversationID, role, content, reasoning string) (*chatstore.Turn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM conversations WHERE id = ? AND deleted_at IS NULL`,
		conversationID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking conversation: %w", err)
	}
	if exists == 0 {
		return nil, chatstore.NotFoundError{Kind: "conversation", ID: conversationID}
	}

	turn := &chatstore.Turn{
		ID:               uuid.NewString(),
		ConversationID:   conversationID,
		Role:             role,
		Content:          content,
		ReasoningContent: reasoning,
		CreatedAt:        time.Now().UTC(),
	}

	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE conversation_id = ?`,
		conversationID,
	).Scan(&turn.Seq)
	if err != nil {
		return nil, fmt.Errorf("assigning sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (id, conversation_id, role, content, reasoning_content, seq, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.ConversationID, turn.Role, turn.Content,
		turn.ReasoningContent, turn.Seq, turn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting turn: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		turn.CreatedAt, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("touching conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing turn: %w", err)
	}
	return turn, nil
}

func (s *Store) ListTurns(ctx context.Context, conversationID string) ([]*chatstore.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, reasoning_content, seq, created_at
		FROM turns WHERE conversation_id = ? ORDER BY seq ASC`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	result := make([]*chatstore.Turn, 0)
	for rows.Next() {
		turn := &chatstore.Turn{}
		if err := rows.Scan(
			&turn.ID, &turn.ConversationID, &turn.Role, &turn.Content,
			&turn.ReasoningContent, &turn.Seq, &turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		result = append(result, turn)
	}
	return result, rows.Err()
}

func (s *Store) PutAttachment(ctx context.Context, att *chatstore.Attachment) error {
	if att == nil {
		return errors.New("cannot store nil attachment")
	}
	if att.ID == "" {
		att.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO attachments
			(id, conversation_id, file_name, content_type, parse_status, sanitized_text, sanitized_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		att.ID, att.ConversationID, att.FileName, att.ContentType,
		att.ParseStatus, att.SanitizedText, att.SanitizedPath,
	)
	if err != nil {
		return fmt.Errorf("inserting attachment: %w", err)
	}
	return nil
}

func (s *Store) GetAttachment(ctx context.Context, conversationID, attachmentID string) (*chatstore.Attachment, error) {
	att := &chatstore.Attachment{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, file_name, content_type, parse_status, sanitized_text, sanitized_path
		FROM attachments WHERE id = ? AND conversation_id = ?`,
		attachmentID, conversationID,
	).Scan(
		&att.ID, &att.ConversationID, &att.FileName, &att.ContentType,
		&att.ParseStatus, &att.SanitizedText, &att.SanitizedPath,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chatstore.NotFoundError{Kind: "attachment", ID: attachmentID}
	}
	if err != nil {
		return nil, fmt.Errorf("loading attachment: %w", err)
	}
	return att, nil
}

func (s *Store) AttachmentText(ctx context.Context, conversationID, attachmentID string) (string, error) {
	att, err := s.GetAttachment(ctx, conversationID, attachmentID)
	if err != nil {
		return "", err
	}

	if att.ParseStatus != chatstore.ParseStatusDone {
		return "", chatstore.NotReadyError{ID: attachmentID, Reason: "not sanitized"}
	}

	if att.SanitizedPath != "" {
		data, err := os.ReadFile(att.SanitizedPath)
		if err != nil {
			return "", chatstore.NotReadyError{ID: attachmentID, Reason: "sanitized artifact missing"}
		}
		return string(data), nil
	}

	if att.SanitizedText == "" {
		return "", chatstore.NotReadyError{ID: attachmentID, Reason: "sanitized text missing"}
	}
	return att.SanitizedText, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for scanConversation.
type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner, id string) (*chatstore.Conversation, error) {
	conv := &chatstore.Conversation{}
	var toolIDs string
	err := row.Scan(
		&conv.ID, &conv.OwnerID, &conv.Title, &conv.BackgroundPrompt,
		&conv.RoleName, &conv.RuntimeProfileID, &conv.ReasoningEnabled,
		&conv.ReasoningBudget, &conv.ShowReasoning, &conv.ContextLimit,
		&toolIDs, &conv.Archived, &conv.CreatedAt, &conv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, chatstore.NotFoundError{Kind: "conversation", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(toolIDs), &conv.DefaultToolIDs); err != nil {
		return nil, fmt.Errorf("decoding tool ids: %w", err)
	}
	return conv, nil
}
