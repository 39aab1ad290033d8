// Package chatstore defines the conversation store: persisted chat
// threads, their append-only turn logs, and sanitized attachments.
// Implementations live in the inmemory and sqlite subpackages.
package chatstore

import (
	"context"
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation is a persisted chat thread with its configuration.
type Conversation struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	Title            string     `json:"title"`
	BackgroundPrompt string     `json:"background_prompt,omitempty"`
	RoleName         string     `json:"role_name,omitempty"`
	RuntimeProfileID string     `json:"runtime_profile_id,omitempty"`
	ReasoningEnabled bool       `json:"reasoning_enabled"`
	ReasoningBudget  int        `json:"reasoning_budget"`
	ShowReasoning    bool       `json:"show_reasoning"`
	ContextLimit     int        `json:"context_limit"` // 0 means use the process default
	DefaultToolIDs   []string   `json:"default_tool_ids,omitempty"`
	Archived         bool       `json:"archived"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
}

// Turn is one message within a conversation. Turns are append-only: the
// orchestrator never edits or deletes one.
type Turn struct {
	ID               string    `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	ReasoningContent string    `json:"reasoning_content,omitempty"`
	Seq              int       `json:"seq"`
	CreatedAt        time.Time `json:"created_at"`
}

// Attachment parse statuses.
const (
	ParseStatusProcessing = "processing"
	ParseStatusDone       = "done"
	ParseStatusError      = "error"
)

// Attachment is an uploaded file bound to a conversation. Only the
// sanitized text is ever fed to a model; raw bytes stay outside this
// system's scope.
type Attachment struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	FileName       string `json:"file_name"`
	ContentType    string `json:"content_type,omitempty"`
	ParseStatus    string `json:"parse_status"`

	// SanitizedText is the sanitizer's output when the driver stores it
	// inline (inmemory). SanitizedPath points at the on-disk artifact
	// when the driver stores it externally (sqlite). Exactly one is set.
	SanitizedText string `json:"-"`
	SanitizedPath string `json:"-"`
}

// IsImage reports whether the attachment is an image, which gates
// vision-capable model selection.
func (a *Attachment) IsImage() bool {
	return len(a.ContentType) >= 6 && a.ContentType[:6] == "image/"
}

// Store is the conversation store contract consumed by the assembler and
// the orchestrator.
type Store interface {
	CreateConversation(ctx context.Context, conv *Conversation) error

	// GetConversation returns the conversation, or NotFoundError when it
	// is absent, owned by someone else, or soft-deleted.
	GetConversation(ctx context.Context, id, ownerID string) (*Conversation, error)

	// UpdateConversation persists mutable conversation fields.
	// Last-writer-wins; used by the orchestrator only to bind a
	// late-chosen runtime profile.
	UpdateConversation(ctx context.Context, conv *Conversation) error

	ListConversations(ctx context.Context, ownerID string) ([]*Conversation, error)

	// DeleteConversation soft-deletes; the turn log is retained.
	DeleteConversation(ctx context.Context, id, ownerID string) error

	// AppendTurn appends one turn and returns it with its assigned id
	// and sequence number.
	AppendTurn(ctx context.Context, conversationID, role, content, reasoning string) (*Turn, error)

	// ListTurns returns all turns in creation order.
	ListTurns(ctx context.Context, conversationID string) ([]*Turn, error)

	PutAttachment(ctx context.Context, att *Attachment) error
	GetAttachment(ctx context.Context, conversationID, attachmentID string) (*Attachment, error)

	// AttachmentText returns the sanitized text for an attachment.
	// Returns NotFoundError when the attachment is unknown and
	// NotReadyError when it is not sanitized or its artifact is missing.
	AttachmentText(ctx context.Context, conversationID, attachmentID string) (string, error)

	Close() error
}
