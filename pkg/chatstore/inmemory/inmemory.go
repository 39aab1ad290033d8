// Package inmemory provides a map-backed chatstore.Store used in tests
// and as the default serve mode when no database path is configured.
package inmemory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/answerline/pkg/chatstore"
)

// Store implements chatstore.Store using in-memory maps.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*chatstore.Conversation
	turns         map[string][]*chatstore.Turn      // keyed by conversation id
	attachments   map[string]*chatstore.Attachment  // keyed by attachment id
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*chatstore.Conversation),
		turns:         make(map[string][]*chatstore.Turn),
		attachments:   make(map[string]*chatstore.Attachment),
	}
}

func (s *Store) CreateConversation(_ context.Context, conv *chatstore.Conversation) error {
	if conv == nil {
		return errors.New("cannot store nil conversation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	stored := *conv
	s.conversations[conv.ID] = &stored
	return nil
}

func (s *Store) GetConversation(_ context.Context, id, ownerID string) (*chatstore.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID || conv.DeletedAt != nil {
		return nil, chatstore.NotFoundError{Kind: "conversation", ID: id}
	}

	copied := *conv
	return &copied, nil
}

func (s *Store) UpdateConversation(_ context.Context, conv *chatstore.Conversation) error {
	if conv == nil {
		return errors.New("cannot update nil conversation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.conversations[conv.ID]
	if !ok || existing.DeletedAt != nil {
		return chatstore.NotFoundError{Kind: "conversation", ID: conv.ID}
	}

	conv.CreatedAt = existing.CreatedAt
	conv.UpdatedAt = time.Now().UTC()
	stored := *conv
	s.conversations[conv.ID] = &stored
	return nil
}

func (s *Store) ListConversations(_ context.Context, ownerID string) ([]*chatstore.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*chatstore.Conversation, 0)
	for _, conv := range s.conversations {
		if conv.OwnerID != ownerID || conv.DeletedAt != nil {
			continue
		}
		copied := *conv
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return result, nil
}

func (s *Store) DeleteConversation(_ context.Context, id, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok || conv.OwnerID != ownerID || conv.DeletedAt != nil {
		return chatstore.NotFoundError{Kind: "conversation", ID: id}
	}

	now := time.Now().UTC()
	conv.DeletedAt = &now
	conv.UpdatedAt = now
	return nil
}

func (s *Store) AppendTurn(_ context.Context, conversationID, role, content, reasoning string) (*chatstore.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.DeletedAt != nil {
		return nil, chatstore.NotFoundError{Kind: "conversation", ID: conversationID}
	}

	turn := &chatstore.Turn{
		ID:               uuid.NewString(),
		ConversationID:   conversationID,
		Role:             role,
		Content:          content,
		ReasoningContent: reasoning,
		Seq:              len(s.turns[conversationID]) + 1,
		CreatedAt:        time.Now().UTC(),
	}
	s.turns[conversationID] = append(s.turns[conversationID], turn)
	conv.UpdatedAt = turn.CreatedAt

	copied := *turn
	return &copied, nil
}

func (s *Store) ListTurns(_ context.Context, conversationID string) ([]*chatstore.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[conversationID]
	result := make([]*chatstore.Turn, 0, len(turns))
	for _, t := range turns {
		copied := *t
		result = append(result, &copied)
	}
	return result, nil
}

func (s *Store) PutAttachment(_ context.Context, att *chatstore.Attachment) error {
	if att == nil {
		return errors.New("cannot store nil attachment")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	stored := *att
	s.attachments[att.ID] = &stored
	return nil
}

func (s *Store) GetAttachment(_ context.Context, conversationID, attachmentID string) (*chatstore.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	att, ok := s.attachments[attachmentID]
	if !ok || att.ConversationID != conversationID {
		return nil, chatstore.NotFoundError{Kind: "attachment", ID: attachmentID}
	}

	copied := *att
	return &copied, nil
}

func (s *Store) AttachmentText(ctx context.Context, conversationID, attachmentID string) (string, error) {
	att, err := s.GetAttachment(ctx, conversationID, attachmentID)
	if err != nil {
		return "", err
	}

	if att.ParseStatus != chatstore.ParseStatusDone {
		return "", chatstore.NotReadyError{ID: attachmentID, Reason: "not sanitized"}
	}
	if att.SanitizedText == "" {
		return "", chatstore.NotReadyError{ID: attachmentID, Reason: "sanitized text missing"}
	}
	return att.SanitizedText, nil
}

func (s *Store) Close() error {
	return nil
}
