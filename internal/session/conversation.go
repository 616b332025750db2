// Package session holds per-conversation message history and the per-patient
// daily interaction quota.
//
// The in-memory conversation store is process-scoped: it starts empty, changes
// only through Append and Clear, and is lost on restart. Deployments that need
// durable or shared history use the Redis-backed store, which keeps the same
// append, trim-to-cap and clear semantics.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/health-intelligence-engine/internal/domain"
)

// DefaultConversationCap is the number of most recent messages kept per conversation.
const DefaultConversationCap = 20

// ConversationStore keeps a capped, ordered message history per conversation.
type ConversationStore interface {
	// Append adds messages in order, evicting the oldest beyond the cap.
	Append(ctx context.Context, conversationID string, messages ...domain.Message) error

	// History returns the stored messages, oldest first. Unknown ids yield an
	// empty history.
	History(ctx context.Context, conversationID string) ([]domain.Message, error)

	// Clear removes the conversation.
	Clear(ctx context.Context, conversationID string) error
}

// NewConversationID returns a new opaque, globally unique conversation id.
func NewConversationID() string {
	return uuid.NewString()
}

// MemoryConversationStore is a ConversationStore held in process memory.
type MemoryConversationStore struct {
	mu       sync.Mutex
	sessions map[string][]domain.Message
	cap      int
}

// NewMemoryConversationStore creates an empty store. A cap of zero or less uses
// DefaultConversationCap.
func NewMemoryConversationStore(cap int) *MemoryConversationStore {
	if cap <= 0 {
		cap = DefaultConversationCap
	}
	return &MemoryConversationStore{
		sessions: make(map[string][]domain.Message),
		cap:      cap,
	}
}

// Append adds messages to the conversation, creating it on first use.
func (s *MemoryConversationStore) Append(ctx context.Context, conversationID string, messages ...domain.Message) error {
	if conversationID == "" {
		return domain.NewInvalidInputError("conversation id is required",
			domain.NewValidationError("conversation_id", "must not be empty", conversationID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[conversationID], messages...)
	if over := len(history) - s.cap; over > 0 {
		trimmed := make([]domain.Message, s.cap)
		copy(trimmed, history[over:])
		history = trimmed
	}
	s.sessions[conversationID] = history
	return nil
}

// History returns a copy of the conversation's messages.
func (s *MemoryConversationStore) History(ctx context.Context, conversationID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[conversationID]
	out := make([]domain.Message, len(history))
	copy(out, history)
	return out, nil
}

// Clear removes the conversation. Clearing an unknown id is not an error.
func (s *MemoryConversationStore) Clear(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, conversationID)
	return nil
}

// Len returns the number of live conversations.
func (s *MemoryConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
