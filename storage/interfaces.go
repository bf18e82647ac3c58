package storage

import (
	"context"
	"time"

	"github.com/poiesic/inquirit/core"
)

// Conversation summarizes one stored conversation.
type Conversation struct {
	ID         string
	Turns      int
	LastActive time.Time
}

// ConversationRepository persists the turns of named conversations.
// Implementations must be thread-safe and support concurrent access.
type ConversationRepository interface {
	// AddTurns appends turns to a conversation, creating it if needed.
	// Turns are kept in insertion order.
	AddTurns(ctx context.Context, conversationID string, turns ...core.Turn) error

	// GetTurns returns the most recent limit turns ordered oldest to newest.
	// A limit <= 0 returns every turn. An unknown conversation yields an empty slice.
	GetTurns(ctx context.Context, conversationID string, limit int) ([]core.Turn, error)

	// ListConversations returns every conversation, most recently active first.
	ListConversations(ctx context.Context) ([]Conversation, error)

	// DeleteConversation removes a conversation and all of its turns.
	// Returns ErrNotFound if the conversation doesn't exist.
	DeleteConversation(ctx context.Context, conversationID string) error

	// Close releases resources held by the repository.
	Close() error
}
