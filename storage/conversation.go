// Package storage provides conversation storage abstraction.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
// - Item encoding hidden behind the codec

package storage

import (
	"context"

	"github.com/richinex/xaiconv/conversation"
)

// ConversationStorage stores conversation histories by conversation id.
// The chat loop never touches it; callers load a history before a turn and
// save it afterwards.
type ConversationStorage interface {
	// Save replaces the history of a conversation.
	Save(ctx context.Context, conversationID string, history []conversation.Item) error

	// Load returns the history of a conversation.
	// Returns empty slice (not nil) if the conversation doesn't exist.
	// Returns error only for storage failures (I/O errors, etc.), not missing conversations.
	Load(ctx context.Context, conversationID string) ([]conversation.Item, error)

	// Delete deletes a conversation.
	Delete(ctx context.Context, conversationID string) error

	// ListConversations lists conversation ids, most recently updated first.
	ListConversations(ctx context.Context) ([]string, error)

	// Exists checks if a conversation exists.
	Exists(ctx context.Context, conversationID string) (bool, error)
}
