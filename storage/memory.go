// Package storage provides in-memory conversation storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/richinex/xaiconv/conversation"
)

type memoryConversation struct {
	items     []conversation.Item
	updatedAt time.Time
}

// InMemoryStorage implements ConversationStorage using an in-memory map.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu            sync.RWMutex
	conversations map[string]memoryConversation
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		conversations: make(map[string]memoryConversation),
	}
}

// Save replaces the history of a conversation.
func (s *InMemoryStorage) Save(ctx context.Context, conversationID string, history []conversation.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Make a copy to avoid external mutations
	copied := make([]conversation.Item, len(history))
	copy(copied, history)
	s.conversations[conversationID] = memoryConversation{items: copied, updatedAt: time.Now()}

	return nil
}

// Load returns the history of a conversation.
// Returns empty slice if the conversation doesn't exist.
func (s *InMemoryStorage) Load(ctx context.Context, conversationID string) ([]conversation.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return []conversation.Item{}, nil
	}

	copied := make([]conversation.Item, len(c.items))
	copy(copied, c.items)
	return copied, nil
}

// Delete deletes a conversation.
func (s *InMemoryStorage) Delete(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, conversationID)
	return nil
}

// ListConversations lists conversation ids, most recently updated first.
func (s *InMemoryStorage) ListConversations(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.conversations[ids[i]].updatedAt.After(s.conversations[ids[j]].updatedAt)
	})
	return ids, nil
}

// Exists checks if a conversation exists.
func (s *InMemoryStorage) Exists(ctx context.Context, conversationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.conversations[conversationID]
	return ok, nil
}

// Verify InMemoryStorage implements ConversationStorage
var _ ConversationStorage = (*InMemoryStorage)(nil)
