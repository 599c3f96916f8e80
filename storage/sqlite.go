// Package storage provides SQLite conversation storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/xaiconv/conversation"
)

// SqliteStorage implements ConversationStorage using SQLite.
// Each item is stored as one row holding its kind and JSON payload.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	return newSqlite(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	return newSqlite(db)
}

func newSqlite(db *sql.DB) (*SqliteStorage, error) {
	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
		);

		CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			item_index INTEGER NOT NULL,
			kind TEXT NOT NULL,
			payload TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE,
			UNIQUE(conversation_id, item_index)
		);

		CREATE INDEX IF NOT EXISTS idx_items_conversation
		ON items(conversation_id, item_index);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save replaces the history of a conversation.
func (s *SqliteStorage) Save(ctx context.Context, conversationID string, history []conversation.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (conversation_id) VALUES (?)
		ON CONFLICT(conversation_id) DO UPDATE SET updated_at = strftime('%Y-%m-%d %H:%M:%f', 'now')`,
		conversationID)
	if err != nil {
		return fmt.Errorf("failed to ensure conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM items WHERE conversation_id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("failed to clear old items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO items (conversation_id, item_index, kind, payload) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, item := range history {
		kind, payload, err := EncodeItem(item)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, conversationID, i, kind, string(payload)); err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Load returns the history of a conversation.
// Returns empty slice if the conversation doesn't exist.
func (s *SqliteStorage) Load(ctx context.Context, conversationID string) ([]conversation.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, payload FROM items WHERE conversation_id = ? ORDER BY item_index ASC",
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	items := []conversation.Item{} // Start with empty slice, not nil
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item, err := DecodeItem(kind, []byte(payload))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}

	return items, nil
}

// Delete deletes a conversation and its items.
func (s *SqliteStorage) Delete(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM conversations WHERE conversation_id = ?",
		conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// ListConversations lists conversation ids, most recently updated first.
func (s *SqliteStorage) ListConversations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT conversation_id FROM conversations ORDER BY updated_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	ids := []string{} // Start with empty slice, not nil
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return ids, nil
}

// Exists checks if a conversation exists.
func (s *SqliteStorage) Exists(ctx context.Context, conversationID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversations WHERE conversation_id = ?",
		conversationID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check conversation existence: %w", err)
	}

	return count > 0, nil
}

// Verify SqliteStorage implements ConversationStorage
var _ ConversationStorage = (*SqliteStorage)(nil)
