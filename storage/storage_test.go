package storage

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/richinex/xaiconv/conversation"
)

func sampleHistory() []conversation.Item {
	return []conversation.Item{
		conversation.System{Content: "be brief"},
		conversation.User{Content: "what is this", Attachments: []conversation.Attachment{{Path: "/tmp/a.png", MimeType: "image/png"}}},
		conversation.Assistant{Thinking: "look it up", ToolCalls: []conversation.ToolInput{
			{ID: "call-1", Name: "get_state", Args: map[string]any{"entity_id": "light.kitchen"}},
		}},
		conversation.ToolResult{ToolCallID: "call-1", ToolName: "get_state", Result: map[string]any{"state": "on"}},
		conversation.Assistant{Content: "The light is on."},
	}
}

// backends returns a fresh instance of every storage implementation.
func backends(t *testing.T) map[string]ConversationStorage {
	t.Helper()

	mem, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	t.Cleanup(func() { mem.Close() })

	file, err := OpenSqlite(filepath.Join(t.TempDir(), "nested", "conversations.db"))
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	t.Cleanup(func() { file.Close() })

	return map[string]ConversationStorage{
		"memory":        NewInMemoryStorage(),
		"sqlite-memory": mem,
		"sqlite-file":   file,
	}
}

func TestStorageSaveAndLoad(t *testing.T) {
	for name, storage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			history := sampleHistory()

			if err := storage.Save(ctx, "conv-1", history); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := storage.Load(ctx, "conv-1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !reflect.DeepEqual(history, loaded) {
				t.Errorf("loaded history differs:\nwant %#v\ngot  %#v", history, loaded)
			}
		})
	}
}

func TestStorageSaveReplaces(t *testing.T) {
	for name, storage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := storage.Save(ctx, "conv-1", sampleHistory()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			short := []conversation.Item{conversation.User{Content: "again"}}
			if err := storage.Save(ctx, "conv-1", short); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := storage.Load(ctx, "conv-1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(loaded) != 1 {
				t.Errorf("expected 1 item, got %d", len(loaded))
			}
		})
	}
}

func TestStorageLoadMissingConversation(t *testing.T) {
	for name, storage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := storage.Load(context.Background(), "nonexistent")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded == nil || len(loaded) != 0 {
				t.Errorf("expected empty slice, got %#v", loaded)
			}
		})
	}
}

func TestStorageDeleteAndExists(t *testing.T) {
	for name, storage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := storage.Save(ctx, "conv-1", sampleHistory()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if ok, _ := storage.Exists(ctx, "conv-1"); !ok {
				t.Fatal("expected conversation to exist")
			}

			if err := storage.Delete(ctx, "conv-1"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if ok, _ := storage.Exists(ctx, "conv-1"); ok {
				t.Error("expected conversation to be gone")
			}
			loaded, err := storage.Load(ctx, "conv-1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(loaded) != 0 {
				t.Errorf("expected items to be deleted, got %d", len(loaded))
			}
		})
	}
}

func TestStorageListConversations(t *testing.T) {
	for name, storage := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, id := range []string{"a", "b", "c"} {
				if err := storage.Save(ctx, id, sampleHistory()); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
			}

			ids, err := storage.ListConversations(ctx)
			if err != nil {
				t.Fatalf("ListConversations failed: %v", err)
			}
			if len(ids) != 3 {
				t.Fatalf("expected 3 conversations, got %v", ids)
			}
		})
	}
}

func TestDecodeItemUnknownKind(t *testing.T) {
	if _, err := DecodeItem("image", []byte(`{}`)); err == nil {
		t.Error("expected error for unknown kind")
	}
}
