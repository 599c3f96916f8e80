package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/xaiconv/conversation"
)

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x01}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestTranslateMessages(t *testing.T) {
	history := []conversation.Item{
		conversation.System{Content: "be brief"},
		conversation.User{Content: "turn on the light"},
		conversation.Assistant{ToolCalls: []conversation.ToolInput{
			{ID: "call-1", Name: "set_state", Args: map[string]any{"entity_id": "light.kitchen", "state": "on"}},
			{ID: "call-2", Name: "list_devices"},
		}},
		conversation.ToolResult{ToolCallID: "call-1", ToolName: "set_state", Result: map[string]any{"success": true}},
		conversation.Assistant{Content: "Done.", Thinking: "not sent"},
	}

	msgs, err := TranslateMessages(context.Background(), history)
	require.NoError(t, err)
	require.Len(t, msgs, 5)

	assert.Equal(t, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: "be brief"}, msgs[0])

	assert.Equal(t, openai.ChatMessageRoleUser, msgs[1].Role)
	assert.Equal(t, []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText, Text: "turn on the light"}}, msgs[1].MultiContent)

	require.Len(t, msgs[2].ToolCalls, 2)
	assert.Equal(t, "set_state", msgs[2].ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"entity_id":"light.kitchen","state":"on"}`, msgs[2].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "{}", msgs[2].ToolCalls[1].Function.Arguments)

	assert.Equal(t, openai.ChatMessageRoleTool, msgs[3].Role)
	assert.Equal(t, "call-1", msgs[3].ToolCallID)
	assert.JSONEq(t, `{"success":true}`, msgs[3].Content)

	assert.Equal(t, "Done.", msgs[4].Content)
}

func TestTranslateMessagesIsIdempotent(t *testing.T) {
	img := writeFile(t, "photo.png", pngBytes)
	history := []conversation.Item{
		conversation.System{Content: "sys"},
		conversation.User{Content: "what is this", Attachments: []conversation.Attachment{{Path: img}}},
		conversation.Assistant{ToolCalls: []conversation.ToolInput{
			{ID: "c", Name: "get_state", Args: map[string]any{"b": 2, "a": 1, "nested": map[string]any{"z": true, "y": nil}}},
		}},
		conversation.ToolResult{ToolCallID: "c", Result: map[string]any{"k": []any{"x", 1}, "j": "v"}},
	}

	first, err := TranslateMessages(context.Background(), history)
	require.NoError(t, err)
	second, err := TranslateMessages(context.Background(), history)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestTranslateUserAttachments(t *testing.T) {
	png := writeFile(t, "a.png", pngBytes)
	jpg := writeFile(t, "b.bin", []byte{0xFF, 0xD8, 0xFF})

	msgs, err := TranslateMessages(context.Background(), []conversation.Item{
		conversation.User{Content: "compare", Attachments: []conversation.Attachment{
			{Path: png},
			{Path: jpg, MimeType: "image/jpeg"},
		}},
	})
	require.NoError(t, err)

	parts := msgs[0].MultiContent
	require.Len(t, parts, 3)
	assert.Equal(t, "compare", parts[0].Text)
	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngBytes), parts[1].ImageURL.URL)
	assert.Equal(t, "data:image/jpeg;base64,/9j/", parts[2].ImageURL.URL)
}

func TestTranslateEmptyUserMessage(t *testing.T) {
	msgs, err := TranslateMessages(context.Background(), []conversation.Item{conversation.User{}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []openai.ChatMessagePart{{Type: openai.ChatMessagePartTypeText}}, msgs[0].MultiContent)
}

func TestTranslateAttachmentErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.png")
	text := writeFile(t, "notes.txt", []byte("hello"))

	tests := []struct {
		name       string
		attachment conversation.Attachment
		want       error
	}{
		{"missing file", conversation.Attachment{Path: missing}, conversation.ErrAttachmentNotFound},
		{"directory", conversation.Attachment{Path: t.TempDir()}, conversation.ErrAttachmentNotFound},
		{"not an image", conversation.Attachment{Path: text}, conversation.ErrUnsupportedAttachment},
		{"explicit non-image mime", conversation.Attachment{Path: text, MimeType: "application/pdf"}, conversation.ErrUnsupportedAttachment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TranslateMessages(context.Background(), []conversation.Item{
				conversation.User{Content: "see", Attachments: []conversation.Attachment{tt.attachment}},
			})
			require.ErrorIs(t, err, tt.want)

			var ae *conversation.AttachmentError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.attachment.Path, ae.Path)
		})
	}
}
