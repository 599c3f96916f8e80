// Message translation.
//
// Information Hiding:
// - Item variants are matched in one switch
// - Attachments are read concurrently and encoded as data URIs
// - Argument and result encoding hidden

package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"

	"github.com/richinex/xaiconv/conversation"
)

// TranslateMessages converts the history into provider messages, in order.
// Unknown item kinds are skipped.
func TranslateMessages(ctx context.Context, items []conversation.Item) ([]openai.ChatCompletionMessage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(items))

	for _, item := range items {
		switch it := item.(type) {
		case conversation.System:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: it.Content,
			})

		case conversation.User:
			msg, err := userMessage(ctx, it)
			if err != nil {
				return nil, err
			}
			messages = append(messages, msg)

		case conversation.Assistant:
			msg, err := assistantMessage(it)
			if err != nil {
				return nil, err
			}
			messages = append(messages, msg)

		case conversation.ToolResult:
			body, err := json.Marshal(it.Result)
			if err != nil {
				return nil, fmt.Errorf("encode result of tool call %s: %w", it.ToolCallID, err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    string(body),
				ToolCallID: it.ToolCallID,
			})

		default:
			// Newer item kinds are not sent to the model.
		}
	}

	return messages, nil
}

func userMessage(ctx context.Context, u conversation.User) (openai.ChatCompletionMessage, error) {
	parts := make([]openai.ChatMessagePart, 0, 1+len(u.Attachments))
	if u.Content != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: u.Content,
		})
	}

	images, err := encodeAttachments(ctx, u.Attachments)
	if err != nil {
		return openai.ChatCompletionMessage{}, err
	}
	parts = append(parts, images...)

	if len(parts) == 0 {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: ""})
	}

	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}, nil
}

// encodeAttachments reads all attachments concurrently. The result keeps
// the attachment order.
func encodeAttachments(ctx context.Context, attachments []conversation.Attachment) ([]openai.ChatMessagePart, error) {
	if len(attachments) == 0 {
		return nil, nil
	}

	parts := make([]openai.ChatMessagePart, len(attachments))
	g, ctx := errgroup.WithContext(ctx)
	for i, a := range attachments {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			part, err := encodeAttachment(a)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

func encodeAttachment(a conversation.Attachment) (openai.ChatMessagePart, error) {
	info, err := os.Stat(a.Path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		return openai.ChatMessagePart{}, &conversation.AttachmentError{Path: a.Path, MimeType: a.MimeType, Err: conversation.ErrAttachmentNotFound}
	}
	if err != nil {
		return openai.ChatMessagePart{}, fmt.Errorf("stat attachment %s: %w", a.Path, err)
	}

	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(a.Path))
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return openai.ChatMessagePart{}, &conversation.AttachmentError{Path: a.Path, MimeType: mimeType, Err: conversation.ErrUnsupportedAttachment}
	}

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return openai.ChatMessagePart{}, fmt.Errorf("read attachment %s: %w", a.Path, err)
	}

	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL: fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
		},
	}, nil
}

func assistantMessage(a conversation.Assistant) (openai.ChatCompletionMessage, error) {
	msg := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: a.Content,
	}

	for _, call := range a.ToolCalls {
		args := call.Args
		if args == nil {
			args = map[string]any{}
		}
		encoded, err := json.Marshal(args)
		if err != nil {
			return openai.ChatCompletionMessage{}, fmt.Errorf("encode arguments of tool call %s: %w", call.ID, err)
		}
		msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: string(encoded),
			},
		})
	}

	return msg, nil
}
