// Non-streaming task results.
//
// Information Hiding:
// - Structured reply parsing hidden
// - Image payload resolution hidden

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonutil "github.com/richinex/xaiconv/internal/json"
	"github.com/richinex/xaiconv/llm"
)

// DataResult is the outcome of a generate-data turn. Data holds the raw
// text when no schema was requested, and the parsed value otherwise.
type DataResult struct {
	ConversationID string
	Data           any
	Usage          *UsageStats
}

// ImageResult is the outcome of a generate-image task.
type ImageResult struct {
	ConversationID string
	Image          []byte
	MimeType       string
	Model          string
	RevisedPrompt  string
}

// GenerateData runs a turn and returns the final assistant reply. With a
// schema the reply must be JSON matching it.
func (a *Agent) GenerateData(ctx context.Context, log TaskLog, name string, schema json.RawMessage) (*DataResult, error) {
	var opts []TurnOption
	if len(schema) > 0 {
		opts = append(opts, WithResponseSchema(name, schema))
	}

	usage, err := a.HandleChatLog(ctx, log, opts...)
	if err != nil {
		return nil, err
	}

	last, ok := log.LastAssistant()
	if !ok {
		return nil, ErrNoAssistantContent
	}

	result := &DataResult{ConversationID: log.ConversationID(), Usage: usage}
	if len(schema) == 0 {
		result.Data = last.Content
		return result, nil
	}

	value, err := jsonutil.Decode(last.Content)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to parse structured response",
			"task", name,
			"error", err,
			"text", last.Content)
		return nil, &SchemaViolationError{Detail: err.Error(), Err: err}
	}

	if err := jsonutil.Validate(schema, value); err != nil {
		var se *jsonutil.SchemaError
		if errors.As(err, &se) {
			return nil, &SchemaViolationError{Detail: se.Detail, Err: err}
		}
		return nil, fmt.Errorf("validate structured response: %w", err)
	}

	result.Data = value
	return result, nil
}

// GenerateImage generates an image from the last user message of log.
func (a *Agent) GenerateImage(ctx context.Context, log TaskLog) (*ImageResult, error) {
	user, ok := log.LastUser()
	if !ok || strings.TrimSpace(user.Content) == "" {
		return nil, ErrNoImagePrompt
	}

	payload, err := a.provider.GenerateImage(ctx, llm.ImageRequest{
		Prompt: user.Content,
		Model:  llm.DefaultImageModel,
	})
	if err != nil {
		a.logger.ErrorContext(ctx, "image generation failed", "error", err)
		return nil, err
	}

	data, err := payload.Resolve(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "image payload could not be decoded", "error", err)
		return nil, err
	}

	return &ImageResult{
		ConversationID: log.ConversationID(),
		Image:          data,
		MimeType:       llm.SniffMimeType(data),
		Model:          llm.DefaultImageModel,
		RevisedPrompt:  payload.RevisedPrompt,
	}, nil
}
