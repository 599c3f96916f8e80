// Package llm provides the xAI provider transport.
//
// Information Hiding:
// - xAI speaks the OpenAI wire format, so the go-openai client is reused
//   with a different base URL
// - Live search parameters are not part of the OpenAI request type and are
//   injected into the outgoing JSON body by an HTTP round tripper
// - Streamed chunks are folded into a Response snapshot by callers through
//   Response.Accumulate
// - Image results are normalised into an ImagePayload resolved once

package llm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Provider is the transport the chat loop and the AI task entity talk to.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// StreamChat issues one streaming chat completion request.
	// The returned stream must be closed by the caller.
	StreamChat(ctx context.Context, req openai.ChatCompletionRequest, opts RequestOptions) (ChunkStream, error)

	// ListModels returns the model ids visible to the configured key.
	// It doubles as the credential and connectivity probe.
	ListModels(ctx context.Context) ([]string, error)

	// GenerateImage asks the image model for a single image.
	GenerateImage(ctx context.Context, req ImageRequest) (ImagePayload, error)
}

// ChunkStream is a one-shot sequence of streamed chat chunks.
// Recv returns io.EOF once the provider closes the stream.
// *openai.ChatCompletionStream satisfies it.
type ChunkStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// RequestOptions carries request fields the OpenAI request type cannot hold.
type RequestOptions struct {
	// Search is sent as search_parameters. Nil leaves the field out so the
	// provider default applies.
	Search *SearchParameters
}

// ImageRequest describes one image generation call.
type ImageRequest struct {
	Prompt string
	Model  string
}

var _ ChunkStream = (*openai.ChatCompletionStream)(nil)
