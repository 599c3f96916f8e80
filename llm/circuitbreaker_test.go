package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	calls  int
	err    error
	models []string
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) StreamChat(context.Context, openai.ChatCompletionRequest, RequestOptions) (ChunkStream, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return emptyStream{}, nil
}

func (s *stubProvider) ListModels(context.Context) ([]string, error) {
	s.calls++
	return s.models, s.err
}

func (s *stubProvider) GenerateImage(context.Context, ImageRequest) (ImagePayload, error) {
	s.calls++
	return ImagePayload{Base64: "AAAA"}, s.err
}

type emptyStream struct{}

func (emptyStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	return openai.ChatCompletionStreamResponse{}, io.EOF
}
func (emptyStream) Close() error { return nil }

func TestCircuitBreakerPassesThrough(t *testing.T) {
	inner := &stubProvider{models: []string{"grok-4"}}
	cb := NewCircuitBreakerProvider(inner, CircuitBreakerConfig{}, slog.Default())

	models, err := cb.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"grok-4"}, models)
	assert.Equal(t, "stub", cb.Name())

	payload, err := cb.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "AAAA", payload.Base64)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	inner := &stubProvider{err: errors.New("provider error")}
	cb := NewCircuitBreakerProvider(inner, CircuitBreakerConfig{
		MaxFailures: 3,
		Timeout:     5 * time.Second,
		Interval:    60 * time.Second,
	}, slog.Default())

	for i := 0; i < 3; i++ {
		_, err := cb.StreamChat(context.Background(), openai.ChatCompletionRequest{}, RequestOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider error")
	}
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := cb.StreamChat(context.Background(), openai.ChatCompletionRequest{}, RequestOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 3, inner.calls, "provider should not be called when circuit is open")
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	inner := &stubProvider{err: context.Canceled}
	cb := NewCircuitBreakerProvider(inner, CircuitBreakerConfig{MaxFailures: 1}, nil)

	for i := 0; i < 3; i++ {
		_, err := cb.ListModels(context.Background())
		assert.True(t, errors.Is(err, context.Canceled))
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
