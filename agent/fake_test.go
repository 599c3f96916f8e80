package agent

import (
	"context"
	"io"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/xaiconv/conversation"
	"github.com/richinex/xaiconv/llm"
	"github.com/richinex/xaiconv/tools"
)

// fakeStream replays chunks, then returns err (io.EOF when nil).
type fakeStream struct {
	chunks []openai.ChatCompletionStreamResponse
	err    error
	closed bool
}

func (s *fakeStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if len(s.chunks) == 0 {
		if s.err != nil {
			return openai.ChatCompletionStreamResponse{}, s.err
		}
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

// fakeProvider serves one scripted stream per StreamChat call. When the
// script runs out the last stream is repeated.
type fakeProvider struct {
	mu       sync.Mutex
	scripts  [][]openai.ChatCompletionStreamResponse
	requests []openai.ChatCompletionRequest
	opts     []llm.RequestOptions
	streams  []*fakeStream
	image    llm.ImagePayload
	imageReq llm.ImageRequest
	err      error
	recvErr  error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) StreamChat(_ context.Context, req openai.ChatCompletionRequest, opts llm.RequestOptions) (llm.ChunkStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	p.opts = append(p.opts, opts)
	if p.err != nil {
		return nil, p.err
	}

	i := len(p.requests) - 1
	if i >= len(p.scripts) {
		i = len(p.scripts) - 1
	}
	var chunks []openai.ChatCompletionStreamResponse
	if i >= 0 {
		chunks = append(chunks, p.scripts[i]...)
	}
	s := &fakeStream{chunks: chunks, err: p.recvErr}
	p.streams = append(p.streams, s)
	return s, nil
}

func (p *fakeProvider) ListModels(context.Context) ([]string, error) {
	return llm.Models().IDs(), p.err
}

func (p *fakeProvider) GenerateImage(_ context.Context, req llm.ImageRequest) (llm.ImagePayload, error) {
	p.imageReq = req
	return p.image, p.err
}

func chunk(delta openai.ChatCompletionStreamChoiceDelta) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		ID:      "resp-1",
		Model:   llm.ModelGrok4FastNonReasoning,
		Choices: []openai.ChatCompletionStreamChoice{{Index: 0, Delta: delta}},
	}
}

func roleChunk() openai.ChatCompletionStreamResponse {
	return chunk(openai.ChatCompletionStreamChoiceDelta{Role: openai.ChatMessageRoleAssistant})
}

func textChunk(text string) openai.ChatCompletionStreamResponse {
	return chunk(openai.ChatCompletionStreamChoiceDelta{Content: text})
}

func toolCallChunk(calls ...openai.ToolCall) openai.ChatCompletionStreamResponse {
	return chunk(openai.ChatCompletionStreamChoiceDelta{ToolCalls: calls})
}

func usageChunk(in, out int) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{
		ID:    "resp-1",
		Usage: &openai.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out},
	}
}

func call(id, name, args string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: args},
	}
}

// recorder collects deltas.
type recorder struct {
	deltas []conversation.Delta
}

func (r *recorder) Accept(_ context.Context, d conversation.Delta) error {
	r.deltas = append(r.deltas, d)
	return nil
}

func (r *recorder) kinds() []conversation.DeltaKind {
	out := make([]conversation.DeltaKind, len(r.deltas))
	for i, d := range r.deltas {
		out[i] = d.Kind
	}
	return out
}

// stuckLog never considers its tool results answered.
type stuckLog struct {
	recorder
	items []conversation.Item
}

func (l *stuckLog) ConversationID() string       { return "stuck" }
func (l *stuckLog) Items() []conversation.Item   { return l.items }
func (l *stuckLog) ToolAPI() *tools.API          { return nil }
func (l *stuckLog) UnrespondedToolResults() bool { return true }
