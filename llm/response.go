package llm

import (
	openai "github.com/sashabaranov/go-openai"
)

// Response is the running snapshot of a streamed chat completion. After the
// stream ends it holds the complete assistant message.
type Response struct {
	ID               string
	Model            string
	Role             string
	Content          string
	ReasoningContent string
	ToolCalls        []openai.ToolCall
	FinishReason     openai.FinishReason
	Usage            *openai.Usage
	// Chunks counts the chunks folded into the snapshot.
	Chunks int

	toolIndex map[int]int
}

// Accumulate folds one streamed chunk into the snapshot. Only the first
// choice is tracked; the request never asks for more than one.
func (r *Response) Accumulate(chunk openai.ChatCompletionStreamResponse) {
	r.Chunks++
	if chunk.ID != "" {
		r.ID = chunk.ID
	}
	if chunk.Model != "" {
		r.Model = chunk.Model
	}
	if chunk.Usage != nil {
		usage := *chunk.Usage
		r.Usage = &usage
	}

	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		delta := choice.Delta
		if delta.Role != "" {
			r.Role = delta.Role
		}
		r.Content += delta.Content
		r.ReasoningContent += delta.ReasoningContent
		for _, tc := range delta.ToolCalls {
			r.mergeToolCall(tc)
		}
		if choice.FinishReason != "" {
			r.FinishReason = choice.FinishReason
		}
	}
}

// mergeToolCall appends argument fragments to the call at the same index,
// or starts a new call.
func (r *Response) mergeToolCall(tc openai.ToolCall) {
	if tc.Index == nil {
		r.ToolCalls = append(r.ToolCalls, tc)
		return
	}
	if r.toolIndex == nil {
		r.toolIndex = make(map[int]int)
	}

	pos, ok := r.toolIndex[*tc.Index]
	if !ok {
		r.toolIndex[*tc.Index] = len(r.ToolCalls)
		r.ToolCalls = append(r.ToolCalls, tc)
		return
	}

	existing := &r.ToolCalls[pos]
	if tc.ID != "" {
		existing.ID = tc.ID
	}
	if tc.Type != "" {
		existing.Type = tc.Type
	}
	if tc.Function.Name != "" {
		existing.Function.Name = tc.Function.Name
	}
	existing.Function.Arguments += tc.Function.Arguments
}
