// Streaming delta demultiplexer.
//
// Information Hiding:
// - Chunk folding into the response snapshot hidden
// - Role announcement bookkeeping hidden
// - Tool-call normalization hidden

package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/xaiconv/conversation"
	"github.com/richinex/xaiconv/llm"
)

// DeltaStream turns a provider chunk stream into conversation deltas.
// It is single-use and not safe for concurrent use.
type DeltaStream struct {
	stream   llm.ChunkStream
	state    *TurnState
	snapshot llm.Response
	pending  []conversation.Delta
	announce bool
	done     bool
}

// NewDeltaStream wraps stream. Output and tool-call flags are recorded on
// state, which may be nil.
func NewDeltaStream(stream llm.ChunkStream, state *TurnState) *DeltaStream {
	if state == nil {
		state = &TurnState{}
	}
	return &DeltaStream{stream: stream, state: state}
}

// Next returns the next delta. After the terminal delta it returns io.EOF.
// A stream that ends before any chunk fails with ErrEmptyStream; transport
// failures are returned wrapped and no terminal delta follows.
func (s *DeltaStream) Next() (conversation.Delta, error) {
	for len(s.pending) == 0 {
		if s.done {
			return conversation.Delta{}, io.EOF
		}

		chunk, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			if s.snapshot.Chunks == 0 {
				return conversation.Delta{}, ErrEmptyStream
			}
			final := s.snapshot
			return conversation.TerminalDelta(&final), nil
		}
		if err != nil {
			s.done = true
			return conversation.Delta{}, fmt.Errorf("stream recv failed: %w", err)
		}

		s.snapshot.Accumulate(chunk)
		s.demux(chunk)
	}

	delta := s.pending[0]
	s.pending = s.pending[1:]
	return delta, nil
}

// Close releases the underlying stream.
func (s *DeltaStream) Close() error {
	return s.stream.Close()
}

// Snapshot returns the response folded so far.
func (s *DeltaStream) Snapshot() llm.Response {
	return s.snapshot
}

func (s *DeltaStream) demux(chunk openai.ChatCompletionStreamResponse) {
	for _, choice := range chunk.Choices {
		emitted := false
		delta := choice.Delta

		if delta.Content != "" {
			s.announceRole()
			s.pending = append(s.pending, conversation.TextDelta(delta.Content))
			s.state.StreamedOutput = true
			emitted = true
		}

		if delta.ReasoningContent != "" {
			s.announceRole()
			s.pending = append(s.pending, conversation.ReasoningDelta(delta.ReasoningContent))
			s.state.StreamedOutput = true
			emitted = true
		}

		if len(delta.ToolCalls) > 0 {
			batch := make([]conversation.ToolInput, 0, len(delta.ToolCalls))
			for _, tc := range delta.ToolCalls {
				if call, ok := normalizeToolCall(tc); ok {
					batch = append(batch, call)
				}
			}
			if len(batch) > 0 {
				s.announceRole()
				s.pending = append(s.pending, conversation.ToolCallsDelta(batch))
				s.state.StreamedToolCall = true
				emitted = true
			}
		}

		if !emitted && s.snapshot.Role == openai.ChatMessageRoleAssistant {
			s.announceRole()
		}
	}
}

func (s *DeltaStream) announceRole() {
	if s.announce {
		return
	}
	s.announce = true
	s.pending = append(s.pending, conversation.RoleDelta())
}

// normalizeToolCall converts a streamed call into a ToolInput. Calls without
// a function name are dropped. Arguments that are not a JSON object are
// kept verbatim under conversation.RawArgumentsKey.
func normalizeToolCall(tc openai.ToolCall) (conversation.ToolInput, bool) {
	if tc.Function.Name == "" {
		return conversation.ToolInput{}, false
	}

	call := conversation.ToolInput{ID: tc.ID, Name: tc.Function.Name}
	raw := tc.Function.Arguments
	if strings.TrimSpace(raw) == "" {
		call.Args = map[string]any{}
		return call, true
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		call.Args = map[string]any{conversation.RawArgumentsKey: raw}
		return call, true
	}
	call.Args = args
	return call, true
}
