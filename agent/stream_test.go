package agent

import (
	"errors"
	"io"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/xaiconv/conversation"
)

func drain(t *testing.T, s *DeltaStream) ([]conversation.Delta, error) {
	t.Helper()
	var out []conversation.Delta
	for {
		d, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
}

func TestDeltaStreamOneBatchPerChunk(t *testing.T) {
	state := &TurnState{}
	s := NewDeltaStream(&fakeStream{chunks: []openai.ChatCompletionStreamResponse{
		toolCallChunk(
			call("a", "get_state", `{"entity_id":"light.kitchen"}`),
			call("b", "", `{}`),
			call("c", "list_devices", ""),
		),
		toolCallChunk(call("d", "set_state", `{"entity_id":"light.kitchen","state":"on"}`)),
		toolCallChunk(call("e", "", `{}`)),
	}}, state)

	deltas, err := drain(t, s)
	require.NoError(t, err)

	var batches [][]conversation.ToolInput
	for _, d := range deltas {
		if d.Kind == conversation.DeltaToolCalls {
			batches = append(batches, d.ToolCalls)
		}
	}
	require.Len(t, batches, 2)
	assert.Equal(t, []conversation.ToolInput{
		{ID: "a", Name: "get_state", Args: map[string]any{"entity_id": "light.kitchen"}},
		{ID: "c", Name: "list_devices", Args: map[string]any{}},
	}, batches[0])
	assert.Equal(t, "d", batches[1][0].ID)

	assert.Equal(t, conversation.DeltaRole, deltas[0].Kind)
	assert.Equal(t, conversation.DeltaTerminal, deltas[len(deltas)-1].Kind)
	assert.True(t, state.StreamedToolCall)
	assert.False(t, state.StreamedOutput)
}

func TestDeltaStreamMalformedArguments(t *testing.T) {
	s := NewDeltaStream(&fakeStream{chunks: []openai.ChatCompletionStreamResponse{
		toolCallChunk(call("a", "set_state", `{"entity_id": light.kitchen`)),
		toolCallChunk(call("b", "set_state", `["on"]`)),
	}}, nil)

	deltas, err := drain(t, s)
	require.NoError(t, err)

	var calls []conversation.ToolInput
	for _, d := range deltas {
		calls = append(calls, d.ToolCalls...)
	}
	require.Len(t, calls, 2)
	assert.Equal(t, map[string]any{conversation.RawArgumentsKey: `{"entity_id": light.kitchen`}, calls[0].Args)
	assert.Equal(t, map[string]any{conversation.RawArgumentsKey: `["on"]`}, calls[1].Args)
}

func TestDeltaStreamTextAndReasoning(t *testing.T) {
	state := &TurnState{}
	s := NewDeltaStream(&fakeStream{chunks: []openai.ChatCompletionStreamResponse{
		chunk(openai.ChatCompletionStreamChoiceDelta{Role: openai.ChatMessageRoleAssistant, ReasoningContent: "thinking"}),
		textChunk("Hello"),
		textChunk(" there"),
		usageChunk(3, 2),
	}}, state)

	deltas, err := drain(t, s)
	require.NoError(t, err)

	require.Len(t, deltas, 5)
	assert.Equal(t, conversation.RoleDelta(), deltas[0])
	assert.Equal(t, conversation.ReasoningDelta("thinking"), deltas[1])
	assert.Equal(t, conversation.TextDelta("Hello"), deltas[2])
	assert.Equal(t, conversation.TextDelta(" there"), deltas[3])

	terminal := deltas[4]
	require.Equal(t, conversation.DeltaTerminal, terminal.Kind)
	assert.Equal(t, "Hello there", terminal.Native.Content)
	assert.Equal(t, "thinking", terminal.Native.ReasoningContent)
	assert.Equal(t, 3, terminal.Native.Usage.PromptTokens)
	assert.True(t, state.StreamedOutput)
}

func TestDeltaStreamRoleOnly(t *testing.T) {
	s := NewDeltaStream(&fakeStream{chunks: []openai.ChatCompletionStreamResponse{roleChunk(), roleChunk()}}, nil)

	deltas, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []conversation.DeltaKind{conversation.DeltaRole, conversation.DeltaTerminal},
		[]conversation.DeltaKind{deltas[0].Kind, deltas[1].Kind})
	assert.Len(t, deltas, 2)
}

func TestDeltaStreamEmpty(t *testing.T) {
	s := NewDeltaStream(&fakeStream{}, nil)

	_, err := s.Next()
	require.ErrorIs(t, err, ErrEmptyStream)

	_, err = s.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDeltaStreamRecvErrorHasNoTerminal(t *testing.T) {
	boom := errors.New("stream reset")
	s := NewDeltaStream(&fakeStream{chunks: []openai.ChatCompletionStreamResponse{textChunk("par")}, err: boom}, nil)

	deltas, err := drain(t, s)
	require.ErrorIs(t, err, boom)
	for _, d := range deltas {
		assert.NotEqual(t, conversation.DeltaTerminal, d.Kind)
	}
}
