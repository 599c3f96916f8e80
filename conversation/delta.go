package conversation

import (
	"context"

	"github.com/richinex/xaiconv/llm"
)

// DeltaKind tags a Delta.
type DeltaKind int

const (
	// DeltaRole announces the start of an assistant message.
	DeltaRole DeltaKind = iota
	// DeltaText carries answer text.
	DeltaText
	// DeltaReasoning carries thinking text.
	DeltaReasoning
	// DeltaToolCalls carries the tool calls of one chunk.
	DeltaToolCalls
	// DeltaTerminal ends a stream and carries the final response snapshot.
	DeltaTerminal
	// DeltaProgress is a notice for listeners while tools run. It is not
	// part of the conversation.
	DeltaProgress
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaRole:
		return "role"
	case DeltaText:
		return "text"
	case DeltaReasoning:
		return "reasoning"
	case DeltaToolCalls:
		return "tool_calls"
	case DeltaTerminal:
		return "terminal"
	case DeltaProgress:
		return "progress"
	default:
		return "unknown"
	}
}

// Delta is one incremental unit of streamed assistant output.
type Delta struct {
	Kind      DeltaKind
	Role      string
	Text      string
	ToolCalls []ToolInput
	Native    *llm.Response
}

// RoleDelta announces an assistant message.
func RoleDelta() Delta { return Delta{Kind: DeltaRole, Role: "assistant"} }

// TextDelta carries answer text.
func TextDelta(text string) Delta { return Delta{Kind: DeltaText, Text: text} }

// ReasoningDelta carries thinking text.
func ReasoningDelta(text string) Delta { return Delta{Kind: DeltaReasoning, Text: text} }

// ToolCallsDelta carries a batch of tool calls.
func ToolCallsDelta(calls []ToolInput) Delta { return Delta{Kind: DeltaToolCalls, ToolCalls: calls} }

// TerminalDelta ends a stream.
func TerminalDelta(native *llm.Response) Delta { return Delta{Kind: DeltaTerminal, Native: native} }

// ProgressDelta is the progress notice sent while tools run silently.
func ProgressDelta(text string) Delta { return Delta{Kind: DeltaProgress, Role: "assistant", Text: text} }

// DeltaSink accepts streamed deltas one at a time.
type DeltaSink interface {
	Accept(ctx context.Context, delta Delta) error
}

// DeltaSinkFunc adapts a function to DeltaSink.
type DeltaSinkFunc func(ctx context.Context, delta Delta) error

// Accept calls f.
func (f DeltaSinkFunc) Accept(ctx context.Context, delta Delta) error {
	return f(ctx, delta)
}
