// Package agent runs the xAI chat loop over a conversation log.
//
// Contains the per-turn state and the log contract the loop works against.
package agent

import (
	"github.com/richinex/xaiconv/conversation"
	"github.com/richinex/xaiconv/tools"
)

// MaxToolIterations bounds the request/stream cycles of one turn.
const MaxToolIterations = 6

// ChatLog is the conversation a turn reads from and streams into.
// The loop never mutates the history directly; everything it produces goes
// through Accept.
type ChatLog interface {
	conversation.DeltaSink

	// ConversationID identifies the conversation to the provider.
	ConversationID() string

	// Items returns the history in order.
	Items() []conversation.Item

	// ToolAPI returns the tools of this turn, or nil when tools are disabled.
	ToolAPI() *tools.API

	// UnrespondedToolResults reports whether the history ends with tool
	// results the model has not seen yet.
	UnrespondedToolResults() bool
}

// TaskLog is a ChatLog that can report its last messages.
type TaskLog interface {
	ChatLog
	LastAssistant() (conversation.Assistant, bool)
	LastUser() (conversation.User, bool)
}

// TurnState tracks one caller-level turn across iterations.
type TurnState struct {
	Iteration        int
	ProgressNotified bool
	StreamedOutput   bool
	StreamedToolCall bool
}

// UsageStats holds token counts reported by the provider.
// Nil fields were not reported.
type UsageStats struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
}

var (
	_ TaskLog = (*conversation.Log)(nil)
)
