package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/richinex/xaiconv/tools"
)

// ErrNoToolAPI is reported in tool results when the model calls a tool but
// the turn has no tool API.
var ErrNoToolAPI = errors.New("no tool API is enabled for this conversation")

// Log is an in-memory conversation history that assembles streamed deltas
// into assistant items and answers their tool calls.
//
// Tool calls are executed synchronously when the assistant message that
// requested them is complete, so after a stream ends every call has a
// result in the log.
type Log struct {
	mu       sync.Mutex
	id       string
	items    []Item
	api      *tools.API
	pending  *Assistant
	logger   *slog.Logger
	listener DeltaSink
	observer func(ToolResult)
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithToolAPI attaches the tool API used to answer tool calls.
func WithToolAPI(api *tools.API) LogOption {
	return func(l *Log) { l.api = api }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LogOption {
	return func(l *Log) { l.logger = logger }
}

// WithListener forwards every accepted delta to sink before it is applied.
func WithListener(sink DeltaSink) LogOption {
	return func(l *Log) { l.listener = sink }
}

// WithToolResultObserver is called with every tool result the log produces.
func WithToolResultObserver(fn func(ToolResult)) LogOption {
	return func(l *Log) { l.observer = fn }
}

// WithHistory seeds the log with earlier items.
func WithHistory(items []Item) LogOption {
	return func(l *Log) { l.items = append(l.items, items...) }
}

// NewLog creates a log. An empty id gets a random one.
func NewLog(id string, opts ...LogOption) *Log {
	if id == "" {
		id = uuid.NewString()
	}
	l := &Log{id: id, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ConversationID returns the conversation id.
func (l *Log) ConversationID() string {
	return l.id
}

// ToolAPI returns the tool API, or nil when tools are disabled.
func (l *Log) ToolAPI() *tools.API {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.api
}

// SetToolAPI replaces the tool API for subsequent turns.
func (l *Log) SetToolAPI(api *tools.API) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.api = api
}

// Items returns a copy of the history.
func (l *Log) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Append adds items to the history.
func (l *Log) Append(items ...Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, items...)
}

// SetSystemPrompt makes prompt the first item, replacing an existing one.
func (l *Log) SetSystemPrompt(prompt string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) > 0 {
		if _, ok := l.items[0].(System); ok {
			l.items[0] = System{Content: prompt}
			return
		}
	}
	l.items = append([]Item{System{Content: prompt}}, l.items...)
}

// AddUser appends a user message.
func (l *Log) AddUser(content string, attachments ...Attachment) {
	l.Append(User{Content: content, Attachments: attachments})
}

// UnrespondedToolResults reports whether the history ends with tool results
// the model has not seen yet.
func (l *Log) UnrespondedToolResults() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return false
	}
	_, ok := l.items[len(l.items)-1].(ToolResult)
	return ok
}

// LastAssistant returns the most recent assistant item when it is the last
// item of the history.
func (l *Log) LastAssistant() (Assistant, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return Assistant{}, false
	}
	a, ok := l.items[len(l.items)-1].(Assistant)
	return a, ok
}

// LastUser returns the most recent user item.
func (l *Log) LastUser() (User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.items) - 1; i >= 0; i-- {
		if u, ok := l.items[i].(User); ok {
			return u, true
		}
	}
	return User{}, false
}

// Accept applies one delta. A role or terminal delta completes the pending
// assistant message and runs its tool calls.
func (l *Log) Accept(ctx context.Context, delta Delta) error {
	if l.listener != nil {
		if err := l.listener.Accept(ctx, delta); err != nil {
			return err
		}
	}

	var calls []ToolInput
	l.mu.Lock()
	switch delta.Kind {
	case DeltaRole:
		calls = l.flushLocked()
		l.pending = &Assistant{}
	case DeltaText:
		l.pendingLocked().Content += delta.Text
	case DeltaReasoning:
		l.pendingLocked().Thinking += delta.Text
	case DeltaToolCalls:
		p := l.pendingLocked()
		for _, call := range delta.ToolCalls {
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
			p.ToolCalls = append(p.ToolCalls, call)
		}
	case DeltaTerminal:
		calls = l.flushLocked()
	case DeltaProgress:
		// Listener only.
	}
	api := l.api
	l.mu.Unlock()

	return l.runToolCalls(ctx, api, calls)
}

func (l *Log) pendingLocked() *Assistant {
	if l.pending == nil {
		l.pending = &Assistant{}
	}
	return l.pending
}

// flushLocked moves the pending assistant message into the history and
// returns its tool calls. Empty messages are dropped.
func (l *Log) flushLocked() []ToolInput {
	p := l.pending
	l.pending = nil
	if p == nil || (p.Content == "" && p.Thinking == "" && len(p.ToolCalls) == 0) {
		return nil
	}
	l.items = append(l.items, *p)
	return p.ToolCalls
}

func (l *Log) runToolCalls(ctx context.Context, api *tools.API, calls []ToolInput) error {
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}

		var payload map[string]any
		if api == nil {
			payload = tools.ErrorPayload(ErrNoToolAPI)
		} else {
			result, err := api.Call(ctx, call.Name, call.Args)
			if err != nil {
				return err
			}
			payload = result.Payload()
			if !result.Success() {
				l.logger.Debug("tool call failed", "tool", call.Name, "error", result.Error)
			}
		}

		tr := ToolResult{ToolCallID: call.ID, ToolName: call.Name, Result: payload}
		l.Append(tr)
		if l.observer != nil {
			l.observer(tr)
		}
	}
	return nil
}
