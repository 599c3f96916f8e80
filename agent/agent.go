// Tool-call loop controller.
//
// This is the only place a turn talks to the provider.
//
// Information Hiding:
// - Iteration bookkeeping hidden
// - Request assembly hidden
// - Progress notice policy hidden

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"github.com/richinex/xaiconv/conversation"
	"github.com/richinex/xaiconv/internal/telemetry"
	"github.com/richinex/xaiconv/llm"
)

// Agent runs chat turns against one provider.
type Agent struct {
	config   Config
	provider llm.Provider
	logger   *slog.Logger
}

// New creates an agent. A nil logger discards output.
func New(config Config, provider llm.Provider, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.Models == nil {
		config.Models = llm.Models()
	}
	return &Agent{config: config, provider: provider, logger: logger}
}

// Config returns the agent's configuration.
func (a *Agent) Config() Config {
	return a.config
}

// Provider returns the provider the agent talks to.
func (a *Agent) Provider() llm.Provider {
	return a.provider
}

// TurnOption adjusts a single turn.
type TurnOption func(*turnOptions)

type turnOptions struct {
	schemaName string
	schema     json.RawMessage
}

// WithResponseSchema asks the provider for a reply matching schema.
func WithResponseSchema(name string, schema json.RawMessage) TurnOption {
	return func(o *turnOptions) {
		o.schemaName = name
		o.schema = schema
	}
}

// HandleChatLog runs one turn: it streams the reply into log and loops while
// the log ends with tool results the model has not answered. It returns the
// token usage summed over all iterations, or nil when none was reported.
func (a *Agent) HandleChatLog(ctx context.Context, log ChatLog, opts ...TurnOption) (*UsageStats, error) {
	var to turnOptions
	for _, opt := range opts {
		opt(&to)
	}

	params := ResolveParameters(a.config.Options, a.config.Defaults, a.config.Models, a.logger)
	toolDefs, err := BuildTools(log.ToolAPI())
	if err != nil {
		return nil, err
	}

	reqOpts := llm.RequestOptions{Search: params.Search}
	state := &TurnState{}
	var total *UsageStats

	for state.Iteration < MaxToolIterations {
		state.Iteration++
		state.StreamedOutput = false
		state.StreamedToolCall = false

		usage, err := a.iterate(ctx, log, params, toolDefs, reqOpts, to, state)
		if usage != nil {
			if total == nil {
				total = &UsageStats{}
			}
			total.Add(usage)
		}
		if err != nil {
			return total, err
		}

		if !state.ProgressNotified && state.StreamedToolCall && !state.StreamedOutput && a.config.ProgressMessage != "" {
			state.ProgressNotified = true
			if err := log.Accept(ctx, conversation.ProgressDelta(a.config.ProgressMessage)); err != nil {
				return total, fmt.Errorf("deliver progress notice: %w", err)
			}
		}

		if !log.UnrespondedToolResults() {
			return total, nil
		}
		a.logger.DebugContext(ctx, "tool results pending, requesting again",
			"conversation_id", log.ConversationID(),
			"iteration", state.Iteration)
	}

	return total, ErrTooManyToolIterations
}

// iterate performs one request/stream cycle.
func (a *Agent) iterate(ctx context.Context, log ChatLog, params RequestParameters, toolDefs []openai.Tool, reqOpts llm.RequestOptions, to turnOptions, state *TurnState) (usage *UsageStats, err error) {
	ctx, span := telemetry.StartSpan(ctx, "xai.chat.iteration")
	defer span.End()
	span.SetAttributes(
		attribute.Int("xai.iteration", state.Iteration),
		attribute.String("xai.model", params.Model),
		attribute.String("xai.conversation_id", log.ConversationID()),
	)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
	}()

	messages, err := TranslateMessages(ctx, log.Items())
	if err != nil {
		return nil, err
	}

	req := params.Request(messages, toolDefs, log.ConversationID())
	if len(to.schema) > 0 {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   to.schemaName,
				Schema: to.schema,
				Strict: true,
			},
		}
	}

	stream, err := a.provider.StreamChat(ctx, req, reqOpts)
	if err != nil {
		return nil, fmt.Errorf("create chat stream: %w", err)
	}
	deltas := NewDeltaStream(stream, state)
	defer deltas.Close()

	for {
		delta, err := deltas.Next()
		if errors.Is(err, io.EOF) {
			return usage, nil
		}
		if err != nil {
			return usage, err
		}

		if delta.Kind == conversation.DeltaTerminal {
			usage = RecordUsage(delta.Native)
			reportUsage(ctx, a.logger, usage)
		}

		if err := log.Accept(ctx, delta); err != nil {
			return usage, fmt.Errorf("deliver %s delta: %w", delta.Kind, err)
		}
	}
}
