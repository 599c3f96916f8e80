package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/richinex/xaiconv/agent"
	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/conversation"
	"github.com/richinex/xaiconv/llm"
	"github.com/richinex/xaiconv/storage"
	"github.com/richinex/xaiconv/tools"
)

// ErrLLMAPI reports a configured tool API that is not available.
var ErrLLMAPI = errors.New("error preparing LLM API")

// ConversationFeature flags what a conversation entity can do.
type ConversationFeature uint

// FeatureControl means the agent can control devices through a tool API.
const FeatureControl ConversationFeature = 1 << iota

// Input is one message sent to a conversation agent.
type Input struct {
	Text string
	// ConversationID continues an earlier conversation. Empty starts one.
	ConversationID    string
	Attachments       []conversation.Attachment
	ExtraSystemPrompt string
	// Listener receives every streamed delta.
	Listener conversation.DeltaSink
	// OnToolResult is called for every tool result the turn produces.
	OnToolResult func(conversation.ToolResult)
}

// Result is the outcome of one message.
type Result struct {
	ConversationID string
	Response       string
	Usage          *agent.UsageStats
	Items          []conversation.Item
}

// ConversationEntity is the conversation agent of one subentry.
type ConversationEntity struct {
	base
	apis  map[string]*tools.API
	store storage.ConversationStorage
}

// NewConversationEntity creates the agent of sub. apis are the tool APIs
// the subentry may enable; store may be nil.
func NewConversationEntity(sub config.Subentry, provider llm.Provider, apis map[string]*tools.API, store storage.ConversationStorage, logger *slog.Logger) *ConversationEntity {
	return &ConversationEntity{
		base:  newBase(sub, provider, logger),
		apis:  apis,
		store: store,
	}
}

// SupportedFeatures reports FeatureControl when a tool API is enabled.
func (e *ConversationEntity) SupportedFeatures() ConversationFeature {
	if e.subentry.Options.HasLLMAPI() {
		return FeatureControl
	}
	return 0
}

// SupportedLanguages is "*": the model answers in any language.
func (e *ConversationEntity) SupportedLanguages() string {
	return "*"
}

// toolAPI returns the API the subentry enables, or nil.
func (e *ConversationEntity) toolAPI() (*tools.API, error) {
	ids := e.subentry.Options.LLMAPIs
	if len(ids) == 0 {
		return nil, nil
	}

	apis := make([]*tools.API, 0, len(ids))
	for _, id := range ids {
		api, ok := e.apis[id]
		if !ok {
			return nil, fmt.Errorf("%w: API %s not found", ErrLLMAPI, id)
		}
		apis = append(apis, api)
	}

	api, err := tools.MergeAPIs(strings.Join(ids, "|"), apis...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMAPI, err)
	}
	return api, nil
}

// Process handles one message and returns the agent's reply.
func (e *ConversationEntity) Process(ctx context.Context, in Input) (*Result, error) {
	id := in.ConversationID
	if id == "" {
		id = uuid.NewString()
	}

	api, err := e.toolAPI()
	if err != nil {
		return nil, err
	}

	var history []conversation.Item
	if e.store != nil && in.ConversationID != "" {
		history, err = e.store.Load(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load conversation %s: %w", id, err)
		}
	}

	opts := []conversation.LogOption{
		conversation.WithHistory(history),
		conversation.WithToolAPI(api),
		conversation.WithLogger(e.logger),
	}
	if in.Listener != nil {
		opts = append(opts, conversation.WithListener(in.Listener))
	}
	if in.OnToolResult != nil {
		opts = append(opts, conversation.WithToolResultObserver(in.OnToolResult))
	}
	log := conversation.NewLog(id, opts...)

	var apiPrompt string
	if api != nil {
		apiPrompt = api.Prompt
	}
	log.SetSystemPrompt(systemPrompt(e.subentry.Options, apiPrompt, in.ExtraSystemPrompt))
	log.AddUser(in.Text, in.Attachments...)

	usage, err := e.agent.HandleChatLog(ctx, log)
	if err != nil {
		return nil, err
	}

	items := log.Items()
	if e.store != nil {
		if err := e.store.Save(ctx, id, items); err != nil {
			return nil, fmt.Errorf("save conversation %s: %w", id, err)
		}
	}

	result := &Result{ConversationID: id, Usage: usage, Items: items}
	if last, ok := log.LastAssistant(); ok {
		result.Response = last.Content
	}
	return result, nil
}
