package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/llm"
	"github.com/richinex/xaiconv/storage"
	"github.com/richinex/xaiconv/tools"
)

// Probe timeouts.
const (
	SetupTimeout    = 30 * time.Second
	ValidateTimeout = 15 * time.Second
)

// Setup and validation failures.
var (
	ErrEntryNotReady = errors.New("unable to connect to xAI")
	ErrCannotConnect = errors.New("cannot connect to xAI")
	ErrInvalidAPIKey = errors.New("API key is required")
)

// ValidateAPIKey checks that cfg can list models.
func ValidateAPIKey(ctx context.Context, cfg llm.ClientConfig) error {
	if cfg.APIKey == "" {
		return ErrInvalidAPIKey
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = ValidateTimeout
	}
	return probe(ctx, llm.NewXAIProvider(cfg), cfg.Timeout, ErrCannotConnect)
}

func probe(ctx context.Context, provider llm.Provider, timeout time.Duration, sentinel error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := provider.ListModels(ctx); err != nil {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return nil
}

// Runtime is a set-up entry.
type Runtime struct {
	Entry         config.Entry
	Provider      llm.Provider
	Conversations []*ConversationEntity
	Tasks         []*TaskEntity
}

// Conversation returns the conversation entity with the given subentry id,
// or the first one when id is empty.
func (r *Runtime) Conversation(id string) (*ConversationEntity, bool) {
	for _, e := range r.Conversations {
		if id == "" || e.UniqueID() == id {
			return e, true
		}
	}
	return nil, false
}

// Task returns the AI task entity with the given subentry id, or the first
// one when id is empty.
func (r *Runtime) Task(id string) (*TaskEntity, bool) {
	for _, e := range r.Tasks {
		if id == "" || e.UniqueID() == id {
			return e, true
		}
	}
	return nil, false
}

type setupOptions struct {
	provider llm.Provider
	apis     map[string]*tools.API
	store    storage.ConversationStorage
	logger   *slog.Logger
}

// SetupOption configures Setup.
type SetupOption func(*setupOptions)

// WithProvider replaces the xAI client built from the entry.
func WithProvider(p llm.Provider) SetupOption {
	return func(o *setupOptions) { o.provider = p }
}

// WithToolAPIs makes apis available to conversation subentries by id.
func WithToolAPIs(apis ...*tools.API) SetupOption {
	return func(o *setupOptions) {
		for _, api := range apis {
			o.apis[api.ID] = api
		}
	}
}

// WithStorage persists conversations in store.
func WithStorage(store storage.ConversationStorage) SetupOption {
	return func(o *setupOptions) { o.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SetupOption {
	return func(o *setupOptions) { o.logger = logger }
}

// Setup connects to xAI and creates one entity per subentry. The provider
// is wrapped in a circuit breaker; a failing probe yields ErrEntryNotReady.
func Setup(ctx context.Context, entry config.Entry, opts ...SetupOption) (*Runtime, error) {
	o := setupOptions{apis: make(map[string]*tools.API)}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	provider := o.provider
	if provider == nil {
		provider = llm.NewXAIProvider(llm.ClientConfig{
			APIKey:  entry.APIKey,
			BaseURL: entry.BaseURL,
			Timeout: SetupTimeout,
		})
	}
	provider = llm.NewCircuitBreakerProvider(provider, llm.CircuitBreakerConfig{
		MaxFailures: entry.Breaker.MaxFailures,
		Timeout:     entry.Breaker.Timeout,
		Interval:    entry.Breaker.Interval,
	}, o.logger)

	if err := probe(ctx, provider, SetupTimeout, ErrEntryNotReady); err != nil {
		o.logger.Error("Unable to connect to xAI", "error", err)
		return nil, err
	}

	rt := &Runtime{Entry: entry, Provider: provider}
	for _, sub := range entry.Subentries {
		switch sub.Type {
		case config.SubentryConversation:
			rt.Conversations = append(rt.Conversations, NewConversationEntity(sub, provider, o.apis, o.store, o.logger))
		case config.SubentryAITask:
			rt.Tasks = append(rt.Tasks, NewTaskEntity(sub, provider, o.logger))
		default:
			o.logger.Debug("ignoring subentry of unknown type", "subentry", sub.ID, "type", sub.Type)
		}
	}

	o.logger.Info("xAI entry set up",
		"entry", entry.EntryID,
		"conversations", len(rt.Conversations),
		"tasks", len(rt.Tasks))
	return rt, nil
}
