// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"log/slog"

	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/llm"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder(provider).Options(opts).Build()
type Builder struct {
	provider        llm.Provider
	options         config.Options
	defaults        *config.Defaults
	models          llm.ModelTable
	progressMessage *string
	logger          *slog.Logger
}

// NewBuilder creates a builder for an agent talking to provider.
func NewBuilder(provider llm.Provider) *Builder {
	return &Builder{provider: provider}
}

// Options sets the subentry options.
func (b *Builder) Options(opts config.Options) *Builder {
	b.options = opts
	return b
}

// Defaults overrides the recommended defaults.
func (b *Builder) Defaults(d config.Defaults) *Builder {
	b.defaults = &d
	return b
}

// Models overrides the model capability table.
func (b *Builder) Models(models llm.ModelTable) *Builder {
	b.models = models
	return b
}

// ProgressMessage sets the notice sent while tools run. Empty disables it.
func (b *Builder) ProgressMessage(msg string) *Builder {
	b.progressMessage = &msg
	return b
}

// Logger sets the agent logger.
func (b *Builder) Logger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Config returns the configuration the builder would use.
func (b *Builder) Config() Config {
	cfg := DefaultConfig(b.options)
	if b.defaults != nil {
		cfg.Defaults = *b.defaults
	}
	if b.models != nil {
		cfg.Models = b.models
	}
	if b.progressMessage != nil {
		cfg.ProgressMessage = *b.progressMessage
	}
	return cfg
}

// Build creates the agent.
func (b *Builder) Build() *Agent {
	return New(b.Config(), b.provider, b.logger)
}
