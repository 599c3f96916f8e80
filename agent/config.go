// Agent configuration types.
//
// Information Hiding:
// - Default values hidden
// - Model capability lookups hidden behind the resolver

package agent

import (
	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/llm"
)

// Config holds agent configuration.
type Config struct {
	// Options are the subentry options of this agent.
	Options config.Options

	// Defaults fill options that are not set.
	Defaults config.Defaults

	// Models tells which models accept reasoning_effort.
	Models llm.ModelTable

	// ProgressMessage is sent once per turn while tools run silently.
	ProgressMessage string
}

// DefaultConfig returns a configuration using the recommended defaults.
func DefaultConfig(opts config.Options) Config {
	return Config{
		Options:         opts,
		Defaults:        config.RecommendedDefaults(),
		Models:          llm.Models(),
		ProgressMessage: config.ProgressMessage,
	}
}

// Model returns the chat model the agent uses.
func (c Config) Model() string {
	return c.Options.Model(c.Defaults)
}
