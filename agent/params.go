// Request parameter resolution.
//
// Information Hiding:
// - Fallback to defaults hidden
// - Model capability checks hidden
// - go-openai zero-value quirks hidden

package agent

import (
	"log/slog"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/llm"
)

// RequestParameters is the resolved parameter set of one chat request.
type RequestParameters struct {
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	// ReasoningEffort is empty when the field must be omitted.
	ReasoningEffort string
	// Search is nil when the provider default applies.
	Search *llm.SearchParameters
}

// ResolveParameters merges the options with the defaults and the model's
// capabilities.
func ResolveParameters(opts config.Options, defaults config.Defaults, models llm.ModelTable, logger *slog.Logger) RequestParameters {
	if logger == nil {
		logger = slog.Default()
	}

	params := RequestParameters{
		Model:       opts.Model(defaults),
		MaxTokens:   defaults.MaxTokens,
		Temperature: defaults.Temperature,
		TopP:        defaults.TopP,
	}
	if opts.MaxTokens != nil {
		params.MaxTokens = *opts.MaxTokens
	}
	if opts.Temperature != nil {
		params.Temperature = *opts.Temperature
	}
	if opts.TopP != nil {
		params.TopP = *opts.TopP
	}

	if opts.ReasoningEffort != "" {
		if models.SupportsReasoning(params.Model) {
			params.ReasoningEffort = opts.ReasoningEffort
		} else {
			logger.Debug("model does not support reasoning effort, omitting",
				"model", params.Model,
				"reasoning_effort", opts.ReasoningEffort)
		}
	}

	if opts.LiveSearch != nil {
		if *opts.LiveSearch {
			maxResults := defaults.MaxSearchResults
			if opts.MaxSearchResults != nil {
				maxResults = *opts.MaxSearchResults
			}
			params.Search = &llm.SearchParameters{Mode: llm.SearchOn, MaxSearchResults: &maxResults}
		} else {
			params.Search = &llm.SearchParameters{Mode: llm.SearchOff}
		}
	}

	return params
}

// Request builds the chat request for one iteration. user identifies the
// conversation to the provider.
func (p RequestParameters) Request(messages []openai.ChatCompletionMessage, tools []openai.Tool, user string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:               p.Model,
		Messages:            messages,
		MaxCompletionTokens: p.MaxTokens,
		Temperature:         samplingValue(p.Temperature),
		TopP:                samplingValue(p.TopP),
		ReasoningEffort:     p.ReasoningEffort,
		User:                user,
		Store:               false,
		StreamOptions:       &openai.StreamOptions{IncludeUsage: true},
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ParallelToolCalls = true
	}
	return req
}

// samplingValue keeps an explicit zero on the wire; go-openai drops zero
// floats.
func samplingValue(v float64) float32 {
	if v == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(v)
}
