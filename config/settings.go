// Package config provides integration settings loaded from environment
// variables and YAML entry files.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Option resolution for conversation and AI task subentries

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Subentry types understood by the integration.
const (
	SubentryConversation = "conversation"
	SubentryAITask       = "ai_task"
)

// Names used when creating the default subentries of a new entry.
const (
	DefaultName             = "xAI Conversation"
	DefaultConversationName = DefaultName
	DefaultAITaskName       = "xAI AI Task"
)

// AssistAPI is the identifier of the built-in tool API.
const AssistAPI = "assist"

// DefaultInstructionsPrompt is the system prompt used when none is configured.
const DefaultInstructionsPrompt = `You are a voice assistant for a smart home.
Answer questions about the world truthfully.
Answer in plain text. Keep it simple and to the point.
`

// ProgressMessage is shown to listeners while tools run silently.
const ProgressMessage = "Let me take care of that for you..."

// ReasoningOptions lists the accepted reasoning effort values.
var ReasoningOptions = []string{"low", "medium", "high"}

// Defaults is the immutable set of recommended request values.
// Pass it explicitly to whatever needs a fallback; nothing reads it globally.
type Defaults struct {
	ChatModel        string
	MaxTokens        int
	Temperature      float64
	TopP             float64
	ReasoningEffort  string
	LiveSearch       bool
	MaxSearchResults int
	Prompt           string
}

// RecommendedDefaults returns the recommended request values.
func RecommendedDefaults() Defaults {
	return Defaults{
		ChatModel:        "grok-4-fast-non-reasoning",
		MaxTokens:        4096,
		Temperature:      0.7,
		TopP:             1.0,
		ReasoningEffort:  "medium",
		LiveSearch:       true,
		MaxSearchResults: 20,
		Prompt:           DefaultInstructionsPrompt,
	}
}

// Options holds the user-facing options of one subentry.
// Nil pointers mean "not configured" so the resolver can tell an explicit
// false or zero from an absent value.
type Options struct {
	Recommended      bool     `yaml:"recommended"`
	ChatModel        string   `yaml:"chat_model,omitempty"`
	MaxTokens        *int     `yaml:"max_tokens,omitempty"`
	Temperature      *float64 `yaml:"temperature,omitempty"`
	TopP             *float64 `yaml:"top_p,omitempty"`
	ReasoningEffort  string   `yaml:"reasoning_effort,omitempty"`
	LiveSearch       *bool    `yaml:"live_search,omitempty"`
	MaxSearchResults *int     `yaml:"max_search_results,omitempty"`
	Prompt           string   `yaml:"prompt,omitempty"`
	LLMAPIs          []string `yaml:"llm_api,omitempty"`
}

// RecommendedConversationOptions returns the options a new conversation
// subentry starts with.
func RecommendedConversationOptions() Options {
	d := RecommendedDefaults()
	return Options{
		Recommended: true,
		ChatModel:   d.ChatModel,
		MaxTokens:   Int(d.MaxTokens),
		Temperature: Float(d.Temperature),
		TopP:        Float(d.TopP),
		LiveSearch:  Bool(d.LiveSearch),
		Prompt:      d.Prompt,
		LLMAPIs:     []string{AssistAPI},
	}
}

// RecommendedTaskOptions returns the options a new AI task subentry starts with.
func RecommendedTaskOptions() Options {
	d := RecommendedDefaults()
	return Options{
		Recommended: true,
		ChatModel:   d.ChatModel,
		MaxTokens:   Int(d.MaxTokens),
		Temperature: Float(d.Temperature),
		TopP:        Float(d.TopP),
	}
}

// Model returns the configured chat model or the default one.
func (o Options) Model(d Defaults) string {
	if o.ChatModel != "" {
		return o.ChatModel
	}
	return d.ChatModel
}

// HasLLMAPI reports whether a tool API is enabled for the subentry.
func (o Options) HasLLMAPI() bool {
	return len(o.LLMAPIs) > 0
}

// Validate checks option ranges the way the options form does.
func (o Options) Validate() error {
	if o.MaxTokens != nil && *o.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", *o.MaxTokens)
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return fmt.Errorf("temperature must be within [0, 2], got %v", *o.Temperature)
	}
	if o.TopP != nil && (*o.TopP < 0 || *o.TopP > 1) {
		return fmt.Errorf("top_p must be within [0, 1], got %v", *o.TopP)
	}
	if o.MaxSearchResults != nil && (*o.MaxSearchResults < 1 || *o.MaxSearchResults > 50) {
		return fmt.Errorf("max_search_results must be within [1, 50], got %d", *o.MaxSearchResults)
	}
	if o.ReasoningEffort != "" && !validReasoningEffort(o.ReasoningEffort) {
		return fmt.Errorf("unknown reasoning_effort %q", o.ReasoningEffort)
	}
	return nil
}

func validReasoningEffort(effort string) bool {
	for _, opt := range ReasoningOptions {
		if opt == effort {
			return true
		}
	}
	return false
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Settings holds process-level configuration read from the environment.
type Settings struct {
	APIKey  string
	BaseURL string
	Options Options
	Logger  LoggerConfig
}

// LoggerConfig selects the slog handler and level.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// New creates settings from environment variables.
// Returns an error if environment variables contain invalid values; a
// missing API key is reported by APIKey, not here.
func New() (Settings, error) {
	maxTokens, err := getEnvIntPtr("XAI_MAX_TOKENS")
	if err != nil {
		return Settings{}, err
	}

	temperature, err := getEnvFloatPtr("XAI_TEMPERATURE")
	if err != nil {
		return Settings{}, err
	}

	topP, err := getEnvFloatPtr("XAI_TOP_P")
	if err != nil {
		return Settings{}, err
	}

	liveSearch, err := getEnvBoolPtr("XAI_LIVE_SEARCH")
	if err != nil {
		return Settings{}, err
	}

	maxSearchResults, err := getEnvIntPtr("XAI_MAX_SEARCH_RESULTS")
	if err != nil {
		return Settings{}, err
	}

	opts := Options{
		Recommended:      false,
		ChatModel:        os.Getenv("XAI_MODEL"),
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		TopP:             topP,
		ReasoningEffort:  strings.ToLower(os.Getenv("XAI_REASONING_EFFORT")),
		LiveSearch:       liveSearch,
		MaxSearchResults: maxSearchResults,
		Prompt:           os.Getenv("XAI_PROMPT"),
	}
	if err := opts.Validate(); err != nil {
		return Settings{}, err
	}

	return Settings{
		APIKey:  os.Getenv("XAI_API_KEY"),
		BaseURL: os.Getenv("XAI_BASE_URL"),
		Options: opts,
		Logger: LoggerConfig{
			Level:  os.Getenv("LOG_LEVEL"),
			Format: os.Getenv("LOG_FORMAT"),
			Output: os.Getenv("LOG_OUTPUT"),
		},
	}, nil
}

// MustNew creates settings from the environment.
// Panics if environment variables are invalid.
func MustNew() Settings {
	settings, err := New()
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// ErrMissingAPIKey is returned by APIKey when XAI_API_KEY is empty.
var ErrMissingAPIKey = errors.New("XAI_API_KEY environment variable not set")

// APIKey returns the xAI API key from the environment.
func APIKey() (string, error) {
	key := os.Getenv("XAI_API_KEY")
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// Environment variable helpers with proper error handling

func getEnvIntPtr(key string) (*int, error) {
	val := os.Getenv(key)
	if val == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return &i, nil
}

func getEnvFloatPtr(key string) (*float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return &f, nil
}

func getEnvBoolPtr(key string) (*bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return &b, nil
}

// Overlay returns o with every field set in over replacing its value.
func (o Options) Overlay(over Options) Options {
	if over.ChatModel != "" {
		o.ChatModel = over.ChatModel
	}
	if over.MaxTokens != nil {
		o.MaxTokens = over.MaxTokens
	}
	if over.Temperature != nil {
		o.Temperature = over.Temperature
	}
	if over.TopP != nil {
		o.TopP = over.TopP
	}
	if over.ReasoningEffort != "" {
		o.ReasoningEffort = over.ReasoningEffort
	}
	if over.LiveSearch != nil {
		o.LiveSearch = over.LiveSearch
	}
	if over.MaxSearchResults != nil {
		o.MaxSearchResults = over.MaxSearchResults
	}
	if over.Prompt != "" {
		o.Prompt = over.Prompt
	}
	if over.LLMAPIs != nil {
		o.LLMAPIs = over.LLMAPIs
	}
	return o
}
