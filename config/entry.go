package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Entry is one configured xAI account together with its subentries.
type Entry struct {
	EntryID    string        `yaml:"entry_id"`
	Title      string        `yaml:"title"`
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url,omitempty"`
	Subentries []Subentry    `yaml:"subentries"`
	Logger     LoggerConfig  `yaml:"logger"`
	Tracer     TracerConfig  `yaml:"tracer"`
	Breaker    BreakerConfig `yaml:"breaker"`
	MCPServers []MCPServer   `yaml:"mcp_servers,omitempty"`
	// DevicesFile points to the simulated device state used by the assist API.
	DevicesFile string `yaml:"devices_file,omitempty"`
}

// Subentry configures one conversation agent or AI task entity.
type Subentry struct {
	ID      string  `yaml:"id"`
	Type    string  `yaml:"type"`
	Title   string  `yaml:"title"`
	Options Options `yaml:"data"`
}

// TracerConfig controls OpenTelemetry tracing.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// BreakerConfig configures the circuit breaker around provider calls.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// MCPServer describes an MCP server whose tools join the tool API.
type MCPServer struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"`
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	URL       string            `yaml:"url,omitempty"`
}

// NewEntry creates an entry with one recommended conversation subentry and
// one recommended AI task subentry.
func NewEntry(apiKey string) Entry {
	return Entry{
		EntryID: uuid.NewString(),
		Title:   "xAI",
		APIKey:  apiKey,
		Subentries: []Subentry{
			{
				ID:      uuid.NewString(),
				Type:    SubentryConversation,
				Title:   DefaultConversationName,
				Options: RecommendedConversationOptions(),
			},
			{
				ID:      uuid.NewString(),
				Type:    SubentryAITask,
				Title:   DefaultAITaskName,
				Options: RecommendedTaskOptions(),
			},
		},
	}
}

// LoadEntry parses a YAML entry file. Environment references such as
// ${XAI_API_KEY} are expanded before parsing.
func LoadEntry(path string) (*Entry, error) {
	if path == "" {
		return nil, errors.New("entry file path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry file: %w", err)
	}

	var entry Entry
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &entry); err != nil {
		return nil, fmt.Errorf("failed to parse entry file: %w", err)
	}

	if entry.EntryID == "" {
		entry.EntryID = uuid.NewString()
	}
	for i := range entry.Subentries {
		sub := &entry.Subentries[i]
		if sub.ID == "" {
			sub.ID = uuid.NewString()
		}
		if sub.Title == "" {
			sub.Title = defaultTitle(sub.Type)
		}
		if err := sub.Options.Validate(); err != nil {
			return nil, fmt.Errorf("subentry %q: %w", sub.Title, err)
		}
	}

	return &entry, nil
}

// Save writes the entry as YAML.
func (e Entry) Save(path string) error {
	data, err := yaml.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write entry file: %w", err)
	}
	return nil
}

// Subentry returns the first subentry of the given type.
func (e Entry) Subentry(subentryType string) (Subentry, bool) {
	for _, sub := range e.Subentries {
		if sub.Type == subentryType {
			return sub, true
		}
	}
	return Subentry{}, false
}

func defaultTitle(subentryType string) string {
	switch subentryType {
	case SubentryAITask:
		return DefaultAITaskName
	default:
		return DefaultConversationName
	}
}

// Entry builds a new entry from the environment settings. Options set in
// the environment override the recommended ones of every subentry.
func (s Settings) Entry() Entry {
	entry := NewEntry(s.APIKey)
	entry.BaseURL = s.BaseURL
	entry.Logger = s.Logger
	for i := range entry.Subentries {
		entry.Subentries[i].Options = entry.Subentries[i].Options.Overlay(s.Options)
	}
	return entry
}
