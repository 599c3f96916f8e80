// Package entity exposes the configured subentries as conversation agents
// and AI task runners.
//
// Information Hiding:
// - Agent construction from subentry options hidden
// - Device metadata derived from the subentry
// - System prompt assembly hidden

package entity

import (
	"log/slog"
	"strings"

	"github.com/richinex/xaiconv/agent"
	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/llm"
)

// Device registry values shared by every entity.
const (
	Manufacturer     = "xAI"
	EntryTypeService = "service"
)

// DeviceInfo describes the service device an entity belongs to.
type DeviceInfo struct {
	Identifier   string `json:"identifier"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	EntryType    string `json:"entry_type"`
}

// base holds what conversation and task entities share.
type base struct {
	subentry config.Subentry
	agent    *agent.Agent
	logger   *slog.Logger
}

func newBase(sub config.Subentry, provider llm.Provider, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("subentry", sub.ID, "type", sub.Type)
	return base{
		subentry: sub,
		agent:    agent.NewBuilder(provider).Options(sub.Options).Logger(logger).Build(),
		logger:   logger,
	}
}

// UniqueID is the subentry id.
func (b *base) UniqueID() string {
	return b.subentry.ID
}

// Subentry returns the configuration the entity was built from.
func (b *base) Subentry() config.Subentry {
	return b.subentry
}

// DeviceInfo returns the device the entity registers under.
func (b *base) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifier:   b.subentry.ID,
		Name:         b.subentry.Title,
		Manufacturer: Manufacturer,
		Model:        b.subentry.Options.Model(config.RecommendedDefaults()),
		EntryType:    EntryTypeService,
	}
}

// systemPrompt joins the configured prompt (or the default one) with the
// non-empty extra parts, in order.
func systemPrompt(opts config.Options, extra ...string) string {
	prompt := opts.Prompt
	if prompt == "" {
		prompt = config.DefaultInstructionsPrompt
	}
	parts := []string{strings.TrimSpace(prompt)}
	for _, p := range extra {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}
