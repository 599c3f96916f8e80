package entity

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/richinex/xaiconv/agent"
	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/conversation"
	"github.com/richinex/xaiconv/llm"
)

// TaskFeature flags what an AI task entity can do.
type TaskFeature uint

const (
	FeatureGenerateData TaskFeature = 1 << iota
	FeatureSupportAttachments
	FeatureGenerateImage
)

// Has reports whether all of flags are set.
func (f TaskFeature) Has(flags TaskFeature) bool {
	return f&flags == flags
}

// DataTask asks for text or structured data.
type DataTask struct {
	Name         string
	Instructions string
	Attachments  []conversation.Attachment
	// Structure is a JSON schema the reply must match. Empty means text.
	Structure json.RawMessage
}

// ImageTask asks for one generated image.
type ImageTask struct {
	Name         string
	Instructions string
}

// TaskEntity runs AI tasks for one subentry.
type TaskEntity struct {
	base
}

// NewTaskEntity creates the AI task entity of sub.
func NewTaskEntity(sub config.Subentry, provider llm.Provider, logger *slog.Logger) *TaskEntity {
	return &TaskEntity{base: newBase(sub, provider, logger)}
}

// SupportedFeatures reports the task kinds the entity runs.
func (e *TaskEntity) SupportedFeatures() TaskFeature {
	return FeatureGenerateData | FeatureSupportAttachments | FeatureGenerateImage
}

func (e *TaskEntity) newLog(instructions string, attachments []conversation.Attachment) *conversation.Log {
	log := conversation.NewLog("", conversation.WithLogger(e.logger))
	log.SetSystemPrompt(systemPrompt(e.subentry.Options))
	log.AddUser(instructions, attachments...)
	return log
}

// GenerateData runs a data task.
func (e *TaskEntity) GenerateData(ctx context.Context, task DataTask) (*agent.DataResult, error) {
	log := e.newLog(task.Instructions, task.Attachments)
	return e.agent.GenerateData(ctx, log, task.Name, task.Structure)
}

// GenerateImage runs an image task. The instructions are the prompt.
func (e *TaskEntity) GenerateImage(ctx context.Context, task ImageTask) (*agent.ImageResult, error) {
	log := e.newLog(task.Instructions, nil)
	return e.agent.GenerateImage(ctx, log)
}
