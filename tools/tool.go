// Package tools provides the tool APIs a conversation agent can call.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Error handling internalized per tool
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"go/token"
	"reflect"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string   `json:"name"`
	ParamType   string   `json:"param_type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// ToolMetadata describes what a tool does and how to use it.
// Schema, when set, is a complete JSON schema and takes precedence over
// Parameters.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
	Schema      map[string]any  `json:"schema,omitempty"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// ToolResult represents the result of a tool execution.
// Success is determined by whether Error is nil.
type ToolResult struct {
	Data  map[string]any `json:"data,omitempty"`
	Error error          `json:"-"`
}

// MarshalJSON encodes a success as its data and a failure as
// {"error": <kind>, "error_text": <message>}.
func (t ToolResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Payload())
}

// Payload returns the value sent back to the model.
func (t ToolResult) Payload() map[string]any {
	if t.Error != nil {
		return ErrorPayload(t.Error)
	}
	if t.Data == nil {
		return map[string]any{}
	}
	return t.Data
}

// Success returns true if the tool execution succeeded.
func (t ToolResult) Success() bool {
	return t.Error == nil
}

// SuccessResult creates a successful tool result.
func SuccessResult(data map[string]any) ToolResult {
	return ToolResult{Data: data}
}

// FailureResult creates a failed tool result.
func FailureResult(err error) ToolResult {
	return ToolResult{Error: err}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(format string, args ...interface{}) ToolResult {
	return ToolResult{Error: fmt.Errorf(format, args...)}
}

// ErrorPayload is the tool result payload for err.
func ErrorPayload(err error) map[string]any {
	return map[string]any{
		"error":      errorKind(err),
		"error_text": err.Error(),
	}
}

func errorKind(err error) string {
	var kinded interface{ Kind() string }
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if !token.IsExported(t.Name()) {
		return "Error"
	}
	return t.Name()
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their internal execution logic,
// data structures, and error handling strategies behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with given arguments.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)

	// Validate validates arguments before execution (optional).
	Validate(args json.RawMessage) error
}

// BaseTool provides a default implementation for Validate.
type BaseTool struct{}

// Validate provides a default no-op validation.
func (BaseTool) Validate(args json.RawMessage) error {
	return nil
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s and retries to 3.
type ToolConfig struct {
	TimeoutSecs uint64
	MaxRetries  uint32
}

// Timeout returns the configured timeout, defaulting to 30 seconds if zero.
func (c *ToolConfig) Timeout() uint64 {
	if c == nil || c.TimeoutSecs == 0 {
		return 30
	}
	return c.TimeoutSecs
}

// Retries returns the configured max retries, defaulting to 3 if zero.
func (c *ToolConfig) Retries() uint32 {
	if c == nil || c.MaxRetries == 0 {
		return 3
	}
	return c.MaxRetries
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		TimeoutSecs: 30,
		MaxRetries:  3,
	}
}
