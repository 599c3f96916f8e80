// Tool API.
//
// Information Hiding:
// - An API bundles the tools of one source with the prompt that explains them
// - Argument encoding and executor retries are hidden behind Call
// - Schema serialization is pluggable per API

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Serializer converts a tool descriptor into a JSON schema object for the
// model's function parameters.
type Serializer func(meta ToolMetadata) (map[string]any, error)

// UnknownToolError is reported by API.Call for a name no tool answers to.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool '%s' not found", e.Name)
}

// Kind names the error in tool result payloads.
func (e *UnknownToolError) Kind() string { return "ToolNotFound" }

// API is the set of tools available to one conversation turn.
type API struct {
	ID         string
	Prompt     string
	Serializer Serializer

	registry *Registry
	executor *Executor
}

// APIOption configures an API.
type APIOption func(*API)

// WithPrompt sets the text appended to the system prompt when the API is used.
func WithPrompt(prompt string) APIOption {
	return func(a *API) { a.Prompt = prompt }
}

// WithSerializer replaces the default schema serializer.
func WithSerializer(s Serializer) APIOption {
	return func(a *API) { a.Serializer = s }
}

// WithExecutor replaces the default executor.
func WithExecutor(e *Executor) APIOption {
	return func(a *API) { a.executor = e }
}

// NewAPI creates an API over the tools of registry.
func NewAPI(id string, registry *Registry, opts ...APIOption) *API {
	api := &API{
		ID:         id,
		Serializer: JSONSchema,
		registry:   registry,
		executor:   NewDefaultExecutor(),
	}
	for _, opt := range opts {
		opt(api)
	}
	return api
}

// Tools returns the descriptors of the API's tools in registration order.
func (a *API) Tools() []ToolMetadata {
	if a == nil || a.registry == nil {
		return nil
	}
	return a.registry.List()
}

// Serialize converts one descriptor with the API's serializer.
func (a *API) Serialize(meta ToolMetadata) (map[string]any, error) {
	if a.Serializer == nil {
		return JSONSchema(meta)
	}
	return a.Serializer(meta)
}

// Call runs the named tool. Tool failures are reported in the result, not
// as an error; the error return is reserved for cancellation.
func (a *API) Call(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	tool, ok := a.registry.Get(name)
	if !ok {
		return FailureResult(&UnknownToolError{Name: name}), nil
	}

	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to encode arguments: %w", err)), nil
	}

	return a.executor.Execute(ctx, tool, raw)
}

// JSONSchema is the default Serializer. It returns meta.Schema when set and
// otherwise builds an object schema from meta.Parameters.
func JSONSchema(meta ToolMetadata) (map[string]any, error) {
	if meta.Schema != nil {
		return meta.Schema, nil
	}

	properties := make(map[string]any, len(meta.Parameters))
	required := []string{}
	for _, p := range meta.Parameters {
		if p.Name == "" {
			return nil, fmt.Errorf("tool '%s' has a parameter without a name", meta.Name)
		}
		prop := map[string]any{"type": paramType(p.ParamType)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}, nil
}

func paramType(t string) string {
	switch t {
	case "":
		return "string"
	case "int", "integer":
		return "integer"
	case "float", "number":
		return "number"
	case "bool", "boolean":
		return "boolean"
	default:
		return t
	}
}

// MergeAPIs combines several APIs into one. Prompts are joined in order and
// the first API's executor is used. Tool names must be unique across apis.
func MergeAPIs(id string, apis ...*API) (*API, error) {
	if len(apis) == 1 {
		return apis[0], nil
	}

	registry := NewRegistry()
	var prompts []string
	var executor *Executor
	for _, api := range apis {
		if api == nil {
			continue
		}
		if executor == nil {
			executor = api.executor
		}
		if api.Prompt != "" {
			prompts = append(prompts, api.Prompt)
		}
		for _, meta := range api.Tools() {
			tool, _ := api.registry.Get(meta.Name)
			if err := registry.Register(tool); err != nil {
				return nil, fmt.Errorf("merge API '%s': %w", api.ID, err)
			}
		}
	}

	opts := []APIOption{WithPrompt(strings.Join(prompts, "\n"))}
	if executor != nil {
		opts = append(opts, WithExecutor(executor))
	}
	return NewAPI(id, registry, opts...), nil
}
