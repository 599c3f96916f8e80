package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyTool struct {
	BaseTool
	failures int
	calls    int
}

func (f *flakyTool) Metadata() ToolMetadata {
	return ToolMetadata{Name: "flaky", Description: "fails a few times"}
}

func (f *flakyTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return FailureResultf("connection reset"), nil
	}
	return SuccessResult(map[string]any{"calls": f.calls}), nil
}

func TestExecutorRetries(t *testing.T) {
	tool := &flakyTool{failures: 2}
	exec := NewExecutor(ToolConfig{MaxRetries: 3, TimeoutSecs: 1})

	result, err := exec.Execute(context.Background(), tool, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, 3, tool.calls)
}

func TestExecutorGivesUp(t *testing.T) {
	tool := &flakyTool{failures: 10}
	exec := NewExecutor(ToolConfig{MaxRetries: 2, TimeoutSecs: 1})

	result, err := exec.Execute(context.Background(), tool, json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Contains(t, result.Error.Error(), "failed after 2 attempts")
}

func TestExecutorStopsOnCancel(t *testing.T) {
	tool := &flakyTool{failures: 10}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefaultExecutor().Execute(ctx, tool, json.RawMessage(`{}`))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestJSONSchemaFromParameters(t *testing.T) {
	schema, err := JSONSchema(ToolMetadata{
		Name: "set_state",
		Parameters: []ToolParameter{
			{Name: "entity_id", ParamType: "string", Description: "Entity", Required: true},
			{Name: "brightness", ParamType: "int"},
			{Name: "mode", Enum: []string{"a", "b"}},
		},
	})
	require.NoError(t, err)

	encoded, err := json.Marshal(schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"entity_id": {"type": "string", "description": "Entity"},
			"brightness": {"type": "integer"},
			"mode": {"type": "string", "enum": ["a", "b"]}
		},
		"required": ["entity_id"]
	}`, string(encoded))
}

func TestJSONSchemaPrefersExplicitSchema(t *testing.T) {
	explicit := map[string]any{"type": "object", "properties": map[string]any{}}
	schema, err := JSONSchema(ToolMetadata{Name: "remote", Schema: explicit})
	require.NoError(t, err)
	assert.Equal(t, explicit, schema)

	_, err = JSONSchema(ToolMetadata{Name: "bad", Parameters: []ToolParameter{{ParamType: "string"}}})
	assert.Error(t, err)
}

func TestRegistryKeepsOrder(t *testing.T) {
	store, err := NewDeviceStore(nil)
	require.NoError(t, err)

	registry := NewRegistry()
	require.NoError(t, registry.RegisterAll(NewSetStateTool(store), NewGetStateTool(store)))
	assert.Error(t, registry.Register(NewGetStateTool(store)))

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "set_state", list[0].Name)
	assert.Equal(t, []string{"get_state", "set_state"}, registry.Names())
}

func TestMergeAPIs(t *testing.T) {
	store := testStore(t)
	assist, err := NewAssistAPI("assist", store)
	require.NoError(t, err)

	registry := NewRegistry()
	require.NoError(t, registry.Register(NewGetStateTool(store)))
	clash := NewAPI("other", registry)

	_, err = MergeAPIs("merged", assist, clash)
	assert.Error(t, err, "duplicate tool names are rejected")

	extra := NewRegistry()
	require.NoError(t, extra.Register(&flakyTool{}))
	merged, err := MergeAPIs("merged", assist, NewAPI("flaky", extra, WithPrompt("Retry flaky things.")))
	require.NoError(t, err)

	names := []string{}
	for _, meta := range merged.Tools() {
		names = append(names, meta.Name)
	}
	assert.Equal(t, []string{"list_devices", "get_state", "set_state", "flaky"}, names)
	assert.Equal(t, AssistPrompt+"\nRetry flaky things.", merged.Prompt)

	same, err := MergeAPIs("single", assist)
	require.NoError(t, err)
	assert.Same(t, assist, same)
}
