package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/tools"
)

type mockClient struct {
	tools   []mcp.Tool
	listErr error
	call    func(mcp.CallToolRequest) (*mcp.CallToolResult, error)
	calls   []mcp.CallToolRequest
	closed  bool
}

func (m *mockClient) ListTools(context.Context, mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return &mcp.ListToolsResult{Tools: m.tools}, nil
}

func (m *mockClient) CallTool(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m.calls = append(m.calls, req)
	if m.call != nil {
		return m.call(req)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent("called " + req.Params.Name)}}, nil
}

func (m *mockClient) Close() error {
	m.closed = true
	return nil
}

func weatherTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get-forecast",
		Description: "Weather forecast for a city",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"city": map[string]any{"type": "string"}},
			Required:   []string{"city"},
		},
	}
}

func TestBridgeDiscoversNamespacedTools(t *testing.T) {
	weather := &mockClient{tools: []mcp.Tool{weatherTool()}}
	memory := &mockClient{tools: []mcp.Tool{{Name: "remember"}}}

	b, err := newBridge(context.Background(), []server{
		{name: "weather", client: weather},
		{name: "my.memory", client: memory},
	}, nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range b.Tools() {
		names = append(names, tool.Metadata().Name)
	}
	assert.Equal(t, []string{"mcp_weather_get-forecast", "mcp_my_memory_remember"}, names)

	meta := b.Tools()[0].Metadata()
	assert.Equal(t, "Weather forecast for a city", meta.Description)
	assert.Equal(t, "object", meta.Schema["type"])
	assert.Equal(t, []any{"city"}, meta.Schema["required"])

	empty := b.Tools()[1].Metadata()
	assert.Contains(t, empty.Description, `"remember"`)
	assert.Equal(t, map[string]any{"type": "object", "properties": map[string]any{}}, empty.Schema)

	b.Close()
	assert.True(t, weather.closed)
	assert.True(t, memory.closed)
}

func TestBridgeSkipsFailedServer(t *testing.T) {
	b, err := newBridge(context.Background(), []server{
		{name: "broken", client: &mockClient{listErr: errors.New("boom")}},
		{name: "weather", client: &mockClient{tools: []mcp.Tool{weatherTool()}}},
	}, nil)
	require.NoError(t, err)
	assert.Len(t, b.Tools(), 1)
}

func TestBridgeAllServersFail(t *testing.T) {
	broken := &mockClient{listErr: errors.New("boom")}
	_, err := newBridge(context.Background(), []server{{name: "broken", client: broken}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.True(t, broken.closed)
}

func TestBridgeAPI(t *testing.T) {
	weather := &mockClient{
		tools: []mcp.Tool{weatherTool()},
		call: func(mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(`{"forecast":"sunny"}`)}}, nil
		},
	}
	b, err := newBridge(context.Background(), []server{{name: "weather", client: weather}}, nil)
	require.NoError(t, err)

	api, err := b.API()
	require.NoError(t, err)
	require.NotNil(t, api)
	assert.Equal(t, APIID, api.ID)
	assert.Contains(t, api.Prompt, "weather")

	result, err := api.Call(context.Background(), "mcp_weather_get-forecast", map[string]any{"city": "Oslo"})
	require.NoError(t, err)
	assert.True(t, result.Success())
	assert.Equal(t, map[string]any{"forecast": "sunny"}, result.Payload())

	require.Len(t, weather.calls, 1)
	assert.Equal(t, "get-forecast", weather.calls[0].Params.Name)
	assert.Equal(t, map[string]any{"city": "Oslo"}, weather.calls[0].Params.Arguments)
}

func TestBridgeAPIWithoutTools(t *testing.T) {
	b, err := newBridge(context.Background(), nil, nil)
	require.NoError(t, err)
	api, err := b.API()
	require.NoError(t, err)
	assert.Nil(t, api)
}

func TestToolExecute(t *testing.T) {
	tests := []struct {
		name    string
		result  *mcp.CallToolResult
		callErr error
		want    map[string]any
		retry   bool
	}{
		{
			name:   "plain text",
			result: &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent("line one"), mcp.NewTextContent("line two")}},
			want:   map[string]any{"result": "line one\nline two"},
		},
		{
			name:   "server error",
			result: &mcp.CallToolResult{IsError: true, Content: []mcp.Content{mcp.NewTextContent("city unknown")}},
			want:   map[string]any{"error": "MCPToolError", "error_text": "MCP tool weather/get-forecast: city unknown"},
		},
		{
			name:    "transport error",
			callErr: errors.New("pipe closed"),
			want:    map[string]any{"error": "MCPToolError", "error_text": "MCP tool weather/get-forecast: pipe closed"},
			retry:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &mockClient{call: func(mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return tt.result, tt.callErr
			}}
			tool := newTool("weather", c, weatherTool(), nil)

			result, err := tool.Execute(context.Background(), []byte(`{"city":"Oslo"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Payload())

			var te *ToolError
			if errors.As(result.Error, &te) {
				assert.Equal(t, tt.retry, te.Retryable())
			}
		})
	}
}

func TestToolValidate(t *testing.T) {
	tool := newTool("weather", &mockClient{}, weatherTool(), nil)
	assert.NoError(t, tool.Validate([]byte(`{"city":"Oslo"}`)))
	assert.NoError(t, tool.Validate(nil))
	assert.Error(t, tool.Validate([]byte(`[1,2]`)))
}

func TestExecutorDoesNotRetryServerErrors(t *testing.T) {
	c := &mockClient{call: func(mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{IsError: true}, nil
	}}
	tool := newTool("weather", c, weatherTool(), nil)

	result, err := tools.NewDefaultExecutor().Execute(context.Background(), tool, []byte(`{"city":"Oslo"}`))
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Len(t, c.calls, 1)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"mcpServers": {
			"weather": {"url": "http://localhost:8080/mcp"},
			"memory": {"command": "npx", "args": ["-y", "server-memory"], "env": {"DEBUG": "1"}}
		}
	}`), 0o644))

	servers, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []config.MCPServer{
		{Name: "memory", Transport: TransportStdio, Command: "npx", Args: []string{"-y", "server-memory"}, Env: map[string]string{"DEBUG": "1"}},
		{Name: "weather", Transport: TransportHTTP, URL: "http://localhost:8080/mcp"},
	}, servers)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"mcpServers": {"empty": {}}}`), 0o644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, `"empty"`)
}

func TestConnectRejectsUnknownTransport(t *testing.T) {
	_, err := Connect(context.Background(), []config.MCPServer{{Name: "x", Transport: "carrier-pigeon"}}, nil)
	assert.ErrorContains(t, err, "unsupported transport")
}
