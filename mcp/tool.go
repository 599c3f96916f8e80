// MCP tool adapter.
//
// Information Hiding:
// - Call timeout and argument encoding hidden
// - Result content flattened into a JSON object for the model

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/richinex/xaiconv/tools"
)

// CallTimeout bounds one tool call.
const CallTimeout = 30 * time.Second

// ToolError is a failure reported by an MCP server or its transport.
type ToolError struct {
	Server  string
	Tool    string
	Message string
	// Transport is set when the call never reached the tool.
	Transport bool
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("MCP tool %s/%s: %s", e.Server, e.Tool, e.Message)
}

// Kind names the error in tool result payloads.
func (e *ToolError) Kind() string { return "MCPToolError" }

// Retryable reports whether the executor may try the call again.
func (e *ToolError) Retryable() bool { return e.Transport }

// Tool is one tool of an MCP server.
type Tool struct {
	server string
	name   string
	remote mcp.Tool
	client client
	logger *slog.Logger
}

var _ tools.Tool = (*Tool)(nil)

func newTool(serverName string, c client, t mcp.Tool, logger *slog.Logger) *Tool {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tool{
		server: serverName,
		name:   fmt.Sprintf("mcp_%s_%s", sanitizeName(serverName), sanitizeName(t.Name)),
		remote: t,
		client: c,
		logger: logger,
	}
}

// Metadata returns the namespaced name and the server's input schema.
func (t *Tool) Metadata() tools.ToolMetadata {
	desc := t.remote.Description
	if desc == "" {
		desc = fmt.Sprintf("MCP tool %q from server %q", t.remote.Name, t.server)
	}
	return tools.ToolMetadata{
		Name:        t.name,
		Description: desc,
		Schema:      inputSchema(t.remote),
	}
}

// inputSchema returns the tool's schema as a JSON object, falling back to
// an empty object schema.
func inputSchema(t mcp.Tool) map[string]any {
	fallback := map[string]any{"type": "object", "properties": map[string]any{}}

	raw := []byte(t.RawInputSchema)
	if len(raw) == 0 {
		if t.InputSchema.Properties == nil && t.InputSchema.Required == nil {
			return fallback
		}
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return fallback
		}
		raw = data
	}

	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil || schema == nil {
		return fallback
	}
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}
	return schema
}

// Validate checks that args is a JSON object. The server validates the rest.
func (t *Tool) Validate(args json.RawMessage) error {
	if len(args) == 0 {
		return nil
	}
	var v map[string]any
	if err := json.Unmarshal(args, &v); err != nil {
		return fmt.Errorf("invalid JSON arguments: %w", err)
	}
	return nil
}

// Execute calls the tool on its server.
func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (tools.ToolResult, error) {
	var params map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return tools.FailureResultf("invalid arguments: %v", err), nil
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.remote.Name
	req.Params.Arguments = params

	t.logger.Debug("MCP tool call", "server", t.server, "tool", t.remote.Name)

	ctx, cancel := context.WithTimeout(ctx, CallTimeout)
	defer cancel()

	result, err := t.client.CallTool(ctx, req)
	if err != nil {
		return tools.FailureResult(&ToolError{
			Server:    t.server,
			Tool:      t.remote.Name,
			Message:   err.Error(),
			Transport: true,
		}), nil
	}

	text := contentText(result)
	if result.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return tools.FailureResult(&ToolError{Server: t.server, Tool: t.remote.Name, Message: text}), nil
	}
	return tools.SuccessResult(resultData(text)), nil
}

// resultData uses a JSON object reply as the result itself and wraps
// anything else under "result".
func resultData(text string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"result": text}
}

func contentText(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// sanitizeName replaces characters the model API rejects in function names.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
