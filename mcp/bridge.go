// Package mcp exposes the tools of Model Context Protocol servers as a tool
// API a conversation agent can call.
//
// Information Hiding:
// - Transport selection (stdio or streamable HTTP) hidden
// - Protocol handshake and tool discovery hidden
// - Tool names namespaced per server so several servers can share one API

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/richinex/xaiconv/config"
	"github.com/richinex/xaiconv/tools"
)

// APIID is the id of the tool API the bridge builds.
const APIID = "mcp"

// Transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// client is the part of the mcp-go client the bridge uses.
type client interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

type server struct {
	name   string
	client client
}

// Bridge holds open connections to MCP servers and the tools they offer.
// The caller MUST call Close when done.
type Bridge struct {
	servers []server
	tools   []tools.Tool
	logger  *slog.Logger
}

// Connect starts every configured server and discovers its tools. A server
// that fails discovery is skipped unless all of them fail.
func Connect(ctx context.Context, servers []config.MCPServer, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	conns := make([]server, 0, len(servers))
	for _, srv := range servers {
		c, err := dial(ctx, srv)
		if err != nil {
			(&Bridge{servers: conns, logger: logger}).Close()
			return nil, fmt.Errorf("mcp server %q: %w", srv.Name, err)
		}
		logger.Info("MCP server connected", "server", srv.Name, "transport", srv.Transport)
		conns = append(conns, server{name: srv.Name, client: c})
	}
	return newBridge(ctx, conns, logger)
}

// newBridge discovers the tools of already connected servers.
func newBridge(ctx context.Context, servers []server, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	b := &Bridge{servers: servers, logger: logger}
	if err := b.discover(ctx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func dial(ctx context.Context, srv config.MCPServer) (client, error) {
	var c client
	switch srv.Transport {
	case TransportStdio, "":
		stdio, err := mcpclient.NewStdioMCPClient(srv.Command, envSlice(srv.Env), srv.Args...)
		if err != nil {
			return nil, fmt.Errorf("start %s: %w", srv.Command, err)
		}
		c = stdio
	case TransportHTTP:
		t, err := transport.NewStreamableHTTP(srv.URL)
		if err != nil {
			return nil, fmt.Errorf("create http transport: %w", err)
		}
		httpClient := mcpclient.NewClient(t)
		if err := httpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("start http client: %w", err)
		}
		c = httpClient
	default:
		return nil, fmt.Errorf("unsupported transport %q", srv.Transport)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "xaiconv", Version: "1.0.0"}

	if ic, ok := c.(interface {
		Initialize(context.Context, mcp.InitializeRequest) (*mcp.InitializeResult, error)
	}); ok {
		if _, err := ic.Initialize(ctx, initReq); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("initialize: %w", err)
		}
	}
	return c, nil
}

func (b *Bridge) discover(ctx context.Context) error {
	var failures []string
	for _, srv := range b.servers {
		result, err := srv.client.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			b.logger.Warn("MCP tool discovery failed", "server", srv.name, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", srv.name, err))
			continue
		}
		for _, t := range result.Tools {
			tool := newTool(srv.name, srv.client, t, b.logger)
			b.tools = append(b.tools, tool)
			b.logger.Debug("MCP tool discovered", "server", srv.name, "tool", t.Name, "name", tool.name)
		}
		b.logger.Info("MCP tools discovered", "server", srv.name, "count", len(result.Tools))
	}

	if len(b.servers) > 0 && len(failures) == len(b.servers) {
		return fmt.Errorf("discover tools: %s", strings.Join(failures, "; "))
	}
	return nil
}

// Tools returns the discovered tools in discovery order.
func (b *Bridge) Tools() []tools.Tool {
	return b.tools
}

// API returns the discovered tools as a tool API, or nil when there are none.
func (b *Bridge) API(opts ...tools.APIOption) (*tools.API, error) {
	if len(b.tools) == 0 {
		return nil, nil
	}
	registry := tools.NewRegistry()
	if err := registry.RegisterAll(b.tools...); err != nil {
		return nil, fmt.Errorf("register MCP tools: %w", err)
	}
	opts = append([]tools.APIOption{tools.WithPrompt(b.prompt())}, opts...)
	return tools.NewAPI(APIID, registry, opts...), nil
}

func (b *Bridge) prompt() string {
	names := make([]string, len(b.servers))
	for i, srv := range b.servers {
		names[i] = srv.name
	}
	return fmt.Sprintf("Tools prefixed with mcp_ are provided by the MCP servers %s.", strings.Join(names, ", "))
}

// Close shuts down every server connection.
func (b *Bridge) Close() {
	for _, srv := range b.servers {
		if err := srv.client.Close(); err != nil {
			b.logger.Warn("MCP server close failed", "server", srv.name, "error", err)
		}
	}
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
