// MCP server configuration file support.
//
// Reads the mcpServers format shared by desktop MCP clients:
//
//	{
//	  "mcpServers": {
//	    "memory": {
//	      "command": "npx",
//	      "args": ["-y", "@modelcontextprotocol/server-memory"]
//	    },
//	    "weather": {
//	      "url": "http://localhost:8080/mcp"
//	    }
//	  }
//	}
package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/richinex/xaiconv/config"
)

type fileConfig struct {
	MCPServers map[string]fileServer `json:"mcpServers"`
}

type fileServer struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
}

// LoadConfig reads an mcpServers file. Servers with a url use the HTTP
// transport; the rest are started over stdio. The result is sorted by name.
func LoadConfig(path string) ([]config.MCPServer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MCP config: %w", err)
	}

	var cfg fileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse MCP config: %w", err)
	}

	names := make([]string, 0, len(cfg.MCPServers))
	for name := range cfg.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	servers := make([]config.MCPServer, 0, len(names))
	for _, name := range names {
		s := cfg.MCPServers[name]
		srv := config.MCPServer{Name: name, Command: s.Command, Args: s.Args, Env: s.Env, URL: s.URL}
		switch {
		case s.URL != "":
			srv.Transport = TransportHTTP
		case s.Command != "":
			srv.Transport = TransportStdio
		default:
			return nil, fmt.Errorf("MCP server %q needs a command or a url", name)
		}
		servers = append(servers, srv)
	}
	return servers, nil
}
