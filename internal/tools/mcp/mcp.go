// Package mcp adapts configured MCP servers into tools. Each server
// contributes a <name>_search tool.
package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ChamsBouzaiene/planloop/internal/engine"
)

// Server is a connected MCP endpoint.
type Server struct {
	Name string
	URL  string
}

// Adapter tracks connected servers.
type Adapter struct {
	mu      sync.Mutex
	servers []Server
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// FromConfig connects every server in cfg, in name order.
func FromConfig(servers map[string]string) *Adapter {
	a := NewAdapter()
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a.Connect(name, servers[name])
	}
	return a
}

// Connect records a server. Connecting the same name again replaces its URL.
func (a *Adapter) Connect(name, url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.servers {
		if a.servers[i].Name == name {
			a.servers[i].URL = url
			return
		}
	}
	a.servers = append(a.servers, Server{Name: name, URL: url})
}

// Servers returns the connected servers.
func (a *Adapter) Servers() []Server {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Server(nil), a.servers...)
}

// Tools returns one search tool per connected server.
func (a *Adapter) Tools() []engine.Tool {
	servers := a.Servers()
	tools := make([]engine.Tool, 0, len(servers))
	for _, s := range servers {
		tools = append(tools, searchTool(s))
	}
	return tools
}

func searchTool(s Server) *engine.FuncTool {
	return &engine.FuncTool{
		ToolName:   s.Name + "_search",
		Desc:       "Search capability provided by " + s.Name,
		SchemaJSON: `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
		Fn: func(_ context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			return fmt.Sprintf("Result from %s for query: %s", s.Name, query), nil
		},
		Metadata: engine.ToolMetadata{
			Category: "mcp",
			Source:   s.URL,
		},
	}
}
