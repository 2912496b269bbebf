// Package builtin provides the tool servers that ship with ez. Each
// builtin is an in-process MCP server; the tool router connects to them
// through the same session interface it uses for project-local tool
// servers.
package builtin

import (
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/server"
)

const serverVersion = "0.1.0"

var factories = map[string]func(projectDir string) (*server.MCPServer, error){
	"filesystem": func(string) (*server.MCPServer, error) { return NewFilesystemServer(), nil },
	"http":       func(string) (*server.MCPServer, error) { return NewHTTPServer(), nil },
	"memory":     NewMemoryServer,
	"web_search": func(string) (*server.MCPServer, error) { return NewWebSearchServer(), nil },
}

// Is reports whether name identifies a builtin tool server.
func Is(name string) bool {
	_, ok := factories[name]
	return ok
}

// Names returns the recognized builtin identifiers, sorted.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewServer constructs the builtin tool server for name.
func NewServer(name, projectDir string) (*server.MCPServer, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown builtin tool %q", name)
	}
	return factory(projectDir)
}
