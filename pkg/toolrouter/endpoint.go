package toolrouter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ezagent/ez/pkg/builtin"
)

// session abstracts one open tool endpoint connection. Satisfied by the
// mcp-go client for both stdio and in-process transports.
type session interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// openBuiltinSession starts an in-process session against a builtin
// tool server.
func openBuiltinSession(ctx context.Context, name, projectDir string) (session, error) {
	srv, err := builtin.NewServer(name, projectDir)
	if err != nil {
		return nil, err
	}
	return openInProcessSession(ctx, srv)
}

func openInProcessSession(ctx context.Context, srv *server.MCPServer) (session, error) {
	c, err := mcpclient.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("create in-process client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start in-process client: %w", err)
	}
	if err := initializeSession(ctx, c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// openProjectSession launches a project-local tool server from
// tools/<name>/ as a child process speaking MCP over stdio.
func openProjectSession(ctx context.Context, name, projectDir string) (session, error) {
	toolDir := filepath.Join(projectDir, "tools", name)
	mainFile := filepath.Join(toolDir, "main.go")
	if _, err := os.Stat(mainFile); err != nil {
		return nil, fmt.Errorf("tool main.go not found: %s", mainFile)
	}

	// -C keeps the tool's own go.mod in scope regardless of where the
	// daemon was started.
	c, err := mcpclient.NewStdioMCPClient("go", nil, "run", "-C", toolDir, ".")
	if err != nil {
		return nil, fmt.Errorf("start tool server %q: %w", name, err)
	}
	if err := initializeSession(ctx, c); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func initializeSession(ctx context.Context, c *mcpclient.Client) error {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "ez",
		Version: "0.1.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("initialize session: %w", err)
	}
	return nil
}
