package builtin

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const maxReadChars = 100_000

// NewFilesystemServer builds the builtin filesystem tool server: basic
// read, write, list, and mkdir operations.
func NewFilesystemServer() *server.MCPServer {
	s := server.NewMCPServer("filesystem", serverVersion, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read a file and return its contents."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute or relative path to the file to read.")),
	), handleReadFile)

	s.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Write (or append) content to a file. Creates parent directories automatically if they don't exist."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute or relative path to the file to write.")),
		mcp.WithString("content", mcp.Required(), mcp.Description("The text content to write.")),
		mcp.WithBoolean("append", mcp.Description("If true, append to the file instead of overwriting. Defaults to false.")),
	), handleWriteFile)

	s.AddTool(mcp.NewTool("list_directory",
		mcp.WithDescription("List contents of a directory. Returns immediate children only (no recursion)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute or relative path to the directory to list.")),
	), handleListDirectory)

	s.AddTool(mcp.NewTool("create_directory",
		mcp.WithDescription("Create a directory, including any necessary parent directories. No error if the directory already exists (mkdir -p semantics)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Absolute or relative path to the directory to create.")),
	), handleCreateDirectory)

	return s
}

func resolvePath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return filepath.Abs(path)
}

func handleReadFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return errResult(err), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return errResult(err), nil
	}
	content := string(data)
	if len(content) > maxReadChars {
		content = content[:maxReadChars] + "\n\n[Content truncated]"
	}
	return jsonResult(map[string]any{"path": resolved, "content": content})
}

func handleWriteFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return errResult(err), nil
	}
	appendMode := req.GetBool("append", false)

	resolved, err := resolvePath(path)
	if err != nil {
		return errResult(err), nil
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return errResult(err), nil
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(resolved, flags, 0644)
	if err != nil {
		return errResult(err), nil
	}
	defer f.Close()

	n, err := f.WriteString(content)
	if err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"path": resolved, "bytes_written": n})
}

func handleListDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return errResult(err), nil
	}
	children, err := os.ReadDir(resolved)
	if err != nil {
		return errResult(err), nil
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name() < children[j].Name() })

	entries := make([]map[string]any, 0, len(children))
	for _, child := range children {
		entry := map[string]any{"name": child.Name()}
		if child.IsDir() {
			entry["type"] = "directory"
		} else {
			entry["type"] = "file"
			size := int64(0)
			if info, err := child.Info(); err == nil {
				size = info.Size()
			}
			entry["size"] = size
		}
		entries = append(entries, entry)
	}
	return jsonResult(map[string]any{"path": resolved, "entries": entries})
}

func handleCreateDirectory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return errResult(err), nil
	}
	resolved, err := resolvePath(path)
	if err != nil {
		return errResult(err), nil
	}
	if err := os.MkdirAll(resolved, 0755); err != nil {
		return errResult(err), nil
	}
	return jsonResult(map[string]any{"path": resolved, "created": true})
}
