// Package scaffold generates starter project layouts: an agents.yml,
// sample tool servers, and skill files.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const exampleAgentsYML = `# ez configuration
# Define your agents, their tools, and skills here.
#
# agents:
#   my_agent:
#     tools: tool_name, other_agent_name
#     skills: skill_name
#     description: "What this agent does"
#
# Tools live in tools/<tool_name>/main.go (MCP servers over stdio)
# Skills live in skills/<skill_name>.md (markdown instructions)

agents:
  assistant:
    tools: greeter
    skills: friendly
    description: "A friendly assistant that can greet people by name"
`

const exampleTool = `package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	s := server.NewMCPServer("greeter", "0.1.0", server.WithToolCapabilities(false))

	greet := mcp.NewTool("greet",
		mcp.WithDescription("Greet someone by name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the person to greet")),
	)
	s.AddTool(greet, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Hello, %s! Welcome to ez.", name)), nil
	})

	if err := server.ServeStdio(s); err != nil {
		fmt.Println(err)
	}
}
`

const exampleSkill = `You are a friendly and helpful assistant.
When someone introduces themselves, use the greet tool to welcome them by name.
Keep your responses concise and helpful.
`

const toolTemplate = `package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	s := server.NewMCPServer("%[1]s", "0.1.0", server.WithToolCapabilities(false))

	hello := mcp.NewTool("hello",
		mcp.WithDescription("A sample tool."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to echo back")),
	)
	s.AddTool(hello, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("[%[1]s] Received: %%s", text)), nil
	})

	if err := server.ServeStdio(s); err != nil {
		fmt.Println(err)
	}
}
`

const toolGoMod = `module %s

go 1.24

require github.com/mark3labs/mcp-go v0.44.0
`

const skillTemplate = `# %s
Describe what this skill does and how the agent should behave.
`

// CreateTool scaffolds tools/<name>/ with a stdio MCP server and its
// own go.mod so the daemon can launch it with "go run".
func CreateTool(name string, baseDir string) (string, error) {
	toolDir := filepath.Join(baseDir, name)
	if _, err := os.Stat(toolDir); err == nil {
		return "", fmt.Errorf("tool directory already exists: %s", toolDir)
	}
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		return "", err
	}
	mainSrc := fmt.Sprintf(toolTemplate, name)
	if err := os.WriteFile(filepath.Join(toolDir, "main.go"), []byte(mainSrc), 0o644); err != nil {
		return "", err
	}
	modSrc := fmt.Sprintf(toolGoMod, modulePathFor(name))
	if err := os.WriteFile(filepath.Join(toolDir, "go.mod"), []byte(modSrc), 0o644); err != nil {
		return "", err
	}
	return toolDir, nil
}

// CreateSkill scaffolds <baseDir>/<name>.md.
func CreateSkill(name string, baseDir string) (string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", err
	}
	skillPath := filepath.Join(baseDir, name+".md")
	if _, err := os.Stat(skillPath); err == nil {
		return "", fmt.Errorf("skill file already exists: %s", skillPath)
	}
	content := fmt.Sprintf(skillTemplate, name)
	if err := os.WriteFile(skillPath, []byte(content), 0o644); err != nil {
		return "", err
	}
	return skillPath, nil
}

// CreateProject scaffolds a new project directory under the current
// working directory with a working sample agent.
func CreateProject(appName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	base := filepath.Join(cwd, appName)
	if _, err := os.Stat(base); err == nil {
		return "", fmt.Errorf("directory %q already exists", appName)
	}

	greeterDir := filepath.Join(base, "tools", "greeter")
	if err := os.MkdirAll(greeterDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(greeterDir, "main.go"), []byte(exampleTool), 0o644); err != nil {
		return "", err
	}
	modSrc := fmt.Sprintf(toolGoMod, modulePathFor("greeter"))
	if err := os.WriteFile(filepath.Join(greeterDir, "go.mod"), []byte(modSrc), 0o644); err != nil {
		return "", err
	}

	skillsDir := filepath.Join(base, "skills")
	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(skillsDir, "friendly.md"), []byte(exampleSkill), 0o644); err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(base, "agents.yml"), []byte(exampleAgentsYML), 0o644); err != nil {
		return "", err
	}
	return base, nil
}

func modulePathFor(toolName string) string {
	return "eztools/" + strings.ReplaceAll(toolName, " ", "-")
}
