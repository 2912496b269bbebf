package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ezagent/ez/pkg/builtin"
)

// Validate checks referential integrity of a project configuration:
// every skill resolves to a markdown file, every tool resolves to an
// agent, a builtin, or a project tool server, no agent lists itself,
// and the agent-delegation graph is acyclic.
func Validate(cfg *ProjectConfig) error {
	agentNames := make(map[string]struct{}, len(cfg.Agents))
	for name := range cfg.Agents {
		agentNames[name] = struct{}{}
	}

	skillsDir := filepath.Join(cfg.ProjectDir, "skills")
	toolsDir := filepath.Join(cfg.ProjectDir, "tools")

	for name, agent := range cfg.Agents {
		for _, skill := range agent.Skills {
			skillPath := filepath.Join(skillsDir, skill+".md")
			if info, err := os.Stat(skillPath); err != nil || info.IsDir() {
				return fmt.Errorf("agent %q: skill file not found: %s", name, skillPath)
			}
		}

		for _, tool := range agent.Tools {
			if tool == name {
				return fmt.Errorf("agent %q lists itself as a tool", name)
			}
			if _, ok := agentNames[tool]; ok {
				continue
			}
			if builtin.Is(tool) {
				continue
			}
			toolMain := filepath.Join(toolsDir, tool, "main.go")
			if info, err := os.Stat(toolMain); err != nil || info.IsDir() {
				return fmt.Errorf("agent %q: tool %q is neither an agent, a builtin, nor a tool directory with main.go at %s", name, tool, toolMain)
			}
		}
	}

	if cycle := findDelegationCycle(cfg, agentNames); cycle != "" {
		return fmt.Errorf("circular agent reference detected involving %q", cycle)
	}
	return nil
}

// findDelegationCycle runs a DFS over agent-to-agent tool references
// and returns an agent on a cycle, or empty when the graph is acyclic.
func findDelegationCycle(cfg *ProjectConfig, agentNames map[string]struct{}) string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(name string) bool
	visit = func(name string) bool {
		visited[name] = true
		onStack[name] = true
		for _, tool := range cfg.Agents[name].Tools {
			if _, ok := agentNames[tool]; !ok {
				continue
			}
			if onStack[tool] {
				return true
			}
			if !visited[tool] && visit(tool) {
				return true
			}
		}
		onStack[name] = false
		return false
	}

	for name := range cfg.Agents {
		if !visited[name] && visit(name) {
			return name
		}
	}
	return ""
}
