// Package config loads and validates the project configuration from
// agents.yml. Validation happens before the daemon serves anything: a
// configuration the core sees is guaranteed to reference only existing
// skills and tools, and its delegation graph is guaranteed acyclic.
package config

import (
	"crypto/md5"
	"fmt"
	"path/filepath"
	"sort"
)

// ScheduleSpec is one cron entry bound to an agent.
type ScheduleSpec struct {
	Cron    string `json:"cron" mapstructure:"cron"`
	Message string `json:"message" mapstructure:"message"`
}

// AgentConfig is the static definition of one agent. Immutable after
// daemon startup.
type AgentConfig struct {
	Description string         `json:"description" mapstructure:"description"`
	Provider    string         `json:"provider" mapstructure:"provider"`
	Model       string         `json:"model" mapstructure:"model"`
	Tools       []string       `json:"tools" mapstructure:"tools"`
	Skills      []string       `json:"skills" mapstructure:"skills"`
	Schedule    []ScheduleSpec `json:"schedule" mapstructure:"schedule"`
}

// ProjectConfig is the full configuration for one project directory.
type ProjectConfig struct {
	Provider string                 `json:"provider" mapstructure:"provider"`
	Model    string                 `json:"model" mapstructure:"model"`
	Agents   map[string]AgentConfig `json:"agents" mapstructure:"agents"`

	ProjectDir string `json:"-" mapstructure:"-"`
}

// ProviderFor resolves the provider for an agent: per-agent override,
// then project default.
func (c *ProjectConfig) ProviderFor(agent AgentConfig) string {
	if agent.Provider != "" {
		return agent.Provider
	}
	if c.Provider != "" {
		return c.Provider
	}
	return "anthropic"
}

// ModelFor resolves the model for an agent: per-agent override, then
// project default. Empty means the provider's default model.
func (c *ProjectConfig) ModelFor(agent AgentConfig) string {
	if agent.Model != "" {
		return agent.Model
	}
	return c.Model
}

// AgentNames returns the configured agent names in sorted order, so
// startup, scheduling, and status output are deterministic.
func (c *ProjectConfig) AgentNames() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// projectHash derives a short stable identifier from the resolved
// project directory, so the same project always maps to the same
// socket and pid locations across restarts.
func projectHash(projectDir string) string {
	resolved, err := filepath.Abs(projectDir)
	if err != nil {
		resolved = projectDir
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(resolved)))[:12]
}

// SocketPath returns the Unix socket path for the project.
func (c *ProjectConfig) SocketPath() string {
	return fmt.Sprintf("/tmp/ez_%s.sock", projectHash(c.ProjectDir))
}

// PIDPath returns the daemon pid file path for the project.
func (c *ProjectConfig) PIDPath() string {
	return fmt.Sprintf("/tmp/ez_%s.pid", projectHash(c.ProjectDir))
}
