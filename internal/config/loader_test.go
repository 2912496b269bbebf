package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProject(t *testing.T, agentsYML string, extras map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(agentsYML), 0o644))
	for rel, content := range extras {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestLoadParsesCommaSeparatedLists(t *testing.T) {
	dir := writeProject(t, `
agents:
  researcher:
    description: "finds things"
    tools: filesystem, http
    skills: writing
`, map[string]string{
		"skills/writing.md": "Write well.",
	})

	cfg, err := Load(dir)
	require.NoError(t, err)

	agent := cfg.Agents["researcher"]
	assert.Equal(t, []string{"filesystem", "http"}, agent.Tools)
	assert.Equal(t, []string{"writing"}, agent.Skills)
	assert.Equal(t, dir, cfg.ProjectDir)
}

func TestLoadParsesYAMLLists(t *testing.T) {
	dir := writeProject(t, `
provider: openai
model: gpt-4o

agents:
  researcher:
    tools:
      - filesystem
      - memory
    schedule:
      - cron: "0 9 * * *"
        message: "daily check"
`, nil)

	cfg, err := Load(dir)
	require.NoError(t, err)

	agent := cfg.Agents["researcher"]
	assert.Equal(t, []string{"filesystem", "memory"}, agent.Tools)
	require.Len(t, agent.Schedule, 1)
	assert.Equal(t, "0 9 * * *", agent.Schedule[0].Cron)
	assert.Equal(t, "daily check", agent.Schedule[0].Message)

	assert.Equal(t, "openai", cfg.ProviderFor(agent))
	assert.Equal(t, "gpt-4o", cfg.ModelFor(agent))
}

func TestLoadRequiresAtLeastOneAgent(t *testing.T) {
	dir := writeProject(t, "agents: {}\n", nil)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one agent")
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ConfigFileName)
}

func TestFindProjectDirWalksUp(t *testing.T) {
	dir := writeProject(t, "agents:\n  a:\n    description: d\n", nil)
	nested := filepath.Join(dir, "some", "deep", "subdir")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	found := FindProjectDir(nested)
	foundResolved, err := filepath.EvalSymlinks(found)
	require.NoError(t, err)
	assert.Equal(t, resolved, foundResolved)

	assert.Equal(t, "", FindProjectDir(string(filepath.Separator)))
}

func TestProviderDefaultsToAnthropic(t *testing.T) {
	cfg := &ProjectConfig{}
	assert.Equal(t, "anthropic", cfg.ProviderFor(AgentConfig{}))
	assert.Equal(t, "openai", cfg.ProviderFor(AgentConfig{Provider: "openai"}))
}

func TestAgentNamesSorted(t *testing.T) {
	cfg := &ProjectConfig{Agents: map[string]AgentConfig{
		"zeta": {}, "alpha": {}, "mid": {},
	}}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, cfg.AgentNames())
}

func TestSocketPathStablePerProject(t *testing.T) {
	a := &ProjectConfig{ProjectDir: "/some/project"}
	b := &ProjectConfig{ProjectDir: "/some/project"}
	c := &ProjectConfig{ProjectDir: "/other/project"}

	assert.Equal(t, a.SocketPath(), b.SocketPath())
	assert.NotEqual(t, a.SocketPath(), c.SocketPath())
	assert.Regexp(t, `^/tmp/ez_[0-9a-f]{12}\.sock$`, a.SocketPath())
	assert.Regexp(t, `^/tmp/ez_[0-9a-f]{12}\.pid$`, a.PIDPath())
}

func TestValidateMissingSkill(t *testing.T) {
	dir := writeProject(t, `
agents:
  researcher:
    skills: nonexistent
`, nil)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skill file not found")
}

func TestValidateUnknownTool(t *testing.T) {
	dir := writeProject(t, `
agents:
  researcher:
    tools: ghost
`, nil)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `tool "ghost"`)
}

func TestValidateAcceptsProjectToolDir(t *testing.T) {
	dir := writeProject(t, `
agents:
  researcher:
    tools: scraper
`, map[string]string{
		"tools/scraper/main.go": "package main\n",
	})
	_, err := Load(dir)
	require.NoError(t, err)
}

func TestValidateSelfReference(t *testing.T) {
	dir := writeProject(t, `
agents:
  loop:
    tools: loop
`, nil)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `lists itself as a tool`)
}

func TestValidateDelegationCycle(t *testing.T) {
	dir := writeProject(t, `
agents:
  a:
    tools: b
  b:
    tools: c
  c:
    tools: a
`, nil)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular agent reference")
}

func TestValidateAcyclicDelegationChain(t *testing.T) {
	dir := writeProject(t, `
agents:
  a:
    tools: b, c
  b:
    tools: c
  c:
    description: "leaf"
`, nil)
	_, err := Load(dir)
	require.NoError(t, err)
}
