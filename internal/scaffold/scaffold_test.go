package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProject(t *testing.T) {
	t.Chdir(t.TempDir())

	base, err := CreateProject("myapp")
	require.NoError(t, err)

	for _, rel := range []string{
		"agents.yml",
		"tools/greeter/main.go",
		"tools/greeter/go.mod",
		"skills/friendly.md",
	} {
		assert.FileExists(t, filepath.Join(base, rel))
	}

	data, err := os.ReadFile(filepath.Join(base, "agents.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "assistant:")
	assert.Contains(t, string(data), "tools: greeter")

	_, err = CreateProject("myapp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreateTool(t *testing.T) {
	base := t.TempDir()

	toolDir, err := CreateTool("scraper", base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "scraper"), toolDir)

	data, err := os.ReadFile(filepath.Join(toolDir, "main.go"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `server.NewMCPServer("scraper"`)
	assert.Contains(t, string(data), "[scraper] Received:")

	mod, err := os.ReadFile(filepath.Join(toolDir, "go.mod"))
	require.NoError(t, err)
	assert.Contains(t, string(mod), "module eztools/scraper")

	_, err = CreateTool("scraper", base)
	require.Error(t, err)
}

func TestCreateSkill(t *testing.T) {
	base := t.TempDir()

	skillPath, err := CreateSkill("writing", base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "writing.md"), skillPath)

	data, err := os.ReadFile(skillPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# writing")

	_, err = CreateSkill("writing", base)
	require.Error(t, err)
}
