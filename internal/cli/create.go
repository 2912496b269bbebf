package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ezagent/ez/internal/config"
	"github.com/ezagent/ez/internal/scaffold"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Scaffold a new tool or skill in the current project",
}

var createToolCmd = &cobra.Command{
	Use:   "tool <name>",
	Short: "Scaffold tools/<name>/ with a stdio MCP server",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateTool,
}

var createSkillCmd = &cobra.Command{
	Use:   "skill <name>",
	Short: "Scaffold skills/<name>.md",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateSkill,
}

func init() {
	createCmd.AddCommand(createToolCmd)
	createCmd.AddCommand(createSkillCmd)
	rootCmd.AddCommand(createCmd)
}

func runCreateTool(cmd *cobra.Command, args []string) error {
	projectDir, err := requireProjectDir()
	if err != nil {
		return err
	}
	toolDir, err := scaffold.CreateTool(args[0], filepath.Join(projectDir, "tools"))
	if err != nil {
		return err
	}
	fmt.Printf("Created tool in %s\n", toolDir)
	fmt.Printf("Add %q to an agent's tools list in agents.yml to use it.\n", args[0])
	return nil
}

func runCreateSkill(cmd *cobra.Command, args []string) error {
	projectDir, err := requireProjectDir()
	if err != nil {
		return err
	}
	skillPath, err := scaffold.CreateSkill(args[0], filepath.Join(projectDir, "skills"))
	if err != nil {
		return err
	}
	fmt.Printf("Created skill at %s\n", skillPath)
	fmt.Printf("Add %q to an agent's skills list in agents.yml to use it.\n", args[0])
	return nil
}

// requireProjectDir finds the enclosing project without fully loading
// the config, so scaffolding works even while agents.yml is invalid.
func requireProjectDir() (string, error) {
	cwd, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}
	projectDir := config.FindProjectDir(cwd)
	if projectDir == "" {
		return "", fmt.Errorf("no %s found in current directory or any parent directory", config.ConfigFileName)
	}
	return projectDir, nil
}
