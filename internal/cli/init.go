package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ezagent/ez/internal/scaffold"
)

var initCmd = &cobra.Command{
	Use:   "init <app_name>",
	Short: "Create a new ez project",
	Long: `Create a new project directory with an agents.yml, a sample
tool, and a sample skill, ready to run.`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	base, err := scaffold.CreateProject(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Created project in %s\n", base)
	fmt.Println("Next steps:")
	fmt.Printf("  cd %s\n", args[0])
	fmt.Println("  ez start")
	fmt.Println("  ez run assistant \"Hi, I'm Sam\"")
	return nil
}
