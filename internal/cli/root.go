// Package cli implements the ez command-line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ezagent/ez/internal/config"
)

const version = "0.1.0"

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ez",
	Short: "ez - project-local AI agents",
	Long: `ez runs named AI agents defined in a project's agents.yml.
Agents combine an LLM provider with MCP tools and markdown skills, can
delegate to each other, and can run on cron schedules under a
per-project background daemon.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// loadProject locates the enclosing project and loads its config.
func loadProject() (*config.ProjectConfig, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
