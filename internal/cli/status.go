package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezagent/ez/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's agents and their schedules",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	agents, err := daemon.FetchStatus(cfg.SocketPath())
	if err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			fmt.Println("Daemon is not running. Start it with 'ez start'.")
			return nil
		}
		return err
	}

	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Daemon running (%d agents)\n", len(names))
	for _, name := range names {
		st := agents[name]
		fmt.Printf("\n%s\n", name)
		if st.Description != "" {
			fmt.Printf("  description: %s\n", st.Description)
		}
		model := st.Model
		if model == "" {
			model = "(provider default)"
		}
		fmt.Printf("  provider:    %s / %s\n", st.Provider, model)
		if len(st.Tools) > 0 {
			fmt.Printf("  tools:       %s\n", strings.Join(st.Tools, ", "))
		}
		if len(st.Skills) > 0 {
			fmt.Printf("  skills:      %s\n", strings.Join(st.Skills, ", "))
		}
		for _, sched := range st.Schedule {
			fmt.Printf("  schedule:    %s %q (next run %s)\n", sched.Cron, sched.Message, sched.NextRun)
		}
	}
	return nil
}
