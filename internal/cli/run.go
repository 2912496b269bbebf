package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ezagent/ez/internal/daemon"
)

var runDebug bool

var runCmd = &cobra.Command{
	Use:   "run <agent> <message>",
	Short: "Send a message to an agent and print its response",
	Long: `Send a message to a named agent via the project daemon and
print the final response. With --debug, intermediate events (tool
calls, delegations, truncated results) are printed as they arrive.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "print intermediate tool-call events")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	agentName := args[0]
	if _, ok := cfg.Agents[agentName]; !ok {
		return fmt.Errorf("unknown agent %q (defined agents: %s)", agentName, strings.Join(cfg.AgentNames(), ", "))
	}
	message := strings.Join(args[1:], " ")

	err = daemon.SendRun(cfg.SocketPath(), agentName, message, runDebug, func(lineType, text string) {
		switch lineType {
		case daemon.LineDebug:
			fmt.Fprintln(os.Stderr, text)
		case daemon.LineText:
			fmt.Println(text)
		}
	})
	if err != nil {
		if errors.Is(err, daemon.ErrNotRunning) {
			return fmt.Errorf("daemon is not running; start it with 'ez start'")
		}
		return err
	}
	return nil
}
