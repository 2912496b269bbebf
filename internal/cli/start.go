package cli

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezagent/ez/internal/daemon"
	"github.com/ezagent/ez/internal/logger"
)

var startForeground bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the project daemon",
	Long: `Start the background daemon for the enclosing project. The
daemon initializes every configured agent, connects their tools, and
serves run requests over the project socket until stopped.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&startForeground, "foreground", false, "run the daemon in the foreground")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	if startForeground {
		return serveForeground(cmd)
	}

	if _, err := daemon.FetchStatus(cfg.SocketPath()); err == nil {
		return fmt.Errorf("daemon is already running for this project")
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	logPath := filepath.Join(cfg.ProjectDir, ".ez", "daemon.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return err
	}

	child := exec.Command(exe, "start", "--foreground", "--log-level", logLevel)
	child.Dir = cfg.ProjectDir
	child.Stdout = nil
	child.Stderr = nil
	child.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := child.Start(); err != nil {
		return fmt.Errorf("spawn daemon: %w", err)
	}

	// Give the daemon a moment to bind the socket, then confirm.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := daemon.FetchStatus(cfg.SocketPath()); err == nil {
			fmt.Printf("Daemon started (pid %d, log %s)\n", child.Process.Pid, logPath)
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not come up; check %s", logPath)
}

// serveForeground runs the daemon in-process until SIGINT or SIGTERM.
func serveForeground(cmd *cobra.Command) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	logPath := filepath.Join(cfg.ProjectDir, ".ez", "daemon.log")
	lg, err := logger.New(logger.Config{
		Level:   logLevel,
		File:    logPath,
		Console: term(),
		Pretty:  term(),
	})
	if err != nil {
		return err
	}
	defer lg.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := daemon.New(cfg, lg.GetZerolog())
	if err := d.Initialize(ctx); err != nil {
		return err
	}
	return d.Serve(ctx)
}

// term reports whether stdout is a terminal, in which case logs also
// go to the console.
func term() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
