package cli

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/session"
	"github.com/gastown/gtr/internal/style"
	"github.com/gastown/gtr/internal/tmux"
)

var upForeground bool

var upCmd = &cobra.Command{
	Use:     "up",
	GroupID: GroupServices,
	Short:   "Start the daemon (Boot, Mayor, and every registered rig)",
	Args:    cobra.NoArgs,
	RunE:    runUp,
}

var downCmd = &cobra.Command{
	Use:     "down",
	GroupID: GroupServices,
	Short:   "Stop the town: Boot first, then Mayor, killing any tracked stragglers",
	Args:    cobra.NoArgs,
	RunE:    runDown,
}

// startCmd and stopCmd are plain aliases for up/down: the spec's CLI
// surface names both pairs, and operators reach for either one out of
// habit depending on which other process-lifecycle tool they used last.
var startCmd = &cobra.Command{
	Use:     "start",
	GroupID: GroupServices,
	Short:   "Alias for \"up\"",
	Args:    cobra.NoArgs,
	RunE:    runUp,
}

var stopCmd = &cobra.Command{
	Use:     "stop",
	GroupID: GroupServices,
	Short:   "Alias for \"down\"",
	Args:    cobra.NoArgs,
	RunE:    runDown,
}

func init() {
	upCmd.Flags().BoolVar(&upForeground, "foreground", false, "run in the foreground instead of detaching")
	startCmd.Flags().BoolVar(&upForeground, "foreground", false, "run in the foreground instead of detaching")
	rootCmd.AddCommand(upCmd, downCmd, startCmd, stopCmd)
}

// runUp starts the daemon. In the background case it execs itself
// detached via "gt daemon run"; the foreground case is identical to
// calling that subcommand directly and is mostly useful for debugging.
func runUp(cmd *cobra.Command, args []string) error {
	if upForeground {
		return runDaemonRun(cmd, args)
	}

	self, err := exec.LookPath("gt")
	if err != nil {
		return fmt.Errorf("locating gt binary on PATH: %w", err)
	}
	proc := exec.Command(self, "daemon", "run")
	proc.Dir = gtdirs.Root()
	if err := proc.Start(); err != nil {
		return fmt.Errorf("starting daemon: %w", err)
	}
	style.PrintSuccess("daemon starting (pid %d)", proc.Process.Pid)
	return nil
}

// runDown stops the town-level sessions in shutdown order (Boot before
// Mayor, so Boot doesn't respawn the session it's meant to be tearing
// down) and sweeps any PID it tracked but tmux lost track of.
func runDown(cmd *cobra.Command, args []string) error {
	t := tmux.NewTmux()
	for _, ts := range session.TownSessions() {
		stopped, err := session.StopTownSession(t, ts, true)
		if err != nil {
			style.PrintWarning("stopping %s: %v", ts.Name, err)
			continue
		}
		if stopped {
			style.PrintSuccess("stopped %s", ts.Name)
		}
	}

	killed, failures := session.KillTrackedPIDs(gtdirs.Root())
	if killed > 0 {
		style.PrintSuccess("swept %d stray process(es)", killed)
	}
	for _, s := range failures {
		style.PrintWarning("could not confirm %s stopped", s)
	}
	return nil
}
