package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/boot"
	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gtconfig"
	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/rig"
	"github.com/gastown/gtr/internal/style"
	"github.com/gastown/gtr/internal/workflow"
)

const (
	defaultMayorPrompt   = "You are the Mayor. Review the agent registry and open convoys, then stand by for reports."
	defaultRespawnPrompt = "You are being respawned; run prime to restore context."
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: GroupServices,
	Short:   "Run or control the gt daemon",
	RunE:    requireSubcommand,
}

var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon in the foreground",
	Args:  cobra.NoArgs,
	RunE:  runDaemonRun,
}

func init() {
	daemonCmd.AddCommand(daemonRunCmd)
	rootCmd.AddCommand(daemonCmd)
}

// runDaemonRun hosts the workflow engine for the lifetime of the
// process: it boots the town (which in turn starts the Mayor), loads
// every registered rig onto the engine, and serves daemonrpc until an
// interrupt or term signal arrives.
func runDaemonRun(cmd *cobra.Command, args []string) error {
	if err := gtdirs.EnsureBaseDirs(); err != nil {
		return fmt.Errorf("preparing town directories: %w", err)
	}

	engine := workflow.NewEngine()
	acts := activities.New()

	if _, err := engine.Start(gtstate.BootWorkflowID(), boot.Run(defaultMayorPrompt, defaultRespawnPrompt, acts)); err != nil {
		return fmt.Errorf("starting boot: %w", err)
	}

	rigs, err := gtconfig.LoadRigs()
	if err != nil {
		return fmt.Errorf("loading rig registry: %w", err)
	}
	for _, entry := range rigs.Rigs {
		id := gtstate.RigWorkflowID(entry.Name)
		if engine.IsRunning(id) {
			continue
		}
		if err := gtdirs.EnsureRigDirs(entry.Name); err != nil {
			style.PrintWarning("preparing directories for rig %s: %v", entry.Name, err)
			continue
		}
		if _, err := engine.Start(id, rig.Run(rig.New(entry.Name, entry.GitURL), acts)); err != nil {
			style.PrintWarning("starting rig %s: %v", entry.Name, err)
		}
	}

	server, err := daemonrpc.Listen(engine)
	if err != nil {
		return fmt.Errorf("starting control socket: %w", err)
	}
	defer server.Close()
	go server.Serve()

	style.PrintSuccess("daemon running, %d rig(s) loaded", len(rigs.Rigs))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	engine.StopCascade(gtstate.BootWorkflowID())
	for _, entry := range rigs.Rigs {
		engine.StopCascade(gtstate.RigWorkflowID(entry.Name))
	}
	return nil
}
