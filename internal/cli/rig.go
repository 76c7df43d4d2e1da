package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gtconfig"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/rig"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/style"
)

var rigCmd = &cobra.Command{
	Use:     "rig",
	GroupID: GroupWork,
	Short:   "Register and control rigs (one per managed repository)",
	RunE:    requireSubcommand,
}

var rigAddCmd = &cobra.Command{
	Use:   "add <name> <git-url>",
	Short: "Register a new rig",
	Args:  cobra.ExactArgs(2),
	RunE:  runRigAdd,
}

var rigListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered rigs",
	Args:  cobra.NoArgs,
	RunE:  runRigList,
}

var rigBootCmd = &cobra.Command{
	Use:   "boot <name>",
	Short: "Bring a rig operational, starting its witness and refinery",
	Args:  cobra.ExactArgs(1),
	RunE:  runRigSignal(rig.SignalBoot, nil),
}

var rigParkCmd = &cobra.Command{
	Use:   "park <name>",
	Short: "Pause a rig without tearing it down",
	Args:  cobra.ExactArgs(1),
	RunE:  runRigSignal(rig.SignalPark, nil),
}

var rigUnparkCmd = &cobra.Command{
	Use:   "unpark <name>",
	Short: "Resume a parked rig",
	Args:  cobra.ExactArgs(1),
	RunE:  runRigSignal(rig.SignalUnpark, nil),
}

var rigStopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a rig, clearing its agent set",
	Args:  cobra.ExactArgs(1),
	RunE:  runRigSignal(rig.SignalStop, nil),
}

var rigDockCmd = &cobra.Command{
	Use:   "dock <name>",
	Short: "Dock a rig for maintenance, blocking new work until undocked",
	Args:  cobra.ExactArgs(1),
	RunE:  runRigSignal(rig.SignalDock, nil),
}

var rigUndockCmd = &cobra.Command{
	Use:   "undock <name>",
	Short: "Undock a rig, returning it to operational",
	Args:  cobra.ExactArgs(1),
	RunE:  runRigSignal(rig.SignalUndock, nil),
}

var rigStatusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Show a rig's persisted state",
	Args:  cobra.ExactArgs(1),
	RunE:  runRigStatus,
}

func init() {
	rigCmd.AddCommand(rigAddCmd, rigListCmd, rigBootCmd, rigParkCmd, rigUnparkCmd,
		rigDockCmd, rigUndockCmd, rigStopCmd, rigStatusCmd)
	rootCmd.AddCommand(rigCmd)
}

func runRigStatus(cmd *cobra.Command, args []string) error {
	var state rig.State
	if err := statestore.Load(gtstate.RigWorkflowID(args[0]), &state); err != nil {
		return fmt.Errorf("loading rig %s: %w", args[0], err)
	}
	fmt.Printf("%s  status=%s  git=%s\n", state.Name, state.Status, state.GitURL)
	for id, role := range state.Agents {
		fmt.Printf("  %s (%s)\n", id, role)
	}
	return nil
}

func runRigAdd(cmd *cobra.Command, args []string) error {
	cfg, err := gtconfig.LoadRigs()
	if err != nil {
		return fmt.Errorf("loading rig registry: %w", err)
	}
	cfg.Add(gtconfig.RigEntry{Name: args[0], GitURL: args[1]})
	if err := gtconfig.SaveRigs(cfg); err != nil {
		return fmt.Errorf("saving rig registry: %w", err)
	}
	style.PrintSuccess("registered rig %s", args[0])
	return nil
}

func runRigList(cmd *cobra.Command, args []string) error {
	cfg, err := gtconfig.LoadRigs()
	if err != nil {
		return fmt.Errorf("loading rig registry: %w", err)
	}
	if len(cfg.Rigs) == 0 {
		fmt.Println(style.Dim.Render("  (no rigs registered)"))
		return nil
	}
	t := style.NewTable(
		style.Column{Name: "NAME", Width: 20},
		style.Column{Name: "GIT URL", Width: 50},
	)
	for _, r := range cfg.Rigs {
		t.AddRow(r.Name, r.GitURL)
	}
	fmt.Print(t.Render())
	return nil
}

// runRigSignal builds a RunE that forwards one named signal to a rig's
// workflow through the running daemon.
func runRigSignal(signal string, payload func(args []string) interface{}) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var p interface{}
		if payload != nil {
			p = payload(args)
		}
		workflowID := gtstate.RigWorkflowID(args[0])
		if _, err := daemonrpc.Send(daemonrpc.Request{WorkflowID: workflowID, Signal: signal, Payload: p}); err != nil {
			return fmt.Errorf("signaling rig %s: %w", args[0], err)
		}
		style.PrintSuccess("%s -> rig %s", signal, args[0])
		return nil
	}
}
