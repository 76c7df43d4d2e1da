package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/polecat"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/style"
)

var polecatCmd = &cobra.Command{
	Use:     "polecat",
	GroupID: GroupAgents,
	Short:   "Inspect and control polecats (ephemeral work-item agents)",
	RunE:    requireSubcommand,
}

var polecatStatusCmd = &cobra.Command{
	Use:   "status <rig> <name>",
	Short: "Show a polecat's persisted state",
	Args:  cobra.ExactArgs(2),
	RunE:  runPolecatStatus,
}

var polecatKillCmd = &cobra.Command{
	Use:   "kill <rig> <name>",
	Short: "Kill a polecat's supervised process without merging its work",
	Args:  cobra.ExactArgs(2),
	RunE:  runPolecatKill,
}

func init() {
	polecatCmd.AddCommand(polecatStatusCmd, polecatKillCmd)
	rootCmd.AddCommand(polecatCmd)
}

func runPolecatStatus(cmd *cobra.Command, args []string) error {
	var state polecat.State
	id := gtstate.PolecatWorkflowID(args[0], args[1])
	if err := statestore.Load(id, &state); err != nil {
		return fmt.Errorf("loading polecat %s: %w", id, err)
	}
	fmt.Printf("%s  status=%s  branch=%s  work_item=%s\n", state.PolecatID, state.Status, state.Branch, state.WorkItemID)
	if state.Summary != "" {
		fmt.Printf("summary: %s\n", state.Summary)
	}
	return nil
}

func runPolecatKill(cmd *cobra.Command, args []string) error {
	id := gtstate.PolecatWorkflowID(args[0], args[1])
	if _, err := daemonrpc.Send(daemonrpc.Request{WorkflowID: id, Signal: polecat.SignalKill}); err != nil {
		return fmt.Errorf("signaling polecat %s: %w", id, err)
	}
	style.PrintSuccess("kill -> %s", id)
	return nil
}
