package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/rig"
	"github.com/gastown/gtr/internal/style"
)

var slingTarget string

var slingCmd = &cobra.Command{
	Use:     "sling <work-id...>",
	GroupID: GroupWork,
	Short:   "Assign work items, spawning one polecat per item on a rig",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSling,
}

func init() {
	slingCmd.Flags().StringVar(&slingTarget, "target", "", "rig name to sling work onto")
	rootCmd.AddCommand(slingCmd)
}

// runSling spawns one polecat per work id on the target rig, naming each
// polecat after its work item so a rerun against the same id is a no-op
// rather than a duplicate spawn.
func runSling(cmd *cobra.Command, args []string) error {
	if slingTarget == "" {
		return fmt.Errorf("--target <rig> is required")
	}
	rigID := gtstate.RigWorkflowID(slingTarget)
	for _, workItemID := range args {
		if _, err := daemonrpc.Send(daemonrpc.Request{
			WorkflowID: rigID,
			Signal:     rig.SignalSling,
			Payload:    rig.SlingPayload{Name: workItemID, WorkItemID: workItemID, Title: workItemID},
		}); err != nil {
			return fmt.Errorf("slinging %s onto %s: %w", workItemID, slingTarget, err)
		}
		style.PrintSuccess("%s -> %s", workItemID, slingTarget)
	}
	return nil
}
