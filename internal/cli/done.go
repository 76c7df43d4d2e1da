package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/polecat"
	"github.com/gastown/gtr/internal/refinery"
	"github.com/gastown/gtr/internal/style"
)

var (
	doneBranch  string
	doneSummary string
)

var doneCmd = &cobra.Command{
	Use:     "done [work-id]",
	GroupID: GroupWork,
	Short:   "Report a finished work item and queue its branch with the refinery",
	Args:    cobra.MaximumNArgs(1),
	RunE:    runDone,
}

func init() {
	doneCmd.Flags().StringVar(&doneBranch, "branch", "", "branch carrying the completed work")
	doneCmd.Flags().StringVar(&doneSummary, "summary", "", "short summary of what was done")
	rootCmd.AddCommand(doneCmd)
}

// runDone signals polecat_done to the calling polecat (detected via
// GTR_AGENT) if running inside one, and enqueues the branch with the
// owning rig's refinery so it gets rebased, tested, and merged.
func runDone(cmd *cobra.Command, args []string) error {
	if doneBranch == "" {
		return fmt.Errorf("--branch is required")
	}

	agentID := os.Getenv("GTR_AGENT")
	rig := os.Getenv("GTR_RIG")
	workItemID := ""
	if len(args) == 1 {
		workItemID = args[0]
	} else {
		workItemID = os.Getenv("GTR_WORK_ITEM")
	}

	if agentID != "" {
		if _, err := daemonrpc.Send(daemonrpc.Request{
			WorkflowID: agentID,
			Signal:     polecat.SignalDone,
			Payload:    polecat.DonePayload{Branch: doneBranch, Status: gtstate.StatusDone, Summary: doneSummary},
		}); err != nil {
			return fmt.Errorf("reporting done to %s: %w", agentID, err)
		}
	}

	if rig != "" {
		priority := 0
		if _, err := daemonrpc.Send(daemonrpc.Request{
			WorkflowID: gtstate.RefineryWorkflowID(rig),
			Signal:     refinery.SignalEnqueue,
			Payload:    refinery.EnqueuePayload{WorkItemID: workItemID, Branch: doneBranch, Priority: priority},
		}); err != nil {
			return fmt.Errorf("enqueuing %s with refinery: %w", doneBranch, err)
		}
	}

	style.PrintSuccess("done: %s", doneBranch)
	return nil
}
