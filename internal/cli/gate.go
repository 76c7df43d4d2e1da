package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gate"
	"github.com/gastown/gtr/internal/style"
)

var gateCmd = &cobra.Command{
	Use:     "gate",
	GroupID: GroupWork,
	Short:   "Approve or close a workflow's open gate",
	RunE:    requireSubcommand,
}

var gateApproveCmd = &cobra.Command{
	Use:   "approve <workflow-id>",
	Short: "Approve a workflow's open human or mail gate",
	Args:  cobra.ExactArgs(1),
	RunE:  runGateSignal(gate.SignalApprove),
}

var gateCloseCmd = &cobra.Command{
	Use:   "close <workflow-id>",
	Short: "Close a workflow's open gate without approving it",
	Args:  cobra.ExactArgs(1),
	RunE:  runGateSignal(gate.SignalClose),
}

func init() {
	gateCmd.AddCommand(gateApproveCmd, gateCloseCmd)
	rootCmd.AddCommand(gateCmd)
}

func runGateSignal(signal string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if _, err := daemonrpc.Send(daemonrpc.Request{WorkflowID: args[0], Signal: signal}); err != nil {
			return fmt.Errorf("signaling gate on %s: %w", args[0], err)
		}
		style.PrintSuccess("%s -> %s", signal, args[0])
		return nil
	}
}
