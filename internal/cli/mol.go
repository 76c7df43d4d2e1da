package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/molecule"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/style"
)

var molCmd = &cobra.Command{
	Use:     "mol",
	GroupID: GroupWork,
	Short:   "Control a running molecule (formula run)",
	RunE:    requireSubcommand,
}

var molPauseCmd = &cobra.Command{
	Use:   "pause <workflow-id>",
	Short: "Pause a molecule after its current step finishes",
	Args:  cobra.ExactArgs(1),
	RunE:  runMolSignal(molecule.SignalPause),
}

var molResumeCmd = &cobra.Command{
	Use:   "resume <workflow-id>",
	Short: "Resume a paused molecule",
	Args:  cobra.ExactArgs(1),
	RunE:  runMolSignal(molecule.SignalResume),
}

var molCancelCmd = &cobra.Command{
	Use:   "cancel <workflow-id>",
	Short: "Cancel a molecule",
	Args:  cobra.ExactArgs(1),
	RunE:  runMolSignal(molecule.SignalCancel),
}

var molStepDoneCmd = &cobra.Command{
	Use:   "step-done <workflow-id> <step-ref>",
	Short: "Report a manual step as complete",
	Args:  cobra.ExactArgs(2),
	RunE:  runMolStepResult(molecule.SignalStepDone),
}

var molStepFailCmd = &cobra.Command{
	Use:   "step-fail <workflow-id> <step-ref> [reason]",
	Short: "Report a manual step as failed",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runMolStepResult(molecule.SignalStepFail),
}

var molStatusCmd = &cobra.Command{
	Use:   "status <workflow-id>",
	Short: "Show a molecule's persisted state",
	Args:  cobra.ExactArgs(1),
	RunE:  runMolStatus,
}

func init() {
	molCmd.AddCommand(molPauseCmd, molResumeCmd, molCancelCmd, molStepDoneCmd, molStepFailCmd, molStatusCmd)
	rootCmd.AddCommand(molCmd)
}

func runMolSignal(signal string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if _, err := daemonrpc.Send(daemonrpc.Request{WorkflowID: args[0], Signal: signal}); err != nil {
			return fmt.Errorf("signaling molecule %s: %w", args[0], err)
		}
		style.PrintSuccess("%s -> %s", signal, args[0])
		return nil
	}
}

func runMolStepResult(signal string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		var payload interface{}
		switch signal {
		case molecule.SignalStepDone:
			payload = molecule.StepDonePayload{StepRef: args[1]}
		case molecule.SignalStepFail:
			reason := ""
			if len(args) > 2 {
				reason = args[2]
			}
			payload = molecule.StepFailPayload{StepRef: args[1], Reason: reason}
		}
		if _, err := daemonrpc.Send(daemonrpc.Request{WorkflowID: args[0], Signal: signal, Payload: payload}); err != nil {
			return fmt.Errorf("signaling molecule %s: %w", args[0], err)
		}
		style.PrintSuccess("%s -> %s (%s)", signal, args[0], args[1])
		return nil
	}
}

func runMolStatus(cmd *cobra.Command, args []string) error {
	var state molecule.State
	if err := statestore.Load(args[0], &state); err != nil {
		return fmt.Errorf("loading molecule %s: %w", args[0], err)
	}
	fmt.Printf("%s  status=%s  current=%s\n", state.FormulaName, state.Status, state.Current)
	for _, r := range state.Results {
		fmt.Printf("  %s: %s\n", r.Name, r.Status)
	}
	return nil
}
