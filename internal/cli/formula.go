package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/formula"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/rig"
	"github.com/gastown/gtr/internal/style"
)

var formulaCmd = &cobra.Command{
	Use:     "formula",
	GroupID: GroupWork,
	Short:   "Run formula recipes against a rig",
	RunE:    requireSubcommand,
}

var formulaCookCmd = &cobra.Command{
	Use:   "cook <rig> <formula.toml>",
	Short: "Start a molecule running a formula's steps against a rig's checkout",
	Args:  cobra.ExactArgs(2),
	RunE:  runFormulaCook,
}

func init() {
	formulaCmd.AddCommand(formulaCookCmd)
	rootCmd.AddCommand(formulaCmd)
}

func runFormulaCook(cmd *cobra.Command, args []string) error {
	rigName, path := args[0], args[1]

	def, err := formula.FromFile(path)
	if err != nil {
		return fmt.Errorf("loading formula: %w", err)
	}

	payload := rig.CookPayload{Name: def.Name, Def: def, Vars: map[string]string{}}
	workflowID := gtstate.RigWorkflowID(rigName)
	if _, err := daemonrpc.Send(daemonrpc.Request{WorkflowID: workflowID, Signal: rig.SignalCook, Payload: payload}); err != nil {
		return fmt.Errorf("signaling rig %s: %w", rigName, err)
	}
	style.PrintSuccess("cooking %s on rig %s", def.Name, rigName)
	return nil
}
