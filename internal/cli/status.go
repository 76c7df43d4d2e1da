package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gtconfig"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/style"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: GroupServices,
	Short:   "Show which workflows have persisted state",
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: GroupDiag,
	Short:   "Check that the town's configuration and daemon are reachable",
	Args:    cobra.NoArgs,
	RunE:    runDoctor,
}

func init() {
	rootCmd.AddCommand(statusCmd, doctorCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ids, err := statestore.List()
	if err != nil {
		return fmt.Errorf("listing workflow state: %w", err)
	}
	if len(ids) == 0 {
		fmt.Println(style.Dim.Render("  (no workflow state on disk)"))
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func runDoctor(cmd *cobra.Command, args []string) error {
	if _, err := gtconfig.LoadTown(); err != nil {
		style.PrintWarning("town.toml: %v", err)
	} else {
		style.PrintSuccess("town.toml readable")
	}

	if _, err := gtconfig.LoadRigs(); err != nil {
		style.PrintWarning("rigs.toml: %v", err)
	} else {
		style.PrintSuccess("rigs.toml readable")
	}

	if _, err := daemonrpc.Send(daemonrpc.Request{WorkflowID: "doctor-probe", Signal: "doctor_probe"}); err != nil {
		style.PrintWarning("daemon: %v", err)
	} else {
		style.PrintSuccess("daemon reachable")
	}
	return nil
}
