package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/style"
	"github.com/gastown/gtr/internal/workitem"
)

var workCmd = &cobra.Command{
	Use:     "work",
	GroupID: GroupWork,
	Short:   "Inspect and close work items",
	RunE:    requireSubcommand,
}

var workShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one work item's state",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkShow,
}

var workListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known work item",
	Args:  cobra.NoArgs,
	RunE:  runWorkList,
}

var workCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a work item",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkClose,
}

func init() {
	workCmd.AddCommand(workShowCmd, workListCmd, workCloseCmd)
	rootCmd.AddCommand(workCmd)
}

func runWorkShow(cmd *cobra.Command, args []string) error {
	var state workitem.State
	if err := statestore.Load(args[0], &state); err != nil {
		return fmt.Errorf("loading work item %s: %w", args[0], err)
	}
	fmt.Printf("id:       %s\ntitle:    %s\nstatus:   %s\nassigned: %s\n",
		state.ID, state.Title, state.Status, state.AssignedTo)
	return nil
}

func runWorkList(cmd *cobra.Command, args []string) error {
	ids, err := statestore.List()
	if err != nil {
		return fmt.Errorf("listing workflow state: %w", err)
	}
	t := style.NewTable(
		style.Column{Name: "ID", Width: 24},
		style.Column{Name: "STATUS", Width: 14},
		style.Column{Name: "ASSIGNED", Width: 20},
	)
	found := false
	for _, id := range ids {
		var state workitem.State
		if err := statestore.Load(id, &state); err != nil || state.ID == "" {
			continue
		}
		found = true
		t.AddRow(state.ID, state.Status, state.AssignedTo)
	}
	if !found {
		fmt.Println(style.Dim.Render("  (no work items)"))
		return nil
	}
	fmt.Print(t.Render())
	return nil
}

func runWorkClose(cmd *cobra.Command, args []string) error {
	if _, err := daemonrpc.Send(daemonrpc.Request{WorkflowID: args[0], Signal: workitem.SignalClose}); err != nil {
		return fmt.Errorf("closing work item %s: %w", args[0], err)
	}
	style.PrintSuccess("closed %s", args[0])
	return nil
}
