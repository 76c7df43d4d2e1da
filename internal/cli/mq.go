package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/refinery"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/style"
)

var mqCmd = &cobra.Command{
	Use:     "mq",
	GroupID: GroupWork,
	Short:   "Inspect a rig's merge queue (refinery)",
	RunE:    requireSubcommand,
}

var mqListCmd = &cobra.Command{
	Use:   "list <rig>",
	Short: "List a rig's queued and processed merge entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runMqList,
}

var mqShowCmd = &cobra.Command{
	Use:   "show <rig> <work-item-id>",
	Short: "Show one merge entry's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runMqShow,
}

func init() {
	mqCmd.AddCommand(mqListCmd, mqShowCmd)
	rootCmd.AddCommand(mqCmd)
}

func loadRefineryState(rig string) (refinery.State, error) {
	var state refinery.State
	err := statestore.Load(gtstate.RefineryWorkflowID(rig), &state)
	return state, err
}

func runMqList(cmd *cobra.Command, args []string) error {
	state, err := loadRefineryState(args[0])
	if err != nil {
		return fmt.Errorf("loading refinery for rig %s: %w", args[0], err)
	}

	t := style.NewTable(
		style.Column{Name: "WORK ITEM", Width: 24},
		style.Column{Name: "BRANCH", Width: 30},
		style.Column{Name: "STATUS", Width: 16},
	)
	for _, e := range state.Queue {
		t.AddRow(e.WorkItemID, e.Branch, e.Status)
	}
	for _, e := range state.Processed {
		t.AddRow(e.WorkItemID, e.Branch, e.Status)
	}
	fmt.Print(t.Render())
	return nil
}

func runMqShow(cmd *cobra.Command, args []string) error {
	state, err := loadRefineryState(args[0])
	if err != nil {
		return fmt.Errorf("loading refinery for rig %s: %w", args[0], err)
	}
	for _, e := range append(append([]refinery.Entry{}, state.Queue...), state.Processed...) {
		if e.WorkItemID != args[1] {
			continue
		}
		fmt.Printf("work_item: %s\nbranch:    %s\npriority:  %d\nstatus:    %s\n", e.WorkItemID, e.Branch, e.Priority, e.Status)
		return nil
	}
	return fmt.Errorf("work item %s not found in rig %s's merge queue", args[1], args[0])
}
