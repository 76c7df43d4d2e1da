package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gtid"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/mayor"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/style"
)

// convoyState mirrors internal/convoy.State's shape for read-only CLI
// display, avoiding a dependency on internal/convoy (which pulls in
// internal/activities and internal/workitem, neither needed here).
type convoyState struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Items     []string `json:"items"`
	Completed []string `json:"completed"`
}

var convoyCmd = &cobra.Command{
	Use:     "convoy",
	GroupID: GroupWork,
	Short:   "Inspect convoys (batches of work items tracked together)",
	RunE:    requireSubcommand,
}

var convoyCreateCmd = &cobra.Command{
	Use:   "create <title> <item-title>...",
	Short: "Create a convoy and seed it with one work item per remaining argument",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runConvoyCreate,
}

var convoyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one convoy's progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runConvoyShow,
}

var convoyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known convoy",
	Args:  cobra.NoArgs,
	RunE:  runConvoyList,
}

func init() {
	convoyCmd.AddCommand(convoyCreateCmd, convoyShowCmd, convoyListCmd)
	rootCmd.AddCommand(convoyCmd)
}

func runConvoyCreate(cmd *cobra.Command, args []string) error {
	title, itemTitles := args[0], args[1:]

	items := make([]mayor.CreateConvoyWorkItem, len(itemTitles))
	for i, t := range itemTitles {
		items[i] = mayor.CreateConvoyWorkItem{WorkItemID: gtid.WorkItemID(), Title: t}
	}
	convoyID := gtid.ConvoyID()

	payload := mayor.CreateConvoyPayload{ConvoyID: convoyID, Title: title, Items: items}
	if _, err := daemonrpc.Send(daemonrpc.Request{
		WorkflowID: gtstate.MayorWorkflowID(),
		Signal:     mayor.SignalCreateConvoy,
		Payload:    payload,
	}); err != nil {
		return fmt.Errorf("creating convoy: %w", err)
	}
	style.PrintSuccess("created convoy %s (%d items)", convoyID, len(items))
	return nil
}

func runConvoyShow(cmd *cobra.Command, args []string) error {
	var state convoyState
	if err := statestore.Load(args[0], &state); err != nil {
		return fmt.Errorf("loading convoy %s: %w", args[0], err)
	}
	fmt.Printf("id:        %s\ntitle:     %s\nstatus:    %s\nitems:     %d\ncompleted: %d\n",
		state.ID, state.Title, state.Status, len(state.Items), len(state.Completed))
	return nil
}

func runConvoyList(cmd *cobra.Command, args []string) error {
	ids, err := statestore.List()
	if err != nil {
		return fmt.Errorf("listing workflow state: %w", err)
	}
	t := style.NewTable(
		style.Column{Name: "ID", Width: 24},
		style.Column{Name: "STATUS", Width: 14},
		style.Column{Name: "PROGRESS", Width: 12},
	)
	found := false
	for _, id := range ids {
		var state convoyState
		if err := statestore.Load(id, &state); err != nil || len(state.Items) == 0 {
			continue
		}
		found = true
		t.AddRow(state.ID, state.Status, fmt.Sprintf("%d/%d", len(state.Completed), len(state.Items)))
	}
	if !found {
		fmt.Println(style.Dim.Render("  (no convoys)"))
		return nil
	}
	fmt.Print(t.Render())
	return nil
}
