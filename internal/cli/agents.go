package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/daemonrpc"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/mayor"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/style"
)

var agentsCmd = &cobra.Command{
	Use:     "agents",
	GroupID: GroupAgents,
	Short:   "Inspect the Mayor's agent registry",
	RunE:    requireSubcommand,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every registered agent",
	Args:  cobra.NoArgs,
	RunE:  runAgentsList,
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one agent's registry entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsShow,
}

var (
	agentsStatusValue string
	agentsStatusWork  string
)

var agentsStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Report an agent's current status to the Mayor",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsStatus,
}

func init() {
	agentsStatusCmd.Flags().StringVar(&agentsStatusValue, "state", "", "new status (idle, working, stuck, ...)")
	agentsStatusCmd.Flags().StringVar(&agentsStatusWork, "work", "", "current work item id")

	agentsCmd.AddCommand(agentsListCmd, agentsShowCmd, agentsStatusCmd)
	rootCmd.AddCommand(agentsCmd)
}

func loadMayorState() (mayor.State, error) {
	var state mayor.State
	err := statestore.Load(gtstate.MayorWorkflowID(), &state)
	return state, err
}

func runAgentsList(cmd *cobra.Command, args []string) error {
	state, err := loadMayorState()
	if err != nil {
		return fmt.Errorf("loading mayor registry: %w", err)
	}
	if len(state.Agents) == 0 {
		fmt.Println(style.Dim.Render("  (no agents registered)"))
		return nil
	}
	t := style.NewTable(
		style.Column{Name: "ID", Width: 24},
		style.Column{Name: "ROLE", Width: 12},
		style.Column{Name: "STATUS", Width: 12},
		style.Column{Name: "WORK", Width: 20},
	)
	for id, info := range state.Agents {
		t.AddRow(id, info.Role, info.Status, info.CurrentWork)
	}
	fmt.Print(t.Render())
	return nil
}

func runAgentsShow(cmd *cobra.Command, args []string) error {
	state, err := loadMayorState()
	if err != nil {
		return fmt.Errorf("loading mayor registry: %w", err)
	}
	info, ok := state.Agents[args[0]]
	if !ok {
		return fmt.Errorf("agent %s is not registered", args[0])
	}
	fmt.Printf("id:     %s\nrole:   %s\nstatus: %s\nwork:   %s\n", args[0], info.Role, info.Status, info.CurrentWork)
	return nil
}

func runAgentsStatus(cmd *cobra.Command, args []string) error {
	if agentsStatusValue == "" {
		return fmt.Errorf("--state is required")
	}
	if _, err := daemonrpc.Send(daemonrpc.Request{
		WorkflowID: gtstate.MayorWorkflowID(),
		Signal:     mayor.SignalAgentStatusUpdate,
		Payload:    mayor.AgentStatusUpdatePayload{ID: args[0], Status: agentsStatusValue, CurrentWork: agentsStatusWork},
	}); err != nil {
		return fmt.Errorf("updating status for %s: %w", args[0], err)
	}
	style.PrintSuccess("%s -> %s", args[0], agentsStatusValue)
	return nil
}
