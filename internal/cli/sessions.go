package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/style"
	"github.com/gastown/gtr/internal/tmux"
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	GroupID: GroupServices,
	Short:   "List every live agent tmux session",
	Args:    cobra.NoArgs,
	RunE:    runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	t := tmux.NewTmux()
	names, err := t.ListSessions()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(names) == 0 {
		fmt.Println(style.Dim.Render("  (no live sessions)"))
		return nil
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
