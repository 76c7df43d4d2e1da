package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/feed"
)

var feedCmd = &cobra.Command{
	Use:     "feed",
	GroupID: GroupComm,
	Short:   "Watch town-wide mail traffic scroll by in a live TUI",
	Args:    cobra.NoArgs,
	RunE:    runFeed,
}

func init() {
	rootCmd.AddCommand(feedCmd)
}

func runFeed(cmd *cobra.Command, args []string) error {
	p := tea.NewProgram(feed.NewModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running feed: %w", err)
	}
	return nil
}
