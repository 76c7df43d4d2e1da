package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/tmux"
)

var chatCmd = &cobra.Command{
	Use:     "chat <agent-id>",
	GroupID: GroupComm,
	Short:   "Attach to an agent's live tmux session",
	Args:    cobra.ExactArgs(1),
	RunE:    runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// runChat hands the terminal over to the agent's tmux session directly,
// switching the current client if we're already inside tmux (so the
// caller doesn't get nested sessions) or attaching fresh otherwise.
func runChat(cmd *cobra.Command, args []string) error {
	session := tmux.SessionNameForAgent(args[0])
	t := tmux.NewTmux()
	has, err := t.HasSession(session)
	if err != nil {
		return fmt.Errorf("checking session %s: %w", session, err)
	}
	if !has {
		return fmt.Errorf("no live session for agent %s", args[0])
	}

	var c *exec.Cmd
	if tmux.IsInsideTmux() {
		c = exec.Command("tmux", "switch-client", "-t", session)
	} else {
		c = exec.Command("tmux", "attach-session", "-t", session)
	}
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	return c.Run()
}
