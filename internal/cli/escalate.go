package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/mail"
	"github.com/gastown/gtr/internal/style"
)

var escalateSubject string
var escalateBody string

var escalateCmd = &cobra.Command{
	Use:     "escalate <to>",
	GroupID: GroupComm,
	Short:   "Send an urgent, interrupting escalation to an agent or the mayor",
	Args:    cobra.ExactArgs(1),
	RunE:    runEscalate,
}

func init() {
	escalateCmd.Flags().StringVarP(&escalateSubject, "subject", "s", "", "escalation subject")
	escalateCmd.Flags().StringVarP(&escalateBody, "message", "m", "", "escalation body")
	rootCmd.AddCommand(escalateCmd)
}

func runEscalate(cmd *cobra.Command, args []string) error {
	router := mail.NewRouter()
	msg, err := router.Escalate(senderIdentity(), args[0], escalateSubject, escalateBody)
	if err != nil {
		return fmt.Errorf("escalating to %s: %w", args[0], err)
	}
	style.PrintSuccess("escalated to %s (%s)", args[0], msg.ID)
	return nil
}
