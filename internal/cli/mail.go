package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/mail"
	"github.com/gastown/gtr/internal/style"
)

var mailCmd = &cobra.Command{
	Use:     "mail",
	GroupID: GroupComm,
	Short:   "Send and read agent-to-agent mail",
	RunE:    requireSubcommand,
}

var (
	mailSubject  string
	mailBody     string
	mailPriority string
	mailChannel  string
)

var mailSendCmd = &cobra.Command{
	Use:   "send <to>",
	Short: "Send a message to an agent or role",
	Args:  cobra.ExactArgs(1),
	RunE:  runMailSend,
}

var mailNudgeCmd = &cobra.Command{
	Use:   "nudge <to>",
	Short: "Send a high-priority interrupting nudge",
	Args:  cobra.ExactArgs(1),
	RunE:  runMailNudge,
}

var mailInboxCmd = &cobra.Command{
	Use:   "inbox <address>",
	Short: "List an address's pending messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runMailInbox,
}

var mailCheckCmd = &cobra.Command{
	Use:   "check <address> <message-id>",
	Short: "Acknowledge a message as read",
	Args:  cobra.ExactArgs(2),
	RunE:  runMailCheck,
}

var mailBroadcastCmd = &cobra.Command{
	Use:   "broadcast <to...>",
	Short: "Send the same message to every listed address",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMailBroadcast,
}

func init() {
	mailSendCmd.Flags().StringVarP(&mailSubject, "subject", "s", "", "message subject")
	mailSendCmd.Flags().StringVarP(&mailBody, "message", "m", "", "message body")
	mailSendCmd.Flags().StringVar(&mailPriority, "priority", "normal", "low, normal, high, or urgent")
	mailSendCmd.Flags().StringVar(&mailChannel, "channel", "queue", "queue or signal")

	mailNudgeCmd.Flags().StringVarP(&mailSubject, "subject", "s", "", "message subject")
	mailNudgeCmd.Flags().StringVarP(&mailBody, "message", "m", "", "message body")

	mailBroadcastCmd.Flags().StringVarP(&mailSubject, "subject", "s", "", "message subject")
	mailBroadcastCmd.Flags().StringVarP(&mailBody, "message", "m", "", "message body")
	mailBroadcastCmd.Flags().StringVar(&mailPriority, "priority", "normal", "low, normal, high, or urgent")

	mailCmd.AddCommand(mailSendCmd, mailNudgeCmd, mailInboxCmd, mailCheckCmd, mailBroadcastCmd)
	rootCmd.AddCommand(mailCmd)
}

func senderIdentity() string {
	if id := os.Getenv("GTR_AGENT"); id != "" {
		return id
	}
	return "cli"
}

func runMailSend(cmd *cobra.Command, args []string) error {
	router := mail.NewRouter()
	msg, err := router.Send(senderIdentity(), args[0], mailSubject, mailBody,
		mail.Priority(mailPriority), mail.Channel(mailChannel))
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	style.PrintSuccess("sent %s to %s", msg.ID, args[0])
	return nil
}

func runMailNudge(cmd *cobra.Command, args []string) error {
	router := mail.NewRouter()
	msg, err := router.Nudge(senderIdentity(), args[0], mailSubject, mailBody)
	if err != nil {
		return fmt.Errorf("sending nudge: %w", err)
	}
	style.PrintSuccess("nudged %s (%s)", args[0], msg.ID)
	return nil
}

func runMailInbox(cmd *cobra.Command, args []string) error {
	msgs, err := mail.Pending(args[0])
	if err != nil {
		return fmt.Errorf("reading inbox: %w", err)
	}
	if len(msgs) == 0 {
		fmt.Println(style.Dim.Render("  (no pending messages)"))
		return nil
	}
	t := style.NewTable(
		style.Column{Name: "ID", Width: 16},
		style.Column{Name: "FROM", Width: 16},
		style.Column{Name: "PRIORITY", Width: 8},
		style.Column{Name: "SUBJECT", Width: 40},
	)
	for _, m := range msgs {
		t.AddRow(m.ID, m.From, string(m.Priority), m.Subject)
	}
	fmt.Print(t.Render())
	return nil
}

func runMailCheck(cmd *cobra.Command, args []string) error {
	if err := mail.Ack(args[0], args[1], senderIdentity()); err != nil {
		return fmt.Errorf("acking message: %w", err)
	}
	style.PrintSuccess("acked %s", args[1])
	return nil
}

func runMailBroadcast(cmd *cobra.Command, args []string) error {
	router := mail.NewRouter()
	sent, err := router.Broadcast(senderIdentity(), args, mailSubject, mailBody, mail.Priority(mailPriority))
	if err != nil {
		return fmt.Errorf("broadcasting: %w", err)
	}
	style.PrintSuccess("broadcast to %d recipient(s)", len(sent))
	return nil
}
