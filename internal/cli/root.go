// Package cli implements the gt command-line surface: registration,
// mail, and lifecycle commands, each a thin dispatcher over the
// workflow engine (for a running daemon) or the on-disk stores (mail,
// config, checkpoint) that don't require one.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gt",
	Short: "Gas Town - supervises AI coding agents across git worktrees",
	Long: `gt runs and supervises long-lived coding-assistant agents ("polecats")
working in their own git worktrees, coordinated through durable
workflows for work assignment, merge queueing, and health monitoring.`,
	RunE: requireSubcommand,
}

const (
	GroupWork     = "work"
	GroupAgents   = "agents"
	GroupComm     = "comm"
	GroupServices = "services"
	GroupDiag     = "diag"
)

func init() {
	cobra.EnablePrefixMatching = true
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupWork, Title: "Work Management:"},
		&cobra.Group{ID: GroupAgents, Title: "Agent Management:"},
		&cobra.Group{ID: GroupComm, Title: "Communication:"},
		&cobra.Group{ID: GroupServices, Title: "Services:"},
		&cobra.Group{ID: GroupDiag, Title: "Diagnostics:"},
	)
	rootCmd.SetHelpCommandGroupID(GroupDiag)
	rootCmd.SetCompletionCommandGroupID(GroupDiag)
}

// Execute runs the root command and returns a process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func buildCommandPath(cmd *cobra.Command) string {
	var parts []string
	for c := cmd; c != nil; c = c.Parent() {
		parts = append([]string{c.Name()}, parts...)
	}
	return strings.Join(parts, " ")
}

// requireSubcommand is RunE for parent commands that do nothing on
// their own: it turns "gt mail" with no further args into an error
// naming the available subcommands instead of silently exiting 0.
func requireSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("requires a subcommand\n\nRun '%s --help' for usage", buildCommandPath(cmd))
	}
	return fmt.Errorf("unknown command %q for %q", args[0], buildCommandPath(cmd))
}
