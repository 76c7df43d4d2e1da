package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gastown/gtr/internal/checkpoint"
	"github.com/gastown/gtr/internal/style"
)

var (
	checkpointStep    string
	checkpointTitle   string
	checkpointNotes   string
	checkpointCommit  string
	checkpointBranch  string
)

var checkpointCmd = &cobra.Command{
	Use:     "checkpoint",
	GroupID: GroupAgents,
	Short:   "Read, write, or clear the working directory's session checkpoint",
	RunE:    requireSubcommand,
}

var checkpointWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Save progress so a respawned agent can resume",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointWrite,
}

var checkpointReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Print the current checkpoint, if any",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointRead,
}

var checkpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the current checkpoint",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointClear,
}

// hookCmd, primeCmd, and handoffCmd are all thin aliases over the same
// checkpoint file: hook marks a work item as claimed by the running
// session, prime reads it back in on resume, handoff writes a final
// note before an agent steps away mid-task.
var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Mark the current work item as hooked by this session",
	Args:  cobra.NoArgs,
	RunE:  runHook,
}

var primeCmd = &cobra.Command{
	Use:   "prime",
	Short: "Restore context from the working directory's checkpoint",
	Args:  cobra.NoArgs,
	RunE:  runCheckpointRead,
}

var handoffCmd = &cobra.Command{
	Use:   "handoff",
	Short: "Leave a resumable note before stepping away mid-task",
	Args:  cobra.NoArgs,
	RunE:  runHandoff,
}

func init() {
	checkpointWriteCmd.Flags().StringVar(&checkpointStep, "step", "", "current step id")
	checkpointWriteCmd.Flags().StringVar(&checkpointTitle, "title", "", "current step title")
	checkpointWriteCmd.Flags().StringVar(&checkpointCommit, "commit", "", "last commit sha")
	checkpointWriteCmd.Flags().StringVar(&checkpointBranch, "branch", "", "working branch")
	checkpointWriteCmd.Flags().StringVar(&checkpointNotes, "notes", "", "free-form resume notes")

	handoffCmd.Flags().StringVar(&checkpointNotes, "notes", "", "free-form resume notes")

	checkpointCmd.AddCommand(checkpointWriteCmd, checkpointReadCmd, checkpointClearCmd)
	rootCmd.AddCommand(checkpointCmd, hookCmd, primeCmd, handoffCmd)
}

func runCheckpointWrite(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	cp := checkpoint.Checkpoint{
		MoleculeID:  os.Getenv("GTR_WORK_ITEM"),
		CurrentStep: checkpointStep,
		StepTitle:   checkpointTitle,
		LastCommit:  checkpointCommit,
		Branch:      checkpointBranch,
		SessionID:   os.Getenv("GTR_AGENT"),
		Notes:       checkpointNotes,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := checkpoint.Write(dir, cp); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	style.PrintSuccess("checkpoint saved")
	return nil
}

func runCheckpointRead(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	cp, err := checkpoint.Read(dir)
	if err != nil {
		return fmt.Errorf("reading checkpoint: %w", err)
	}
	if cp == nil {
		fmt.Println(style.Dim.Render("  (no checkpoint in this directory)"))
		return nil
	}
	fmt.Printf("step:    %s (%s)\nbranch:  %s\ncommit:  %s\nnotes:   %s\n",
		cp.CurrentStep, cp.StepTitle, cp.Branch, cp.LastCommit, cp.Notes)
	return nil
}

func runCheckpointClear(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := checkpoint.Clear(dir); err != nil {
		return fmt.Errorf("clearing checkpoint: %w", err)
	}
	style.PrintSuccess("checkpoint cleared")
	return nil
}

func runHook(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	cp, err := checkpoint.Read(dir)
	if err != nil {
		return fmt.Errorf("reading checkpoint: %w", err)
	}
	if cp == nil {
		cp = &checkpoint.Checkpoint{}
	}
	cp.HookedWork = true
	cp.SessionID = os.Getenv("GTR_AGENT")
	cp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if err := checkpoint.Write(dir, *cp); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	style.PrintSuccess("work item hooked")
	return nil
}

func runHandoff(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	cp, err := checkpoint.Read(dir)
	if err != nil {
		return fmt.Errorf("reading checkpoint: %w", err)
	}
	if cp == nil {
		cp = &checkpoint.Checkpoint{}
	}
	cp.Notes = checkpointNotes
	cp.SessionID = os.Getenv("GTR_AGENT")
	cp.Timestamp = time.Now().UTC().Format(time.RFC3339)
	if err := checkpoint.Write(dir, *cp); err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	style.PrintSuccess("handoff note saved")
	return nil
}
