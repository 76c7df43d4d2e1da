// Package polecat implements the Polecat workflow: a single ephemeral
// worker agent carrying one WorkItem to completion inside its own git
// worktree. Every exit path, including early failures, reports back to
// the Mayor before the workflow returns — enforced here with a single
// defer rather than duplicating the report call at each early return.
package polecat

import (
	"fmt"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/supervisor"
	"github.com/gastown/gtr/internal/workflow"
)

// State is the durable, persisted shape of a Polecat, and also the
// workflow's final result.
type State struct {
	PolecatID  string `json:"polecat_id"`
	Name       string `json:"name"`
	Rig        string `json:"rig"`
	WorkItemID string `json:"work_item_id"`
	Branch     string `json:"branch"`
	Status     string `json:"status"`
	Summary    string `json:"summary,omitempty"`
	ExitReason string `json:"exit_reason,omitempty"`
}

// DonePayload is the polecat_done signal's payload.
type DonePayload struct {
	Branch  string
	Status  string
	Summary string
}

const (
	SignalKill = "polecat_kill"
	SignalDone = "polecat_done"
	SignalStuck = "polecat_stuck"

	SignalReport = "polecat_report"

	heartbeatInterval = 60 * time.Second
)

func polecatID(rig, name string) string { return fmt.Sprintf("%s-polecat-%s", rig, name) }
func branchName(name, workItemID string) string { return fmt.Sprintf("polecat/%s/%s", name, workItemID) }
func worktreePath(rig, name string) string { return gtdirs.PolecatDir(rig, name) }

// Run is the Polecat workflow body.
func Run(name, rig, workItemID, title string, acts *activities.Activities) workflow.Func {
	return func(ctx *workflow.Context) error {
		state := &State{
			PolecatID:  polecatID(rig, name),
			Name:       name,
			Rig:        rig,
			WorkItemID: workItemID,
			Branch:     branchName(name, workItemID),
		}
		_ = ctx.Persist(state)

		defer reportToMayor(ctx, acts, state)

		path := worktreePath(rig, name)

		// Phase 1: worktree.
		_, err := ctx.ExecuteActivity("git_worktree_add",
			acts.GitOp(activities.GitOp{
				Kind:         "worktree_add",
				RepoPath:     gtdirs.RigDir(rig),
				Branch:       state.Branch,
				WorktreePath: path,
			}),
			workflow.ActivityOptions{StartToCloseTimeout: 120 * time.Second, MaxAttempts: 1})
		if err != nil {
			state.Status, state.ExitReason = gtstate.StatusFailed, "worktree_failed"
			_ = ctx.Persist(state)
			return nil
		}

		// Phase 2: agent spawn.
		agentID := state.PolecatID
		prompt := fmt.Sprintf(
			"You are working work item %s (%s) on branch %s. When finished, invoke `done` with the work item id, branch, and a short summary.",
			workItemID, title, state.Branch)
		_, err = ctx.ExecuteActivity("spawn_agent",
			acts.SpawnAgent(supervisorSpec(agentID, path, workItemID, state.Branch, prompt)),
			workflow.ActivityOptions{StartToCloseTimeout: 30 * time.Second, MaxAttempts: 1})
		if err != nil {
			state.Status, state.ExitReason = "spawn_failed", "spawn_failed"
			_ = ctx.Persist(state)
			return nil
		}

		// Phase 3: heartbeat loop.
		for {
			sig, timedOut, stopped := ctx.SelectBiased(heartbeatInterval, SignalKill)
			if stopped {
				state.Status, state.ExitReason = gtstate.StatusZombie, "stopped"
				break
			}
			if timedOut {
				result, err := ctx.ExecuteActivity("check_agent_alive",
					acts.CheckAgentAlive(agentID),
					workflow.DefaultActivityOptions)
				if err != nil || result == false {
					state.Status, state.ExitReason = "dead", "agent_died"
					break
				}
				continue
			}

			switch sig.Name {
			case SignalKill:
				state.Status, state.ExitReason = gtstate.StatusZombie, "killed"
			case SignalDone:
				var p DonePayload

				workflow.DecodePayload(sig.Payload, &p)
				state.Summary = p.Summary
				state.Status, state.ExitReason = gtstate.StatusDone, "completed"
			case SignalStuck:
				state.Status = gtstate.StatusStuck
				_ = ctx.Persist(state)
				continue // witness handles escalation; the loop keeps running
			default:
				continue
			}
			break
		}
		_ = ctx.Persist(state)

		// Phase 4: pane capture, best effort, fallback summary.
		if state.Summary == "" {
			if out, err := ctx.ExecuteActivity("capture_pane",
				acts.CapturePane(agentID, 100),
				workflow.ActivityOptions{StartToCloseTimeout: 10 * time.Second, MaxAttempts: 1}); err == nil {
				if text, ok := out.(string); ok && text != "" {
					state.Summary = text
				}
			}
		}

		// Phase 5: kill session, best effort.
		_, _ = ctx.ExecuteActivity("kill_agent", acts.KillAgent(agentID), workflow.DefaultActivityOptions)

		return nil
	}
}

func supervisorSpec(agentID, workDir, workItemID, branch, prompt string) supervisor.Spec {
	return supervisor.Spec{
		AgentID: agentID,
		Program: "claude",
		Args:    []string{prompt},
		WorkDir: workDir,
		Env: map[string]string{
			"GTR_WORK_ITEM": workItemID,
			"GTR_BRANCH":    branch,
		},
	}
}

// reportToMayor is the mandatory tail: every exit path from Run, however
// early, reaches here via defer before the workflow returns.
func reportToMayor(ctx *workflow.Context, acts *activities.Activities, state *State) {
	_ = ctx.Persist(state)
	_ = ctx.Signal(gtstate.MayorWorkflowID(), SignalReport, *state)
}
