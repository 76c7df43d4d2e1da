// Package boot implements the Boot workflow: the town's single
// respawn supervisor. It starts the Mayor on first boot and thereafter
// watches every agent it knows about, respawning any that have gone
// quiet so a crashed process doesn't silently stall the town.
package boot

import (
	"fmt"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/mail"
	"github.com/gastown/gtr/internal/mayor"
	"github.com/gastown/gtr/internal/supervisor"
	"github.com/gastown/gtr/internal/workflow"
)

const (
	checkInterval = 120 * time.Second

	SignalAgentStop = "agent_stop"

	mayorAgentID = "mayor"
)

// WatchedAgent is one entry in Boot's respawn table.
type WatchedAgent struct {
	AgentID string `json:"agent_id"`
	Program string `json:"program"`
	WorkDir string `json:"work_dir"`
}

// State is the durable, persisted shape of Boot.
type State struct {
	MayorStarted bool           `json:"mayor_started"`
	Watched      []WatchedAgent `json:"watched,omitempty"`
}

// Run is the Boot workflow body. mayorPrompt seeds the first Mayor
// spawn; respawnPrompt is sent to any agent Boot restarts after a
// crash, telling it to recover its own context.
func Run(mayorPrompt, respawnPrompt string, acts *activities.Activities) workflow.Func {
	return func(ctx *workflow.Context) error {
		state := State{}
		_ = ctx.Persist(state)

		if !ctx.Engine().IsRunning(gtstate.MayorWorkflowID()) {
			_, _ = ctx.StartChild(gtstate.MayorWorkflowID(), mayor.Run(acts))
		}

		if err := spawnMayor(ctx, acts, mayorPrompt); err == nil {
			state.MayorStarted = true
			state.Watched = append(state.Watched, WatchedAgent{AgentID: mayorAgentID, Program: "claude"})
		}
		_ = ctx.Persist(state)

		for {
			_, timedOut, stopped := ctx.Select(checkInterval)
			if stopped {
				return nil
			}
			if !timedOut {
				continue
			}

			for _, w := range state.Watched {
				result, err := ctx.ExecuteActivity("check_agent_alive",
					acts.CheckAgentAlive(w.AgentID), workflow.DefaultActivityOptions)
				if err == nil && result == true {
					continue
				}
				respawn(ctx, acts, w, respawnPrompt)
			}
			_ = ctx.Persist(state)
		}
	}
}

func spawnMayor(ctx *workflow.Context, acts *activities.Activities, prompt string) error {
	_, err := ctx.ExecuteActivity("spawn_agent",
		acts.SpawnAgent(supervisor.Spec{
			AgentID: mayorAgentID,
			Program: "claude",
			Args:    []string{prompt},
		}),
		workflow.ActivityOptions{StartToCloseTimeout: 30 * time.Second, MaxAttempts: 1})
	return err
}

func respawn(ctx *workflow.Context, acts *activities.Activities, w WatchedAgent, respawnPrompt string) {
	prompt := fmt.Sprintf("%s (agent %s)", respawnPrompt, w.AgentID)
	_, _ = ctx.ExecuteActivity("spawn_agent",
		acts.SpawnAgent(supervisor.Spec{
			AgentID: w.AgentID,
			Program: w.Program,
			Args:    []string{prompt},
			WorkDir: w.WorkDir,
		}),
		workflow.ActivityOptions{StartToCloseTimeout: 30 * time.Second, MaxAttempts: 1})
	_, _ = ctx.ExecuteActivity("notify",
		acts.Notify(ctx.ID(), gtstate.RoleMayor, fmt.Sprintf("Respawned %s", w.AgentID), "", mail.PriorityNormal, mail.ChannelQueue),
		workflow.DefaultActivityOptions)
}
