// Package witness implements the per-rig Witness workflow: a periodic
// health probe over that rig's live polecats, escalating to the Mayor
// when one has been unresponsive for too long, and reporting a rig-wide
// health summary on a slower cadence.
package witness

import (
	"fmt"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/mail"
	"github.com/gastown/gtr/internal/workflow"
)

const (
	checkInterval = 300 * time.Second

	// deadThreshold is the number of consecutive dead checks before the
	// first escalation fires.
	deadThreshold = 3
	// reEscalateEvery re-alerts every Nth subsequent check once a polecat
	// has crossed deadThreshold, so an unattended death doesn't page once
	// and go silent, but also doesn't spam every 5 minutes.
	reEscalateEvery = 6
	// healthSummaryEvery reports overall rig health on a slower cadence
	// than individual polecat checks.
	healthSummaryEvery = 12

	SignalSeedPolecats = "witness_seed_polecats"
	SignalAgentStop    = "agent_stop"
)

// SeedPolecatsPayload replaces the set of polecats this Witness probes.
type SeedPolecatsPayload struct{ Names []string }

// State is the durable, persisted shape of a Witness.
type State struct {
	Rig           string         `json:"rig"`
	Polecats      []string       `json:"polecats"`
	DeadCounts    map[string]int `json:"dead_counts,omitempty"`
	CycleCount    int            `json:"cycle_count"`
}

// Run is the Witness workflow body for rig.
func Run(rig string, acts *activities.Activities) workflow.Func {
	return func(ctx *workflow.Context) error {
		state := State{Rig: rig, DeadCounts: map[string]int{}}
		_ = ctx.Persist(state)

		for {
			sig, timedOut, stopped := ctx.Select(checkInterval)
			if stopped {
				return nil
			}
			if !timedOut {
				switch sig.Name {
				case SignalSeedPolecats:
					var p SeedPolecatsPayload

					workflow.DecodePayload(sig.Payload, &p)
					state.Polecats = p.Names
					if state.DeadCounts == nil {
						state.DeadCounts = map[string]int{}
					}
				case SignalAgentStop:
					return nil
				}
				_ = ctx.Persist(state)
				continue
			}

			state.CycleCount++
			for _, polecatID := range state.Polecats {
				probe(ctx, acts, &state, polecatID)
			}
			if state.CycleCount%healthSummaryEvery == 0 {
				emitHealthSummary(ctx, acts, &state)
			}
			_ = ctx.Persist(state)
		}
	}
}

func probe(ctx *workflow.Context, acts *activities.Activities, state *State, polecatID string) {
	result, err := ctx.ExecuteActivity("check_agent_alive",
		acts.CheckAgentAlive(polecatID), workflow.DefaultActivityOptions)
	alive := err == nil && result == true

	if alive {
		state.DeadCounts[polecatID] = 0
		return
	}

	state.DeadCounts[polecatID]++
	count := state.DeadCounts[polecatID]
	if count == deadThreshold || (count > deadThreshold && (count-deadThreshold)%reEscalateEvery == 0) {
		subject := fmt.Sprintf("Polecat %s unresponsive (%d checks)", polecatID, count)
		_, _ = ctx.ExecuteActivity("notify",
			acts.Notify(ctx.ID(), gtstate.RoleMayor, subject, "", mail.PriorityHigh, mail.ChannelSignal),
			workflow.DefaultActivityOptions)
	}
}

func emitHealthSummary(ctx *workflow.Context, acts *activities.Activities, state *State) {
	deadNow := 0
	for _, c := range state.DeadCounts {
		if c > 0 {
			deadNow++
		}
	}
	subject := fmt.Sprintf("Rig %s health: %d/%d polecats responsive", state.Rig, len(state.Polecats)-deadNow, len(state.Polecats))
	_, _ = ctx.ExecuteActivity("notify",
		acts.Notify(ctx.ID(), gtstate.RoleMayor, subject, "", mail.PriorityNormal, mail.ChannelQueue),
		workflow.DefaultActivityOptions)
}
