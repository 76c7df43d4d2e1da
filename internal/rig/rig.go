// Package rig implements the Rig workflow: one repository's lifecycle,
// and the witness/refinery children that watch and merge work for it.
// On stop it continues as new, carrying forward its name, git URL and
// witness/refinery session ids; the agent set and the has-witness and
// has-refinery flags start empty again.
package rig

import (
	"fmt"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/formula"
	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/molecule"
	"github.com/gastown/gtr/internal/polecat"
	"github.com/gastown/gtr/internal/refinery"
	"github.com/gastown/gtr/internal/supervisor"
	"github.com/gastown/gtr/internal/witness"
	"github.com/gastown/gtr/internal/workflow"
)

// State is the durable, persisted, and continue-as-new-carried shape of
// a Rig.
type State struct {
	Name              string            `json:"name"`
	GitURL            string            `json:"git_url,omitempty"`
	Status            string            `json:"status"`
	Agents            map[string]string `json:"agents,omitempty"` // agent_id -> role
	HasWitness        bool              `json:"has_witness"`
	HasRefinery       bool              `json:"has_refinery"`
	WitnessSessionID  string            `json:"witness_session_id,omitempty"`
	RefinerySessionID string            `json:"refinery_session_id,omitempty"`
}

// RegisterAgentPayload is the rig_register_agent signal's payload.
type RegisterAgentPayload struct {
	AgentID string
	Role    string
}

// UnregisterAgentPayload is the rig_unregister_agent signal's payload.
type UnregisterAgentPayload struct{ AgentID string }

// SlingPayload is the rig_sling signal's payload: it assigns one work
// item to a freshly spawned polecat.
type SlingPayload struct {
	Name       string
	WorkItemID string
	Title      string
}

// CookPayload is the rig_cook signal's payload: it starts a Molecule
// running def's steps against the rig's own checkout. def travels fully
// resolved in the payload so the workflow itself never touches the
// filesystem to load a formula file.
type CookPayload struct {
	Name string
	Def  formula.Def
	Vars map[string]string
}

const (
	SignalBoot             = "rig_boot"
	SignalPark             = "rig_park"
	SignalUnpark           = "rig_unpark"
	SignalDock             = "rig_dock"
	SignalUndock           = "rig_undock"
	SignalRegisterAgent    = "rig_register_agent"
	SignalUnregisterAgent  = "rig_unregister_agent"
	SignalSling            = "rig_sling"
	SignalCook             = "rig_cook"
	SignalStop             = "rig_stop"
)

// New creates the first-run state for a rig.
func New(name, gitURL string) State {
	return State{Name: name, GitURL: gitURL, Status: gtstate.StatusDormant, Agents: map[string]string{}}
}

// Run is the Rig workflow body. It is re-entered on every continue-as-new
// generation with the carried State.
func Run(state State, acts *activities.Activities) workflow.Func {
	return func(ctx *workflow.Context) error {
		if state.Agents == nil {
			state.Agents = map[string]string{}
		}
		_ = ctx.Persist(state)

		for {
			sig, _, stopped := ctx.Select(0)
			if stopped {
				return nil
			}

			switch sig.Name {
			case SignalBoot:
				state.Status = gtstate.StatusOperational
				bootChildren(ctx, &state, acts)

			case SignalPark:
				if state.Status == gtstate.StatusOperational {
					state.Status = gtstate.StatusParked
				}

			case SignalUnpark:
				if state.Status == gtstate.StatusParked {
					state.Status = gtstate.StatusOperational
				}

			case SignalDock:
				if state.Status != gtstate.StatusDormant {
					state.Status = gtstate.StatusDocked
				}

			case SignalUndock:
				if state.Status == gtstate.StatusDocked {
					state.Status = gtstate.StatusOperational
				}

			case SignalRegisterAgent:
				var p RegisterAgentPayload

				workflow.DecodePayload(sig.Payload, &p)
				state.Agents[p.AgentID] = p.Role
				seedWitness(ctx, &state)

			case SignalUnregisterAgent:
				var p UnregisterAgentPayload

				workflow.DecodePayload(sig.Payload, &p)
				delete(state.Agents, p.AgentID)
				seedWitness(ctx, &state)

			case SignalSling:
				var p SlingPayload

				workflow.DecodePayload(sig.Payload, &p)
				slingPolecat(ctx, &state, acts, p)

			case SignalCook:
				var p CookPayload

				workflow.DecodePayload(sig.Payload, &p)
				cookMolecule(ctx, &state, acts, p)

			case SignalStop:
				next := State{
					Name:   state.Name,
					GitURL: state.GitURL,
					Status: gtstate.StatusDormant,
					Agents: map[string]string{},
					// has_witness/has_refinery reset: the next rig_boot must
					// respawn both agent processes. The session ids survive
					// so that respawn resumes rather than starting fresh.
					WitnessSessionID:  state.WitnessSessionID,
					RefinerySessionID: state.RefinerySessionID,
				}
				return ctx.ContinueAsNew(next)
			}

			_ = ctx.Persist(state)
		}
	}
}

// bootChildren starts the rig's witness and refinery workflow children, and
// spawns each one's underlying agent process if it isn't already running.
// A spawn passes --resume <session id> whenever a prior session id was
// recorded, so a respawned witness or refinery picks up its own history
// instead of starting cold; the session id discovered after spawning is
// persisted for the respawn after that.
func bootChildren(ctx *workflow.Context, state *State, acts *activities.Activities) {
	witnessID := gtstate.WitnessWorkflowID(state.Name)
	if !ctx.Engine().IsRunning(witnessID) {
		_, _ = ctx.StartChild(witnessID, witness.Run(state.Name, acts))
	}
	refineryID := gtstate.RefineryWorkflowID(state.Name)
	if !ctx.Engine().IsRunning(refineryID) {
		_, _ = ctx.StartChild(refineryID, refinery.Run(state.Name, acts))
	}

	if !state.HasWitness {
		prompt := fmt.Sprintf("You are the Witness for rig '%s'. Monitor polecats and report issues to the mayor.", state.Name)
		if spawnAgentResuming(ctx, acts, witnessID, gtdirs.WitnessDir(state.Name), prompt, state.WitnessSessionID) {
			state.HasWitness = true
			if id := discoverSession(ctx, acts, gtdirs.WitnessDir(state.Name)); id != "" {
				state.WitnessSessionID = id
			}
		}
	}

	if !state.HasRefinery {
		prompt := fmt.Sprintf("You are the Refinery for rig '%s'. Process the merge queue: rebase, test, merge, and push.", state.Name)
		if spawnAgentResuming(ctx, acts, refineryID, gtdirs.RefineryDir(state.Name), prompt, state.RefinerySessionID) {
			state.HasRefinery = true
			if id := discoverSession(ctx, acts, gtdirs.RefineryDir(state.Name)); id != "" {
				state.RefinerySessionID = id
			}
		}
	}
}

// spawnAgentResuming spawns agentID's backing process in workDir, placing
// --resume <sessionID> ahead of the prompt when sessionID is already known.
// Reports whether the spawn succeeded.
func spawnAgentResuming(ctx *workflow.Context, acts *activities.Activities, agentID, workDir, prompt, sessionID string) bool {
	_, err := ctx.ExecuteActivity("spawn_agent",
		acts.SpawnAgent(supervisor.Spec{AgentID: agentID, Program: "claude", Args: spawnArgs(prompt, sessionID), WorkDir: workDir}),
		workflow.ActivityOptions{StartToCloseTimeout: 30 * time.Second, MaxAttempts: 1})
	return err == nil
}

// spawnArgs builds the claude invocation's argument list, prepending
// --resume <sessionID> whenever a prior session is known so the respawned
// agent continues its own history instead of starting cold.
func spawnArgs(prompt, sessionID string) []string {
	if sessionID == "" {
		return []string{prompt}
	}
	return []string{"--resume", sessionID, prompt}
}

// discoverSession looks up the session id a just-spawned agent is now
// running under, best effort; a failed lookup leaves any previously known
// session id untouched.
func discoverSession(ctx *workflow.Context, acts *activities.Activities, workDir string) string {
	result, err := ctx.ExecuteActivity("discover_session",
		acts.DiscoverSession(workDir),
		workflow.ActivityOptions{StartToCloseTimeout: 15 * time.Second, MaxAttempts: 1})
	if err != nil {
		return ""
	}
	id, _ := result.(string)
	return id
}

// slingPolecat starts a new Polecat child to carry p's work item, and
// registers it in the agent set so it's picked up by the next witness
// seed and the rig's own bookkeeping.
func slingPolecat(ctx *workflow.Context, state *State, acts *activities.Activities, p SlingPayload) {
	id := gtstate.PolecatWorkflowID(state.Name, p.Name)
	if ctx.Engine().IsRunning(id) {
		return
	}
	state.Agents[id] = gtstate.RolePolecat
	_, _ = ctx.StartChild(id, polecat.Run(p.Name, state.Name, p.WorkItemID, p.Title, acts))
	seedWitness(ctx, state)
}

// cookMolecule starts a Molecule child running p.Def against the rig's
// own checkout, keyed by formula name; cooking a formula whose previous
// run is still going is ignored rather than starting a duplicate.
func cookMolecule(ctx *workflow.Context, state *State, acts *activities.Activities, p CookPayload) {
	id := gtstate.MoleculeWorkflowID(state.Name, p.Name)
	if ctx.Engine().IsRunning(id) {
		return
	}
	_, _ = ctx.StartChild(id, molecule.Run(p.Def, gtdirs.RigDir(state.Name), p.Vars, acts))
}

func seedWitness(ctx *workflow.Context, state *State) {
	var names []string
	for agentID, role := range state.Agents {
		if role == gtstate.RolePolecat {
			names = append(names, agentID)
		}
	}
	_ = ctx.Signal(gtstate.WitnessWorkflowID(state.Name), witness.SignalSeedPolecats, witness.SeedPolecatsPayload{Names: names})
}
