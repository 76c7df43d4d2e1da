// Package molecule implements the Molecule workflow: a single run of a
// Formula's topologically-sorted steps, one in flight at a time, driven
// by the same run_plugin activity Refinery and Witness use for external
// commands.
package molecule

import (
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/formula"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/plugin"
	"github.com/gastown/gtr/internal/workflow"
)

// controlPollInterval bounds how long a step-boundary check for a
// pending mol_pause/mol_resume/mol_cancel signal waits before giving up
// and running the next step.
const controlPollInterval = 20 * time.Millisecond

// StepResult records one step's outcome.
type StepResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
}

// State is the durable, persisted shape of a Molecule.
type State struct {
	FormulaName string       `json:"formula_name"`
	WorkDir     string       `json:"work_dir"`
	Status      string       `json:"status"`
	Current     string       `json:"current,omitempty"`
	Results     []StepResult `json:"results,omitempty"`
	FailedStep  string       `json:"failed_step,omitempty"`
}

// StepDonePayload is the mol_step_done signal's payload.
type StepDonePayload struct {
	StepRef string
	Output  string
}

// StepFailPayload is the mol_step_fail signal's payload.
type StepFailPayload struct {
	StepRef string
	Reason  string
}

const (
	SignalStepDone = "mol_step_done"
	SignalStepFail = "mol_step_fail"
	SignalPause    = "mol_pause"
	SignalResume   = "mol_resume"
	SignalCancel   = "mol_cancel"
)

// Run is the Molecule workflow body: it runs def's steps in dependency
// order against workDir, substituting vars into each step's command
// and args before dispatch.
func Run(def formula.Def, workDir string, vars map[string]string, acts *activities.Activities) workflow.Func {
	return func(ctx *workflow.Context) error {
		state := State{FormulaName: def.Name, WorkDir: workDir, Status: gtstate.StatusQueued}
		_ = ctx.Persist(state)

		steps, err := def.TopoSort()
		if err != nil {
			state.Status, state.FailedStep = gtstate.StatusFailed, "toposort"
			_ = ctx.Persist(state)
			return nil
		}

		merged := map[string]string{}
		for k, v := range def.Vars {
			merged[k] = v
		}
		for k, v := range vars {
			merged[k] = v
		}

		state.Status = gtstate.StatusInProgress
		_ = ctx.Persist(state)

		for _, step := range steps {
			if cancelled := drainControl(ctx, &state); cancelled {
				state.Status = "cancelled"
				_ = ctx.Persist(state)
				return nil
			}

			state.Current = step.Name
			_ = ctx.Persist(state)

			var outcome StepResult
			if step.Command == "" {
				outcome = waitExternalStep(ctx, step)
			} else {
				outcome = runStep(ctx, acts, workDir, step, merged)
			}
			state.Results = append(state.Results, outcome)
			if outcome.Status != gtstate.StatusDone {
				state.Status = gtstate.StatusFailed
				state.FailedStep = step.Name
				_ = ctx.Persist(state)
				return nil
			}
			_ = ctx.Persist(state)
		}

		state.Status = gtstate.StatusDone
		state.Current = ""
		_ = ctx.Persist(state)
		return nil
	}
}

// drainControl checks, at a step boundary, for a pending pause/resume/
// cancel signal. A pause holds the molecule in a poll loop until
// resumed or cancelled; otherwise it returns promptly so the next step
// can run. Returns true if the molecule should stop entirely.
func drainControl(ctx *workflow.Context, state *State) bool {
	paused := false
	for {
		timeout := controlPollInterval
		if paused {
			timeout = 0 // wait indefinitely for resume or cancel
		}
		sig, timedOut, stopped := ctx.Select(timeout)
		if stopped {
			return true
		}
		if timedOut {
			return false
		}

		switch sig.Name {
		case SignalCancel:
			return true
		case SignalPause:
			paused = true
			state.Status = gtstate.StatusStuck
			_ = ctx.Persist(*state)
		case SignalResume:
			state.Status = gtstate.StatusInProgress
			_ = ctx.Persist(*state)
			return false
		}
	}
}

// waitExternalStep blocks for a step with no command of its own: one
// driven by an outside actor (a polecat, a human) that reports its
// outcome via mol_step_done/mol_step_fail rather than a plugin run.
func waitExternalStep(ctx *workflow.Context, step formula.Step) StepResult {
	for {
		sig, _, stopped := ctx.Select(0)
		if stopped {
			return StepResult{Name: step.Name, Status: gtstate.StatusFailed, Output: "workflow stopped"}
		}
		switch sig.Name {
		case SignalStepDone:
			var p StepDonePayload

			workflow.DecodePayload(sig.Payload, &p)
			if p.StepRef != step.Name {
				continue
			}
			return StepResult{Name: step.Name, Status: gtstate.StatusDone, Output: p.Output}
		case SignalStepFail:
			var p StepFailPayload

			workflow.DecodePayload(sig.Payload, &p)
			if p.StepRef != step.Name {
				continue
			}
			return StepResult{Name: step.Name, Status: gtstate.StatusFailed, Output: p.Reason}
		}
	}
}

func runStep(ctx *workflow.Context, acts *activities.Activities, workDir string, step formula.Step, vars map[string]string) StepResult {
	command := formula.Interpolate(step.Command, vars)
	args := make([]string, len(step.Args))
	for i, a := range step.Args {
		args[i] = formula.Interpolate(a, vars)
	}

	out, err := ctx.ExecuteActivity("run_plugin",
		acts.RunPlugin(workDir, plugin.Def{Name: step.Name, Command: command, Args: args}),
		workflow.DefaultActivityOptions)
	if err != nil {
		return StepResult{Name: step.Name, Status: gtstate.StatusFailed, Output: err.Error()}
	}

	output := ""
	if result, ok := out.(activities.PluginResult); ok {
		output = result.Output
	}
	return StepResult{Name: step.Name, Status: gtstate.StatusDone, Output: output}
}
