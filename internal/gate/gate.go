// Package gate implements the single-fire wait primitive used anywhere a
// workflow must pause for an external event: a fixed duration, a human's
// explicit approval, or an incoming mail message.
package gate

import (
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/workflow"
)

// Kind discriminates which external event a Gate is waiting on.
type Kind string

const (
	KindTimer Kind = "timer"
	KindHuman Kind = "human"
	KindMail  Kind = "mail"
)

// Spec describes a gate's configuration, as stored in a workflow's
// persisted state while the gate is open.
type Spec struct {
	Kind        Kind          `json:"kind"`
	Duration    time.Duration `json:"duration,omitempty"`    // KindTimer
	Description string        `json:"description,omitempty"` // KindHuman
	From        string        `json:"from,omitempty"`        // KindMail
}

// Outcome is the terminal result of waiting on a gate.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeClosed   Outcome = "closed"
	OutcomeStopped  Outcome = "stopped"
)

// Signal names recognized while a gate is open.
const (
	SignalApprove = "gate_approve"
	SignalClose   = "gate_close"
)

// Wait blocks the calling workflow until the gate transitions out of
// "waiting": a timer gate fires on its own after Duration; a human or
// mail gate waits for an explicit gate_approve/gate_close signal. The
// transition is single-fire — once Wait returns, the gate cannot be
// re-entered; callers construct a fresh Spec for the next wait.
//
// A timer gate never reads the wall clock itself: both the deadline and
// each loop's remaining duration come from the now activity, so a replay
// of recorded activity results reproduces the same deadline instead of
// depending on whatever the local clock reads mid-replay.
func Wait(ctx *workflow.Context, spec Spec, acts *activities.Activities) Outcome {
	if spec.Kind == KindTimer {
		deadline := now(ctx, acts).Add(spec.Duration)
		for {
			remaining := deadline.Sub(now(ctx, acts))
			if remaining <= 0 {
				return OutcomeApproved
			}
			sig, timedOut, stopped := ctx.Select(remaining)
			if stopped {
				return OutcomeStopped
			}
			if timedOut {
				return OutcomeApproved
			}
			if sig.Name == SignalClose {
				return OutcomeClosed
			}
			// Any other signal while waiting on the timer is ignored;
			// keep waiting for the remaining duration.
		}
	}

	// Human and Mail gates wait indefinitely for an explicit signal.
	// Signals are taken in arrival order, so whichever of approve and
	// close was queued first decides the outcome; other signals are skipped.
	for {
		sig, _, stopped := ctx.Select(0)
		if stopped {
			return OutcomeStopped
		}
		switch sig.Name {
		case SignalClose:
			return OutcomeClosed
		case SignalApprove:
			return OutcomeApproved
		default:
			continue
		}
	}
}

// now fetches the current time through the Now activity. A failed call
// (which the in-process activity implementation never produces) falls
// back to the zero time. On the read that sets a timer gate's deadline
// this ends the wait at once; on a later read it makes the remaining
// wait run from the zero time to the deadline, so Wait then returns only
// on a signal or a stop.
func now(ctx *workflow.Context, acts *activities.Activities) time.Time {
	result, err := ctx.ExecuteActivity("now", acts.Now(), workflow.DefaultActivityOptions)
	if err != nil {
		return time.Time{}
	}
	t, _ := result.(time.Time)
	return t
}
