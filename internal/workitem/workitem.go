// Package workitem implements the WorkItem durable state machine: the
// atomic unit of assignable work a Polecat or crew member carries to
// completion, with an automatic staleness escalation if its assignee
// goes quiet.
package workitem

import (
	"fmt"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/gterr"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/mail"
	"github.com/gastown/gtr/internal/workflow"
)

// StalenessTimeout is how long a WorkItem may sit in assigned/in_progress
// without a heartbeat before it's treated as stuck.
const StalenessTimeout = 4 * time.Hour

// State is the durable, persisted shape of a WorkItem.
type State struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	AssignedTo      string `json:"assigned_to,omitempty"`
	EscalationLevel int    `json:"escalation_level"`
}

func initial(id, title string) State {
	return State{ID: id, Title: title, Status: gtstate.StatusPending}
}

// AssignPayload is the assign signal's payload.
type AssignPayload struct{ AgentID string }

// FailPayload is the fail signal's payload.
type FailPayload struct{ Reason string }

// HeartbeatPayload is the heartbeat signal's payload.
type HeartbeatPayload struct{ Progress string }

const (
	SignalAssign    = "assign"
	SignalStart     = "start"
	SignalComplete  = "complete"
	SignalFail      = "fail"
	SignalClose     = "close"
	SignalRelease   = "release"
	SignalHeartbeat = "heartbeat"
	SignalEscalate  = "escalate"
)

func isTerminal(status string) bool {
	return status == gtstate.StatusDone || status == gtstate.StatusFailed || status == gtstate.StatusClosed
}

// Run is the WorkItem workflow body, started under workflow id id.
func Run(id, title string, acts *activities.Activities) workflow.Func {
	return func(ctx *workflow.Context) error {
		state := initial(id, title)
		_ = ctx.Persist(state)

		for {
			var timeout time.Duration
			if state.Status == gtstate.StatusAssigned || state.Status == gtstate.StatusInProgress {
				timeout = StalenessTimeout
			}

			sig, timedOut, stopped := ctx.Select(timeout)
			if stopped {
				return nil
			}
			if timedOut {
				applyEscalate(&state)
				notifyEscalation(ctx, acts, &state)
				_ = ctx.Persist(state)
				continue
			}

			if err := apply(&state, sig); err != nil {
				continue // invalid transition for current state: ignore, keep waiting
			}
			_ = ctx.Persist(state)

			if sig.Name == SignalEscalate {
				notifyEscalation(ctx, acts, &state)
			}
			if isTerminal(state.Status) {
				return nil
			}
		}
	}
}

func apply(s *State, sig workflow.Signal) error {
	switch sig.Name {
	case SignalAssign:
		if s.Status != gtstate.StatusPending {
			return gterr.InvalidTransition(s.Status, sig.Name)
		}
		var p AssignPayload

		workflow.DecodePayload(sig.Payload, &p)
		s.AssignedTo = p.AgentID
		s.Status = gtstate.StatusAssigned
		return nil

	case SignalStart:
		if s.Status != gtstate.StatusAssigned {
			return gterr.InvalidTransition(s.Status, sig.Name)
		}
		s.Status = gtstate.StatusInProgress
		s.EscalationLevel = 0
		return nil

	case SignalComplete:
		if s.Status != gtstate.StatusAssigned && s.Status != gtstate.StatusInProgress {
			return gterr.InvalidTransition(s.Status, sig.Name)
		}
		s.Status = gtstate.StatusDone
		return nil

	case SignalFail:
		var p FailPayload

		workflow.DecodePayload(sig.Payload, &p)
		s.Status = gtstate.StatusFailed
		if p.Reason != "" {
			s.Title = fmt.Sprintf("%s (failed: %s)", s.Title, p.Reason)
		}
		return nil

	case SignalClose:
		s.Status = gtstate.StatusClosed
		return nil

	case SignalRelease:
		if s.Status != gtstate.StatusAssigned && s.Status != gtstate.StatusInProgress {
			return gterr.InvalidTransition(s.Status, sig.Name)
		}
		s.AssignedTo = ""
		s.Status = gtstate.StatusPending
		s.EscalationLevel = 0
		return nil

	case SignalHeartbeat:
		if s.Status != gtstate.StatusAssigned && s.Status != gtstate.StatusInProgress {
			return gterr.InvalidTransition(s.Status, sig.Name)
		}
		return nil // restarts the staleness timer simply by returning to the select loop

	case SignalEscalate:
		applyEscalate(s)
		return nil

	default:
		return gterr.InvalidTransition(s.Status, sig.Name)
	}
}

func applyEscalate(s *State) { s.EscalationLevel++ }

func notifyEscalation(ctx *workflow.Context, acts *activities.Activities, s *State) {
	if acts == nil {
		return
	}
	subject := fmt.Sprintf("Escalation L%d: %s", s.EscalationLevel, s.ID)
	_, _ = ctx.ExecuteActivity("notify",
		acts.Notify(ctx.ID(), gtstate.RoleMayor, subject, s.Title, mail.PriorityUrgent, mail.ChannelSignal),
		workflow.DefaultActivityOptions)
}
