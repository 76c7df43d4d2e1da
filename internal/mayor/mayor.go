// Package mayor implements the Mayor workflow: the town's single point
// of record for which agents are registered, which convoys are open,
// and how every polecat's run concluded. It never drives work itself;
// it's the durable ledger other workflows report to.
package mayor

import (
	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/convoy"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/polecat"
	"github.com/gastown/gtr/internal/workflow"
)

// AgentInfo is what the Mayor tracks about one registered agent.
type AgentInfo struct {
	Role        string `json:"role"`
	Status      string `json:"status"`
	CurrentWork string `json:"current_work,omitempty"`
}

// State is the durable, persisted shape of the Mayor. There is exactly
// one Mayor workflow per town, addressed by gtstate.MayorWorkflowID.
type State struct {
	Agents        map[string]AgentInfo      `json:"agents,omitempty"`
	ActiveConvoys map[string]bool           `json:"active_convoys,omitempty"`
	PolecatReports map[string]polecat.State `json:"polecat_reports,omitempty"`
}

// RegisterAgentPayload is the register_agent signal's payload.
type RegisterAgentPayload struct {
	ID   string
	Role string
}

// UnregisterAgentPayload is the unregister_agent signal's payload.
type UnregisterAgentPayload struct{ ID string }

// AgentStatusUpdatePayload is the agent_status_update signal's payload.
type AgentStatusUpdatePayload struct {
	ID          string
	Status      string
	CurrentWork string
}

// ConvoyClosedPayload is the convoy_closed signal's payload.
type ConvoyClosedPayload struct{ ID string }

// TrackConvoyPayload is the track_convoy signal's payload. The signal is
// named track_convoy rather than add_work_item on the wire so it doesn't
// collide with Convoy's own signal of that name when both are addressed
// through the same engine.
type TrackConvoyPayload struct{ ConvoyID string }

// CreateConvoyWorkItem is one work item to seed a freshly created convoy
// with.
type CreateConvoyWorkItem struct {
	WorkItemID string
	Title      string
}

// CreateConvoyPayload is the mayor_create_convoy signal's payload: it
// starts a new Convoy child under the Mayor and populates it with Items in
// one shot, the only entry point that actually starts a Convoy workflow.
type CreateConvoyPayload struct {
	ConvoyID string
	Title    string
	Items    []CreateConvoyWorkItem
}

const (
	SignalRegisterAgent     = "register_agent"
	SignalUnregisterAgent   = "unregister_agent"
	SignalAgentStatusUpdate = "agent_status_update"
	SignalCreateConvoy      = "mayor_create_convoy"
	SignalConvoyClosed      = "convoy_closed"
	SignalTrackConvoy       = "track_convoy"
	SignalPolecatReport     = polecat.SignalReport
	SignalStop              = "mayor_stop"
)

// Run is the Mayor workflow body.
func Run(acts *activities.Activities) workflow.Func {
	return func(ctx *workflow.Context) error {
		state := State{
			Agents:         map[string]AgentInfo{},
			ActiveConvoys:  map[string]bool{},
			PolecatReports: map[string]polecat.State{},
		}
		_ = ctx.Persist(state)

		for {
			sig, _, stopped := ctx.Select(0)
			if stopped {
				return nil
			}

			switch sig.Name {
			case SignalRegisterAgent:
				var p RegisterAgentPayload

				workflow.DecodePayload(sig.Payload, &p)
				state.Agents[p.ID] = AgentInfo{Role: p.Role, Status: gtstate.StatusIdle}

			case SignalUnregisterAgent:
				var p UnregisterAgentPayload

				workflow.DecodePayload(sig.Payload, &p)
				delete(state.Agents, p.ID)

			case SignalAgentStatusUpdate:
				var p AgentStatusUpdatePayload

				workflow.DecodePayload(sig.Payload, &p)
				info := state.Agents[p.ID]
				info.Status = p.Status
				info.CurrentWork = p.CurrentWork
				state.Agents[p.ID] = info

			case SignalCreateConvoy:
				var p CreateConvoyPayload

				workflow.DecodePayload(sig.Payload, &p)
				if !ctx.Engine().IsRunning(p.ConvoyID) {
					_, _ = ctx.StartChild(p.ConvoyID, convoy.Run(p.ConvoyID, p.Title, acts))
				}
				for _, item := range p.Items {
					_ = ctx.Signal(p.ConvoyID, convoy.SignalAddWorkItem,
						convoy.AddWorkItemPayload{WorkItemID: item.WorkItemID, Title: item.Title})
				}
				state.ActiveConvoys[p.ConvoyID] = true

			case SignalTrackConvoy:
				var p TrackConvoyPayload

				workflow.DecodePayload(sig.Payload, &p)
				state.ActiveConvoys[p.ConvoyID] = true

			case SignalConvoyClosed:
				var p ConvoyClosedPayload

				workflow.DecodePayload(sig.Payload, &p)
				delete(state.ActiveConvoys, p.ID)

			case SignalPolecatReport:
				var p polecat.State

				workflow.DecodePayload(sig.Payload, &p)
				state.PolecatReports[p.PolecatID] = p
				if info, ok := state.Agents[p.PolecatID]; ok {
					info.Status = p.Status
					state.Agents[p.PolecatID] = info
				}

			case SignalStop:
				_ = ctx.Persist(state)
				return nil
			}

			_ = ctx.Persist(state)
		}
	}
}
