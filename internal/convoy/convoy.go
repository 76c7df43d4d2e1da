// Package convoy implements the Convoy durable state machine: an
// ordered batch of WorkItems tracked together, closing automatically
// once every item in it has reported done.
package convoy

import (
	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/workflow"
	"github.com/gastown/gtr/internal/workitem"
)

// State is the durable, persisted shape of a Convoy.
type State struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Items     []string `json:"items"`
	Completed []string `json:"completed"`
}

func initial(id, title string) State {
	return State{ID: id, Title: title, Status: gtstate.StatusOpen}
}

// AddWorkItemPayload is the add_work_item signal's payload.
type AddWorkItemPayload struct {
	WorkItemID string
	Title      string
}

// ItemDonePayload is the item_done signal's payload.
type ItemDonePayload struct{ WorkItemID string }

const (
	SignalAddWorkItem = "add_work_item"
	SignalItemDone    = "item_done"
	SignalCancel      = "cancel"
	SignalClose       = "close"
)

// Run is the Convoy workflow body. acts is forwarded to each child
// WorkItem workflow it spawns.
func Run(id, title string, acts *activities.Activities) workflow.Func {
	return func(ctx *workflow.Context) error {
		state := initial(id, title)
		_ = ctx.Persist(state)

		for {
			sig, _, stopped := ctx.Select(0)
			if stopped {
				return nil
			}

			switch sig.Name {
			case SignalAddWorkItem:
				var p AddWorkItemPayload

				workflow.DecodePayload(sig.Payload, &p)
				state.Items = append(state.Items, p.WorkItemID)
				_, _ = ctx.StartChild(p.WorkItemID, workitem.Run(p.WorkItemID, p.Title, acts))

			case SignalItemDone:
				var p ItemDonePayload

				workflow.DecodePayload(sig.Payload, &p)
				if contains(state.Items, p.WorkItemID) && !contains(state.Completed, p.WorkItemID) {
					state.Completed = append(state.Completed, p.WorkItemID)
				}
				if len(state.Items) > 0 && len(state.Completed) == len(state.Items) {
					state.Status = gtstate.StatusClosed
					_ = ctx.Persist(state)
					return nil
				}

			case SignalCancel:
				state.Status = "cancelled"
				_ = ctx.Persist(state)
				return nil

			case SignalClose:
				state.Status = gtstate.StatusClosed
				_ = ctx.Persist(state)
				return nil
			}

			_ = ctx.Persist(state)
		}
	}
}

func contains(items []string, id string) bool {
	for _, i := range items {
		if i == id {
			return true
		}
	}
	return false
}
