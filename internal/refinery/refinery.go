// Package refinery implements the Refinery workflow: a rig's serial
// merge queue. Entries are drained one at a time through rebase, test,
// merge, and push, so two polecats finishing at once never race each
// other onto main.
package refinery

import (
	"fmt"
	"sort"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/gate"
	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/plugin"
	"github.com/gastown/gtr/internal/workflow"
)

// defaultTestPlugin is the test command every refinery run uses; no
// per-rig test command is read.
var defaultTestPlugin = plugin.Def{Name: "test", Command: "go", Args: []string{"test", "./..."}}

// Entry is one queued merge request.
type Entry struct {
	WorkItemID         string `json:"work_item_id"`
	Branch             string `json:"branch"`
	Priority           int    `json:"priority"`
	RequiresApproval   bool   `json:"requires_approval,omitempty"`
	Status             string `json:"status,omitempty"`
}

// State is the durable, persisted shape of a Refinery.
type State struct {
	Rig       string  `json:"rig"`
	Queue     []Entry `json:"queue"`
	Processed []Entry `json:"processed"`
}

// EnqueuePayload is the refinery_enqueue signal's payload.
type EnqueuePayload struct {
	WorkItemID       string
	Branch           string
	Priority         int
	RequiresApproval bool
}

// DequeuePayload is the refinery_dequeue signal's payload.
type DequeuePayload struct{ WorkItemID string }

const (
	SignalEnqueue = "refinery_enqueue"
	SignalDequeue = "refinery_dequeue"
	SignalStop    = "refinery_stop"

	checkoutTimeout = 120 * time.Second
	rebaseTimeout   = 300 * time.Second
	testTimeout     = 600 * time.Second
	mergeTimeout    = 300 * time.Second
	pushTimeout     = 120 * time.Second
)

// Run is the Refinery workflow body for rig, operating on the rig's
// own checked-out repo.
func Run(rig string, acts *activities.Activities) workflow.Func {
	repoPath := gtdirs.RigDir(rig)
	return func(ctx *workflow.Context) error {
		state := State{Rig: rig}
		_ = ctx.Persist(state)

		for {
			sig, _, stopped := ctx.Select(0)
			if stopped {
				return nil
			}

			switch sig.Name {
			case SignalEnqueue:
				var p EnqueuePayload

				workflow.DecodePayload(sig.Payload, &p)
				state.Queue = append(state.Queue, Entry{
					WorkItemID:       p.WorkItemID,
					Branch:           p.Branch,
					Priority:         p.Priority,
					RequiresApproval: p.RequiresApproval,
					Status:           gtstate.StatusQueued,
				})
				sortQueue(state.Queue)

			case SignalDequeue:
				var p DequeuePayload

				workflow.DecodePayload(sig.Payload, &p)
				state.Queue = removeEntry(state.Queue, p.WorkItemID)

			case SignalStop:
				_ = ctx.Persist(state)
				return nil
			}
			_ = ctx.Persist(state)

			for len(state.Queue) > 0 {
				entry := state.Queue[0]
				state.Queue = state.Queue[1:]
				entry.Status = process(ctx, acts, repoPath, entry)
				state.Processed = append(state.Processed, entry)
				_ = ctx.Persist(state)
			}
		}
	}
}

// process drains a single entry through the merge pipeline, returning
// its terminal status. Each stage's failure short-circuits the rest.
func process(ctx *workflow.Context, acts *activities.Activities, repoPath string, entry Entry) string {
	if _, err := ctx.ExecuteActivity("git_checkout",
		acts.GitOp(activities.GitOp{Kind: "checkout", RepoPath: repoPath, Branch: entry.Branch}),
		workflow.ActivityOptions{StartToCloseTimeout: checkoutTimeout, MaxAttempts: 1}); err != nil {
		return "checkout_failed"
	}

	if _, err := ctx.ExecuteActivity("git_rebase",
		acts.GitOp(activities.GitOp{Kind: "rebase", RepoPath: repoPath, Branch: "main"}),
		workflow.ActivityOptions{StartToCloseTimeout: rebaseTimeout, MaxAttempts: 1}); err != nil {
		return "conflict"
	}

	if _, err := ctx.ExecuteActivity("run_plugin",
		acts.RunPlugin(repoPath, defaultTestPlugin),
		workflow.ActivityOptions{StartToCloseTimeout: testTimeout, MaxAttempts: 1}); err != nil {
		return "tests_failed"
	}

	if entry.RequiresApproval {
		outcome := gate.Wait(ctx, gate.Spec{Kind: gate.KindHuman, Description: fmt.Sprintf("merge %s into main", entry.Branch)}, acts)
		if outcome != gate.OutcomeApproved {
			return "approval_" + string(outcome)
		}
	}

	if _, err := ctx.ExecuteActivity("git_merge",
		acts.GitOp(activities.GitOp{Kind: "merge", RepoPath: repoPath, Branch: "main", StartPoint: entry.Branch,
			Message: fmt.Sprintf("merge %s (%s)", entry.Branch, entry.WorkItemID)}),
		workflow.ActivityOptions{StartToCloseTimeout: mergeTimeout, MaxAttempts: 1}); err != nil {
		return "merge_failed"
	}

	if _, err := ctx.ExecuteActivity("git_push",
		acts.GitOp(activities.GitOp{Kind: "push", RepoPath: repoPath, Branch: "main", Remote: "origin"}),
		workflow.ActivityOptions{StartToCloseTimeout: pushTimeout, MaxAttempts: 3}); err != nil {
		return "merged_push_failed"
	}

	return "merged"
}

// sortQueue orders by ascending priority (lower number = processed
// first), stable so same-priority entries keep arrival order.
func sortQueue(q []Entry) {
	sort.SliceStable(q, func(i, j int) bool { return q[i].Priority < q[j].Priority })
}

func removeEntry(q []Entry, workItemID string) []Entry {
	out := q[:0]
	for _, e := range q {
		if e.WorkItemID != workItemID {
			out = append(out, e)
		}
	}
	return out
}
