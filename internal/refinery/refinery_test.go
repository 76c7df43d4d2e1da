package refinery

import (
	"testing"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/workflow"
)

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal(msg)
		case <-time.After(time.Millisecond):
		}
	}
}

func loadState(t *testing.T, id string) State {
	t.Helper()
	var s State
	if err := statestore.Load(id, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

// TestEnqueueOrdersByAscendingPriority drives the workflow with a rig
// whose checkout will fail immediately, so every entry drains straight to
// "checkout_failed" without needing a real git repository, and Processed
// preserves the order the queue drained in. Lower Priority numbers are
// processed first.
func TestEnqueueOrdersByAscendingPriority(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	acts := activities.New()
	id := gtstate.RefineryWorkflowID("norig")
	if _, err := e.Start(id, Run("norig", acts)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Signal(id, SignalEnqueue, EnqueuePayload{WorkItemID: "wi-low", Branch: "b-low", Priority: 10}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := e.Signal(id, SignalEnqueue, EnqueuePayload{WorkItemID: "wi-high", Branch: "b-high", Priority: 1}); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	waitUntil(t, func() bool { return len(loadState(t, id).Processed) == 2 }, "queue never finished draining")
	s := loadState(t, id)
	if s.Processed[0].WorkItemID != "wi-high" || s.Processed[1].WorkItemID != "wi-low" {
		t.Errorf("Processed = %+v, want the lower-priority-number entry drained first", s.Processed)
	}
	for _, p := range s.Processed {
		if p.Status != "checkout_failed" {
			t.Errorf("entry %s status = %q, want checkout_failed (no real repo present)", p.WorkItemID, p.Status)
		}
	}
}

func TestDequeueOfUnknownItemLeavesQueueEmpty(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	acts := activities.New()
	id := gtstate.RefineryWorkflowID("dqrig")
	if _, err := e.Start(id, Run("dqrig", acts)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Run drains the queue to empty after every signal it processes, so
	// the enqueued entry is processed first; the dequeue of an id that is
	// not queued must then be handled and leave the queue empty.
	if err := e.Signal(id, SignalEnqueue, EnqueuePayload{WorkItemID: "wi-1", Branch: "b-1", Priority: 1}); err != nil {
		t.Fatalf("Signal enqueue: %v", err)
	}
	waitUntil(t, func() bool { return len(loadState(t, id).Processed) == 1 }, "first entry never drained")

	if err := e.Signal(id, SignalDequeue, DequeuePayload{WorkItemID: "nonexistent"}); err != nil {
		t.Fatalf("Signal dequeue: %v", err)
	}
	waitUntil(t, func() bool { return len(loadState(t, id).Queue) == 0 }, "dequeue signal was never processed")
	if got := loadState(t, id).Queue; len(got) != 0 {
		t.Errorf("Queue = %+v, want empty", got)
	}
}

func TestStopTerminatesTheWorkflow(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	acts := activities.New()
	id := gtstate.RefineryWorkflowID("stoprig")
	if _, err := e.Start(id, Run("stoprig", acts)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Signal(id, SignalStop, nil); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := e.Wait(id); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if e.IsRunning(id) {
		t.Error("expected the refinery workflow to terminate after refinery_stop")
	}
}
