package workitem

import (
	"testing"
	"time"

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

func TestAssignStartCompleteHappyPath(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	id := "wi-1"
	if _, err := e.Start(id, Run(id, "do the thing", nil)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Signal(id, SignalAssign, AssignPayload{AgentID: "polecat-1"}); err != nil {
		t.Fatalf("Signal assign: %v", err)
	}
	waitUntil(t, func() bool { return loadState(t, id).Status == gtstate.StatusAssigned }, "never assigned")

	if err := e.Signal(id, SignalStart, nil); err != nil {
		t.Fatalf("Signal start: %v", err)
	}
	waitUntil(t, func() bool { return loadState(t, id).Status == gtstate.StatusInProgress }, "never started")

	if err := e.Signal(id, SignalComplete, nil); err != nil {
		t.Fatalf("Signal complete: %v", err)
	}
	if err := e.Wait(id); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := loadState(t, id).Status; got != gtstate.StatusDone {
		t.Errorf("final status = %q, want done", got)
	}
}

func TestInvalidTransitionIsIgnored(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	id := "wi-2"
	if _, err := e.Start(id, Run(id, "title", nil)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// start before assign is invalid and must be silently ignored, not
	// advance the state machine or kill the workflow.
	if err := e.Signal(id, SignalStart, nil); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := e.Signal(id, SignalAssign, AssignPayload{AgentID: "a"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool { return loadState(t, id).Status == gtstate.StatusAssigned }, "workflow never recovered to process the valid assign")
}

func TestReleaseReturnsToPending(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	id := "wi-3"
	if _, err := e.Start(id, Run(id, "title", nil)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Signal(id, SignalAssign, AssignPayload{AgentID: "a"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool { return loadState(t, id).Status == gtstate.StatusAssigned }, "never assigned")

	if err := e.Signal(id, SignalRelease, nil); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool {
		s := loadState(t, id)
		return s.Status == gtstate.StatusPending && s.AssignedTo == ""
	}, "release never cleared assignment")
}

func TestFailAppendsReasonToTitle(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	id := "wi-4"
	if _, err := e.Start(id, Run(id, "title", nil)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Signal(id, SignalFail, FailPayload{Reason: "boom"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := e.Wait(id); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	s := loadState(t, id)
	if s.Status != gtstate.StatusFailed {
		t.Errorf("status = %q, want failed", s.Status)
	}
	if s.Title != "title (failed: boom)" {
		t.Errorf("title = %q", s.Title)
	}
}

func TestCloseFromAnyStateTerminates(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	id := "wi-5"
	if _, err := e.Start(id, Run(id, "title", nil)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := e.Signal(id, SignalClose, nil); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := e.Wait(id); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := loadState(t, id).Status; got != gtstate.StatusClosed {
		t.Errorf("status = %q, want closed", got)
	}
}
