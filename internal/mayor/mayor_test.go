package mayor

import (
	"testing"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/convoy"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/polecat"
	"github.com/gastown/gtr/internal/statestore"
	"github.com/gastown/gtr/internal/workflow"
)

const id = "mayor"

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

func loadState(t *testing.T) State {
	t.Helper()
	var s State
	if err := statestore.Load(id, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func startMayor(t *testing.T) *workflow.Engine {
	t.Helper()
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	if _, err := e.Start(id, Run(activities.New())); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e
}

func TestRegisterAndUnregisterAgent(t *testing.T) {
	e := startMayor(t)
	defer e.Stop(id)

	if err := e.Signal(id, SignalRegisterAgent, RegisterAgentPayload{ID: "a1", Role: "polecat"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool {
		info, ok := loadState(t).Agents["a1"]
		return ok && info.Role == "polecat" && info.Status == gtstate.StatusIdle
	}, "agent never registered")

	if err := e.Signal(id, SignalUnregisterAgent, UnregisterAgentPayload{ID: "a1"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool { _, ok := loadState(t).Agents["a1"]; return !ok }, "agent never unregistered")
}

func TestAgentStatusUpdate(t *testing.T) {
	e := startMayor(t)
	defer e.Stop(id)

	if err := e.Signal(id, SignalRegisterAgent, RegisterAgentPayload{ID: "a2", Role: "polecat"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool { _, ok := loadState(t).Agents["a2"]; return ok }, "never registered")

	if err := e.Signal(id, SignalAgentStatusUpdate, AgentStatusUpdatePayload{ID: "a2", Status: gtstate.StatusInProgress, CurrentWork: "wi-1"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool {
		info := loadState(t).Agents["a2"]
		return info.Status == gtstate.StatusInProgress && info.CurrentWork == "wi-1"
	}, "status update never applied")
}

func TestTrackAndCloseConvoy(t *testing.T) {
	e := startMayor(t)
	defer e.Stop(id)

	if err := e.Signal(id, SignalTrackConvoy, TrackConvoyPayload{ConvoyID: "convoy-1"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool { return loadState(t).ActiveConvoys["convoy-1"] }, "convoy never tracked")

	if err := e.Signal(id, SignalConvoyClosed, ConvoyClosedPayload{ID: "convoy-1"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool { return !loadState(t).ActiveConvoys["convoy-1"] }, "convoy never closed")
}

func TestCreateConvoyStartsChildAndSeedsItems(t *testing.T) {
	e := startMayor(t)
	defer e.Stop(id)

	payload := CreateConvoyPayload{
		ConvoyID: "cv-test1",
		Title:    "release batch",
		Items: []CreateConvoyWorkItem{
			{WorkItemID: "wi-test1", Title: "step one"},
			{WorkItemID: "wi-test2", Title: "step two"},
		},
	}
	if err := e.Signal(id, SignalCreateConvoy, payload); err != nil {
		t.Fatalf("Signal: %v", err)
	}

	waitUntil(t, func() bool { return loadState(t).ActiveConvoys["cv-test1"] }, "convoy never tracked as active")
	waitUntil(t, func() bool { return e.IsRunning("cv-test1") }, "convoy child never started")

	var cs convoy.State
	waitUntil(t, func() bool {
		if err := statestore.Load("cv-test1", &cs); err != nil {
			return false
		}
		return len(cs.Items) == 2
	}, "convoy never received its seeded work items")
	if cs.Title != "release batch" {
		t.Errorf("convoy title = %q, want %q", cs.Title, "release batch")
	}
}

func TestPolecatReportUpdatesAgentStatus(t *testing.T) {
	e := startMayor(t)
	defer e.Stop(id)

	if err := e.Signal(id, SignalRegisterAgent, RegisterAgentPayload{ID: "rig1-polecat-p1", Role: "polecat"}); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool { _, ok := loadState(t).Agents["rig1-polecat-p1"]; return ok }, "never registered")

	report := polecat.State{PolecatID: "rig1-polecat-p1", Status: gtstate.StatusDone, Summary: "done"}
	if err := e.Signal(id, SignalPolecatReport, report); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	waitUntil(t, func() bool {
		s := loadState(t)
		rep, ok := s.PolecatReports["rig1-polecat-p1"]
		return ok && rep.Summary == "done" && s.Agents["rig1-polecat-p1"].Status == gtstate.StatusDone
	}, "polecat report never recorded")
}

func TestStopTerminates(t *testing.T) {
	e := startMayor(t)

	if err := e.Signal(id, SignalStop, nil); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	if err := e.Wait(id); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if e.IsRunning(id) {
		t.Error("expected mayor workflow to terminate after mayor_stop")
	}
}
