package boot

import (
	"testing"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/gtstate"
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

// TestRunStartsTheMayorChildOnFirstBoot only asserts on the part of Run
// that's side-effect-free and deterministic regardless of environment: the
// Mayor child registration. It deliberately does not assert on whether the
// Mayor agent process itself spawned, since that depends on a "claude"
// binary and a tmux server actually being present.
func TestRunStartsTheMayorChildOnFirstBoot(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	acts := activities.New()
	id := "boot"
	if _, err := e.Start(id, Run("wake up", "recover", acts)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.StopCascade(id)

	waitUntil(t, func() bool { return e.IsRunning(gtstate.MayorWorkflowID()) }, "mayor workflow never started")
}

func TestRunDoesNotStartASecondMayorIfAlreadyRunning(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	acts := activities.New()

	if _, err := e.Start(gtstate.MayorWorkflowID(), func(ctx *workflow.Context) error {
		<-ctx.Done()
		return nil
	}); err != nil {
		t.Fatalf("Start mayor stand-in: %v", err)
	}
	defer e.Stop(gtstate.MayorWorkflowID())

	id := "boot2"
	if _, err := e.Start(id, Run("wake up", "recover", acts)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop(id)

	// Run must have seen the already-running Mayor and left it alone: it's
	// enough that the stand-in is still the one registered under the id.
	waitUntil(t, func() bool { return e.IsRunning(gtstate.MayorWorkflowID()) }, "mayor stand-in should still be running")
}

func TestStopCascadeStopsBootAndItsMayorChild(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	acts := activities.New()
	id := "boot3"
	if _, err := e.Start(id, Run("wake up", "recover", acts)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitUntil(t, func() bool { return e.IsRunning(gtstate.MayorWorkflowID()) }, "mayor never started")

	e.StopCascade(id)

	waitUntil(t, func() bool { return !e.IsRunning(id) && !e.IsRunning(gtstate.MayorWorkflowID()) }, "stop cascade never stopped boot and its mayor child")
}
