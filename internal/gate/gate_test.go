package gate

import (
	"testing"
	"time"

	"github.com/gastown/gtr/internal/activities"
	"github.com/gastown/gtr/internal/workflow"
)

func runGate(t *testing.T, spec Spec) (outcome chan Outcome, e *workflow.Engine) {
	t.Helper()
	e = workflow.NewEngine()
	acts := activities.New()
	outcome = make(chan Outcome, 1)
	_, err := e.Start("gated", func(ctx *workflow.Context) error {
		outcome <- Wait(ctx, spec, acts)
		return nil
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return outcome, e
}

func TestWaitTimerFiresOnItsOwn(t *testing.T) {
	outcome, _ := runGate(t, Spec{Kind: KindTimer, Duration: 10 * time.Millisecond})
	select {
	case got := <-outcome:
		if got != OutcomeApproved {
			t.Errorf("outcome = %q, want %q", got, OutcomeApproved)
		}
	case <-time.After(time.Second):
		t.Fatal("timer gate never fired")
	}
}

func TestWaitTimerClosedEarly(t *testing.T) {
	outcome, e := runGate(t, Spec{Kind: KindTimer, Duration: time.Hour})
	if err := e.Signal("gated", SignalClose, nil); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	select {
	case got := <-outcome:
		if got != OutcomeClosed {
			t.Errorf("outcome = %q, want %q", got, OutcomeClosed)
		}
	case <-time.After(time.Second):
		t.Fatal("closing the gate early never returned")
	}
}

func TestWaitHumanApprove(t *testing.T) {
	outcome, e := runGate(t, Spec{Kind: KindHuman, Description: "merge into main"})
	if err := e.Signal("gated", SignalApprove, nil); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	select {
	case got := <-outcome:
		if got != OutcomeApproved {
			t.Errorf("outcome = %q, want %q", got, OutcomeApproved)
		}
	case <-time.After(time.Second):
		t.Fatal("human gate never resolved")
	}
}

func TestWaitHumanIgnoresUnrelatedSignals(t *testing.T) {
	outcome, e := runGate(t, Spec{Kind: KindHuman})
	_ = e.Signal("gated", "unrelated_noise", nil)
	select {
	case <-outcome:
		t.Fatal("gate resolved on an unrelated signal")
	case <-time.After(50 * time.Millisecond):
	}
	if err := e.Signal("gated", SignalApprove, nil); err != nil {
		t.Fatalf("Signal: %v", err)
	}
	select {
	case got := <-outcome:
		if got != OutcomeApproved {
			t.Errorf("outcome = %q, want %q", got, OutcomeApproved)
		}
	case <-time.After(time.Second):
		t.Fatal("gate never resolved after the real approval arrived")
	}
}

func TestWaitStoppedWhileWaiting(t *testing.T) {
	outcome, e := runGate(t, Spec{Kind: KindHuman})
	e.Stop("gated")
	select {
	case got := <-outcome:
		if got != OutcomeStopped {
			t.Errorf("outcome = %q, want %q", got, OutcomeStopped)
		}
	case <-time.After(time.Second):
		t.Fatal("gate never observed the stop")
	}
}
