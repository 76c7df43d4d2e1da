package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/gastown/gtr/internal/statestore"
)

// errContinueAsNew is returned internally by a workflow Func to tell its
// instance's run loop to re-invoke Func with fresh history rather than
// terminate. It never escapes the engine package.
var errContinueAsNew = errors.New("continue as new")

// Context is the only way a workflow Func may observe time or receive
// input. It deliberately exposes no raw channel or clock so that the
// shape of a workflow's blocking points stays visible at every call site.
type Context struct {
	inst   *instance
	stdctx context.Context
}

// ID returns this workflow's id.
func (c *Context) ID() string { return c.inst.id }

// Done returns a channel closed when the workflow has been asked to stop
// (via Engine.Stop/StopCascade). A workflow should check this inside its
// main Select loop and return promptly.
func (c *Context) Done() <-chan struct{} { return c.stdctx.Done() }

// Select blocks until either a signal arrives in the inbox or timeout
// elapses (timeout <= 0 means wait for a signal indefinitely), and
// returns the signal or reports a timeout. Signals already queued are
// always preferred over waiting on the timer, matching a biased
// select! over (signal, timer) in the reference implementation.
func (c *Context) Select(timeout time.Duration) (sig Signal, timedOut bool, stopped bool) {
	inst := c.inst
	var timer *time.Timer
	var timerC <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	for {
		inst.mu.Lock()
		if len(inst.queue) > 0 {
			next := inst.queue[0]
			inst.queue = inst.queue[1:]
			inst.mu.Unlock()
			return next, false, false
		}
		inst.mu.Unlock()

		select {
		case <-inst.notify:
			continue
		case <-timerC:
			return Signal{}, true, false
		case <-c.stdctx.Done():
			return Signal{}, false, true
		}
	}
}

// SelectBiased behaves like Select but, when more than one signal is
// already queued, returns the first one whose Name is in priority
// instead of strictly the head of the queue. This lets a workflow
// guarantee that a high-priority signal (e.g. a kill request) is never
// starved by an earlier-arriving, lower-priority one sitting ahead of
// it in the same batch of deliveries.
func (c *Context) SelectBiased(timeout time.Duration, priority ...string) (sig Signal, timedOut bool, stopped bool) {
	inst := c.inst
	var timer *time.Timer
	var timerC <-chan time.Time
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
		timerC = timer.C
	}

	for {
		inst.mu.Lock()
		if len(inst.queue) > 0 {
			idx := 0
			for i, s := range inst.queue {
				if isPriority(s.Name, priority) {
					idx = i
					break
				}
			}
			next := inst.queue[idx]
			inst.queue = append(inst.queue[:idx:idx], inst.queue[idx+1:]...)
			inst.mu.Unlock()
			return next, false, false
		}
		inst.mu.Unlock()

		select {
		case <-inst.notify:
			continue
		case <-timerC:
			return Signal{}, true, false
		case <-c.stdctx.Done():
			return Signal{}, false, true
		}
	}
}

func isPriority(name string, priority []string) bool {
	for _, p := range priority {
		if name == p {
			return true
		}
	}
	return false
}

// Recv waits (with no timeout) for the next signal whose Name equals
// want, discarding any other signal types seen in the meantime. Used by
// workflows that only care about one kind of event at a particular point
// in their lifecycle (e.g. waiting specifically for "start" after
// "assign").
func (c *Context) Recv(want string) (Signal, bool) {
	for {
		sig, _, stopped := c.Select(0)
		if stopped {
			return Signal{}, false
		}
		if sig.Name == want {
			return sig, true
		}
	}
}

// Sleep blocks the workflow for d, still responsive to Done(). Returns
// false if the workflow was stopped during the sleep.
func (c *Context) Sleep(d time.Duration) (completed bool) {
	_, timedOut, stopped := c.Select(d)
	return timedOut && !stopped
}

// Persist snapshots state as this workflow's durable record. Call after
// every state transition a crash shouldn't lose.
func (c *Context) Persist(state interface{}) error {
	return statestore.Save(c.inst.id, state)
}

// ContinueAsNew persists state as the start of a fresh generation and
// unwinds the current Func invocation. The engine immediately re-invokes
// Func with the same Context (same id, same pending-signal queue), so
// accumulated in-memory history is discarded but no signal is dropped.
// Callers must return this error immediately: `return ctx.ContinueAsNew(s)`.
func (c *Context) ContinueAsNew(state interface{}) error {
	if err := c.Persist(state); err != nil {
		return err
	}
	return errContinueAsNew
}

// StartChild launches a child workflow under this workflow's engine,
// tracked so StopCascade on the parent also stops it.
func (c *Context) StartChild(childID string, fn Func) (*Context, error) {
	return c.inst.engine.StartChild(c.inst.id, childID, fn)
}

// Signal delivers a signal to another workflow through this workflow's
// engine (e.g. Mayor notifying a Polecat, Rig notifying its Witness).
func (c *Context) Signal(workflowID, name string, payload interface{}) error {
	return c.inst.engine.Signal(workflowID, name, payload)
}

// Engine exposes the owning engine for operations that need it directly
// (spawning unrelated top-level workflows, querying Running()).
func (c *Context) Engine() *Engine { return c.inst.engine }
