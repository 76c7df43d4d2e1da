// Package workflow is an in-process substitute for a durable-execution
// engine (the reference implementation used Temporal; no such dependency
// is available here). It gives every agent type the same primitives a
// real workflow engine would: one goroutine per long-lived workflow,
// at-least-once in-order signal delivery, activities as the only sanctioned
// I/O boundary, continue-as-new to bound history growth, and child
// workflows. Durability comes from snapshotting each workflow's declared
// state to internal/statestore after every transition, not from replaying
// a full event log — an intentional simplification appropriate for a
// single-host supervisor rather than a multi-region cluster.
package workflow

import (
	"context"
	"fmt"
	"sync"
)

// Func is the body of a workflow: it runs once per logical "generation"
// (continue-as-new starts a fresh generation) in its own goroutine, and
// must do all blocking via the Context it's given — never raw I/O, never
// a bare channel receive outside ctx.Select.
type Func func(ctx *Context) error

// Signal is one inbound message to a running workflow.
type Signal struct {
	Name    string
	Payload interface{}
}

// Engine owns the set of live workflow instances and routes signals to
// them by workflow id.
type Engine struct {
	mu        sync.Mutex
	instances map[string]*instance
}

// NewEngine creates an empty engine.
func NewEngine() *Engine {
	return &Engine{instances: make(map[string]*instance)}
}

type instance struct {
	id       string
	engine   *Engine
	fn       Func
	mu       sync.Mutex
	queue    []Signal
	notify   chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
	err      error
	children []string
	parent   string
}

// Start launches a new workflow under id. Returns an error if id is
// already running. The workflow runs to completion (or continue-as-new,
// which transparently keeps the same goroutine's logical identity) in a
// background goroutine; use Wait to block for its terminal result.
func (e *Engine) Start(id string, fn Func) (*Context, error) {
	e.mu.Lock()
	if _, exists := e.instances[id]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("workflow %s already running", id)
	}
	ctx, cancel := context.WithCancel(context.Background())
	inst := &instance{
		id:     id,
		engine: e,
		fn:     fn,
		notify: make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.instances[id] = inst
	e.mu.Unlock()

	wctx := &Context{inst: inst, stdctx: ctx}
	go inst.run(wctx)
	return wctx, nil
}

// StartChild launches a child workflow whose lifetime is tracked against
// its parent: StopCascade on the parent also stops any still-running
// children.
func (e *Engine) StartChild(parentID, childID string, fn Func) (*Context, error) {
	wctx, err := e.Start(childID, fn)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	if parent, ok := e.instances[parentID]; ok {
		parent.children = append(parent.children, childID)
	}
	if child, ok := e.instances[childID]; ok {
		child.parent = parentID
	}
	e.mu.Unlock()
	return wctx, nil
}

func (inst *instance) run(wctx *Context) {
	defer close(inst.done)
	err := inst.fn(wctx)
	for err == errContinueAsNew {
		err = inst.fn(wctx)
	}
	inst.mu.Lock()
	inst.err = err
	inst.mu.Unlock()

	inst.engine.mu.Lock()
	delete(inst.engine.instances, inst.id)
	inst.engine.mu.Unlock()
}

// Signal delivers a named signal with payload to workflowID's inbox.
// Delivery is at-least-once and FIFO relative to other signals sent to
// the same workflow by the same caller goroutine. Returns an error if no
// workflow with that id is currently running.
func (e *Engine) Signal(workflowID, name string, payload interface{}) error {
	e.mu.Lock()
	inst, ok := e.instances[workflowID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("workflow %s not running", workflowID)
	}
	inst.mu.Lock()
	inst.queue = append(inst.queue, Signal{Name: name, Payload: payload})
	inst.mu.Unlock()
	select {
	case inst.notify <- struct{}{}:
	default:
	}
	return nil
}

// IsRunning reports whether a workflow with this id is currently live.
func (e *Engine) IsRunning(workflowID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.instances[workflowID]
	return ok
}

// Wait blocks until workflowID terminates (returns from its Func without
// continue-as-new) and returns its terminal error, if any. Returns an
// error immediately if the workflow isn't running.
func (e *Engine) Wait(workflowID string) error {
	e.mu.Lock()
	inst, ok := e.instances[workflowID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("workflow %s not running", workflowID)
	}
	<-inst.done
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.err
}

// Stop cancels workflowID's context; a well-behaved Func returns promptly
// once ctx.Done() fires during its next ctx.Select call.
func (e *Engine) Stop(workflowID string) {
	e.mu.Lock()
	inst, ok := e.instances[workflowID]
	e.mu.Unlock()
	if ok {
		inst.cancel()
	}
}

// StopCascade stops workflowID and every descendant registered via
// StartChild, parents before children is not guaranteed — all cancel
// signals fire concurrently.
func (e *Engine) StopCascade(workflowID string) {
	e.mu.Lock()
	inst, ok := e.instances[workflowID]
	var children []string
	if ok {
		children = append(children, inst.children...)
	}
	e.mu.Unlock()
	e.Stop(workflowID)
	for _, c := range children {
		e.StopCascade(c)
	}
}

// Running lists the ids of all currently live workflows, for Witness/
// Patrol-style scans.
func (e *Engine) Running() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.instances))
	for id := range e.instances {
		ids = append(ids, id)
	}
	return ids
}
