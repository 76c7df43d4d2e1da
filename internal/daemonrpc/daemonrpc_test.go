package daemonrpc

import (
	"testing"
	"time"

	"github.com/gastown/gtr/internal/workflow"
)

func TestSendDeliversSignalToRunningWorkflow(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	received := make(chan workflow.Signal, 1)
	if _, err := e.Start("wf-1", func(ctx *workflow.Context) error {
		sig, _, stopped := ctx.Select(0)
		if !stopped {
			received <- sig
		}
		return nil
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	srv, err := Listen(e)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()
	go srv.Serve()

	resp, err := Send(Request{WorkflowID: "wf-1", Signal: "go", Payload: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !resp.OK {
		t.Errorf("resp.OK = false, want true")
	}

	select {
	case sig := <-received:
		if sig.Name != "go" {
			t.Errorf("sig.Name = %q, want go", sig.Name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("workflow never received the forwarded signal")
	}
}

func TestSendToUnknownWorkflowReturnsError(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	e := workflow.NewEngine()
	srv, err := Listen(e)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer srv.Close()
	go srv.Serve()

	if _, err := Send(Request{WorkflowID: "nobody", Signal: "go"}); err == nil {
		t.Fatal("expected an error signaling a workflow the daemon doesn't know about")
	}
}

func TestSendWithNoDaemonListeningReturnsUnreachable(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	if _, err := Send(Request{WorkflowID: "whatever", Signal: "go"}); err == nil {
		t.Fatal("expected an error when no daemon is listening")
	}
}
