package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/tmux"
)

func trackedPIDFile(agentID string) string {
	return filepath.Join(gtdirs.Root(), ".runtime", "pids", tmux.SessionNameForAgent(agentID)+".pid")
}

func TestShellQuoteEscapesSingleQuotes(t *testing.T) {
	got := shellQuote("it's a test")
	want := `'it'\''s a test'`
	if got != want {
		t.Errorf("shellQuote() = %q, want %q", got, want)
	}
}

func TestBuildCommandUnsetsClaudeCodeAndQuotesArgs(t *testing.T) {
	cmd := buildCommand(Spec{
		Program: "claude",
		Args:    []string{"--resume", "abc"},
		Env:     map[string]string{"GTR_AGENT_ID": "p1"},
	})
	if cmd[:len("unset CLAUDECODE;")] != "unset CLAUDECODE;" {
		t.Errorf("buildCommand() = %q, want it to start by unsetting CLAUDECODE", cmd)
	}
	for _, want := range []string{"'claude'", "'--resume'", "'abc'", "GTR_AGENT_ID='p1'"} {
		if !contains(cmd, want) {
			t.Errorf("buildCommand() = %q, want it to contain %q", cmd, want)
		}
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

func TestReadPIDRoundTrip(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	agentID := "alpha-polecat-p1"
	dir := filepath.Dir(pidFile(agentID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(pidFile(agentID), []byte("4242\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := New()
	pid, err := s.ReadPID(agentID)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != 4242 {
		t.Errorf("ReadPID() = %d, want 4242", pid)
	}
}

func TestReadPIDMissingFileErrors(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	s := New()
	if _, err := s.ReadPID("nobody"); err == nil {
		t.Fatal("expected an error reading a pid file that was never written")
	}
}

func TestCleanupRemovesRuntimeDir(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	agentID := "alpha-polecat-p1"
	dir := filepath.Dir(pidFile(agentID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	s := New()
	if err := s.Cleanup(agentID); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("runtime dir still present after Cleanup, err=%v", err)
	}
}

// TestSpawnLifecycle exercises the real tmux-backed path end to end. It
// skips entirely when tmux isn't installed rather than mocking out the
// session layer.
func TestSpawnLifecycle(t *testing.T) {
	tm := tmux.NewTmux()
	if !tm.IsAvailable() {
		t.Skip("tmux not installed")
	}
	t.Setenv("GTR_ROOT", t.TempDir())
	s := New()
	agentID := "alpha-polecat-spawn-test"
	defer s.KillAgent(agentID)
	defer s.Cleanup(agentID)

	spec := Spec{AgentID: agentID, Program: "sleep", Args: []string{"30"}, WorkDir: t.TempDir()}
	if err := s.Spawn(spec); err != nil {
		t.Fatalf("Spawn: %v", err)
	}

	if !s.IsAlive(agentID) {
		t.Error("IsAlive() = false right after Spawn")
	}

	pid, err := s.ReadPID(agentID)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid <= 0 {
		t.Errorf("ReadPID() = %d, want positive pid", pid)
	}

	// Spawn must also have recorded the pane PID in the town-wide tracking
	// directory, so a shutdown sweep can reap it even if tmux itself loses
	// track of the session.
	if _, err := os.Stat(trackedPIDFile(agentID)); err != nil {
		t.Errorf("tracked pid file missing after Spawn: %v", err)
	}

	if err := s.KillAgent(agentID); err != nil {
		t.Fatalf("KillAgent: %v", err)
	}
	if !s.WaitForExit(agentID, 2*time.Second) {
		t.Error("WaitForExit() = false after KillAgent")
	}
	if _, err := os.Stat(trackedPIDFile(agentID)); !os.IsNotExist(err) {
		t.Errorf("tracked pid file still present after KillAgent, err=%v", err)
	}
}
