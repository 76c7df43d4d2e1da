// Package supervisor is the thin activity-level layer over internal/tmux
// that workflow activities call through: spawn, is_alive, read_pid,
// capture_pane, kill_agent, cleanup. Nothing above this package talks to
// tmux directly, and nothing in this package persists workflow state —
// it only manages the OS-level process backing one agent.
package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gastown/gtr/internal/gtconst"
	"github.com/gastown/gtr/internal/gtdirs"
	sessiontrack "github.com/gastown/gtr/internal/session"
	"github.com/gastown/gtr/internal/tmux"
	"github.com/gastown/gtr/internal/util"
)

// Spec describes the process an agent runs under tmux.
type Spec struct {
	AgentID string
	Program string
	Args    []string
	WorkDir string
	Env     map[string]string
}

// Supervisor manages agent processes via a single shared tmux server.
type Supervisor struct {
	tm *tmux.Tmux
}

// New creates a Supervisor backed by the gtr-server tmux socket.
func New() *Supervisor { return &Supervisor{tm: tmux.NewTmux()} }

func envFile(agentID string) string {
	return filepath.Join(gtdirs.AgentRuntimeDir(agentID), "env.json")
}

func pidFile(agentID string) string {
	return filepath.Join(gtdirs.AgentRuntimeDir(agentID), "pid")
}

// Spawn starts an agent's process inside a dedicated tmux session named
// gtr-<agent_id>. The session's initial command unsets CLAUDECODE first,
// so an interactive assistant spawned as the program never inherits the
// "already inside an assistant" environment of whatever invoked gtr
// itself — without that, a nested Claude Code session refuses to start.
func (s *Supervisor) Spawn(spec Spec) error {
	if err := os.MkdirAll(gtdirs.AgentRuntimeDir(spec.AgentID), 0755); err != nil {
		return fmt.Errorf("creating runtime dir: %w", err)
	}
	if err := util.AtomicWriteJSON(envFile(spec.AgentID), spec.Env); err != nil {
		return fmt.Errorf("persisting env: %w", err)
	}

	session := tmux.SessionNameForAgent(spec.AgentID)
	command := buildCommand(spec)
	if err := s.tm.NewSessionWithCommand(session, spec.WorkDir, command); err != nil {
		return fmt.Errorf("spawning %s: %w", spec.AgentID, err)
	}
	if err := s.tm.SetRemainOnExit(session, true); err != nil {
		return fmt.Errorf("configuring remain-on-exit: %w", err)
	}

	pid, err := s.tm.GetPanePID(session)
	if err != nil {
		return fmt.Errorf("reading pane pid: %w", err)
	}
	if err := os.WriteFile(pidFile(spec.AgentID), []byte(pid), 0644); err != nil {
		return fmt.Errorf("persisting pid: %w", err)
	}

	// Best-effort: also record the pane PID under the town-wide tracking
	// directory so a shutdown's KillTrackedPIDs sweep can reap it even if
	// tmux itself has lost track of the session (e.g. after a SIGHUP).
	_ = sessiontrack.TrackSessionPID(gtdirs.Root(), session, s.tm)
	return nil
}

func buildCommand(spec Spec) string {
	parts := []string{"unset CLAUDECODE;"}
	for k, v := range spec.Env {
		parts = append(parts, fmt.Sprintf("%s=%s", k, shellQuote(v)))
	}
	parts = append(parts, shellQuote(spec.Program))
	for _, a := range spec.Args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// IsAlive reports whether the agent's tmux session exists and its pane
// is running something other than an idle shell.
func (s *Supervisor) IsAlive(agentID string) bool {
	return s.tm.IsAgentAlive(tmux.SessionNameForAgent(agentID))
}

// ReadPID returns the pane's leader PID as recorded at spawn time.
func (s *Supervisor) ReadPID(agentID string) (int, error) {
	data, err := os.ReadFile(pidFile(agentID))
	if err != nil {
		return 0, fmt.Errorf("reading pid file for %s: %w", agentID, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing pid file for %s: %w", agentID, err)
	}
	return pid, nil
}

// CapturePane returns the last n lines of the agent's pane scrollback.
func (s *Supervisor) CapturePane(agentID string, n int) (string, error) {
	return s.tm.CapturePane(tmux.SessionNameForAgent(agentID), n)
}

// KillAgent terminates an agent's session and its process group,
// SIGTERM first with a grace period before SIGKILL.
func (s *Supervisor) KillAgent(agentID string) error {
	err := s.tm.KillSessionWithProcesses(tmux.SessionNameForAgent(agentID))
	sessiontrack.UntrackPID(gtdirs.Root(), tmux.SessionNameForAgent(agentID))
	return err
}

// Cleanup removes an agent's runtime directory after its workflow has
// fully terminated. Call only once KillAgent has returned, or once
// IsAlive has already reported false — cleaning up a still-running
// agent's pid file would strand future liveness checks.
func (s *Supervisor) Cleanup(agentID string) error {
	sessiontrack.UntrackPID(gtdirs.Root(), tmux.SessionNameForAgent(agentID))
	return os.RemoveAll(gtdirs.AgentRuntimeDir(agentID))
}

// WaitForExit polls IsAlive until the agent's session is no longer
// running or the timeout elapses.
func (s *Supervisor) WaitForExit(agentID string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !s.IsAlive(agentID) {
			return true
		}
		time.Sleep(gtconst.PollInterval)
	}
	return !s.IsAlive(agentID)
}
