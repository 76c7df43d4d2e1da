// Package session manages the lifecycle of the town-level tmux sessions
// (Mayor, Boot) that exist once per machine regardless of how many rigs
// are registered.
package session

import (
	"fmt"
	"time"

	"github.com/gastown/gtr/internal/gtconst"
	"github.com/gastown/gtr/internal/gtstate"
	"github.com/gastown/gtr/internal/tmux"
)

// TownSession is one singleton, town-level tmux session.
type TownSession struct {
	Name      string
	SessionID string
}

// TownSessions returns the town-level sessions in shutdown order. Boot
// supervises Mayor, so Boot must stop first or it will simply respawn
// the session it's meant to be shutting down.
func TownSessions() []TownSession {
	return []TownSession{
		{"Boot", tmux.SessionNameForAgent(gtstate.BootWorkflowID())},
		{"Mayor", tmux.SessionNameForAgent(gtstate.MayorWorkflowID())},
	}
}

// StopTownSession stops a single town-level session if it's running.
func StopTownSession(t *tmux.Tmux, ts TownSession, force bool) (bool, error) {
	running, err := t.HasSession(ts.SessionID)
	if err != nil {
		return false, err
	}
	if !running {
		return false, nil
	}
	return stopTownSessionInternal(t, ts, force)
}

// StopTownSessionWithCache is StopTownSession using a pre-fetched
// SessionSet instead of spawning a subprocess per session checked.
func StopTownSessionWithCache(t *tmux.Tmux, ts TownSession, force bool, cache *tmux.SessionSet) (bool, error) {
	if !cache.Has(ts.SessionID) {
		return false, nil
	}
	return stopTownSessionInternal(t, ts, force)
}

func stopTownSessionInternal(t *tmux.Tmux, ts TownSession, force bool) (bool, error) {
	if !force {
		_ = t.SendKeysRaw(ts.SessionID, "C-c")
		WaitForSessionExit(t, ts.SessionID, gtconst.GracefulShutdownTimeout)
	}
	if err := t.KillSessionWithProcesses(ts.SessionID); err != nil {
		return false, fmt.Errorf("killing %s session: %w", ts.Name, err)
	}
	return true, nil
}

// StopSession stops an arbitrary session, optionally trying a graceful
// Ctrl-C first.
func StopSession(t *tmux.Tmux, sessionID string, graceful bool) error {
	running, err := t.HasSession(sessionID)
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if !running {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	if graceful {
		_ = t.SendKeysRaw(sessionID, "C-c")
		WaitForSessionExit(t, sessionID, gtconst.GracefulShutdownTimeout)
	}
	return t.KillSessionWithProcesses(sessionID)
}

// KillExistingSession kills an existing session if one is found. If
// checkAlive is true, a session whose agent is still alive is left
// running and reported as an error rather than killed out from under it.
func KillExistingSession(t *tmux.Tmux, sessionID string, checkAlive bool) (bool, error) {
	running, err := t.HasSession(sessionID)
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	if !running {
		return false, nil
	}
	if checkAlive && t.IsAgentAlive(sessionID) {
		return false, fmt.Errorf("session already running: %s", sessionID)
	}
	if err := t.KillSessionWithProcesses(sessionID); err != nil {
		return false, fmt.Errorf("killing session %s: %w", sessionID, err)
	}
	return true, nil
}

// WaitForSessionExit polls until sessionID's tmux session is gone or the
// timeout elapses. Returns true if it exited on its own.
func WaitForSessionExit(t *tmux.Tmux, sessionID string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		running, err := t.HasSession(sessionID)
		if err != nil || !running {
			return true
		}
		time.Sleep(gtconst.PollInterval)
	}
	return false
}
