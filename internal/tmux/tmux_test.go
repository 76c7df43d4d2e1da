package tmux

import (
	"fmt"
	"testing"

	"github.com/gastown/gtr/internal/gtconst"
)

func TestAssignThemePicksRoleTheme(t *testing.T) {
	cases := map[string]Theme{
		gtconst.RoleMayor:    MayorTheme,
		gtconst.RoleWitness:  WitnessTheme,
		gtconst.RoleRefinery: RefineryTheme,
		gtconst.RolePolecat:  PolecatTheme,
		gtconst.RoleCrew:     CrewTheme,
		gtconst.RoleDog:      DogTheme,
		gtconst.RoleBoot:     BootTheme,
	}
	for role, want := range cases {
		if got := AssignTheme(role); got != want {
			t.Errorf("AssignTheme(%q) = %+v, want %+v", role, got, want)
		}
	}
	if got := AssignTheme("unknown-role"); got != DefaultTheme {
		t.Errorf("AssignTheme(unknown) = %+v, want DefaultTheme", got)
	}
}

func TestThemeStyleFormatsForegroundAndBackground(t *testing.T) {
	th := Theme{Foreground: "white", Background: "colour26"}
	if got, want := th.Style(), "fg=white,bg=colour26"; got != want {
		t.Errorf("Style() = %q, want %q", got, want)
	}
}

func TestSessionNameForAgentPrefixesGtr(t *testing.T) {
	if got, want := SessionNameForAgent("alpha-polecat-p1"), "gtr-alpha-polecat-p1"; got != want {
		t.Errorf("SessionNameForAgent() = %q, want %q", got, want)
	}
}

func TestIsInsideTmuxFalseWhenEnvUnset(t *testing.T) {
	t.Setenv("TMUX", "")
	if IsInsideTmux() {
		t.Error("IsInsideTmux() = true with TMUX unset")
	}
}

func TestIsInsideTmuxTrueWhenEnvSet(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-1000/default,1234,0")
	if !IsInsideTmux() {
		t.Error("IsInsideTmux() = false with TMUX set")
	}
}

func TestSessionSetHasReflectsSnapshot(t *testing.T) {
	set := &SessionSet{names: map[string]struct{}{"gtr-a": {}, "gtr-b": {}}}
	if !set.Has("gtr-a") {
		t.Error("Has(gtr-a) = false, want true")
	}
	if set.Has("gtr-c") {
		t.Error("Has(gtr-c) = true, want false")
	}
}

// The remaining tests exercise real tmux session lifecycle against a
// dedicated private server (ServerSocket), skipping entirely when tmux
// isn't installed rather than faking a subprocess layer that doesn't exist.
func requireTmux(t *testing.T) *Tmux {
	t.Helper()
	tm := NewTmux()
	if !tm.IsAvailable() {
		t.Skip("tmux not installed")
	}
	return tm
}

func TestNewSessionAndHasSessionAndKillSession(t *testing.T) {
	tm := requireTmux(t)
	name := fmt.Sprintf("gtr-test-%d", sessionCounter())

	if err := tm.NewSession(name, ""); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer tm.KillSession(name)

	ok, err := tm.HasSession(name)
	if err != nil {
		t.Fatalf("HasSession: %v", err)
	}
	if !ok {
		t.Error("HasSession() = false right after creating the session")
	}

	if err := tm.KillSession(name); err != nil {
		t.Fatalf("KillSession: %v", err)
	}
	ok, err = tm.HasSession(name)
	if err != nil {
		t.Fatalf("HasSession: %v", err)
	}
	if ok {
		t.Error("HasSession() = true after killing the session")
	}
}

func TestHasSessionExactMatchDoesNotPrefixMatch(t *testing.T) {
	tm := requireTmux(t)
	base := fmt.Sprintf("gtr-test-%d", sessionCounter())
	longer := base + "-longer"

	if err := tm.NewSession(longer, ""); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer tm.KillSession(longer)

	ok, err := tm.HasSession(base)
	if err != nil {
		t.Fatalf("HasSession: %v", err)
	}
	if ok {
		t.Errorf("HasSession(%q) = true, want false (should not prefix-match %q)", base, longer)
	}
}

func TestListSessionsIncludesCreatedSession(t *testing.T) {
	tm := requireTmux(t)
	name := fmt.Sprintf("gtr-test-%d", sessionCounter())

	if err := tm.NewSession(name, ""); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer tm.KillSession(name)

	sessions, err := tm.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	found := false
	for _, s := range sessions {
		if s == name {
			found = true
		}
	}
	if !found {
		t.Errorf("ListSessions() = %v, want it to include %q", sessions, name)
	}
}

func TestRenameSession(t *testing.T) {
	tm := requireTmux(t)
	oldName := fmt.Sprintf("gtr-test-%d", sessionCounter())
	newName := oldName + "-renamed"

	if err := tm.NewSession(oldName, ""); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer tm.KillSession(newName)

	if err := tm.RenameSession(oldName, newName); err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
	ok, err := tm.HasSession(newName)
	if err != nil {
		t.Fatalf("HasSession: %v", err)
	}
	if !ok {
		t.Error("renamed session not found under its new name")
	}
}

func TestGetPaneCommandReportsAShell(t *testing.T) {
	tm := requireTmux(t)
	name := fmt.Sprintf("gtr-test-%d", sessionCounter())

	if err := tm.NewSession(name, ""); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer tm.KillSession(name)

	cmd, err := tm.GetPaneCommand(name)
	if err != nil {
		t.Fatalf("GetPaneCommand: %v", err)
	}
	if cmd == "" {
		t.Error("GetPaneCommand() = empty, want a shell name")
	}
}

// sessionCounter gives each test a unique session name without relying on
// time.Now (tests in this package run under a real tmux server, so
// collisions across a single run are what matters, not global uniqueness).
var sessionSeq int

func sessionCounter() int {
	sessionSeq++
	return sessionSeq
}
