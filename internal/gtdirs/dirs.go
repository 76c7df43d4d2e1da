// Package gtdirs centralizes the on-disk directory layout under the
// town root (defaulting to $HOME/.gtr), so every package asking "where do
// I persist this" gets the same answer.
package gtdirs

import (
	"os"
	"path/filepath"
)

// Root returns the town root directory: $GTR_ROOT if set, else $HOME/.gtr.
func Root() string {
	if v := os.Getenv("GTR_ROOT"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gtr"
	}
	return filepath.Join(home, ".gtr")
}

// RuntimeDir is the supervisor-owned root for per-agent runtime state
// (pid files, env.json), keyed by agent id.
func RuntimeDir() string { return filepath.Join(Root(), "runtime") }

// AgentRuntimeDir returns the runtime directory for a single agent.
func AgentRuntimeDir(agentID string) string { return filepath.Join(RuntimeDir(), agentID) }

// RigsDir is the parent of all rig working trees.
func RigsDir() string { return filepath.Join(Root(), "rigs") }

// RigDir returns a rig's root directory.
func RigDir(rig string) string { return filepath.Join(RigsDir(), rig) }

// PolecatDir returns a polecat's worktree directory within a rig.
func PolecatDir(rig, name string) string { return filepath.Join(RigDir(rig), "polecats", name) }

// CrewDir returns a crew member's worktree directory within a rig.
func CrewDir(rig, name string) string { return filepath.Join(RigDir(rig), "crew", name) }

// WitnessDir returns a rig's witness scratch directory.
func WitnessDir(rig string) string { return filepath.Join(RigDir(rig), "witness") }

// RefineryDir returns a rig's refinery scratch directory (merge queue
// checkouts, test run artifacts).
func RefineryDir(rig string) string { return filepath.Join(RigDir(rig), "refinery") }

// ConfigDir is where town.toml, rigs.toml, escalation.toml, and discovered
// formula/plugin definitions live.
func ConfigDir() string { return filepath.Join(Root(), "config") }

// WorkflowsDir is where internal/statestore persists one JSON file per
// running workflow, keyed by workflow id.
func WorkflowsDir() string { return filepath.Join(Root(), "runtime", "workflows") }

// EnsureRigDirs creates the directory tree a rig needs before any agent
// can be spawned into it.
func EnsureRigDirs(rig string) error {
	dirs := []string{
		RigDir(rig),
		filepath.Join(RigDir(rig), "polecats"),
		filepath.Join(RigDir(rig), "crew"),
		WitnessDir(rig),
		RefineryDir(rig),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// EnsureBaseDirs creates the town-root-level directories needed before
// any agent of any kind can run.
func EnsureBaseDirs() error {
	dirs := []string{Root(), RuntimeDir(), RigsDir(), ConfigDir(), WorkflowsDir()}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}
