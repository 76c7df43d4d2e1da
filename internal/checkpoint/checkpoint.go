// Package checkpoint persists a Molecule's in-progress step state to
// .gtr-checkpoint.json in the working directory it's operating on, so a
// restarted Polecat can resume where it left off instead of redoing work
// a crash interrupted mid-step.
package checkpoint

import (
	"os"
	"path/filepath"

	"github.com/gastown/gtr/internal/util"
)

const fileName = ".gtr-checkpoint.json"

// Checkpoint captures enough of a Molecule's progress to resume it.
type Checkpoint struct {
	MoleculeID    string   `json:"molecule_id,omitempty"`
	CurrentStep   string   `json:"current_step,omitempty"`
	StepTitle     string   `json:"step_title,omitempty"`
	ModifiedFiles []string `json:"modified_files,omitempty"`
	LastCommit    string   `json:"last_commit,omitempty"`
	Branch        string   `json:"branch,omitempty"`
	HookedWork    bool     `json:"hooked_work,omitempty"`
	Timestamp     string   `json:"timestamp"`
	SessionID     string   `json:"session_id,omitempty"`
	Notes         string   `json:"notes,omitempty"`
}

func path(dir string) string { return filepath.Join(dir, fileName) }

// Write saves a checkpoint to dir, overwriting any existing one.
func Write(dir string, cp Checkpoint) error {
	return util.AtomicWriteJSON(path(dir), cp)
}

// Read loads the checkpoint in dir, if any. Returns (nil, nil) if none
// exists.
func Read(dir string) (*Checkpoint, error) {
	p := path(dir)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return nil, nil
	}
	var cp Checkpoint
	if err := util.ReadJSON(p, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Clear removes the checkpoint file in dir, if present.
func Clear(dir string) error {
	err := os.Remove(path(dir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
