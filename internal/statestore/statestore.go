// Package statestore persists workflow history/state to
// runtime/workflows/<id>.json, standing in for a real durable-execution
// backend's event store. Every write is flock-guarded and atomic so a
// concurrent CLI invocation (e.g. "gt status") never observes a torn file
// and two writers never interleave.
package statestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gastown/gtr/internal/gtdirs"
	"github.com/gastown/gtr/internal/lock"
	"github.com/gastown/gtr/internal/util"
)

// Path returns the on-disk path for a workflow's state file.
func Path(workflowID string) string {
	return filepath.Join(gtdirs.WorkflowsDir(), workflowID+".json")
}

// Save writes v as the durable state for workflowID, replacing whatever
// was there before. Safe to call from concurrent goroutines/processes.
func Save(workflowID string, v interface{}) error {
	path := Path(workflowID)
	release, err := lock.Acquire(path)
	if err != nil {
		return fmt.Errorf("locking state file for %s: %w", workflowID, err)
	}
	defer release()

	return util.AtomicWriteJSON(path, v)
}

// Load reads the durable state for workflowID into v. Returns
// os.ErrNotExist (check with errors.Is) if no state has been saved yet.
func Load(workflowID string, v interface{}) error {
	path := Path(workflowID)
	release, err := lock.AcquireShared(path)
	if err != nil {
		return fmt.Errorf("locking state file for %s: %w", workflowID, err)
	}
	defer release()

	return util.ReadJSON(path, v)
}

// Exists reports whether a state file has ever been saved for workflowID.
func Exists(workflowID string) bool {
	_, err := os.Stat(Path(workflowID))
	return err == nil
}

// Delete removes a workflow's state file, used after terminal completion
// if the caller doesn't want history retained (most do; continue-as-new
// workflows instead call Save with fresh history).
func Delete(workflowID string) error {
	return os.Remove(Path(workflowID))
}

// List returns the workflow ids that currently have persisted state,
// useful for the Witness/Patrol workflows scanning for stuck siblings.
func List() ([]string, error) {
	entries, err := os.ReadDir(gtdirs.WorkflowsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		const suffix = ".json"
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			ids = append(ids, name[:len(name)-len(suffix)])
		}
	}
	return ids, nil
}
