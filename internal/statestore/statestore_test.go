package statestore

import (
	"errors"
	"os"
	"testing"
)

type fixture struct {
	Name  string
	Count int
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())

	want := fixture{Name: "rig-1", Count: 3}
	if err := Save("wf-1", want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got fixture
	if err := Load("wf-1", &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadMissingReturnsNotExist(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())

	var got fixture
	err := Load("never-saved", &got)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want os.ErrNotExist", err)
	}
}

func TestExists(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())

	if Exists("wf-2") {
		t.Error("Exists = true before any Save")
	}
	if err := Save("wf-2", fixture{Name: "x"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists("wf-2") {
		t.Error("Exists = false after Save")
	}
}

func TestSaveOverwritesPriorState(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())

	if err := Save("wf-3", fixture{Name: "first", Count: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save("wf-3", fixture{Name: "second", Count: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var got fixture
	if err := Load("wf-3", &got); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Name != "second" || got.Count != 2 {
		t.Errorf("got %+v, want the second write to win", got)
	}
}

func TestDelete(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())

	if err := Save("wf-4", fixture{Name: "gone-soon"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Delete("wf-4"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if Exists("wf-4") {
		t.Error("Exists = true after Delete")
	}
}

func TestListReturnsAllSavedWorkflowIDs(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())

	for _, id := range []string{"wf-a", "wf-b", "wf-c"} {
		if err := Save(id, fixture{Name: id}); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	ids, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	for _, want := range []string{"wf-a", "wf-b", "wf-c"} {
		if !seen[want] {
			t.Errorf("List() missing %s, got %v", want, ids)
		}
	}
}

func TestListEmptyBeforeAnySave(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())

	ids, err := List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none", ids)
	}
}
