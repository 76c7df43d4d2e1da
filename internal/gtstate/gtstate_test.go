package gtstate

import "testing"

func TestWorkflowIDConventions(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"mayor", MayorWorkflowID(), "mayor"},
		{"boot", BootWorkflowID(), "boot"},
		{"patrol", PatrolWorkflowID(), "patrol"},
		{"witness", WitnessWorkflowID("alpha"), "alpha-witness"},
		{"refinery", RefineryWorkflowID("alpha"), "alpha-refinery"},
		{"rig", RigWorkflowID("alpha"), "rig-alpha"},
		{"polecat", PolecatWorkflowID("alpha", "p1"), "alpha-polecat-p1"},
		{"crew", CrewWorkflowID("alpha", "c1"), "alpha-crew-c1"},
		{"dog", DogWorkflowID("watchdog"), "dog-watchdog"},
		{"molecule", MoleculeWorkflowID("alpha", "release"), "alpha-mol-release"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, c.got, c.want)
		}
	}
}
