package formula

import "testing"

func TestFromTOMLParsesStepsAndVars(t *testing.T) {
	data := `
name = "release"
description = "cut a release"

[vars]
version = "1.2.3"

[[steps]]
name = "build"
command = "make"
args = ["build"]

[[steps]]
name = "test"
command = "make"
args = ["test"]
depends_on = ["build"]
`
	def, err := FromTOML(data)
	if err != nil {
		t.Fatalf("FromTOML: %v", err)
	}
	if def.Name != "release" || def.Vars["version"] != "1.2.3" {
		t.Errorf("def = %+v", def)
	}
	if len(def.Steps) != 2 || def.Steps[1].DependsOn[0] != "build" {
		t.Errorf("steps = %+v", def.Steps)
	}
}

func TestFromTOMLInvalidReturnsError(t *testing.T) {
	if _, err := FromTOML("this is not valid toml {{{"); err == nil {
		t.Fatal("expected an error parsing malformed TOML")
	}
}

func TestTopoSortOrdersByDependency(t *testing.T) {
	def := Def{Steps: []Step{
		{Name: "deploy", DependsOn: []string{"test"}},
		{Name: "build"},
		{Name: "test", DependsOn: []string{"build"}},
	}}
	ordered, err := def.TopoSort()
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	pos := map[string]int{}
	for i, s := range ordered {
		pos[s.Name] = i
	}
	if !(pos["build"] < pos["test"] && pos["test"] < pos["deploy"]) {
		t.Errorf("ordering violated: %+v", ordered)
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	def := Def{Name: "cyclic", Steps: []Step{
		{Name: "a", DependsOn: []string{"b"}},
		{Name: "b", DependsOn: []string{"a"}},
	}}
	if _, err := def.TopoSort(); err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestTopoSortDetectsUnknownDependency(t *testing.T) {
	def := Def{Steps: []Step{{Name: "a", DependsOn: []string{"nonexistent"}}}}
	if _, err := def.TopoSort(); err == nil {
		t.Fatal("expected an unknown-dependency error")
	}
}

func TestTopoSortPreservesOrderAmongIndependentSteps(t *testing.T) {
	def := Def{Steps: []Step{{Name: "a"}, {Name: "b"}, {Name: "c"}}}
	ordered, err := def.TopoSort()
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	if len(ordered) != 3 {
		t.Fatalf("len(ordered) = %d, want 3", len(ordered))
	}
	for i, want := range []string{"a", "b", "c"} {
		if ordered[i].Name != want {
			t.Errorf("ordered[%d] = %q, want %q", i, ordered[i].Name, want)
		}
	}
}

func TestInterpolateSubstitutesKnownVars(t *testing.T) {
	got := Interpolate("deploy --version {{version}} --env {{env}}", map[string]string{"version": "1.2.3"})
	want := "deploy --version 1.2.3 --env {{env}}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
