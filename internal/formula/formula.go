// Package formula parses and schedules TOML "recipe" definitions: named,
// templated step sequences with inter-step dependencies that a Molecule
// instantiates and runs one step at a time.
package formula

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Step is one unit of work within a Formula.
type Step struct {
	Name      string   `toml:"name"`
	Command   string   `toml:"command"`
	Args      []string `toml:"args,omitempty"`
	DependsOn []string `toml:"depends_on,omitempty"`
}

// Def is a parsed formula definition.
type Def struct {
	Name        string         `toml:"name"`
	Description string         `toml:"description,omitempty"`
	Vars        map[string]string `toml:"vars,omitempty"`
	Steps       []Step         `toml:"steps"`
}

// FromTOML parses formula TOML from a string.
func FromTOML(data string) (Def, error) {
	var def Def
	if _, err := toml.Decode(data, &def); err != nil {
		return Def{}, fmt.Errorf("parsing formula: %w", err)
	}
	return def, nil
}

// FromFile loads and parses a formula TOML file.
func FromFile(path string) (Def, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Def{}, fmt.Errorf("reading formula %s: %w", path, err)
	}
	return FromTOML(string(data))
}

// TopoSort orders steps so each step appears after everything it depends
// on (Kahn's algorithm). Returns an error naming the first unknown
// dependency found, or one reporting that the formula has a cycle (the
// steps on the cycle are not named).
func (d Def) TopoSort() ([]Step, error) {
	byName := make(map[string]Step, len(d.Steps))
	indegree := make(map[string]int, len(d.Steps))
	dependents := make(map[string][]string)

	for _, s := range d.Steps {
		byName[s.Name] = s
		if _, ok := indegree[s.Name]; !ok {
			indegree[s.Name] = 0
		}
	}
	for _, s := range d.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("step %q depends on unknown step %q", s.Name, dep)
			}
			indegree[s.Name]++
			dependents[dep] = append(dependents[dep], s.Name)
		}
	}

	var ready []string
	for _, s := range d.Steps {
		if indegree[s.Name] == 0 {
			ready = append(ready, s.Name)
		}
	}

	var ordered []Step
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byName[name])
		for _, dependent := range dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(ordered) != len(d.Steps) {
		return nil, fmt.Errorf("formula %q has a dependency cycle", d.Name)
	}
	return ordered, nil
}

// Interpolate replaces every "{{key}}" occurrence in template with
// vars[key], leaving unmatched placeholders untouched.
func Interpolate(template string, vars map[string]string) string {
	out := template
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
