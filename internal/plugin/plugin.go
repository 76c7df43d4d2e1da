// Package plugin discovers per-rig TOML plugin definitions: small
// external commands a rig can run on a gated schedule (cooldown, cron, or
// in response to a named event) without the behavior being baked into
// the supervisor itself.
package plugin

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// GateKind discriminates when a plugin is eligible to run.
type GateKind string

const (
	GateNone     GateKind = "none"
	GateCooldown GateKind = "cooldown"
	GateCron     GateKind = "cron"
	GateEvent    GateKind = "event"
)

// Gate is a tagged union over GateKind, decoded from TOML's
// [gate] type = "..." convention.
type Gate struct {
	Type     GateKind `toml:"type"`
	Seconds  int      `toml:"seconds,omitempty"`
	Schedule string   `toml:"schedule,omitempty"`
	Event    string   `toml:"event,omitempty"`
}

// DefaultGate is GateNone: the plugin is eligible to run any time it's invoked.
var DefaultGate = Gate{Type: GateNone}

// Def is a parsed plugin definition.
type Def struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description,omitempty"`
	Command     string   `toml:"command"`
	Args        []string `toml:"args,omitempty"`
	Gate        Gate     `toml:"gate"`
}

type rawDef struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description,omitempty"`
	Command     string   `toml:"command"`
	Args        []string `toml:"args,omitempty"`
	Gate        *Gate    `toml:"gate,omitempty"`
}

// FromTOML parses a single plugin definition from TOML text.
func FromTOML(data string) (Def, error) {
	var raw rawDef
	if _, err := toml.Decode(data, &raw); err != nil {
		return Def{}, fmt.Errorf("parsing plugin: %w", err)
	}
	if raw.Command == "" {
		return Def{}, fmt.Errorf("plugin %q missing command", raw.Name)
	}
	def := Def{Name: raw.Name, Description: raw.Description, Command: raw.Command, Args: raw.Args, Gate: DefaultGate}
	if raw.Gate != nil {
		def.Gate = *raw.Gate
	}
	return def, nil
}

// Discover reads every *.toml file directly under dir, parses it as a
// plugin definition, and returns the valid ones sorted by name. Invalid
// files are logged and skipped rather than failing the whole discovery
// pass, so one malformed plugin doesn't take the rig's whole plugin set
// down with it.
func Discover(dir string) ([]Def, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading plugin directory %s: %w", dir, err)
	}

	var defs []Def
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("warning: skipping plugin %s: %v", path, err)
			continue
		}
		def, err := FromTOML(string(data))
		if err != nil {
			log.Printf("warning: skipping invalid plugin %s: %v", path, err)
			continue
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs, nil
}
