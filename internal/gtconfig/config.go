// Package gtconfig loads the town's TOML configuration: the town
// identity, the registered rigs, and the escalation routing table. All
// three are plain BurntSushi/toml-decoded structs, matching the teacher's
// own config package's choice of library.
package gtconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/gastown/gtr/internal/gtdirs"
)

// TownConfig identifies this town installation.
type TownConfig struct {
	Name      string `toml:"name"`
	Namespace string `toml:"namespace"`
}

// DefaultTownConfig returns the zero-value town config with its defaults
// filled in, matching the reference implementation's TownConfig::default.
func DefaultTownConfig() TownConfig {
	return TownConfig{Namespace: "default"}
}

// RigEntry is one rig's registration record.
type RigEntry struct {
	Name   string `toml:"name"`
	Path   string `toml:"path"`
	GitURL string `toml:"git_url,omitempty"`
}

// RigsConfig is the full set of registered rigs.
type RigsConfig struct {
	Rigs []RigEntry `toml:"rigs"`
}

// Add registers a rig, replacing any existing entry of the same name
// (idempotent by name).
func (c *RigsConfig) Add(entry RigEntry) {
	for i, r := range c.Rigs {
		if r.Name == entry.Name {
			c.Rigs[i] = entry
			return
		}
	}
	c.Rigs = append(c.Rigs, entry)
}

// Remove deletes a rig by name. Reports whether anything was removed.
func (c *RigsConfig) Remove(name string) bool {
	for i, r := range c.Rigs {
		if r.Name == name {
			c.Rigs = append(c.Rigs[:i], c.Rigs[i+1:]...)
			return true
		}
	}
	return false
}

// EscalationThresholds controls how aggressively the notification fabric
// re-alerts on a stuck agent.
type EscalationThresholds struct {
	StaleAfterSeconds int `toml:"stale_after_seconds"`
	MaxReEscalations  int `toml:"max_re_escalations"`
}

// DefaultEscalationThresholds mirrors the reference implementation's
// EscalationConfig defaults (max_re_escalations = 2).
func DefaultEscalationThresholds() EscalationThresholds {
	return EscalationThresholds{StaleAfterSeconds: 600, MaxReEscalations: 2}
}

// EscalationConfig maps an escalation route name to the ordered list of
// mail recipients it notifies, plus the thresholds governing re-alerts.
type EscalationConfig struct {
	Routes     map[string][]string  `toml:"routes"`
	Thresholds EscalationThresholds `toml:"thresholds"`
}

func townConfigPath() string  { return filepath.Join(gtdirs.ConfigDir(), "town.toml") }
func rigsConfigPath() string  { return filepath.Join(gtdirs.ConfigDir(), "rigs.toml") }
func escalationPath() string  { return filepath.Join(gtdirs.ConfigDir(), "escalation.toml") }

// LoadTown reads town.toml, returning DefaultTownConfig if it doesn't exist.
func LoadTown() (TownConfig, error) {
	cfg := DefaultTownConfig()
	if err := loadTOML(townConfigPath(), &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveTown writes town.toml.
func SaveTown(cfg TownConfig) error { return saveTOML(townConfigPath(), cfg) }

// LoadRigs reads rigs.toml, returning an empty RigsConfig if it doesn't exist.
func LoadRigs() (RigsConfig, error) {
	var cfg RigsConfig
	if err := loadTOML(rigsConfigPath(), &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveRigs writes rigs.toml.
func SaveRigs(cfg RigsConfig) error { return saveTOML(rigsConfigPath(), cfg) }

// LoadEscalation reads escalation.toml, defaulting thresholds if absent.
func LoadEscalation() (EscalationConfig, error) {
	cfg := EscalationConfig{Thresholds: DefaultEscalationThresholds()}
	if err := loadTOML(escalationPath(), &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveEscalation writes escalation.toml.
func SaveEscalation(cfg EscalationConfig) error { return saveTOML(escalationPath(), cfg) }

// FindTownRoot walks up from start looking for a config directory,
// matching the reference implementation's find_town_root. Returns the
// directory containing "config/town.toml", or an error if none is found
// before reaching the filesystem root.
func FindTownRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "config", "town.toml")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no town root found walking up from %s", start)
		}
		dir = parent
	}
}

func loadTOML(path string, v interface{}) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	_, err := toml.DecodeFile(path, v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func saveTOML(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(v)
}
