// Package gtconst holds fixed values shared across the supervisor: role
// names, status-bar icons, timeouts, and polling intervals. Centralizing
// these avoids magic strings drifting between the tmux, session, and
// workflow packages.
package gtconst

import "time"

// Agent roles, matching the workflow id helpers in gtstate.
const (
	RoleMayor    = "mayor"
	RoleWitness  = "witness"
	RoleRefinery = "refinery"
	RolePolecat  = "polecat"
	RoleCrew     = "crew"
	RoleDog      = "dog"
	RoleBoot     = "boot"
)

// Status bar icons per role.
const (
	EmojiMayor    = "🎩"
	EmojiWitness  = "👁"
	EmojiRefinery = "⚗️"
	EmojiPolecat  = "😺"
	EmojiCrew     = "👷"
	EmojiDog      = "🐕"
	EmojiBoot     = "🥾"
)

// SupportedShells lists pane commands that count as "idle shell, nothing
// running" for liveness checks.
var SupportedShells = []string{"bash", "zsh", "sh", "fish"}

// Timeouts and delays used throughout session startup/shutdown.
const (
	DefaultDebounceMs         = 100
	DefaultDisplayMs          = 5000
	ClaudeStartTimeout        = 30 * time.Second
	GracefulShutdownTimeout   = 5 * time.Second
	ShutdownNotifyDelay       = 2 * time.Second
	PollInterval              = 250 * time.Millisecond
	KillGracePeriod           = 500 * time.Millisecond
)
