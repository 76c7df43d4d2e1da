// Package activities holds every side-effecting operation a workflow may
// call through Context.ExecuteActivity: process supervision, git, plugin
// execution, session discovery, and mail notification. Nothing in this
// package blocks on a workflow signal queue, and nothing in the workflow
// packages reaches past this layer to touch tmux, git, or the
// filesystem directly.
package activities

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gastown/gtr/internal/git"
	"github.com/gastown/gtr/internal/gterr"
	"github.com/gastown/gtr/internal/mail"
	"github.com/gastown/gtr/internal/plugin"
	"github.com/gastown/gtr/internal/supervisor"
)

// Activities bundles the supervisor and mail router shared across every
// activity call so workflows don't have to thread them through
// individually.
type Activities struct {
	Supervisor *supervisor.Supervisor
	Mail       *mail.Router
}

// New builds an Activities set backed by the shared tmux server and mail
// fabric.
func New() *Activities {
	return &Activities{Supervisor: supervisor.New(), Mail: mail.NewRouter()}
}

// SpawnAgent starts an agent's process. Spawn failures are non-retryable:
// a missing multiplexer or bad program path won't heal itself on retry.
func (a *Activities) SpawnAgent(spec supervisor.Spec) func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		if err := a.Supervisor.Spawn(spec); err != nil {
			return nil, gterr.NonRetryable(err)
		}
		return spec.AgentID, nil
	}
}

// CheckAgentAlive reports whether agentID's session is alive. A "false"
// result is a valid, successful outcome, not an error.
func (a *Activities) CheckAgentAlive(agentID string) func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		return a.Supervisor.IsAlive(agentID), nil
	}
}

// CapturePane returns an agent's recent scrollback, best-effort.
func (a *Activities) CapturePane(agentID string, lines int) func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		return a.Supervisor.CapturePane(agentID, lines)
	}
}

// KillAgent terminates an agent's session and process group.
func (a *Activities) KillAgent(agentID string) func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		if err := a.Supervisor.KillAgent(agentID); err != nil {
			return nil, err
		}
		return nil, a.Supervisor.Cleanup(agentID)
	}
}

// GitOp is the tagged union of git operations a workflow can request.
type GitOp struct {
	Kind       string // clone, checkout, commit, push, worktree_add, rebase, merge, check_conflicts
	RepoPath   string
	URL        string
	Branch     string
	StartPoint string
	Message    string
	WorktreePath string
	Remote     string
}

// GitResult is the uniform shape every git activity returns.
type GitResult struct {
	Op      string
	Success bool
	Message string
	Files   []string // populated by check_conflicts
}

// GitOp runs one tagged git operation. Conflicts and other structural
// failures are non-retryable; transient network failures on clone/push/
// fetch are left retryable so the caller's ActivityOptions can retry them.
func (a *Activities) GitOp(op GitOp) func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		g := git.New(op.RepoPath)
		switch op.Kind {
		case "clone":
			if err := g.Clone(op.URL, op.RepoPath); err != nil {
				return nil, err // retryable: network
			}
			return GitResult{Op: op.Kind, Success: true}, nil

		case "worktree_add":
			adminName := git.AdminWorktreeName(op.Branch)
			worktreePath := op.WorktreePath
			if worktreePath == "" {
				worktreePath = filepath.Join(filepath.Dir(op.RepoPath), adminName)
			}
			_ = os.RemoveAll(worktreePath)
			_ = g.WorktreePrune()
			_ = g.DeleteBranch(op.Branch, true)
			startPoint := op.StartPoint
			if startPoint == "" {
				startPoint = "HEAD"
			}
			if err := g.WorktreeAddFromRef(worktreePath, op.Branch, startPoint); err != nil {
				return nil, gterr.NonRetryable(fmt.Errorf("worktree_add: %w", err))
			}
			return GitResult{Op: op.Kind, Success: true, Message: worktreePath}, nil

		case "checkout":
			if err := g.Checkout(op.Branch); err != nil {
				return nil, gterr.NonRetryable(err)
			}
			return GitResult{Op: op.Kind, Success: true}, nil

		case "commit":
			if err := g.Add("."); err != nil {
				return nil, gterr.NonRetryable(err)
			}
			if err := g.Commit(op.Message); err != nil {
				return nil, gterr.NonRetryable(err)
			}
			return GitResult{Op: op.Kind, Success: true}, nil

		case "rebase":
			if err := g.Rebase(op.Branch); err != nil {
				_ = g.AbortRebase()
				return GitResult{Op: op.Kind, Success: false, Message: "conflict"}, gterr.NonRetryable(err)
			}
			return GitResult{Op: op.Kind, Success: true}, nil

		case "merge":
			if err := g.Checkout(op.Branch); err != nil {
				return nil, gterr.NonRetryable(err)
			}
			if err := g.MergeNoFF(op.StartPoint, op.Message); err != nil {
				_ = g.AbortMerge()
				return GitResult{Op: op.Kind, Success: false, Message: "conflict"}, gterr.NonRetryable(err)
			}
			return GitResult{Op: op.Kind, Success: true}, nil

		case "check_conflicts":
			files, err := g.CheckConflicts(op.StartPoint, op.Branch)
			if err != nil {
				return nil, gterr.NonRetryable(err)
			}
			return GitResult{Op: op.Kind, Success: len(files) == 0, Files: files}, nil

		case "push":
			remote := op.Remote
			if remote == "" {
				remote = "origin"
			}
			if err := g.Push(remote, op.Branch, false); err != nil {
				return nil, err // retryable: network
			}
			return GitResult{Op: op.Kind, Success: true}, nil

		default:
			return nil, gterr.NonRetryable(fmt.Errorf("unknown git op %q", op.Kind))
		}
	}
}

// RunPlugin runs a named plugin (or an ad-hoc command, for things like
// the Refinery's test step) in dir, returning combined output. A
// non-zero exit is treated as a normal (retryable-by-policy) failure,
// not automatically non-retryable, since tests/builds can be flaky.
func (a *Activities) RunPlugin(dir string, def plugin.Def) func(context.Context) (interface{}, error) {
	return func(ctx context.Context) (interface{}, error) {
		return runCommand(ctx, dir, def.Command, def.Args)
	}
}

// DiscoverSession finds the newest Claude Code session transcript for a
// working directory, returning its session id (the file's basename minus
// extension) so a respawned agent can resume with --resume <id>.
func (a *Activities) DiscoverSession(workDir string) func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", gterr.NonRetryable(err)
		}
		projDir := filepath.Join(home, ".claude", "projects", sanitizeProjectPath(workDir))
		entries, err := os.ReadDir(projDir)
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil
			}
			return "", err
		}

		var newest string
		var newestMod time.Time
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(newestMod) {
				newest = e.Name()
				newestMod = info.ModTime()
			}
		}
		if newest == "" {
			return "", nil
		}
		return strings.TrimSuffix(newest, ".jsonl"), nil
	}
}

// Now returns the current wall-clock time. It exists so a workflow never
// calls time.Now directly: a gate's timer deadline is computed from this
// activity's result instead, keeping every clock read on the activity
// side of the boundary.
func (a *Activities) Now() func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		return time.Now(), nil
	}
}

// sanitizeProjectPath mirrors the interactive assistant's own convention
// of flattening a working directory into its project-transcript
// directory name by replacing path separators with dashes.
func sanitizeProjectPath(workDir string) string {
	clean := filepath.Clean(workDir)
	return strings.ReplaceAll(strings.TrimPrefix(clean, string(filepath.Separator)), string(filepath.Separator), "-")
}

// Notify sends a mail notification, the activity backing escalation,
// Witness health summaries, and polecat lifecycle pings.
func (a *Activities) Notify(from, to, subject, body string, priority mail.Priority, channel mail.Channel) func(context.Context) (interface{}, error) {
	return func(context.Context) (interface{}, error) {
		return a.Mail.Send(from, to, subject, body, priority, channel)
	}
}

// PluginResult is the outcome of running a plugin or ad-hoc command.
type PluginResult struct {
	Success  bool
	Output   string
	ExitCode int
}

func runCommand(ctx context.Context, dir, command string, args []string) (interface{}, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	result := PluginResult{Output: string(out), Success: err == nil}
	if err == nil {
		return result, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("command %s exited %d: %s", command, result.ExitCode, strings.TrimSpace(result.Output))
	}
	return result, fmt.Errorf("running %s: %w", command, err)
}
