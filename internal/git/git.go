// Package git wraps git operations via subprocess, not a git library, so
// the user's credential helper, SSH agent, and ssh config all apply
// exactly as they would to a manual `git push`. Errors carry git's raw
// stdout/stderr rather than an interpretation of it, on the theory that
// whatever observes the failure (a human, or an agent) is better
// positioned to decide what it means than a regex in this package.
package git

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// worktreeNamespace seeds the deterministic name-based UUID used to
// disambiguate admin worktree directories for branches that collide
// after slash-to-dash flattening.
var worktreeNamespace = uuid.MustParse("6f8f2c8e-6e0b-4f6b-9a6a-6f1b9e0c5a3d")

// Identity is the commit author/committer used for any commit this
// package creates on the repository's behalf (merge commits, squash
// commits) when the repository has no configured user.
const (
	IdentityName  = "gtr"
	IdentityEmail = "gtr@gastownrusted.dev"
)

// Error carries a failed git invocation's raw output for the caller to
// inspect; it deliberately does not try to classify the failure.
type Error struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git %s: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("git %s: %v", e.Command, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Git wraps git operations rooted at a single working directory.
type Git struct {
	workDir string
}

// New creates a Git wrapper for workDir.
func New(workDir string) *Git { return &Git{workDir: workDir} }

// WorkDir returns the repository's working directory.
func (g *Git) WorkDir() string { return g.workDir }

// IsRepo reports whether workDir is inside a git repository.
func (g *Git) IsRepo() bool {
	_, err := g.run("rev-parse", "--git-dir")
	return err == nil
}

func (g *Git) run(args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.workDir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+IdentityName, "GIT_AUTHOR_EMAIL="+IdentityEmail,
		"GIT_COMMITTER_NAME="+IdentityName, "GIT_COMMITTER_EMAIL="+IdentityEmail,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		command := args[0]
		return "", &Error{Command: command, Args: args, Stdout: stdout.String(), Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Clone clones url into dest and configures sparse checkout.
func (g *Git) Clone(url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating destination parent: %w", err)
	}
	cmd := exec.Command("git", "clone", url, dest)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &Error{Command: "clone", Args: []string{url, dest}, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return ConfigureSparseCheckout(dest)
}

// Checkout checks out ref.
func (g *Git) Checkout(ref string) error { _, err := g.run("checkout", ref); return err }

// Fetch fetches from remote.
func (g *Git) Fetch(remote string) error { _, err := g.run("fetch", remote); return err }

// Push pushes branch to remote, optionally force.
func (g *Git) Push(remote, branch string, force bool) error {
	args := []string{"push", remote, branch}
	if force {
		args = append(args, "--force")
	}
	_, err := g.run(args...)
	return err
}

// Add stages paths for commit.
func (g *Git) Add(paths ...string) error {
	_, err := g.run(append([]string{"add"}, paths...)...)
	return err
}

// Commit creates a commit with message, using the gtr identity if the
// repository has none configured (GIT_AUTHOR_* env above always applies
// to commits created through this wrapper).
func (g *Git) Commit(message string) error { _, err := g.run("commit", "-m", message); return err }

// Status summarizes the working tree's porcelain status.
type Status struct {
	Clean     bool
	Modified  []string
	Added     []string
	Deleted   []string
	Untracked []string
}

// Status returns the current working tree status.
func (g *Git) Status() (*Status, error) {
	out, err := g.run("status", "--porcelain")
	if err != nil {
		return nil, err
	}
	st := &Status{Clean: out == ""}
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 3 {
			continue
		}
		code, file := line[:2], line[3:]
		switch {
		case strings.Contains(code, "M"):
			st.Modified = append(st.Modified, file)
		case strings.Contains(code, "A"):
			st.Added = append(st.Added, file)
		case strings.Contains(code, "D"):
			st.Deleted = append(st.Deleted, file)
		case strings.Contains(code, "?"):
			st.Untracked = append(st.Untracked, file)
		}
	}
	return st, nil
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch() (string, error) { return g.run("rev-parse", "--abbrev-ref", "HEAD") }

// Merge merges branch into the current branch.
func (g *Git) Merge(branch string) error { _, err := g.run("merge", branch); return err }

// MergeNoFF merges branch with --no-ff and a custom message.
func (g *Git) MergeNoFF(branch, message string) error {
	_, err := g.run("merge", "--no-ff", "-m", message, branch)
	return err
}

// Rebase rebases the current branch onto onto.
func (g *Git) Rebase(onto string) error { _, err := g.run("rebase", onto); return err }

// AbortMerge aborts an in-progress merge.
func (g *Git) AbortMerge() error { _, err := g.run("merge", "--abort"); return err }

// AbortRebase aborts an in-progress rebase.
func (g *Git) AbortRebase() error { _, err := g.run("rebase", "--abort"); return err }

// CheckConflicts test-merges source into target and reports conflicting
// files without leaving any trace: the test merge is always undone
// before returning, whether or not it conflicted. Caller must ensure the
// working tree is clean first.
func (g *Git) CheckConflicts(source, target string) ([]string, error) {
	if err := g.Checkout(target); err != nil {
		return nil, fmt.Errorf("checkout target %s: %w", target, err)
	}

	_, mergeErr := g.run("merge", "--no-commit", "--no-ff", source)
	if mergeErr != nil {
		conflicts, convErr := g.ConflictingFiles()
		if convErr == nil && len(conflicts) > 0 {
			_ = g.AbortMerge()
			return conflicts, nil
		}
		_ = g.AbortMerge()
		return nil, mergeErr
	}

	_, _ = g.run("reset", "--hard", "HEAD")
	return nil, nil
}

// ConflictingFiles lists files with unresolved merge conflicts, using
// diff --diff-filter=U rather than parsing git's stderr.
func (g *Git) ConflictingFiles() ([]string, error) {
	out, err := g.run("diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	var files []string
	for _, f := range strings.Split(out, "\n") {
		if f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

// CreateBranchFrom creates branch name starting at ref.
func (g *Git) CreateBranchFrom(name, ref string) error {
	_, err := g.run("branch", name, ref)
	return err
}

// BranchExists reports whether a local branch exists.
func (g *Git) BranchExists(name string) (bool, error) {
	_, err := g.run("show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		if strings.Contains(err.Error(), "exit status 1") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteBranch deletes a local branch.
func (g *Git) DeleteBranch(name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := g.run("branch", flag, name)
	return err
}

// Rev resolves ref to a commit hash.
func (g *Git) Rev(ref string) (string, error) { return g.run("rev-parse", ref) }

// IsAncestor reports whether ancestor is an ancestor of descendant.
func (g *Git) IsAncestor(ancestor, descendant string) (bool, error) {
	_, err := g.run("merge-base", "--is-ancestor", ancestor, descendant)
	if err != nil {
		if strings.Contains(err.Error(), "exit status 1") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WorktreeAdd creates a new worktree at path on a new branch from the
// current HEAD, with sparse checkout configured.
func (g *Git) WorktreeAdd(path, branch string) error {
	if _, err := g.run("worktree", "add", "-b", branch, path); err != nil {
		return err
	}
	return ConfigureSparseCheckout(path)
}

// WorktreeAddFromRef is WorktreeAdd starting from an explicit ref instead
// of HEAD (e.g. "origin/main").
func (g *Git) WorktreeAddFromRef(path, branch, startPoint string) error {
	if _, err := g.run("worktree", "add", "-b", branch, path, startPoint); err != nil {
		return err
	}
	return ConfigureSparseCheckout(path)
}

// WorktreeRemove removes a worktree.
func (g *Git) WorktreeRemove(path string, force bool) error {
	args := []string{"worktree", "remove", path}
	if force {
		args = append(args, "--force")
	}
	_, err := g.run(args...)
	return err
}

// WorktreePrune removes worktree entries whose directories are gone.
func (g *Git) WorktreePrune() error { _, err := g.run("worktree", "prune"); return err }

// AdminWorktreeName derives the filesystem-safe worktree directory name
// for branch. A branch containing "/" (e.g. "polecat/toast/fix-x") would
// otherwise collide with git's own ref-namespace directories when used
// literally as a path component, and plain slash-stripping risks
// collisions between distinct branches that only differ by where the
// slash was (e.g. "a/b-c" and "a-b/c"). Appending a short hash of the
// full branch name keeps the sanitized name both filesystem-safe and
// collision-resistant.
func AdminWorktreeName(branch string) string {
	if !strings.Contains(branch, "/") {
		return branch
	}
	id := uuid.NewSHA1(worktreeNamespace, []byte(branch))
	suffix := strings.ReplaceAll(id.String(), "-", "")[:8]
	return strings.ReplaceAll(branch, "/", "-") + "-" + suffix
}

// ConfigureSparseCheckout excludes .claude/, CLAUDE.md, and CLAUDE.local.md
// from the working tree so a source repository's own assistant
// configuration can never shadow the supervisor's. .mcp.json is
// deliberately left in place so worktrees still inherit MCP server config.
func ConfigureSparseCheckout(repoPath string) error {
	cmd := exec.Command("git", "-C", repoPath, "config", "core.sparseCheckout", "true")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("enabling sparse checkout: %s", strings.TrimSpace(stderr.String()))
	}

	cmd = exec.Command("git", "-C", repoPath, "rev-parse", "--git-dir")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr.Reset()
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("getting git dir: %s", strings.TrimSpace(stderr.String()))
	}
	gitDir := strings.TrimSpace(stdout.String())
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(repoPath, gitDir)
	}

	infoDir := filepath.Join(gitDir, "info")
	if err := os.MkdirAll(infoDir, 0755); err != nil {
		return fmt.Errorf("creating info dir: %w", err)
	}
	sparseFile := filepath.Join(infoDir, "sparse-checkout")
	patterns := "/*\n!/.claude/\n!/CLAUDE.md\n!/CLAUDE.local.md\n"
	if err := os.WriteFile(sparseFile, []byte(patterns), 0644); err != nil {
		return fmt.Errorf("writing sparse-checkout: %w", err)
	}

	if err := exec.Command("git", "-C", repoPath, "rev-parse", "--verify", "HEAD").Run(); err != nil {
		return nil // empty repo, nothing to reapply yet
	}
	cmd = exec.Command("git", "-C", repoPath, "read-tree", "-mu", "HEAD")
	stderr.Reset()
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("applying sparse checkout: %s", strings.TrimSpace(stderr.String()))
	}
	return nil
}
