package activities

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gastown/gtr/internal/mail"
	"github.com/gastown/gtr/internal/plugin"
)

func TestSanitizeProjectPathFlattensSeparators(t *testing.T) {
	got := sanitizeProjectPath("/home/user/rigs/alpha")
	want := "home-user-rigs-alpha"
	if got != want {
		t.Errorf("sanitizeProjectPath() = %q, want %q", got, want)
	}
}

func TestDiscoverSessionReturnsEmptyWhenProjectDirMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	a := &Activities{}
	got, err := a.DiscoverSession("/some/work/dir")(context.Background())
	if err != nil {
		t.Fatalf("DiscoverSession: %v", err)
	}
	if got != "" {
		t.Errorf("DiscoverSession() = %q, want empty", got)
	}
}

func TestDiscoverSessionReturnsNewestTranscript(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	a := &Activities{}
	workDir := "/rigs/alpha"
	projDir := filepath.Join(home, ".claude", "projects", sanitizeProjectPath(workDir))
	if err := os.MkdirAll(projDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	older := filepath.Join(projDir, "session-old.jsonl")
	newer := filepath.Join(projDir, "session-new.jsonl")
	if err := os.WriteFile(older, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	oldTime := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, oldTime, oldTime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	if err := os.WriteFile(newer, []byte("{}"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := a.DiscoverSession(workDir)(context.Background())
	if err != nil {
		t.Fatalf("DiscoverSession: %v", err)
	}
	if got != "session-new" {
		t.Errorf("DiscoverSession() = %q, want session-new", got)
	}
}

func TestRunPluginSucceedsAndCapturesOutput(t *testing.T) {
	a := &Activities{}
	result, err := a.RunPlugin(t.TempDir(), plugin.Def{Command: "echo", Args: []string{"hi"}})(context.Background())
	if err != nil {
		t.Fatalf("RunPlugin: %v", err)
	}
	res := result.(PluginResult)
	if !res.Success {
		t.Error("Success = false for echo")
	}
	if !strings.Contains(res.Output, "hi") {
		t.Errorf("Output = %q, want it to contain hi", res.Output)
	}
}

func TestRunPluginReportsNonZeroExit(t *testing.T) {
	a := &Activities{}
	_, err := a.RunPlugin(t.TempDir(), plugin.Def{Command: "false"})(context.Background())
	if err == nil {
		t.Fatal("expected an error from a command that exits non-zero")
	}
}

func TestGitOpCheckoutAgainstRealRepo(t *testing.T) {
	dir := t.TempDir()
	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), "GIT_AUTHOR_NAME=t", "GIT_AUTHOR_EMAIL=t@example.com",
			"GIT_COMMITTER_NAME=t", "GIT_COMMITTER_EMAIL=t@example.com")
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	run("init", "-b", "main")
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	run("add", "a.txt")
	run("commit", "-m", "initial")
	run("branch", "feature")

	a := &Activities{}
	res, err := a.GitOp(GitOp{Kind: "checkout", RepoPath: dir, Branch: "feature"})(context.Background())
	if err != nil {
		t.Fatalf("GitOp checkout: %v", err)
	}
	result := res.(GitResult)
	if !result.Success {
		t.Error("checkout result.Success = false")
	}
}

func TestGitOpUnknownKindIsNonRetryable(t *testing.T) {
	a := &Activities{}
	_, err := a.GitOp(GitOp{Kind: "bogus"})(context.Background())
	if err == nil {
		t.Fatal("expected an error for an unknown git op kind")
	}
}

func TestNotifySendsThroughMailRouter(t *testing.T) {
	t.Setenv("GTR_ROOT", t.TempDir())
	a := &Activities{Mail: mail.NewRouter()}
	_, err := a.Notify("mayor", "witness", "hello", "body", mail.PriorityNormal, mail.ChannelQueue)(context.Background())
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	msgs, err := mail.Inbox("witness")
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Subject != "hello" {
		t.Errorf("Inbox(witness) = %+v, want one message with subject hello", msgs)
	}
}
