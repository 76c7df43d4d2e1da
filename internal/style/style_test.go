package style

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	return buf.String()
}

func TestPrintSuccessIncludesMessageAndPrefix(t *testing.T) {
	out := captureStdout(t, func() { PrintSuccess("done: %s", "rig-1") })
	if !strings.Contains(out, "done: rig-1") {
		t.Errorf("PrintSuccess output = %q, want it to contain the formatted message", out)
	}
}

func TestPrintWarningIncludesMessage(t *testing.T) {
	out := captureStdout(t, func() { PrintWarning("careful: %d", 3) })
	if !strings.Contains(out, "careful: 3") {
		t.Errorf("PrintWarning output = %q, want it to contain the formatted message", out)
	}
}

func TestPrintErrorIncludesMessage(t *testing.T) {
	out := captureStdout(t, func() { PrintError("broke: %s", "oops") })
	if !strings.Contains(out, "broke: oops") {
		t.Errorf("PrintError output = %q, want it to contain the formatted message", out)
	}
}

func TestRenderMarkdownEmptyInputDoesNotPanic(t *testing.T) {
	out := RenderMarkdown("", 40)
	if out == "" {
		// glamour may render empty markdown as empty or whitespace; either
		// way this must not panic, which is what this test guards.
		return
	}
}

func TestRenderMarkdownProducesOutputForSimpleText(t *testing.T) {
	out := RenderMarkdown("hello world", 40)
	if !strings.Contains(out, "hello world") {
		t.Errorf("RenderMarkdown(%q) = %q, want it to contain the source text", "hello world", out)
	}
}
