package codingassistant

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI script assumes a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fake-claude")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestRunSucceedsAndCapturesStdout(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\ncat >/dev/null\necho ok-from-assistant\n")
	a := New(script)

	res, err := a.Run(context.Background(), "do the thing", t.TempDir(), "", false, 5*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success || res.Output != "ok-from-assistant\n" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunNonZeroExitReportsFailureNotError(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\ncat >/dev/null\necho boom 1>&2\nexit 1\n")
	a := New(script)

	res, err := a.Run(context.Background(), "do the thing", t.TempDir(), "", false, 5*time.Second)
	if err != nil {
		t.Fatalf("expected no Go error for a plain exit failure, got %v", err)
	}
	if res.Success {
		t.Fatal("expected Success=false")
	}
	if res.Error == "" {
		t.Fatal("expected stderr captured in Error")
	}
}

func TestRunMissingBinaryIsToolUnavailable(t *testing.T) {
	a := New(filepath.Join(t.TempDir(), "definitely-does-not-exist"))

	_, err := a.Run(context.Background(), "prompt", t.TempDir(), "", false, 5*time.Second)
	if apperr.ClassifyOf(err) != apperr.KindToolUnavailable {
		t.Fatalf("expected KindToolUnavailable, got %v", err)
	}
}

func TestRunPassesModelFlagWhenSet(t *testing.T) {
	script := writeScript(t, "#!/bin/sh\ncat >/dev/null\necho \"$@\"\n")
	a := New(script)

	res, err := a.Run(context.Background(), "prompt", t.TempDir(), "opus", true, 5*time.Second)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := "--print --dangerously-skip-permissions --model opus\n"
	if res.Output != want {
		t.Fatalf("args = %q, want %q", res.Output, want)
	}
}
