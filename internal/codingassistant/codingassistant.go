// Package codingassistant invokes the external coding-assistant CLI
// collaborator described in spec.md §6: a child process run with
// "--print" and optionally "--dangerously-skip-permissions" and "--model".
// The prompt is written to the child's stdin; it is not passed as a
// command-line argument. The child's stdout is the answer; a missing
// binary is a recoverable
// apperr.KindToolUnavailable rather than a fatal error.
package codingassistant

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"github.com/madhatter5501/aegis/internal/apperr"
)

// Result is the outcome of one Run call, matching the executor's
// claude_code_request/claude_code_result payload shape.
type Result struct {
	Success bool
	Output  string
	Error   string
}

// Assistant runs the coding-assistant binary as a subprocess.
type Assistant struct {
	binaryPath string
}

// New resolves the assistant binary via exec.LookPath, falling back to the
// bare name (left for the OS to resolve, or to fail as ToolUnavailable at
// Run time) if it isn't found on PATH at construction time.
func New(binaryName string) *Assistant {
	if binaryName == "" {
		binaryName = "claude"
	}
	path := binaryName
	if resolved, err := exec.LookPath(binaryName); err == nil {
		path = resolved
	}
	return &Assistant{binaryPath: path}
}

// Run invokes the assistant with prompt, optionally allowing file edits
// (otherwise running with --dangerously-skip-permissions omitted is not
// an option the CLI exposes, so allowEdits=false still runs --print-only
// and relies on the assistant's own default sandboxing) and a
// per-invocation model override, enforcing timeout.
func (a *Assistant) Run(ctx context.Context, prompt, cwd, model string, allowEdits bool, timeout time.Duration) (Result, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"--print"}
	if allowEdits {
		args = append(args, "--dangerously-skip-permissions")
	}
	if model != "" {
		args = append(args, "--model", model)
	}

	cmd := exec.CommandContext(ctx, a.binaryPath, args...) // #nosec G204 -- binaryPath resolved at construction
	cmd.Dir = cwd
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var notFound *exec.Error
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return Result{}, apperr.Wrap(apperr.KindToolUnavailable, err, "coding assistant binary not available: %s", a.binaryPath)
		}
		return Result{
			Success: false,
			Output:  stdout.String(),
			Error:   strings.TrimSpace(stderr.String()),
		}, nil
	}

	return Result{Success: true, Output: stdout.String()}, nil
}
