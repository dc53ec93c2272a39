package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/alessio/shellescape"
)

// Command is an explicit engine invocation: binary, ordered arguments, and a
// timeout. Inputs and outputs are always absolute paths in Args.
type Command struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

// String renders the command as a copy-pasteable shell line.
func (c Command) String() string {
	return shellescape.QuoteCommand(append([]string{c.Binary}, c.Args...))
}

// Output holds what the engine wrote while running.
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Diagnostics returns the last lines of stderr for error reports.
func (o Output) Diagnostics() string {
	return tail(o.Stderr, diagnosticLines)
}

// ExitError reports a non-zero engine exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("engine exited with status %d", e.Code)
}

// Runner executes engine commands synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Output, error)
}

// ExecRunner runs commands as subprocesses.
type ExecRunner struct{}

// Run executes cmd, capturing stdout and stderr. A non-zero exit returns the
// captured output together with an *ExitError; an expired timeout returns an
// error wrapping context.DeadlineExceeded.
func (ExecRunner) Run(ctx context.Context, cmd Command) (Output, error) {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(ctx, cmd.Binary, cmd.Args...)
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	proc.WaitDelay = 5 * time.Second

	err := proc.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if proc.ProcessState != nil {
		out.ExitCode = proc.ProcessState.ExitCode()
	}
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%s: %w", cmd.Binary, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExitError{Code: exitErr.ExitCode()}
	}
	return out, fmt.Errorf("start %s: %w", cmd.Binary, err)
}

const diagnosticLines = 20

func tail(data []byte, lines int) string {
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return ""
	}
	parts := strings.Split(text, "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, "\n")
}
