//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"time"

	"github.com/oshokin/serve-bootstrap/internal/domain/plan"
	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/logger"
)

// DefaultGracePeriod is how long an interrupted tool may take to exit
// before it is killed.
const DefaultGracePeriod = 10 * time.Second

// Runner runs external tools to completion.
type Runner interface {
	Run(ctx context.Context, cmd plan.Command) error
}

// ToolError reports a failed tool invocation and carries its exit code.
type ToolError struct {
	// Command is the rendered invocation.
	Command string
	// Code is the exit code the bootstrap propagates.
	Code int
	// Err is the underlying os/exec error.
	Err error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExitCode implements errext.HasExitCode.
func (e *ToolError) ExitCode() int {
	return e.Code
}

// ExecRunner runs tools with os/exec, wiring their streams straight to its own.
type ExecRunner struct {
	// Stdin, Stdout and Stderr default to the process streams when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// GracePeriod bounds the wait after an interrupt; DefaultGracePeriod when zero.
	GracePeriod time.Duration
}

// NewExecRunner returns a runner bound to the process streams.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		GracePeriod: DefaultGracePeriod,
	}
}

// Run starts cmd and blocks until it exits. There is no timeout: the tool
// runs until it finishes or ctx is canceled by an operator interrupt, in
// which case it receives a termination signal first and is killed after
// the grace period.
func (r *ExecRunner) Run(ctx context.Context, cmd plan.Command) error {
	if cmd.Name == "" {
		return errext.WithExitCode(errors.New("command name is empty"), errext.InvalidConfig)
	}

	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Env = append(os.Environ(), cmd.Env...)
	execCmd.Stdin = r.Stdin
	execCmd.Stdout = orDefault(r.Stdout, os.Stdout)
	execCmd.Stderr = orDefault(r.Stderr, os.Stderr)
	execCmd.Cancel = func() error {
		return interruptProcess(execCmd.Process)
	}

	execCmd.WaitDelay = r.GracePeriod
	if execCmd.WaitDelay <= 0 {
		execCmd.WaitDelay = DefaultGracePeriod
	}

	logger.DebugKV(ctx, "Running tool", "command", cmd.String(), "dir", cmd.Dir)

	startedAt := time.Now()
	err := execCmd.Run()

	logger.DebugKV(ctx, "Tool exited", "command", cmd.Name, "duration", time.Since(startedAt))

	return AsToolError(cmd, err)
}

// AsToolError converts an os/exec error into a *ToolError with the exit
// code a shell would report: the tool's own code, 128+signal when it was
// killed, 127 when it was not found and 126 when it could not be executed.
func AsToolError(cmd plan.Command, err error) error {
	if err == nil {
		return nil
	}

	toolErr := &ToolError{
		Command: cmd.String(),
		Code:    errext.Failure,
		Err:     err,
	}

	var exitErr *exec.ExitError

	switch {
	case errors.As(err, &exitErr):
		if sig, ok := signalNumber(exitErr.ProcessState); ok {
			toolErr.Code = errext.SignalBase + sig
		} else if code := exitErr.ExitCode(); code > 0 {
			toolErr.Code = code
		}
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		toolErr.Code = errext.NotFound
	case errors.Is(err, fs.ErrPermission):
		toolErr.Code = errext.NotExecutable
	}

	return toolErr
}

func orDefault(w io.Writer, fallback io.Writer) io.Writer {
	if w == nil {
		return fallback
	}

	return w
}
