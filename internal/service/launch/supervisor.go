package launch

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/oshokin/serve-bootstrap/internal/domain/plan"
	"github.com/oshokin/serve-bootstrap/internal/logger"
	"github.com/oshokin/serve-bootstrap/internal/service/common"
)

// Supervisor runs the server as a child process and stays transparent:
// every received signal is forwarded, and the child's exit status becomes
// the result. On unix the child gets its own process group, so a signal
// sent to the terminal's foreground group is delivered to it only through
// forwarding.
type Supervisor struct {
	// Stdin, Stdout and Stderr default to the process streams when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run starts cmd, forwards signals arriving on signals until the child
// exits, and returns nil on a zero exit or a *common.ToolError carrying
// the child's exit code (128+signal if it was killed).
//
// ctx only scopes logging. Cancellation is expressed by the forwarded
// signals, so the child decides how to shut down.
func (s *Supervisor) Run(ctx context.Context, cmd plan.Command, signals <-chan os.Signal) error {
	child := exec.Command(cmd.Name, cmd.Args...) //nolint:noctx // Lifetime is driven by forwarded signals.
	child.Dir = cmd.Dir
	child.SysProcAttr = childAttributes()
	child.Env = append(os.Environ(), cmd.Env...)
	child.Stdin, child.Stdout, child.Stderr = os.Stdin, os.Stdout, os.Stderr

	if s.Stdin != nil {
		child.Stdin = s.Stdin
	}

	if s.Stdout != nil {
		child.Stdout = s.Stdout
	}

	if s.Stderr != nil {
		child.Stderr = s.Stderr
	}

	if err := child.Start(); err != nil {
		return common.AsToolError(cmd, err)
	}

	logger.InfoKV(ctx, "Server started", "pid", child.Process.Pid)

	done := make(chan error, 1)

	go func() {
		done <- child.Wait()
	}()

	for {
		select {
		case sig := <-signals:
			logger.InfoKV(ctx, "Forwarding signal to server", "signal", sig.String())

			if err := child.Process.Signal(sig); err != nil {
				logger.WarnKV(ctx, "Unable to forward signal", "signal", sig.String(), "error", err)
			}
		case err := <-done:
			return common.AsToolError(cmd, err)
		}
	}
}
