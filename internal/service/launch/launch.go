package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/domain/plan"
	"github.com/oshokin/serve-bootstrap/internal/logger"
	"github.com/oshokin/serve-bootstrap/internal/service/common"
)

// Options are inputs of the server launch step.
type Options struct {
	// Config supplies the server command, app, host, port variable and mode.
	Config *config.Config
	// LookupEnv resolves the port variable; os.LookupEnv when nil.
	LookupEnv config.LookupFunc
	// Stdin, Stdout and Stderr are used by the supervise mode; process streams when nil.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

var (
	errOptionsIncomplete = errors.New("launch options are incomplete")
	// errReplaceUnsupported is returned by replaceProcess where exec(2) does not exist.
	errReplaceUnsupported = errors.New("process replacement is not supported on this platform")
)

// Build resolves the server invocation:
//
//	<command> <app> --host <host> --port <value of port_env> [extra args...]
//
// The port value is passed through verbatim with no default and no
// validation; an unset variable becomes an empty argument, leaving the
// server to reject it. Extra arguments get $VAR expansion.
func Build(cfg *config.Config, lookup config.LookupFunc) plan.Launch {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	port, portSet := lookup(cfg.Server.PortEnv)

	args := make([]string, 0, 5+len(cfg.Server.ExtraArgs))
	args = append(args, cfg.Server.App, "--host", cfg.Server.Host, "--port", port)

	for _, arg := range cfg.Server.ExtraArgs {
		args = append(args, os.Expand(arg, func(key string) string {
			value, _ := lookup(key)
			return value
		}))
	}

	return plan.Launch{
		Command: plan.Command{
			Name: cfg.Server.Command,
			Args: args,
			Dir:  cfg.Workdir,
		},
		Mode:    cfg.Server.Mode,
		PortEnv: cfg.Server.PortEnv,
		PortSet: portSet,
	}
}

// Run hands the process over to the server.
//
// In replace mode the bootstrap's process image becomes the server's, so
// signals and the exit code belong to the server from then on; on success
// Run does not return. In supervise mode, or where exec(2) is unavailable,
// the server runs as a child that receives forwarded signals, and Run
// returns an error carrying its exit code when it exits non-zero.
func Run(ctx context.Context, opts *Options) error {
	if opts == nil || opts.Config == nil {
		return errOptionsIncomplete
	}

	ctx = logger.WithName(ctx, plan.StepLaunch)
	launch := Build(opts.Config, opts.LookupEnv)

	if !launch.PortSet {
		logger.WarnKV(ctx, "Port variable is not set, passing an empty port to the server", "variable", launch.PortEnv)
	}

	if launch.Mode == config.ModeReplace {
		logger.InfoKV(ctx, "Replacing process with server", "command", launch.Command.String())

		err := replace(launch.Command)
		if !errors.Is(err, errReplaceUnsupported) {
			return fmt.Errorf("launch server: %w", err)
		}

		logger.Warn(ctx, "Process replacement is unavailable, supervising the server instead")
	}

	logger.InfoKV(ctx, "Starting server as a child process", "command", launch.Command.String())

	signals := make(chan os.Signal, len(forwardedSignals))
	signal.Notify(signals, forwardedSignals...)

	defer signal.Stop(signals)

	supervisor := &Supervisor{
		Stdin:  opts.Stdin,
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	}

	if err := supervisor.Run(ctx, launch.Command, signals); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}

	logger.Info(ctx, "Server exited")

	return nil
}

// replace resolves the server binary and execs it in place of the bootstrap.
func replace(cmd plan.Command) error {
	if cmd.Dir != "" {
		if err := os.Chdir(cmd.Dir); err != nil {
			return fmt.Errorf("enter workdir: %w", err)
		}
	}

	path, err := exec.LookPath(cmd.Name)
	if err != nil {
		return common.AsToolError(cmd, err)
	}

	// Nothing logged after this point survives a successful exec.
	logger.Sync()

	if err = replaceProcess(path, cmd.Argv(), os.Environ()); err != nil {
		if errors.Is(err, errReplaceUnsupported) {
			return err
		}

		return common.AsToolError(cmd, err)
	}

	return nil
}
