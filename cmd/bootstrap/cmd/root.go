package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/logger"
	"github.com/oshokin/serve-bootstrap/internal/service/bootstrap"
	"github.com/oshokin/serve-bootstrap/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel is the minimum level of bootstrap log messages.
	logLevel string
	// overrides collects per-run replacements of configuration values.
	overrides bootstrap.Overrides
	// skipDeps disables the dependency step.
	skipDeps bool
	// skipBrowser disables the browser engine step.
	skipBrowser bool
	// dryRun logs the plan instead of running it.
	dryRun bool

	// rootCmd represents the base command that provisions and launches the server.
	rootCmd = &cobra.Command{
		Use:   "bootstrap",
		Short: "Provision the Python environment and hand the process to the ASGI server.",
		Long: `Prepares the runtime of a web service and starts it, in a fixed order:

  1. upgrade the package installer and install the dependency manifest;
  2. install the headless browser engine used by the application;
  3. replace this process with the ASGI server bound to 0.0.0.0 on $PORT.

The first failing step stops the run and its exit code becomes the exit code
of bootstrap. Settings come from bootstrap.yaml (optional), BOOTSTRAP_*
environment variables and flags, in increasing priority.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return errext.WithExitCode(fmt.Errorf("unknown log level %q", logLevel), errext.InvalidConfig)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// The signal context only covers provisioning; in supervise mode
			// the launcher forwards signals to the server itself.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return bootstrap.Run(ctx, newOptions())
		},
	}
)

// Execute runs the bootstrap CLI and exits with the code carried by the error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		ctx := context.Background()

		if hint := errext.Hint(err); hint != "" {
			logger.ErrorKV(ctx, "Bootstrap failed", "error", err, "hint", hint)
		} else {
			logger.ErrorKV(ctx, "Bootstrap failed", "error", err)
		}

		logger.Sync()
		os.Exit(errext.ExitCode(err))
	}
}

func newOptions() *bootstrap.Options {
	return &bootstrap.Options{
		ConfigPath:  configPath,
		Overrides:   overrides,
		SkipDeps:    skipDeps,
		SkipBrowser: skipBrowser,
		DryRun:      dryRun,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errext.WithExitCode(err, errext.InvalidConfig)
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to configuration file (default bootstrap.yaml, optional)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&overrides.Workdir, "workdir", "", "directory the tools and the server run in")
	flags.StringVar(&overrides.Manifest, "manifest", "", "dependency manifest (default requirements.txt)")
	flags.StringVar(&overrides.BrowserProvider, "browser", "", "browser provider: command or rod")
	flags.StringVar(&overrides.BrowserEngine, "engine", "", "browser engine to install (default chromium)")
	flags.StringVar(&overrides.PortEnv, "port-env", "", "environment variable holding the listen port (default PORT)")
	flags.StringVar(&overrides.Mode, "mode", "", "launch mode: replace or supervise")

	flags.BoolVar(&skipDeps, "skip-deps", false, "skip dependency installation")
	flags.BoolVar(&skipBrowser, "skip-browser", false, "skip browser engine installation")

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the planned commands without running them")

	rootCmd.AddCommand(planCmd, probeCmd, statusCmd)
}
