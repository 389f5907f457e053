package provision

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/domain/plan"
	"github.com/oshokin/serve-bootstrap/internal/logger"
	"github.com/oshokin/serve-bootstrap/internal/service/common"
)

// Options are inputs of the dependency provisioning step.
type Options struct {
	// Config supplies the installer, the manifest and the workdir.
	Config *config.Config
	// Runner executes the installer.
	Runner common.Runner
}

var errOptionsIncomplete = errors.New("provision options are incomplete")

// Step returns the installer invocations for cfg: an optional self-upgrade
// of the installer package, then the install of every package in the
// manifest. The executable may be any path; the upgraded package is
// deps.installer_package.
func Step(cfg *config.Config) plan.Step {
	installer := cfg.Deps.Installer
	commands := make([]plan.Command, 0, 2)

	if cfg.Deps.ShouldUpgradeInstaller() {
		pkg := cfg.Deps.InstallerPackage
		if pkg == "" {
			pkg = config.DefaultInstallerPackage
		}

		commands = append(commands, plan.Command{
			Name: installer,
			Args: []string{"install", "--upgrade", pkg},
			Dir:  cfg.Workdir,
		})
	}

	commands = append(commands, plan.Command{
		Name: installer,
		Args: []string{"install", "-r", cfg.Deps.Manifest},
		Dir:  cfg.Workdir,
	})

	return plan.Step{
		Name:     plan.StepDeps,
		Commands: commands,
	}
}

// Run upgrades the installer and installs the manifest. The first failing
// invocation aborts the step with the installer's exit code; nothing is
// retried. Already-satisfied requirements are the installer's no-op.
func Run(ctx context.Context, opts *Options) error {
	if opts == nil || opts.Config == nil || opts.Runner == nil {
		return errOptionsIncomplete
	}

	ctx = logger.WithName(ctx, plan.StepDeps)
	cfg := opts.Config

	// The installer reports an unreadable manifest itself, with its own exit code.
	manifest := cfg.ResolvePath(cfg.Deps.Manifest)
	if _, err := os.Stat(manifest); err != nil {
		logger.WarnKV(ctx, "Dependency manifest is not accessible, the installer will decide",
			"manifest", manifest, "error", err)
	}

	step := Step(cfg)
	for _, cmd := range step.Commands {
		logger.InfoKV(ctx, "Running installer", "command", cmd.String())

		if err := opts.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("install dependencies: %w", err)
		}
	}

	logger.InfoKV(ctx, "Dependencies are installed", "manifest", cfg.Deps.Manifest)

	return nil
}
