package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/domain/plan"
	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/logger"
	"github.com/oshokin/serve-bootstrap/internal/service/common"
)

// Provider installs one browser engine.
type Provider interface {
	// Name is the provider key used in configuration.
	Name() string
	// Step describes what Install does, for plans and dry runs.
	Step(engine string) plan.Step
	// Install makes engine available. Installing an engine that is
	// already present must be a no-op.
	Install(ctx context.Context, engine string) error
}

// Options are inputs of the browser engine provisioning step.
type Options struct {
	// Config supplies the provider, tool, engine and workdir.
	Config *config.Config
	// Runner executes the command provider's tool.
	Runner common.Runner
}

var (
	errOptionsIncomplete = errors.New("browser options are incomplete")
	// ErrUnknownProvider is returned for a provider name no implementation has.
	ErrUnknownProvider = errors.New("unknown browser provider")
)

// NewProvider returns the provider configured in cfg.
//
//nolint:ireturn // Callers choose behavior by configuration.
func NewProvider(cfg *config.Config, runner common.Runner) (Provider, error) {
	switch cfg.Browser.Provider {
	case config.ProviderCommand:
		return &CommandProvider{
			Tool:   cfg.Browser.Tool,
			Dir:    cfg.Workdir,
			Runner: runner,
		}, nil
	case config.ProviderRod:
		return NewRodProvider(cfg.Browser.Dir), nil
	default:
		err := fmt.Errorf("%q: %w", cfg.Browser.Provider, ErrUnknownProvider)
		return nil, errext.WithExitCode(err, errext.InvalidConfig)
	}
}

// Step returns the browser step of the plan for cfg.
func Step(cfg *config.Config) (plan.Step, error) {
	provider, err := NewProvider(cfg, nil)
	if err != nil {
		return plan.Step{}, err
	}

	return provider.Step(cfg.Browser.Engine), nil
}

// Run installs the configured engine. Success is judged only by the
// provider: for the command provider that is the tool's exit code.
func Run(ctx context.Context, opts *Options) error {
	if opts == nil || opts.Config == nil || opts.Runner == nil {
		return errOptionsIncomplete
	}

	ctx = logger.WithName(ctx, plan.StepBrowser)

	provider, err := NewProvider(opts.Config, opts.Runner)
	if err != nil {
		return err
	}

	engine := opts.Config.Browser.Engine

	logger.InfoKV(ctx, "Installing browser engine", "engine", engine, "provider", provider.Name())

	if err = provider.Install(ctx, engine); err != nil {
		return fmt.Errorf("install browser engine %s: %w", engine, err)
	}

	logger.InfoKV(ctx, "Browser engine is installed", "engine", engine)

	return nil
}

// CommandProvider delegates the installation to a browser automation tool,
// as in `playwright install chromium`.
type CommandProvider struct {
	// Tool is the installer executable.
	Tool string
	// Dir is the working directory of the tool.
	Dir string
	// Runner executes the tool.
	Runner common.Runner
}

// Name implements Provider.
func (p *CommandProvider) Name() string {
	return config.ProviderCommand
}

// Step implements Provider.
func (p *CommandProvider) Step(engine string) plan.Step {
	return plan.Step{
		Name:     plan.StepBrowser,
		Commands: []plan.Command{p.command(engine)},
	}
}

// Install implements Provider.
func (p *CommandProvider) Install(ctx context.Context, engine string) error {
	if p.Runner == nil {
		return errOptionsIncomplete
	}

	return p.Runner.Run(ctx, p.command(engine))
}

func (p *CommandProvider) command(engine string) plan.Command {
	return plan.Command{
		Name: p.Tool,
		Args: []string{"install", engine},
		Dir:  p.Dir,
	}
}
