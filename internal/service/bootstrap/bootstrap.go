package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/domain/plan"
	"github.com/oshokin/serve-bootstrap/internal/domain/run"
	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/logger"
	recordrepo "github.com/oshokin/serve-bootstrap/internal/repository/record"
	"github.com/oshokin/serve-bootstrap/internal/service/browser"
	"github.com/oshokin/serve-bootstrap/internal/service/common"
	"github.com/oshokin/serve-bootstrap/internal/service/launch"
	"github.com/oshokin/serve-bootstrap/internal/service/lock"
	"github.com/oshokin/serve-bootstrap/internal/service/provision"
	"github.com/oshokin/serve-bootstrap/internal/version"
)

// Overrides are command line values that win over file and environment.
type Overrides struct {
	// Workdir replaces config workdir.
	Workdir string
	// Manifest replaces deps.manifest.
	Manifest string
	// BrowserProvider replaces browser.provider.
	BrowserProvider string
	// BrowserEngine replaces browser.engine.
	BrowserEngine string
	// PortEnv replaces server.port_env.
	PortEnv string
	// Mode replaces server.mode.
	Mode string
}

// Options are inputs of a bootstrap run.
type Options struct {
	// ConfigPath is the YAML file; empty means the optional default file.
	ConfigPath string
	// Overrides are applied after the file and the environment.
	Overrides Overrides
	// SkipDeps skips the dependency provisioning step.
	SkipDeps bool
	// SkipBrowser skips the browser engine provisioning step.
	SkipBrowser bool
	// DryRun logs the plan and runs nothing.
	DryRun bool
	// LookupEnv resolves environment variables; os.LookupEnv when nil.
	LookupEnv config.LookupFunc
	// Runner executes provisioning tools; an ExecRunner on the process streams when nil.
	Runner common.Runner
	// Launch performs the final hand-off; launch.Run when nil.
	Launch func(ctx context.Context, opts *launch.Options) error
}

// LoadConfig resolves the configuration for opts. Any failure is reported
// with the invalid configuration exit code.
func LoadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.LookupEnv)
	if err != nil {
		return nil, errext.WithExitCodeIfNone(fmt.Errorf("load configuration: %w", err), errext.InvalidConfig)
	}

	o := opts.Overrides
	overrideString(&cfg.Workdir, o.Workdir)
	overrideString(&cfg.Deps.Manifest, o.Manifest)
	overrideString(&cfg.Browser.Provider, o.BrowserProvider)
	overrideString(&cfg.Browser.Engine, o.BrowserEngine)
	overrideString(&cfg.Server.PortEnv, o.PortEnv)
	overrideString(&cfg.Server.Mode, o.Mode)

	if err = config.Validate(cfg); err != nil {
		return nil, errext.WithExitCodeIfNone(fmt.Errorf("validate configuration: %w", err), errext.InvalidConfig)
	}

	return cfg, nil
}

// BuildPlan returns the ordered steps and the launch for cfg.
func BuildPlan(cfg *config.Config, lookup config.LookupFunc, skipDeps, skipBrowser bool) (*plan.Plan, error) {
	deps := provision.Step(cfg)
	deps.Skipped = skipDeps

	browserStep, err := browser.Step(cfg)
	if err != nil {
		return nil, err
	}

	browserStep.Skipped = skipBrowser

	return &plan.Plan{
		Steps:  []plan.Step{deps, browserStep},
		Launch: launch.Build(cfg, lookup),
	}, nil
}

// Run executes the bootstrap: dependency provisioning, browser engine
// provisioning, then the server launch. The first failing step stops the
// run and its error, carrying the failing tool's exit code, is returned;
// nothing is retried or rolled back. In replace mode a successful run
// never returns because the process becomes the server.
func Run(ctx context.Context, opts *Options) error {
	runID := uuid.NewString()

	ctx = logger.WithName(ctx, "bootstrap")
	ctx = logger.WithKV(ctx, "run_id", runID)

	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect actor", "error", err)
	}

	logger.InfoKV(ctx, "Bootstrap started",
		"version", version.Short(),
		"actor", actor.String(),
		"workdir", cfg.Workdir,
	)

	if opts.DryRun {
		return dryRun(ctx, cfg, opts)
	}

	runner := opts.Runner
	if runner == nil {
		runner = common.NewExecRunner()
	}

	record := &run.Record{
		RunID:   runID,
		Actor:   actor.String(),
		Version: version.Short(),
	}

	if err = provisionAll(ctx, cfg, runner, opts, record); err != nil {
		return err
	}

	launchFn := opts.Launch
	if launchFn == nil {
		launchFn = launch.Run
	}

	return launchFn(ctx, &launch.Options{
		Config:    cfg,
		LookupEnv: opts.LookupEnv,
	})
}

// provisionAll runs the provisioning steps under the workdir lock and
// records their outcome. The lock is released before the launch so a
// restarted server can provision again.
func provisionAll(ctx context.Context, cfg *config.Config, runner common.Runner, opts *Options, record *run.Record) error {
	if opts.SkipDeps && opts.SkipBrowser {
		logger.Info(ctx, "All provisioning steps are skipped")
		return nil
	}

	held, err := lock.NewLocker(cfg.Lock.StaleAfter).Acquire(ctx, cfg.ResolvePath(cfg.Lock.File))

	switch {
	case errors.Is(err, lock.ErrUnavailable):
		// Provisioning does not depend on the lock; only concurrent runs do.
		logger.WarnKV(ctx, "Provisioning without a lock", "error", err)
	case err != nil:
		return err
	default:
		logger.DebugKV(ctx, "Provisioning lock acquired", "path", held.Path())
	}

	defer func() {
		if releaseErr := held.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release provisioning lock", "error", releaseErr)
		}
	}()

	steps := []struct {
		name string
		skip bool
		run  func() error
	}{
		{
			name: plan.StepDeps,
			skip: opts.SkipDeps,
			run: func() error {
				return provision.Run(ctx, &provision.Options{Config: cfg, Runner: runner})
			},
		},
		{
			name: plan.StepBrowser,
			skip: opts.SkipBrowser,
			run: func() error {
				return browser.Run(ctx, &browser.Options{Config: cfg, Runner: runner})
			},
		},
	}

	record.StartedAt = time.Now().UTC()

	for _, step := range steps {
		if step.skip {
			logger.InfoKV(ctx, "Step skipped", "step", step.name)
			record.Steps = append(record.Steps, run.StepResult{Name: step.name, Status: run.StatusSkipped})

			continue
		}

		started := time.Now()
		err = step.run()

		result := run.StepResult{
			Name:     step.name,
			Status:   run.StatusSucceeded,
			Duration: time.Since(started).Round(time.Millisecond),
		}

		if err != nil {
			result.Status = run.StatusFailed
			result.ExitCode = errext.ExitCode(err)
			result.Error = err.Error()
		}

		record.Steps = append(record.Steps, result)

		if err != nil {
			break
		}
	}

	record.FinishedAt = time.Now().UTC()
	record.ExitCode = errext.ExitCode(err)

	saveRecord(ctx, cfg, record)

	return err
}

// saveRecord keeps the run record; a failure to write it never fails the run.
func saveRecord(ctx context.Context, cfg *config.Config, record *run.Record) {
	repo := recordrepo.NewFileRepository(cfg.ResolvePath(cfg.Record.File))

	if err := repo.Save(ctx, record); err != nil {
		logger.WarnKV(ctx, "Unable to save run record", "path", repo.Path(), "error", err)
		return
	}

	logger.DebugKV(ctx, "Run record saved", "path", repo.Path())
}

// dryRun logs what a real run would do.
func dryRun(ctx context.Context, cfg *config.Config, opts *Options) error {
	p, err := BuildPlan(cfg, opts.LookupEnv, opts.SkipDeps, opts.SkipBrowser)
	if err != nil {
		return err
	}

	for _, step := range p.Steps {
		if step.Skipped {
			logger.InfoKV(ctx, "Dry run: step skipped", "step", step.Name)
			continue
		}

		if step.Note != "" {
			logger.InfoKV(ctx, "Dry run: would "+step.Note, "step", step.Name)
		}

		for _, cmd := range step.Commands {
			logger.InfoKV(ctx, "Dry run: would run", "step", step.Name, "command", cmd.String())
		}
	}

	logger.InfoKV(ctx, "Dry run: would launch",
		"mode", p.Launch.Mode,
		"command", p.Launch.Command.String(),
		"port_set", p.Launch.PortSet,
	)

	return nil
}

func overrideString(field *string, value string) {
	if value != "" {
		*field = value
	}
}
