package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/domain/plan"
	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/logger"
)

// ErrUnsupportedEngine is returned when the rod provider is asked for anything but Chromium.
var ErrUnsupportedEngine = errors.New("engine not supported by the rod provider")

// RodProvider installs Chromium in-process with go-rod's downloader.
// A Chromium found on the system is used as is.
type RodProvider struct {
	// Dir is the download root; empty means go-rod's default cache.
	Dir string

	// lookPath finds a system browser.
	lookPath func() (string, bool)
	// fetch downloads the pinned revision unless it is already present.
	fetch func(ctx context.Context, dir string) (string, error)
}

// NewRodProvider returns a provider downloading into dir.
func NewRodProvider(dir string) *RodProvider {
	return &RodProvider{
		Dir:      dir,
		lookPath: launcher.LookPath,
		fetch:    fetchWithRod,
	}
}

// Name implements Provider.
func (p *RodProvider) Name() string {
	return config.ProviderRod
}

// Step implements Provider.
func (p *RodProvider) Step(engine string) plan.Step {
	dir := p.Dir
	if dir == "" {
		dir = "go-rod default cache"
	}

	return plan.Step{
		Name: plan.StepBrowser,
		Note: fmt.Sprintf("locate or download %s into %s", engine, dir),
	}
}

// Install implements Provider.
func (p *RodProvider) Install(ctx context.Context, engine string) error {
	if engine != config.DefaultBrowserEngine {
		return errext.WithExitCode(fmt.Errorf("%q: %w", engine, ErrUnsupportedEngine), errext.InvalidConfig)
	}

	if p.Dir == "" {
		if bin, found := p.lookPath(); found {
			logger.InfoKV(ctx, "Using system browser", "path", bin)
			return nil
		}
	}

	bin, err := p.fetch(ctx, p.Dir)
	if err != nil {
		return fmt.Errorf("download %s: %w", engine, err)
	}

	logger.InfoKV(ctx, "Browser binary is ready", "path", bin)

	return nil
}

// fetchWithRod validates the cached revision in dir and downloads it when
// it is missing or broken.
func fetchWithRod(ctx context.Context, dir string) (string, error) {
	b := launcher.NewBrowser()
	b.Context = ctx
	b.Logger = rodLogger{ctx: ctx}

	if dir != "" {
		b.RootDir = dir
	}

	return b.Get()
}

// rodLogger routes go-rod download progress into the context logger.
type rodLogger struct {
	ctx context.Context //nolint:containedctx // go-rod's logger has no context parameter.
}

func (l rodLogger) Println(args ...any) {
	logger.Debug(l.ctx, args...)
}
