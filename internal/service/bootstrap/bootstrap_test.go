package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/domain/plan"
	"github.com/oshokin/serve-bootstrap/internal/domain/run"
	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/repository/record"
	"github.com/oshokin/serve-bootstrap/internal/service/common"
	"github.com/oshokin/serve-bootstrap/internal/service/launch"
)

type fakeRunner struct {
	calls  []string
	failOn string
	code   int
}

func (r *fakeRunner) Run(_ context.Context, cmd plan.Command) error {
	line := strings.Join(cmd.Argv(), " ")
	r.calls = append(r.calls, line)

	if r.failOn != "" && strings.HasPrefix(line, r.failOn) {
		return &common.ToolError{Command: line, Code: r.code, Err: errors.New("tool failed")}
	}

	return nil
}

type fakeLaunch struct {
	called bool
	got    plan.Launch
}

func (l *fakeLaunch) run(_ context.Context, opts *launch.Options) error {
	l.called = true
	l.got = launch.Build(opts.Config, opts.LookupEnv)

	return nil
}

func envMap(values map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// newWorkdir creates a workdir with a manifest and an explicit config file.
func newWorkdir(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("fastapi\n"), 0o600))

	configPath := filepath.Join(dir, "bootstrap.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("workdir: "+dir+"\n"), 0o600))

	return dir, configPath
}

// TestRun_OrderAndLaunch runs every step in order and hands off with the port.
func TestRun_OrderAndLaunch(t *testing.T) {
	t.Parallel()

	dir, configPath := newWorkdir(t)
	runner := new(fakeRunner)
	launcher := new(fakeLaunch)

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(map[string]string{"PORT": "8080"}),
		Runner:     runner,
		Launch:     launcher.run,
	})
	require.NoError(t, err)

	require.Equal(t, []string{
		"pip install --upgrade pip",
		"pip install -r requirements.txt",
		"playwright install chromium",
	}, runner.calls)

	require.True(t, launcher.called)
	require.Equal(t, []string{"uvicorn", "main:app", "--host", "0.0.0.0", "--port", "8080"},
		launcher.got.Command.Argv())
	require.Equal(t, dir, launcher.got.Command.Dir)

	_, statErr := os.Stat(filepath.Join(dir, config.DefaultLockFile))
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// TestRun_FailFast stops at the first failing tool and keeps its exit code.
func TestRun_FailFast(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		failOn    string
		code      int
		wantCalls int
	}{
		{name: "installer upgrade", failOn: "pip install --upgrade", code: 1, wantCalls: 1},
		{name: "manifest install", failOn: "pip install -r", code: 2, wantCalls: 2},
		{name: "browser install", failOn: "playwright", code: 7, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, configPath := newWorkdir(t)
			runner := &fakeRunner{failOn: tt.failOn, code: tt.code}
			launcher := new(fakeLaunch)

			err := Run(context.Background(), &Options{
				ConfigPath: configPath,
				LookupEnv:  envMap(nil),
				Runner:     runner,
				Launch:     launcher.run,
			})
			require.Error(t, err)
			require.Equal(t, tt.code, errext.ExitCode(err))
			require.Len(t, runner.calls, tt.wantCalls)
			require.False(t, launcher.called)
		})
	}
}

// TestRun_RecordsOutcome keeps the step results of a failed run.
func TestRun_RecordsOutcome(t *testing.T) {
	t.Parallel()

	dir, configPath := newWorkdir(t)

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(nil),
		Runner:     &fakeRunner{failOn: "playwright", code: 7},
		Launch:     new(fakeLaunch).run,
	})
	require.Error(t, err)

	got, err := record.NewFileRepository(filepath.Join(dir, config.DefaultRecordFile)).Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, got.RunID)
	require.False(t, got.Succeeded())
	require.Equal(t, 7, got.ExitCode)
	require.Len(t, got.Steps, 2)
	require.Equal(t, run.StatusSucceeded, got.Steps[0].Status)
	require.Equal(t, plan.StepBrowser, got.Steps[1].Name)
	require.Equal(t, run.StatusFailed, got.Steps[1].Status)
	require.Equal(t, 7, got.Steps[1].ExitCode)
}

// TestRun_SkipSteps skips provisioning steps on request.
func TestRun_SkipSteps(t *testing.T) {
	t.Parallel()

	_, configPath := newWorkdir(t)
	runner := new(fakeRunner)
	launcher := new(fakeLaunch)

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(nil),
		SkipDeps:   true,
		Runner:     runner,
		Launch:     launcher.run,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"playwright install chromium"}, runner.calls)
	require.True(t, launcher.called)

	runner = new(fakeRunner)
	err = Run(context.Background(), &Options{
		ConfigPath:  configPath,
		LookupEnv:   envMap(nil),
		SkipDeps:    true,
		SkipBrowser: true,
		Runner:      runner,
		Launch:      launcher.run,
	})
	require.NoError(t, err)
	require.Empty(t, runner.calls)
}

// TestRun_DryRun runs nothing and does not launch.
func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	_, configPath := newWorkdir(t)
	runner := new(fakeRunner)
	launcher := new(fakeLaunch)

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(nil),
		DryRun:     true,
		Runner:     runner,
		Launch:     launcher.run,
	})
	require.NoError(t, err)
	require.Empty(t, runner.calls)
	require.False(t, launcher.called)
}

// TestRun_LockHeld refuses to provision while another run holds the lock.
func TestRun_LockHeld(t *testing.T) {
	t.Parallel()

	dir, configPath := newWorkdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultLockFile), []byte("not-a-pid\n"), 0o600))

	runner := new(fakeRunner)

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(nil),
		Runner:     runner,
		Launch:     new(fakeLaunch).run,
	})
	require.Error(t, err)
	require.Equal(t, errext.LockHeld, errext.ExitCode(err))
	require.Empty(t, runner.calls)
}

// TestRun_LockUnavailable provisions and launches when the lock file cannot be created.
func TestRun_LockUnavailable(t *testing.T) {
	t.Parallel()

	dir, configPath := newWorkdir(t)
	settings := "workdir: " + dir + "\nlock:\n  file: missing/.bootstrap.lock\n"
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0o600))

	runner := new(fakeRunner)
	launcher := new(fakeLaunch)

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(nil),
		Runner:     runner,
		Launch:     launcher.run,
	})
	require.NoError(t, err)
	require.Len(t, runner.calls, 3)
	require.True(t, launcher.called)
}

// TestRun_MissingManifest lets the installer fail with its own code and stops there.
func TestRun_MissingManifest(t *testing.T) {
	t.Parallel()

	dir, configPath := newWorkdir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "requirements.txt")))

	runner := &fakeRunner{failOn: "pip install -r", code: 1}
	launcher := new(fakeLaunch)

	err := Run(context.Background(), &Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(nil),
		Runner:     runner,
		Launch:     launcher.run,
	})
	require.Error(t, err)
	require.Equal(t, 1, errext.ExitCode(err))
	require.Equal(t, []string{"pip install --upgrade pip", "pip install -r requirements.txt"}, runner.calls)
	require.False(t, launcher.called)
}

// TestLoadConfig_Overrides applies command line values last.
func TestLoadConfig_Overrides(t *testing.T) {
	t.Parallel()

	_, configPath := newWorkdir(t)

	cfg, err := LoadConfig(&Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(map[string]string{"BOOTSTRAP_MANIFEST": "env.txt"}),
		Overrides: Overrides{
			Manifest: "flag.txt",
			PortEnv:  "HTTP_PORT",
			Mode:     config.ModeSupervise,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "flag.txt", cfg.Deps.Manifest)
	require.Equal(t, "HTTP_PORT", cfg.Server.PortEnv)
	require.Equal(t, config.ModeSupervise, cfg.Server.Mode)
}

// TestLoadConfig_Invalid maps bad settings to the invalid configuration code.
func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	_, configPath := newWorkdir(t)

	_, err := LoadConfig(&Options{
		ConfigPath: configPath,
		LookupEnv:  envMap(nil),
		Overrides:  Overrides{Mode: "fork"},
	})
	require.ErrorIs(t, err, config.ErrInvalid)
	require.Equal(t, errext.InvalidConfig, errext.ExitCode(err))

	_, err = LoadConfig(&Options{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		LookupEnv:  envMap(nil),
	})
	require.Error(t, err)
	require.Equal(t, errext.InvalidConfig, errext.ExitCode(err))
}

// TestBuildPlan marks skipped steps and keeps the step order.
func TestBuildPlan(t *testing.T) {
	t.Parallel()

	cfg := config.Default()

	p, err := BuildPlan(cfg, envMap(map[string]string{"PORT": "9000"}), false, true)
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)
	require.Equal(t, plan.StepDeps, p.Steps[0].Name)
	require.False(t, p.Steps[0].Skipped)
	require.Equal(t, plan.StepBrowser, p.Steps[1].Name)
	require.True(t, p.Steps[1].Skipped)
	require.True(t, p.Launch.PortSet)
	require.Equal(t, "9000", p.Launch.Command.Args[len(p.Launch.Command.Args)-1])
}
