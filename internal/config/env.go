package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mstoykov/envconfig"
)

// LookupFunc resolves an environment variable. os.LookupEnv is used when nil.
type LookupFunc func(key string) (string, bool)

// envOverrides lists the BOOTSTRAP_* variables. Unset variables leave the
// file values untouched.
type envOverrides struct {
	Workdir          string        `envconfig:"BOOTSTRAP_WORKDIR"`
	Installer        string        `envconfig:"BOOTSTRAP_INSTALLER"`
	InstallerPackage string        `envconfig:"BOOTSTRAP_INSTALLER_PACKAGE"`
	Manifest         string        `envconfig:"BOOTSTRAP_MANIFEST"`
	UpgradeInstaller *bool         `envconfig:"BOOTSTRAP_UPGRADE_INSTALLER"`
	BrowserProvider  string        `envconfig:"BOOTSTRAP_BROWSER_PROVIDER"`
	BrowserTool      string        `envconfig:"BOOTSTRAP_BROWSER_TOOL"`
	BrowserEngine    string        `envconfig:"BOOTSTRAP_BROWSER_ENGINE"`
	BrowserDir       string        `envconfig:"BOOTSTRAP_BROWSER_DIR"`
	ServerCommand    string        `envconfig:"BOOTSTRAP_SERVER_COMMAND"`
	App              string        `envconfig:"BOOTSTRAP_APP"`
	Host             string        `envconfig:"BOOTSTRAP_HOST"`
	PortEnv          string        `envconfig:"BOOTSTRAP_PORT_ENV"`
	ServerArgs       []string      `envconfig:"BOOTSTRAP_SERVER_ARGS"`
	LaunchMode       string        `envconfig:"BOOTSTRAP_LAUNCH_MODE"`
	LockFile         string        `envconfig:"BOOTSTRAP_LOCK_FILE"`
	LockStaleAfter   time.Duration `envconfig:"BOOTSTRAP_LOCK_STALE_AFTER"`
	RecordFile       string        `envconfig:"BOOTSTRAP_RECORD_FILE"`
}

// ApplyEnv overlays BOOTSTRAP_* environment variables on cfg.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}

	var env envOverrides
	if err := envconfig.Process("", &env, lookup); err != nil {
		return fmt.Errorf("parse environment: %w: %w", err, ErrInvalid)
	}

	override(&cfg.Workdir, env.Workdir)
	override(&cfg.Deps.Installer, env.Installer)
	override(&cfg.Deps.InstallerPackage, env.InstallerPackage)
	override(&cfg.Deps.Manifest, env.Manifest)
	override(&cfg.Browser.Provider, env.BrowserProvider)
	override(&cfg.Browser.Tool, env.BrowserTool)
	override(&cfg.Browser.Engine, env.BrowserEngine)
	override(&cfg.Browser.Dir, env.BrowserDir)
	override(&cfg.Server.Command, env.ServerCommand)
	override(&cfg.Server.App, env.App)
	override(&cfg.Server.Host, env.Host)
	override(&cfg.Server.PortEnv, env.PortEnv)
	override(&cfg.Server.Mode, env.LaunchMode)
	override(&cfg.Lock.File, env.LockFile)
	override(&cfg.Record.File, env.RecordFile)

	if env.UpgradeInstaller != nil {
		cfg.Deps.UpgradeInstaller = env.UpgradeInstaller
	}

	if len(env.ServerArgs) > 0 {
		cfg.Server.ExtraArgs = env.ServerArgs
	}

	if env.LockStaleAfter > 0 {
		cfg.Lock.StaleAfter = env.LockStaleAfter
	}

	return nil
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}
