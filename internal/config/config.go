package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes what the bootstrap provisions and which server it launches.
type Config struct {
	// Workdir is the directory every external tool runs in.
	Workdir string `yaml:"workdir"`
	// Deps configures the dependency provisioning step.
	Deps DepsConfig `yaml:"deps"`
	// Browser configures the browser engine provisioning step.
	Browser BrowserConfig `yaml:"browser"`
	// Server configures the server launch step.
	Server ServerConfig `yaml:"server"`
	// Lock configures the provisioning lock file.
	Lock LockConfig `yaml:"lock"`
	// Record configures where the outcome of the last run is kept.
	Record RecordConfig `yaml:"record"`
}

// DepsConfig holds the package installer invocation.
type DepsConfig struct {
	// Installer is the package installer executable (pip by default).
	Installer string `yaml:"installer"`
	// InstallerPackage is the package name the installer upgrades itself
	// through; it does not change with the executable path.
	InstallerPackage string `yaml:"installer_package"`
	// Manifest is the dependency list passed to the installer with -r.
	Manifest string `yaml:"manifest"`
	// UpgradeInstaller upgrades the installer itself before installing the manifest.
	// Nil means true.
	UpgradeInstaller *bool `yaml:"upgrade_installer,omitempty"`
}

// BrowserConfig holds the browser engine installation settings.
type BrowserConfig struct {
	// Provider selects how the engine is installed: "command" or "rod".
	Provider string `yaml:"provider"`
	// Tool is the browser automation installer used by the command provider.
	Tool string `yaml:"tool"`
	// Engine names the browser engine flavor to install.
	Engine string `yaml:"engine"`
	// Dir is where the rod provider keeps downloaded browsers. Empty means go-rod's default.
	Dir string `yaml:"dir,omitempty"`
}

// ServerConfig holds the server launch invocation.
type ServerConfig struct {
	// Command is the server executable (uvicorn by default).
	Command string `yaml:"command"`
	// App is the application entry point reference handed to the server.
	App string `yaml:"app"`
	// Host is the bind address.
	Host string `yaml:"host"`
	// PortEnv is the environment variable that supplies the listen port.
	PortEnv string `yaml:"port_env"`
	// ExtraArgs are appended after the standard arguments, with $VAR expansion.
	ExtraArgs []string `yaml:"extra_args,omitempty"`
	// Mode is "replace" (exec into the server) or "supervise" (run as a child).
	Mode string `yaml:"mode"`
}

// LockConfig holds the provisioning lock settings.
type LockConfig struct {
	// File is the lock file path, relative to Workdir unless absolute.
	File string `yaml:"file"`
	// StaleAfter is the age after which a lock may be taken over.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// RecordConfig holds the run record settings.
type RecordConfig struct {
	// File is the run record path, relative to Workdir unless absolute.
	File string `yaml:"file"`
}

const (
	// DefaultConfigFilename is the configuration file looked up when no path is given.
	DefaultConfigFilename = "bootstrap.yaml"

	// DefaultInstaller is the package installer executable.
	DefaultInstaller = "pip"
	// DefaultInstallerPackage is the package that provides the installer.
	DefaultInstallerPackage = "pip"
	// DefaultManifest is the dependency manifest consumed by the installer.
	DefaultManifest = "requirements.txt"

	// ProviderCommand installs the browser engine with an external tool.
	ProviderCommand = "command"
	// ProviderRod installs Chromium with go-rod's downloader.
	ProviderRod = "rod"
	// DefaultBrowserTool is the browser automation installer.
	DefaultBrowserTool = "playwright"
	// DefaultBrowserEngine is the browser engine flavor.
	DefaultBrowserEngine = "chromium"

	// DefaultServerCommand is the ASGI server executable.
	DefaultServerCommand = "uvicorn"
	// DefaultApp is the application entry point reference.
	DefaultApp = "main:app"
	// DefaultHost binds the server to all interfaces.
	DefaultHost = "0.0.0.0"
	// DefaultPortEnv is the environment variable holding the listen port.
	DefaultPortEnv = "PORT"

	// ModeReplace replaces the bootstrap process with the server.
	ModeReplace = "replace"
	// ModeSupervise runs the server as a child and forwards signals to it.
	ModeSupervise = "supervise"

	// DefaultLockFile is the provisioning lock file name.
	DefaultLockFile = ".bootstrap.lock"
	// DefaultLockStaleAfter bounds how long a provisioning run may hold the lock.
	DefaultLockStaleAfter = 15 * time.Minute
	// DefaultRecordFile keeps the outcome of the last run next to the lock.
	DefaultRecordFile = ".bootstrap-run.yaml"

	// DefaultFilePermissions is the permission for files written by the bootstrap.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid configuration")
)

// Default returns the configuration equivalent to the classic bootstrap script.
func Default() *Config {
	cfg := new(Config)

	// Validate only fills defaults on an empty config.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from path, overlays the environment and validates it.
// An empty path means DefaultConfigFilename, which may be absent; a path given
// explicitly must exist.
func Load(path string, lookup LookupFunc) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := new(Config)

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Built-in defaults.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = ApplyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path in YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults and rejects settings no step could run with.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Workdir == "" {
		cfg.Workdir = "."
	}

	setDefault(&cfg.Deps.Installer, DefaultInstaller)
	setDefault(&cfg.Deps.InstallerPackage, DefaultInstallerPackage)
	setDefault(&cfg.Deps.Manifest, DefaultManifest)

	if cfg.Deps.UpgradeInstaller == nil {
		upgrade := true
		cfg.Deps.UpgradeInstaller = &upgrade
	}

	setDefault(&cfg.Browser.Provider, ProviderCommand)
	setDefault(&cfg.Browser.Tool, DefaultBrowserTool)
	setDefault(&cfg.Browser.Engine, DefaultBrowserEngine)

	setDefault(&cfg.Server.Command, DefaultServerCommand)
	setDefault(&cfg.Server.App, DefaultApp)
	setDefault(&cfg.Server.Host, DefaultHost)
	setDefault(&cfg.Server.PortEnv, DefaultPortEnv)
	setDefault(&cfg.Server.Mode, ModeReplace)

	setDefault(&cfg.Lock.File, DefaultLockFile)

	setDefault(&cfg.Record.File, DefaultRecordFile)

	if cfg.Lock.StaleAfter <= 0 {
		cfg.Lock.StaleAfter = DefaultLockStaleAfter
	}

	if !slices.Contains([]string{ProviderCommand, ProviderRod}, cfg.Browser.Provider) {
		return fmt.Errorf("browser provider %q: %w", cfg.Browser.Provider, ErrInvalid)
	}

	if cfg.Browser.Provider == ProviderRod && cfg.Browser.Engine != DefaultBrowserEngine {
		return fmt.Errorf("rod provider only installs %s, got %q: %w",
			DefaultBrowserEngine, cfg.Browser.Engine, ErrInvalid)
	}

	if !slices.Contains([]string{ModeReplace, ModeSupervise}, cfg.Server.Mode) {
		return fmt.Errorf("launch mode %q: %w", cfg.Server.Mode, ErrInvalid)
	}

	return nil
}

// ShouldUpgradeInstaller reports whether the installer upgrades itself first.
func (d *DepsConfig) ShouldUpgradeInstaller() bool {
	return d.UpgradeInstaller == nil || *d.UpgradeInstaller
}

// ResolvePath returns p relative to the workdir unless it is absolute.
func (c *Config) ResolvePath(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(c.Workdir, p)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
