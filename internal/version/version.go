package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "0.0.0-dev"
	// Commit is the short git SHA embedded at build time.
	// When empty, the VCS revision recorded by the Go toolchain is used.
	Commit = ""
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

const shortCommitLength = 7

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns a human-readable version string with commit, build time and Go version.
func Full() string {
	return fmt.Sprintf("bootstrap %s, commit: %s, built at: %s, %s",
		Version, commit(readBuildInfo), BuildTime, runtime.Version())
}

// commit prefers the ldflags value and falls back to vcs.revision.
func commit(read func() (*debug.BuildInfo, bool)) string {
	if Commit != "" {
		return Commit
	}

	info, ok := read()
	if !ok {
		return "none"
	}

	var (
		revision string
		modified bool
	)

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if revision == "" {
		return "none"
	}

	if len(revision) > shortCommitLength {
		revision = revision[:shortCommitLength]
	}

	if modified {
		revision += "-dirty"
	}

	return revision
}

func readBuildInfo() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
