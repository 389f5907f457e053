// Package version exposes build metadata of the bootstrap binary.
//
// Version, Commit and BuildTime can be injected with -ldflags; a missing
// commit falls back to the revision the Go toolchain stamps into the binary.
package version
