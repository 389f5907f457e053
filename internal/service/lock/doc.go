// Package lock keeps two bootstraps from provisioning the same workdir at
// once.
//
// The lock is a file holding the owner's PID. A lock older than the stale
// period, or whose PID is gone or now runs another program, is taken over.
package lock
