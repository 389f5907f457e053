// Package probe checks that a launched server is reachable.
//
// The bootstrap itself has no readiness gate; probe is a separate check for
// supervisors and smoke tests that connects to the port and optionally
// requests a health path.
package probe
