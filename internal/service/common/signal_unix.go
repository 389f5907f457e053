//go:build unix

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"os"
	"syscall"
)

// interruptProcess asks p to terminate.
func interruptProcess(p *os.Process) error {
	if p == nil {
		return nil
	}

	return p.Signal(syscall.SIGTERM)
}

// signalNumber reports the signal that killed the process, if any.
func signalNumber(state *os.ProcessState) (int, bool) {
	if state == nil {
		return 0, false
	}

	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return 0, false
	}

	return int(status.Signal()), true
}
