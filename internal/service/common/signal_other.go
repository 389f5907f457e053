//go:build !unix

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import "os"

// interruptProcess kills p; there is no portable termination request here.
func interruptProcess(p *os.Process) error {
	if p == nil {
		return nil
	}

	return p.Kill()
}

func signalNumber(_ *os.ProcessState) (int, bool) {
	return 0, false
}
