//go:build unix

package launch

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// forwardedSignals are relayed to a supervised server.
//
//nolint:gochecknoglobals // Fixed per platform.
var forwardedSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGHUP,
	syscall.SIGQUIT,
}

// childAttributes starts a supervised server in its own process group.
// Keyboard signals then reach only the bootstrap, which forwards each one
// exactly once.
func childAttributes() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// replaceProcess execs path with argv and env; it returns only on failure.
func replaceProcess(path string, argv []string, env []string) error {
	return unix.Exec(path, argv, env)
}
