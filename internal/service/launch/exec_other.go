//go:build !unix

package launch

import (
	"os"
	"syscall"
)

//nolint:gochecknoglobals // Fixed per platform.
var forwardedSignals = []os.Signal{os.Interrupt}

func childAttributes() *syscall.SysProcAttr {
	return nil
}

func replaceProcess(_ string, _ []string, _ []string) error {
	return errReplaceUnsupported
}
