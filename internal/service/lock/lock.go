package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/serve-bootstrap/internal/config"
	"github.com/oshokin/serve-bootstrap/internal/errext"
	"github.com/oshokin/serve-bootstrap/internal/logger"
)

var (
	// ErrHeld is returned when another live bootstrap holds the lock.
	ErrHeld = errors.New("provisioning lock is held by another bootstrap")
	// ErrUnavailable is returned when the lock file cannot be created at all,
	// for example in a read-only or foreign-owned workdir.
	ErrUnavailable = errors.New("provisioning lock is unavailable")
)

// maxAttempts bounds stale lock takeovers within one Acquire.
const maxAttempts = 2

// Locker creates and inspects provisioning lock files.
type Locker struct {
	// StaleAfter is the age after which a lock is taken over regardless of its holder.
	StaleAfter time.Duration

	// findProcess looks a PID up in the process table.
	findProcess func(pid int) (ps.Process, error)
	// now returns the current time.
	now func() time.Time
}

// Lock is an acquired provisioning lock.
type Lock struct {
	path string
	pid  int
}

// NewLocker returns a locker backed by the system process table.
func NewLocker(staleAfter time.Duration) *Locker {
	if staleAfter <= 0 {
		staleAfter = config.DefaultLockStaleAfter
	}

	return &Locker{
		StaleAfter:  staleAfter,
		findProcess: ps.FindProcess,
		now:         time.Now,
	}
}

// Acquire creates the lock file at path holding this process's PID.
//
// An existing lock is respected while it is younger than StaleAfter and its
// PID belongs to a running process with the same executable name as ours.
// Otherwise it is left over from a crashed or hung run, and is replaced.
func (l *Locker) Acquire(ctx context.Context, path string) (*Lock, error) {
	path = filepath.Clean(path)
	pid := os.Getpid()

	for range maxAttempts {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, config.DefaultFilePermissions)
		if err == nil {
			_, writeErr := file.WriteString(strconv.Itoa(pid) + "\n")
			closeErr := file.Close()

			if err = errors.Join(writeErr, closeErr); err != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write lock file: %w", err)
			}

			logger.DebugKV(ctx, "Provisioning lock acquired", "path", path)

			return &Lock{path: path, pid: pid}, nil
		}

		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w: %w", ErrUnavailable, err)
		}

		held, reason := l.isHeld(path)
		if held {
			err = errext.WithHint(fmt.Errorf("%s: %w", path, ErrHeld),
				"wait for the other run to finish or remove the lock file if no bootstrap is running")

			return nil, errext.WithExitCode(err, errext.LockHeld)
		}

		logger.InfoKV(ctx, "Removing stale provisioning lock", "path", path, "reason", reason)

		if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("remove stale lock: %w", err)
		}
	}

	return nil, errext.WithExitCode(fmt.Errorf("%s: %w", path, ErrHeld), errext.LockHeld)
}

// isHeld decides whether the lock at path belongs to a live bootstrap.
// The reason explains a stale verdict.
func (l *Locker) isHeld(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "lock vanished"
	}

	if age := l.now().Sub(info.ModTime()); age > l.StaleAfter {
		return false, "older than " + l.StaleAfter.String()
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return true, ""
	}

	holder, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil {
		// The holder may not have written its PID yet.
		return true, ""
	}

	if holder == os.Getpid() {
		return false, "left by a previous process with our PID"
	}

	process, err := l.findProcess(holder)
	if err != nil || process == nil {
		return false, "holder " + strconv.Itoa(holder) + " is not running"
	}

	self, err := l.findProcess(os.Getpid())
	if err != nil || self == nil {
		return true, ""
	}

	if process.Executable() != self.Executable() {
		return false, "PID " + strconv.Itoa(holder) + " now belongs to " + process.Executable()
	}

	return true, ""
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file if it still belongs to this lock.
// Releasing a nil or already released lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	path := l.path
	l.path = ""

	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return fmt.Errorf("read lock file: %w", err)
	}

	if strings.TrimSpace(string(contents)) != strconv.Itoa(l.pid) {
		return nil
	}

	if err = os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove lock file: %w", err)
	}

	return nil
}
