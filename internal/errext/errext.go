package errext

import (
	"errors"
)

// Exit codes used by the launcher itself. Codes of failed external tools
// are passed through unchanged and are not listed here.
const (
	// Success is returned when there is no error.
	Success = 0
	// Failure is the catch-all code for errors without an attached code.
	Failure = 1
	// InvalidConfig marks unusable configuration or command line input.
	InvalidConfig = 2
	// LockHeld marks a provisioning lock owned by another live bootstrap (EX_TEMPFAIL).
	LockHeld = 75
	// NotExecutable marks a tool binary that exists but cannot be executed.
	NotExecutable = 126
	// NotFound marks a tool binary missing from PATH.
	NotFound = 127
	// SignalBase is added to the signal number of a child killed by a signal.
	SignalBase = 128
)

// HasExitCode is an error with an attached process exit code.
type HasExitCode interface {
	error
	ExitCode() int
}

// HasHint is an error with a human-readable suggestion on how to fix it.
type HasHint interface {
	error
	Hint() string
}

// WithExitCode attaches code to err, replacing any code attached earlier.
// A nil error stays nil.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}

	return withExitCode{err, code}
}

// WithExitCodeIfNone attaches code to err unless err already carries one.
func WithExitCodeIfNone(err error, code int) error {
	if err == nil {
		return nil
	}

	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return err
	}

	return withExitCode{err, code}
}

// ExitCode returns the code the process should exit with for err.
func ExitCode(err error) int {
	if err == nil {
		return Success
	}

	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return ecerr.ExitCode()
	}

	return Failure
}

// WithHint attaches a hint to err. If err already had a hint, the new one
// is rendered as "new hint (old hint)".
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}

	return withHint{err, hint}
}

// Hint returns the hint attached to err, or an empty string.
func Hint(err error) string {
	var herr HasHint
	if errors.As(err, &herr) {
		return herr.Hint()
	}

	return ""
}

type withExitCode struct {
	error

	code int
}

func (w withExitCode) Unwrap() error {
	return w.error
}

func (w withExitCode) ExitCode() int {
	return w.code
}

type withHint struct {
	error

	hint string
}

func (w withHint) Unwrap() error {
	return w.error
}

func (w withHint) Hint() string {
	var old HasHint
	if errors.As(w.error, &old) {
		return w.hint + " (" + old.Hint() + ")"
	}

	return w.hint
}

var (
	_ HasExitCode = withExitCode{}
	_ HasHint     = withHint{}
)
