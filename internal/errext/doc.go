// Package errext extends plain Go errors with process exit codes and hints.
//
// The bootstrap propagates the exit code of a failing external tool to its
// own exit status. Errors travel up the call stack wrapped with fmt.Errorf
// and the CLI turns the outermost error into an exit code with ExitCode.
package errext
