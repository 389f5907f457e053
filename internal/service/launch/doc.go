// Package launch hands the process over to the application server.
//
// The server binds to the configured host on the port read from the
// environment. By default the bootstrap execs into the server so the
// server owns the process identity, signals and exit code; the supervise
// mode keeps a parent that forwards signals and mirrors the exit code.
package launch
