// Package bootstrap runs the provisioning pipeline and hands the process
// to the server.
//
// The pipeline is strictly linear and fail-fast: dependencies, then the
// browser engine, then the launch. A failed step stops the run with the
// failing tool's exit code.
package bootstrap
