// Package common holds helpers shared by the bootstrap steps.
//
// It provides the external tool runner (Runner, ExecRunner, ToolError) that
// maps tool failures to shell-compatible exit codes, and detection of the
// system actor (hostname/username) for the run log.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
