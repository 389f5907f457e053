package run

import (
	"slices"
	"time"
)

// Status is the outcome of a provisioning step.
type Status string

const (
	// StatusSucceeded means every command of the step exited 0.
	StatusSucceeded Status = "succeeded"
	// StatusFailed means the step stopped the run.
	StatusFailed Status = "failed"
	// StatusSkipped means the step was disabled for this run.
	StatusSkipped Status = "skipped"
)

// StepResult is what happened to one provisioning step.
type StepResult struct {
	// Name is the step name, such as "deps".
	Name string `yaml:"name"`
	// Status is the step outcome.
	Status Status `yaml:"status"`
	// ExitCode is the code of the failing tool.
	ExitCode int `yaml:"exit_code,omitempty"`
	// Error is the failure message.
	Error string `yaml:"error,omitempty"`
	// Duration is the wall time of the step.
	Duration time.Duration `yaml:"duration"`
}

// Record describes the provisioning part of the last bootstrap run.
type Record struct {
	// RunID correlates the record with the run's log lines.
	RunID string `yaml:"run_id"`
	// Actor is who started the run, as user@host.
	Actor string `yaml:"actor"`
	// Version is the bootstrap version that produced the record.
	Version string `yaml:"version"`
	// StartedAt is when provisioning began.
	StartedAt time.Time `yaml:"started_at"`
	// FinishedAt is when provisioning ended.
	FinishedAt time.Time `yaml:"finished_at"`
	// Steps are the step outcomes in execution order.
	Steps []StepResult `yaml:"steps"`
	// ExitCode is the code provisioning ended with; 0 on success.
	ExitCode int `yaml:"exit_code"`
}

// Succeeded reports whether no step failed.
func (r *Record) Succeeded() bool {
	return !slices.ContainsFunc(r.Steps, func(s StepResult) bool {
		return s.Status == StatusFailed
	})
}
