package run

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRecord_Succeeded fails only when a step failed.
func TestRecord_Succeeded(t *testing.T) {
	t.Parallel()

	r := &Record{Steps: []StepResult{
		{Name: "deps", Status: StatusSucceeded},
		{Name: "browser", Status: StatusSkipped},
	}}
	require.True(t, r.Succeeded())

	r.Steps = append(r.Steps, StepResult{Name: "launch", Status: StatusFailed, ExitCode: 3})
	require.False(t, r.Succeeded())
}
