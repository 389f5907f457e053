package plan

import (
	"strconv"
	"strings"
)

// Step names, in execution order.
const (
	StepDeps    = "deps"
	StepBrowser = "browser"
	StepLaunch  = "launch"
)

// Command is a single external tool invocation.
type Command struct {
	// Name is the executable, looked up on PATH unless it contains a separator.
	Name string `yaml:"name"`
	// Args are passed verbatim, without shell interpretation.
	Args []string `yaml:"args,omitempty"`
	// Dir is the working directory; empty means the current one.
	Dir string `yaml:"dir,omitempty"`
	// Env is appended to the inherited environment.
	Env []string `yaml:"env,omitempty"`
}

// Argv returns the name followed by the arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the invocation for logs, quoting words that need it.
func (c Command) String() string {
	words := c.Argv()
	quoted := make([]string, 0, len(words))

	for _, w := range words {
		if w == "" || strings.ContainsAny(w, " \t\n\"'\\$") {
			w = strconv.Quote(w)
		}

		quoted = append(quoted, w)
	}

	return strings.Join(quoted, " ")
}

// Step is one provisioning stage and the tool invocations it consists of.
type Step struct {
	// Name is one of the Step* constants.
	Name string `yaml:"name"`
	// Commands run in order; the first failure stops the step.
	Commands []Command `yaml:"commands,omitempty"`
	// Note describes work done in-process instead of by an external tool.
	Note string `yaml:"note,omitempty"`
	// Skipped is set when the step was disabled for this run.
	Skipped bool `yaml:"skipped,omitempty"`
}

// Launch describes how the server takes over the process.
type Launch struct {
	// Command is the server invocation with the port already resolved.
	Command Command `yaml:"command"`
	// Mode is "replace" or "supervise".
	Mode string `yaml:"mode"`
	// PortEnv names the variable the port was read from.
	PortEnv string `yaml:"port_env"`
	// PortSet reports whether PortEnv was present in the environment.
	PortSet bool `yaml:"port_set"`
}

// Plan is the full, ordered bootstrap sequence.
type Plan struct {
	// Steps are the provisioning steps, in order.
	Steps []Step `yaml:"steps"`
	// Launch is the final hand-off.
	Launch Launch `yaml:"launch"`
}
