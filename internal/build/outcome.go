package build

import (
	"time"
)

// State is a step in a build's lifecycle.
type State int

const (
	Pending State = iota
	Validating
	Sandboxing
	Running
	Succeeded
	Failed
	CleaningUp
	Done
)

var stateNames = [...]string{
	Pending:    "pending",
	Validating: "validating",
	Sandboxing: "sandboxing",
	Running:    "running",
	Succeeded:  "succeeded",
	Failed:     "failed",
	CleaningUp: "cleaning-up",
	Done:       "done",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Status is the terminal result of a build.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is delivered once at the end of every build.
type Outcome struct {
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Command  string        `json:"command"`
	Sandbox  string        `json:"sandbox,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	// Err classifies a failure: policy violation, sandbox I/O, spawn,
	// non-zero exit or timeout.
	Err error `json:"-"`

	// CleanupErr is set when the sandbox could not be removed. It never
	// turns a success into a failure.
	CleanupErr error `json:"-"`
}

// Succeeded reports whether the build command exited zero.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}
