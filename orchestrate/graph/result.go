package graph

import (
	"fmt"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

// Status is the lifecycle position of a run.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status: %q", text)
}

// Result is the outcome of a run. State is the final State for completed
// runs and the State at the point of failure for failed ones.
type Result struct {
	RunID  string
	Graph  string
	Status Status
	State  state.State
	Steps  int
	Path   []string
	Err    error
}

// Completed reports whether the run reached End.
func (r *Result) Completed() bool {
	return r.Status == StatusCompleted
}

type runOptions struct {
	maxSteps int
	runID    string
}

// RunOption adjusts a single run.
type RunOption func(*runOptions)

// WithMaxSteps overrides the graph's step bound for one run. Values below 1
// are ignored.
func WithMaxSteps(n int) RunOption {
	return func(o *runOptions) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithRunID sets the run identifier instead of generating one.
func WithRunID(id string) RunOption {
	return func(o *runOptions) {
		if id != "" {
			o.runID = id
		}
	}
}
