package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

var (
	// ErrConstruction marks topology invariant violations found by Build.
	ErrConstruction = errors.New("invalid graph")

	// ErrNodeFailure wraps an error returned by a node.
	ErrNodeFailure = errors.New("node failed")

	// ErrRouterInconsistency reports a router label with no destination.
	ErrRouterInconsistency = errors.New("router returned undeclared label")

	// ErrStepLimitExceeded reports a run that hit its step bound.
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	// ErrCancelled reports a run aborted through its context.
	ErrCancelled = errors.New("cancelled")

	// ErrUnknownNode reports a transition to an unregistered node.
	ErrUnknownNode = errors.New("unknown node")

	// ErrCheckpointNotFound is returned by stores for unknown run ids.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrRunComplete is returned by Resume for a checkpoint taken on the
	// last step of a run.
	ErrRunComplete = errors.New("run already complete")
)

// ConstructionError lists every problem found while building a graph.
// It matches ErrConstruction with errors.Is.
type ConstructionError struct {
	Graph    string
	Problems []error
}

func (e *ConstructionError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%s %s: %s", ErrConstruction, e.Graph, strings.Join(msgs, "; "))
}

func (e *ConstructionError) Is(target error) bool {
	return target == ErrConstruction
}

func (e *ConstructionError) Unwrap() []error {
	return e.Problems
}

// ExecutionError captures the context of a failed run:
//   - Node: the node being executed (or routed from) when the run failed
//   - Step: the step counter at failure
//   - Path: the nodes visited, in order
//   - State: the State at the point of failure
//   - Err: the cause, matching one of the package sentinels or
//     state.ErrTypeMismatch
type ExecutionError struct {
	Graph string
	RunID string
	Node  string
	Step  int
	Path  []string
	State state.State
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("graph %s failed at node %s (step %d): %v", e.Graph, e.Node, e.Step, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
