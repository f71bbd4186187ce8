package graph

import (
	"slices"

	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

// Router selects the next destination of a conditional edge.
//
// Labels declares the closed set of labels Route may return. Build checks
// that a conditional edge maps every declared label, and Run fails with
// ErrRouterInconsistency if Route returns anything else.
type Router interface {
	Labels() []string
	Route(s state.State) string
}

type funcRouter struct {
	labels []string
	fn     func(state.State) string
}

// NewRouter creates a Router from its label set and decision function.
func NewRouter(labels []string, fn func(state.State) string) Router {
	return &funcRouter{labels: slices.Clone(labels), fn: fn}
}

func (r *funcRouter) Labels() []string {
	return slices.Clone(r.labels)
}

func (r *funcRouter) Route(s state.State) string {
	return r.fn(s)
}
