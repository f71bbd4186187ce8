package graph

import "maps"

// End is the terminal marker. An edge leading to End completes the run.
// No node may be registered under this name.
const End = "__end__"

// EdgeKind tags the Edge variant.
type EdgeKind int

const (
	edgeInvalid EdgeKind = iota
	// EdgeDirect always leads to one destination.
	EdgeDirect
	// EdgeConditional leads to the destination mapped to its router's label.
	EdgeConditional
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeDirect:
		return "direct"
	case EdgeConditional:
		return "conditional"
	default:
		return "invalid"
	}
}

// Edge is the outgoing transition of a node: either Direct or Conditional.
// The zero Edge is invalid and rejected by the builder.
type Edge struct {
	kind   EdgeKind
	to     string
	name   string
	router Router
	routes map[string]string
}

// Direct returns an edge that always leads to to.
func Direct(to string) Edge {
	return Edge{kind: EdgeDirect, to: to}
}

// Conditional returns an edge whose destination is routes[router.Route(s)].
// name identifies the router in events and topology output.
func Conditional(name string, router Router, routes map[string]string) Edge {
	return Edge{
		kind:   EdgeConditional,
		name:   name,
		router: router,
		routes: maps.Clone(routes),
	}
}

// Kind returns the edge variant.
func (e Edge) Kind() EdgeKind {
	return e.kind
}

// To returns the destination of a direct edge, "" for conditional edges.
func (e Edge) To() string {
	return e.to
}

// Name returns the router name of a conditional edge.
func (e Edge) Name() string {
	return e.name
}

// Routes returns a copy of the label to destination mapping.
func (e Edge) Routes() map[string]string {
	return maps.Clone(e.routes)
}

func (e Edge) destinations() []string {
	if e.kind == EdgeDirect {
		return []string{e.to}
	}
	out := make([]string, 0, len(e.routes))
	for _, to := range e.routes {
		out = append(out, to)
	}
	return out
}
