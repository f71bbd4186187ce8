package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tailored-agentic-units/flowgraph/observability"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

// Graph is a validated, immutable workflow definition. Create one with
// Builder.Build; run it with Run or Resume.
type Graph struct {
	name               string
	schema             *state.Schema
	nodes              map[string]Node
	nodeOrder          []string
	edges              map[string]Edge
	entry              string
	maxSteps           int
	observer           observability.Observer
	checkpointStore    CheckpointStore
	checkpointInterval int
	preserve           bool
}

// Name returns the graph identifier used in events and checkpoints.
func (g *Graph) Name() string {
	return g.name
}

// EntryPoint returns the name of the first node of every run.
func (g *Graph) EntryPoint() string {
	return g.entry
}

// Schema returns the field merge strategies.
func (g *Graph) Schema() *state.Schema {
	return g.schema
}

// MaxSteps returns the default step bound.
func (g *Graph) MaxSteps() int {
	return g.maxSteps
}

// Nodes returns the node names in registration order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.nodeOrder)
}

// Edge returns the outgoing edge of node.
func (g *Graph) Edge(node string) (Edge, bool) {
	e, ok := g.edges[node]
	return e, ok
}

// Transition is one possible move of the topology.
type Transition struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Router string `json:"router,omitempty"`
	Label  string `json:"label,omitempty"`
}

// Topology is a serializable description of a graph.
type Topology struct {
	Name        string       `json:"name"`
	EntryPoint  string       `json:"entry_point"`
	Nodes       []string     `json:"nodes"`
	Transitions []Transition `json:"transitions"`
}

// Topology describes the graph. Transitions follow node registration order;
// conditional transitions are ordered by label.
func (g *Graph) Topology() Topology {
	t := Topology{
		Name:       g.name,
		EntryPoint: g.entry,
		Nodes:      g.Nodes(),
	}

	for _, from := range g.nodeOrder {
		edge := g.edges[from]
		if edge.kind == EdgeDirect {
			t.Transitions = append(t.Transitions, Transition{From: from, To: edge.to})
			continue
		}
		for _, label := range sortedKeys(edge.routes) {
			t.Transitions = append(t.Transitions, Transition{
				From:   from,
				To:     edge.routes[label],
				Router: edge.name,
				Label:  label,
			})
		}
	}

	return t
}

// Mermaid renders the topology as a Mermaid flowchart.
func (t Topology) Mermaid() string {
	var b strings.Builder

	b.WriteString("flowchart TD\n")
	fmt.Fprintf(&b, "    __start__([start]) --> %s\n", t.EntryPoint)
	for _, tr := range t.Transitions {
		to := tr.To
		if to == End {
			to = "__end__([end])"
		}
		if tr.Label != "" {
			fmt.Fprintf(&b, "    %s -->|%s| %s\n", tr.From, tr.Label, to)
			continue
		}
		fmt.Fprintf(&b, "    %s --> %s\n", tr.From, to)
	}

	return b.String()
}
