package graph

import (
	"fmt"
	"slices"

	"github.com/tailored-agentic-units/flowgraph/observability"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/config"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

// Builder accumulates nodes and edges for a Graph. Problems found while
// adding are kept and reported together by Build.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	schema    *state.Schema
	nodes     map[string]Node
	nodeOrder []string
	edges     map[string]Edge
	entry     string
	problems  []error
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[string]Node),
		edges: make(map[string]Edge),
	}
}

func (b *Builder) fail(format string, args ...any) *Builder {
	b.problems = append(b.problems, fmt.Errorf(format, args...))
	return b
}

// WithSchema sets the field merge strategies. Without a schema every field
// is Replace.
func (b *Builder) WithSchema(schema *state.Schema) *Builder {
	b.schema = schema
	return b
}

// AddNode registers node under name. Names must be unique, non-empty and
// distinct from End.
func (b *Builder) AddNode(name string, node Node) *Builder {
	switch {
	case name == "":
		return b.fail("node name cannot be empty")
	case name == End:
		return b.fail("node name %s is reserved for the terminal marker", End)
	case node == nil:
		return b.fail("node %s cannot be nil", name)
	}

	if _, exists := b.nodes[name]; exists {
		return b.fail("node %s already exists", name)
	}

	b.nodes[name] = node
	b.nodeOrder = append(b.nodeOrder, name)
	return b
}

// AddEdge sets the outgoing edge of from. Each node has exactly one.
func (b *Builder) AddEdge(from string, edge Edge) *Builder {
	switch {
	case from == "":
		return b.fail("edge source cannot be empty")
	case from == End:
		return b.fail("terminal marker cannot have outgoing edges")
	}

	if _, exists := b.edges[from]; exists {
		return b.fail("node %s already has an outgoing edge", from)
	}

	switch edge.kind {
	case EdgeDirect:
		if edge.to == "" {
			return b.fail("edge from %s has empty destination", from)
		}
	case EdgeConditional:
		if edge.router == nil {
			return b.fail("conditional edge from %s has no router", from)
		}
		if len(edge.routes) == 0 {
			return b.fail("conditional edge from %s has no routes", from)
		}
	default:
		return b.fail("edge from %s is neither direct nor conditional", from)
	}

	b.edges[from] = edge
	return b
}

// SetEntryPoint names the first node of every run.
func (b *Builder) SetEntryPoint(name string) *Builder {
	switch {
	case name == "":
		return b.fail("entry point cannot be empty")
	case b.entry != "":
		return b.fail("entry point already set to %s", b.entry)
	}

	b.entry = name
	return b
}

// Build validates the topology and returns the immutable Graph. The
// observer and checkpoint store named by cfg are resolved from their
// registries.
func (b *Builder) Build(cfg config.GraphConfig) (*Graph, error) {
	observer, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	var store CheckpointStore
	if cfg.Checkpoint.Enabled() {
		store, err = GetCheckpointStore(cfg.Checkpoint.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve checkpoint store: %w", err)
		}
	}

	return b.BuildWithDeps(cfg, observer, store)
}

// BuildWithDeps is Build with an explicit observer and checkpoint store.
// A nil observer discards events.
func (b *Builder) BuildWithDeps(cfg config.GraphConfig, observer observability.Observer, store CheckpointStore) (*Graph, error) {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}

	problems := slices.Clone(b.problems)
	problems = append(problems, b.validate()...)
	if cfg.Checkpoint.Enabled() && store == nil {
		problems = append(problems, fmt.Errorf("checkpointing enabled without a checkpoint store"))
	}
	if len(problems) > 0 {
		return nil, &ConstructionError{Graph: cfg.Name, Problems: problems}
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = config.DefaultMaxSteps
	}

	g := &Graph{
		name:               cfg.Name,
		schema:             b.schema,
		nodes:              make(map[string]Node, len(b.nodes)),
		nodeOrder:          slices.Clone(b.nodeOrder),
		edges:              make(map[string]Edge, len(b.edges)),
		entry:              b.entry,
		maxSteps:           maxSteps,
		observer:           observer,
		checkpointStore:    store,
		checkpointInterval: cfg.Checkpoint.Interval,
		preserve:           cfg.Checkpoint.Preserve,
	}
	for name, node := range b.nodes {
		g.nodes[name] = node
	}
	for from, edge := range b.edges {
		edge.routes = edge.Routes()
		g.edges[from] = edge
	}

	return g, nil
}

// validate checks the topology invariants that span multiple declarations.
func (b *Builder) validate() []error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if len(b.nodes) == 0 {
		add("graph has no nodes")
	}

	if b.entry == "" {
		add("entry point not set")
	} else if _, exists := b.nodes[b.entry]; !exists {
		add("entry point %s is not a registered node", b.entry)
	}

	for _, from := range sortedKeys(b.edges) {
		if _, exists := b.nodes[from]; !exists {
			add("edge source %s is not a registered node", from)
		}

		edge := b.edges[from]
		for _, to := range slices.Sorted(slices.Values(edge.destinations())) {
			if to == End {
				continue
			}
			if _, exists := b.nodes[to]; !exists {
				add("edge %s -> %s targets an unregistered node", from, to)
			}
		}

		if edge.kind == EdgeConditional {
			problems = append(problems, validateRoutes(from, edge)...)
		}
	}

	for _, name := range b.nodeOrder {
		if _, exists := b.edges[name]; !exists {
			add("node %s has no outgoing edge", name)
		}
	}

	if len(problems) > 0 {
		return problems
	}

	reachable := b.reachableFrom(b.entry)
	exits := b.reachingEnd()

	for _, name := range b.nodeOrder {
		if !reachable[name] {
			add("node %s is unreachable from entry point %s", name, b.entry)
			continue
		}
		if !exits[name] {
			add("node %s cannot reach %s", name, End)
		}
	}

	return problems
}

func validateRoutes(from string, edge Edge) []error {
	var problems []error

	labels := edge.router.Labels()
	if len(labels) == 0 {
		problems = append(problems, fmt.Errorf("router %s on %s declares no labels", edge.name, from))
	}

	declared := make(map[string]bool, len(labels))
	for _, label := range labels {
		declared[label] = true
		if _, mapped := edge.routes[label]; !mapped {
			problems = append(problems, fmt.Errorf("router %s on %s: label %q has no destination", edge.name, from, label))
		}
	}

	for _, label := range sortedKeys(edge.routes) {
		if !declared[label] {
			problems = append(problems, fmt.Errorf("router %s on %s: route %q is not a declared label", edge.name, from, label))
		}
	}

	return problems
}

func (b *Builder) reachableFrom(start string) map[string]bool {
	seen := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, to := range b.edges[current].destinations() {
			if to == End || seen[to] {
				continue
			}
			seen[to] = true
			queue = append(queue, to)
		}
	}

	return seen
}

// reachingEnd returns the nodes with at least one path to End.
func (b *Builder) reachingEnd() map[string]bool {
	incoming := make(map[string][]string)
	for from, edge := range b.edges {
		for _, to := range edge.destinations() {
			incoming[to] = append(incoming[to], from)
		}
	}

	seen := make(map[string]bool)
	queue := []string{End}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, from := range incoming[current] {
			if seen[from] {
				continue
			}
			seen[from] = true
			queue = append(queue, from)
		}
	}

	return seen
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
