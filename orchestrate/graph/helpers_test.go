package graph_test

import (
	"context"
	"sync"

	"github.com/tailored-agentic-units/flowgraph/observability"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/config"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

var testSchema = state.MustSchema(
	state.AppendField("trace"),
	state.ReplaceField("value", ""),
)

func setNode(key string, value any) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, s state.State) (state.Update, error) {
		return state.Update{key: value}, nil
	})
}

func traceNode(name string) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, s state.State) (state.Update, error) {
		return state.Update{"trace": name}, nil
	})
}

func errorNode(err error) graph.Node {
	return graph.NodeFunc(func(ctx context.Context, s state.State) (state.Update, error) {
		return nil, err
	})
}

func testConfig() config.GraphConfig {
	cfg := config.DefaultGraphConfig("test-graph")
	cfg.Observer = "noop"
	return cfg
}

// linear builds a -> b -> c -> End with trace nodes.
func linear() *graph.Builder {
	return graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("a", traceNode("a")).
		AddNode("b", traceNode("b")).
		AddNode("c", traceNode("c")).
		AddEdge("a", graph.Direct("b")).
		AddEdge("b", graph.Direct("c")).
		AddEdge("c", graph.Direct(graph.End)).
		SetEntryPoint("a")
}

type recorder struct {
	mu     sync.Mutex
	events []observability.Event
}

func (r *recorder) OnEvent(_ context.Context, e observability.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []observability.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observability.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) count(t observability.EventType) int {
	n := 0
	for _, got := range r.types() {
		if got == t {
			n++
		}
	}
	return n
}
