package graph_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flowgraph/observability"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

func TestRun_Linear(t *testing.T) {
	g, err := linear().Build(testConfig())
	require.NoError(t, err)

	res, err := g.Run(context.Background(), map[string]any{"value": "in"})
	require.NoError(t, err)

	assert.True(t, res.Completed())
	assert.Equal(t, graph.StatusCompleted, res.Status)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, []string{"a", "b", "c"}, res.Path)
	assert.Equal(t, []string{"a", "b", "c"}, res.State.GetStrings("trace"))
	assert.Equal(t, "in", res.State.GetString("value"))
	assert.NotEmpty(t, res.RunID)
	assert.Nil(t, res.Err)
}

func TestRun_ConditionalRouting(t *testing.T) {
	route := graph.NewRouter([]string{"left", "right"}, func(s state.State) string {
		if s.GetString("value") == "L" {
			return "left"
		}
		return "right"
	})

	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("start", traceNode("start")).
		AddNode("left", traceNode("left")).
		AddNode("right", traceNode("right")).
		AddEdge("start", graph.Conditional("side", route, map[string]string{"left": "left", "right": "right"})).
		AddEdge("left", graph.Direct(graph.End)).
		AddEdge("right", graph.Direct(graph.End)).
		SetEntryPoint("start").
		Build(testConfig())
	require.NoError(t, err)

	tests := []struct {
		value string
		path  []string
	}{
		{value: "L", path: []string{"start", "left"}},
		{value: "R", path: []string{"start", "right"}},
		{value: "", path: []string{"start", "right"}},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			res, err := g.Run(context.Background(), map[string]any{"value": tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.path, res.Path)
			assert.Equal(t, tt.path, res.State.GetStrings("trace"))
		})
	}
}

func TestRun_RouterSeesMergedState(t *testing.T) {
	route := graph.NewRouter([]string{"yes", "no"}, func(s state.State) string {
		if s.GetString("value") == "set-by-node" {
			return "yes"
		}
		return "no"
	})

	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("set", setNode("value", "set-by-node")).
		AddNode("yes", traceNode("yes")).
		AddNode("no", traceNode("no")).
		AddEdge("set", graph.Conditional("check", route, map[string]string{"yes": "yes", "no": "no"})).
		AddEdge("yes", graph.Direct(graph.End)).
		AddEdge("no", graph.Direct(graph.End)).
		SetEntryPoint("set").
		Build(testConfig())
	require.NoError(t, err)

	res, err := g.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"set", "yes"}, res.Path)
}

func TestRun_CycleUntilCondition(t *testing.T) {
	route := graph.NewRouter([]string{"again", "done"}, func(s state.State) string {
		if s.Len("trace") < 4 {
			return "again"
		}
		return "done"
	})

	obs := &recorder{}
	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("loop", traceNode("loop")).
		AddEdge("loop", graph.Conditional("counter", route, map[string]string{"again": "loop", "done": graph.End})).
		SetEntryPoint("loop").
		BuildWithDeps(testConfig(), obs, nil)
	require.NoError(t, err)

	res, err := g.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Steps)
	assert.Equal(t, 3, obs.count(observability.EventCycleDetected))
}

func TestRun_StepLimit(t *testing.T) {
	forever := graph.NewRouter([]string{"again", "done"}, func(state.State) string { return "again" })

	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("loop", traceNode("loop")).
		AddEdge("loop", graph.Conditional("forever", forever, map[string]string{"again": "loop", "done": graph.End})).
		SetEntryPoint("loop").
		Build(testConfig())
	require.NoError(t, err)

	tests := []struct {
		name string
		opts []graph.RunOption
		want int
	}{
		{name: "graph default", want: 50},
		{name: "per run override", opts: []graph.RunOption{graph.WithMaxSteps(5)}, want: 5},
		{name: "invalid override ignored", opts: []graph.RunOption{graph.WithMaxSteps(0)}, want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Run(context.Background(), nil, tt.opts...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, graph.ErrStepLimitExceeded))
			assert.Equal(t, graph.StatusFailed, res.Status)
			assert.Equal(t, tt.want, res.Steps)
			assert.Equal(t, tt.want, res.State.Len("trace"))
		})
	}
}

func TestRun_StepLimitFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSteps = 2

	g, err := linear().Build(cfg)
	require.NoError(t, err)

	res, err := g.Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrStepLimitExceeded))
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, []string{"a", "b"}, res.Path)

	res, err = g.Run(context.Background(), nil, graph.WithMaxSteps(3))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Steps)
}

func TestRun_NodeFailure(t *testing.T) {
	boom := errors.New("boom")

	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("a", traceNode("a")).
		AddNode("b", errorNode(boom)).
		AddEdge("a", graph.Direct("b")).
		AddEdge("b", graph.Direct(graph.End)).
		SetEntryPoint("a").
		Build(testConfig())
	require.NoError(t, err)

	res, err := g.Run(context.Background(), nil, graph.WithRunID("run-1"))
	require.Error(t, err)

	assert.True(t, errors.Is(err, graph.ErrNodeFailure))
	assert.True(t, errors.Is(err, boom))

	var execErr *graph.ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "b", execErr.Node)
	assert.Equal(t, 2, execErr.Step)
	assert.Equal(t, "run-1", execErr.RunID)
	assert.Equal(t, []string{"a"}, execErr.State.GetStrings("trace"), "state before the failing node")

	assert.Equal(t, graph.StatusFailed, res.Status)
	assert.Equal(t, "run-1", res.RunID)
	assert.Same(t, execErr, res.Err.(*graph.ExecutionError))
}

func TestRun_RouterInconsistency(t *testing.T) {
	liar := graph.NewRouter([]string{"ok"}, func(state.State) string { return "surprise" })

	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("a", traceNode("a")).
		AddEdge("a", graph.Conditional("liar", liar, map[string]string{"ok": graph.End})).
		SetEntryPoint("a").
		Build(testConfig())
	require.NoError(t, err)

	res, err := g.Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrRouterInconsistency))
	assert.Contains(t, err.Error(), `"surprise"`)
	assert.Equal(t, []string{"a"}, res.State.GetStrings("trace"), "state after the node merged")
}

func TestRun_TypeMismatch(t *testing.T) {
	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("a", setNode("value", 42)).
		AddEdge("a", graph.Direct(graph.End)).
		SetEntryPoint("a").
		Build(testConfig())
	require.NoError(t, err)

	res, err := g.Run(context.Background(), map[string]any{"value": "kept"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, state.ErrTypeMismatch))
	assert.Equal(t, "kept", res.State.GetString("value"))
}

func TestRun_InitialStateMismatch(t *testing.T) {
	g, err := linear().Build(testConfig())
	require.NoError(t, err)

	res, err := g.Run(context.Background(), map[string]any{"trace": map[string]any{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, state.ErrTypeMismatch))
	assert.Equal(t, 0, res.Steps)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	g, err := linear().Build(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := g.Run(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrCancelled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, res.Steps)
}

func TestRun_CancelDuringNodeFinishesStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var nodeCtxErr error
	cancelling := graph.NodeFunc(func(nodeCtx context.Context, s state.State) (state.Update, error) {
		cancel()
		nodeCtxErr = nodeCtx.Err()
		return state.Update{"trace": "a"}, nil
	})

	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("a", cancelling).
		AddNode("b", traceNode("b")).
		AddEdge("a", graph.Direct("b")).
		AddEdge("b", graph.Direct(graph.End)).
		SetEntryPoint("a").
		Build(testConfig())
	require.NoError(t, err)

	res, err := g.Run(ctx, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrCancelled))
	assert.NoError(t, nodeCtxErr, "a started step is not interrupted")
	assert.Equal(t, []string{"a"}, res.State.GetStrings("trace"))
	assert.Equal(t, 1, res.Steps)
}

func TestRun_NodeTimeout(t *testing.T) {
	slow := graph.NodeFunc(func(ctx context.Context, s state.State) (state.Update, error) {
		<-ctx.Done()
		return state.Update{"trace": "late"}, nil
	})

	g, err := graph.NewBuilder().
		WithSchema(testSchema).
		AddNode("slow", graph.WithTimeout(slow, 10*time.Millisecond)).
		AddEdge("slow", graph.Direct(graph.End)).
		SetEntryPoint("slow").
		Build(testConfig())
	require.NoError(t, err)

	res, err := g.Run(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrNodeFailure))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 0, res.State.Len("trace"))
}

func TestRun_Deterministic(t *testing.T) {
	g, err := linear().Build(testConfig())
	require.NoError(t, err)

	first, err := g.Run(context.Background(), map[string]any{"value": "x"})
	require.NoError(t, err)
	second, err := g.Run(context.Background(), map[string]any{"value": "x"})
	require.NoError(t, err)

	assert.Equal(t, first.State.Data(), second.State.Data())
	assert.Equal(t, first.Path, second.Path)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRun_ConcurrentRunsAreIndependent(t *testing.T) {
	g, err := linear().Build(testConfig())
	require.NoError(t, err)

	results := make(chan *graph.Result, 8)
	for range 8 {
		go func() {
			res, _ := g.Run(context.Background(), nil)
			results <- res
		}()
	}

	for range 8 {
		res := <-results
		require.NotNil(t, res)
		assert.Equal(t, []string{"a", "b", "c"}, res.State.GetStrings("trace"))
	}
}

func TestRun_Events(t *testing.T) {
	obs := &recorder{}
	g, err := linear().BuildWithDeps(testConfig(), obs, nil)
	require.NoError(t, err)

	_, err = g.Run(context.Background(), nil)
	require.NoError(t, err)

	types := obs.types()
	require.NotEmpty(t, types)
	assert.Equal(t, observability.EventGraphStart, types[0])
	assert.Equal(t, observability.EventGraphComplete, types[len(types)-1])
	assert.Equal(t, 3, obs.count(observability.EventNodeStart))
	assert.Equal(t, 3, obs.count(observability.EventNodeComplete))
	assert.Equal(t, 3, obs.count(observability.EventStateMerge))
	assert.Equal(t, 3, obs.count(observability.EventEdgeRoute))
	assert.Equal(t, 0, obs.count(observability.EventCycleDetected))

	for _, e := range obs.events {
		assert.Equal(t, "test-graph", e.Source)
	}
}

func TestRun_FailureEvent(t *testing.T) {
	obs := &recorder{}
	g, err := graph.NewBuilder().
		AddNode("a", errorNode(errors.New("boom"))).
		AddEdge("a", graph.Direct(graph.End)).
		SetEntryPoint("a").
		BuildWithDeps(testConfig(), obs, nil)
	require.NoError(t, err)

	_, err = g.Run(context.Background(), nil)
	require.Error(t, err)

	last := obs.events[len(obs.events)-1]
	assert.Equal(t, observability.EventGraphFailed, last.Type)
	assert.Equal(t, observability.LevelError, last.Level)
	assert.Contains(t, last.Data["cause"], "boom")
}
