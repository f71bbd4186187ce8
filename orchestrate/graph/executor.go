package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tailored-agentic-units/flowgraph/observability"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/state"
)

const tracerName = "github.com/tailored-agentic-units/flowgraph/orchestrate/graph"

// run is the ephemeral execution record of one Run or Resume call.
type run struct {
	id       string
	state    state.State
	current  string
	steps    int
	maxSteps int
	path     []string
	visited  map[string]int
}

// Run executes the graph from its entry point.
//
// initial supplies field values over the schema's zero values. The returned
// Result is never nil. When the run fails, err is the *ExecutionError also
// stored in Result.Err.
func (g *Graph) Run(ctx context.Context, initial map[string]any, opts ...RunOption) (*Result, error) {
	o := g.runOptions(opts)

	r := &run{
		id:       o.runID,
		current:  g.entry,
		maxSteps: o.maxSteps,
		visited:  make(map[string]int),
	}

	s, err := state.New(g.schema).Merge(state.Update(initial))
	if err != nil {
		r.state = state.New(g.schema)
		return g.fail(ctx, r, fmt.Errorf("initial state: %w", err))
	}
	r.state = s

	return g.execute(ctx, r)
}

// Resume continues the run checkpointed under runID from the node after
// the checkpoint. Step count and path carry over from the checkpoint.
//
// Resume returns a nil Result and an error when the run cannot be resumed:
// checkpointing disabled, no checkpoint, or a checkpoint taken just before
// completion.
func (g *Graph) Resume(ctx context.Context, runID string, opts ...RunOption) (*Result, error) {
	if g.checkpointStore == nil {
		return nil, fmt.Errorf("checkpointing not enabled for graph %s", g.name)
	}

	cp, err := g.checkpointStore.Load(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	if cp.Graph != "" && cp.Graph != g.name {
		return nil, fmt.Errorf("checkpoint %s belongs to graph %s, not %s", runID, cp.Graph, g.name)
	}

	g.emit(ctx, observability.EventCheckpointLoad, observability.LevelInfo, map[string]any{
		"run_id": runID,
		"node":   cp.Node,
		"step":   cp.Step,
	})

	if _, exists := g.nodes[cp.Node]; !exists {
		return nil, fmt.Errorf("checkpoint node %s: %w", cp.Node, ErrUnknownNode)
	}

	restored := state.Restore(g.schema, cp.Data)
	next, _, err := g.next(cp.Node, restored)
	if err != nil {
		return nil, fmt.Errorf("failed to find next node after checkpoint: %w", err)
	}
	if next == End {
		return nil, fmt.Errorf("checkpoint %s: %w", runID, ErrRunComplete)
	}

	g.emit(ctx, observability.EventCheckpointResume, observability.LevelInfo, map[string]any{
		"run_id":          runID,
		"checkpoint_node": cp.Node,
		"resume_node":     next,
	})

	o := g.runOptions(append([]RunOption{WithRunID(runID)}, opts...))

	r := &run{
		id:       o.runID,
		state:    restored,
		current:  next,
		steps:    cp.Step,
		maxSteps: o.maxSteps,
		path:     append([]string(nil), cp.Path...),
		visited:  make(map[string]int),
	}
	for _, name := range r.path {
		r.visited[name]++
	}

	return g.execute(ctx, r)
}

func (g *Graph) runOptions(opts []RunOption) runOptions {
	o := runOptions{maxSteps: g.maxSteps}
	for _, opt := range opts {
		opt(&o)
	}
	if o.runID == "" {
		o.runID = uuid.Must(uuid.NewV7()).String()
	}
	return o
}

func (g *Graph) execute(ctx context.Context, r *run) (*Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "graph.run",
		trace.WithAttributes(
			attribute.String("graph.name", g.name),
			attribute.String("graph.run_id", r.id),
		),
	)
	defer span.End()

	g.emit(ctx, observability.EventGraphStart, observability.LevelInfo, map[string]any{
		"run_id":      r.id,
		"entry_point": r.current,
		"max_steps":   r.maxSteps,
	})

	for {
		if err := ctx.Err(); err != nil {
			return g.fail(ctx, r, fmt.Errorf("%w: %w", ErrCancelled, err))
		}

		if r.steps >= r.maxSteps {
			return g.fail(ctx, r, fmt.Errorf("%w (%d)", ErrStepLimitExceeded, r.maxSteps))
		}

		r.steps++
		r.path = append(r.path, r.current)
		r.visited[r.current]++

		if r.visited[r.current] > 1 {
			g.emit(ctx, observability.EventCycleDetected, observability.LevelWarning, map[string]any{
				"run_id":      r.id,
				"node":        r.current,
				"visit_count": r.visited[r.current],
				"step":        r.steps,
			})
		}

		node, exists := g.nodes[r.current]
		if !exists {
			return g.fail(ctx, r, fmt.Errorf("%w: %s", ErrUnknownNode, r.current))
		}

		update, err := g.apply(ctx, r, node)
		if err != nil {
			return g.fail(ctx, r, fmt.Errorf("%w: %w", ErrNodeFailure, err))
		}

		merged, err := r.state.Merge(update)
		if err != nil {
			return g.fail(ctx, r, err)
		}
		r.state = merged

		g.emit(ctx, observability.EventStateMerge, observability.LevelVerbose, map[string]any{
			"run_id": r.id,
			"node":   r.current,
			"step":   r.steps,
			"fields": sortedKeys(update),
		})

		if err := g.checkpoint(ctx, r); err != nil {
			return g.fail(ctx, r, err)
		}

		next, label, err := g.next(r.current, r.state)
		if err != nil {
			return g.fail(ctx, r, err)
		}

		data := map[string]any{
			"run_id": r.id,
			"from":   r.current,
			"to":     next,
			"step":   r.steps,
		}
		if label != "" {
			data["label"] = label
		}
		g.emit(ctx, observability.EventEdgeRoute, observability.LevelVerbose, data)

		if next == End {
			return g.complete(ctx, r), nil
		}
		r.current = next
	}
}

// apply invokes node inside its own span. The node context keeps the run's
// values but drops its cancellation so a started step runs to completion.
func (g *Graph) apply(ctx context.Context, r *run, node Node) (state.Update, error) {
	nodeCtx, span := otel.Tracer(tracerName).Start(ctx, "graph.node",
		trace.WithAttributes(
			attribute.String("graph.node", r.current),
			attribute.Int("graph.step", r.steps),
		),
	)
	defer span.End()

	g.emit(nodeCtx, observability.EventNodeStart, observability.LevelVerbose, map[string]any{
		"run_id": r.id,
		"node":   r.current,
		"step":   r.steps,
	})

	start := time.Now()
	update, err := node.Apply(context.WithoutCancel(nodeCtx), r.state)
	duration := time.Since(start)

	g.emit(nodeCtx, observability.EventNodeComplete, observability.LevelVerbose, map[string]any{
		"run_id":   r.id,
		"node":     r.current,
		"step":     r.steps,
		"duration": duration,
		"error":    err != nil,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return update, nil
}

// next resolves the destination after from. For conditional edges it also
// returns the router's label.
func (g *Graph) next(from string, s state.State) (string, string, error) {
	edge, exists := g.edges[from]
	if !exists {
		return "", "", fmt.Errorf("%w: no outgoing edge from %s", ErrUnknownNode, from)
	}

	if edge.kind == EdgeDirect {
		return edge.to, "", nil
	}

	label := edge.router.Route(s)
	to, ok := edge.routes[label]
	if !ok {
		return "", label, fmt.Errorf("%w: router %s returned %q", ErrRouterInconsistency, edge.name, label)
	}
	return to, label, nil
}

func (g *Graph) checkpoint(ctx context.Context, r *run) error {
	if g.checkpointInterval <= 0 || r.steps%g.checkpointInterval != 0 {
		return nil
	}

	cp := Checkpoint{
		RunID:     r.id,
		Graph:     g.name,
		Node:      r.current,
		Step:      r.steps,
		Path:      append([]string(nil), r.path...),
		Data:      r.state.Data(),
		Timestamp: time.Now().UTC(),
	}

	if err := g.checkpointStore.Save(context.WithoutCancel(ctx), cp); err != nil {
		return fmt.Errorf("checkpoint save failed: %w", err)
	}

	g.emit(ctx, observability.EventCheckpointSave, observability.LevelInfo, map[string]any{
		"run_id": r.id,
		"node":   r.current,
		"step":   r.steps,
	})
	return nil
}

func (g *Graph) complete(ctx context.Context, r *run) *Result {
	g.emit(ctx, observability.EventGraphComplete, observability.LevelInfo, map[string]any{
		"run_id": r.id,
		"steps":  r.steps,
		"path":   append([]string(nil), r.path...),
	})

	if g.checkpointInterval > 0 && !g.preserve {
		if err := g.checkpointStore.Delete(context.WithoutCancel(ctx), r.id); err != nil {
			g.emit(ctx, observability.EventCheckpointDelete, observability.LevelWarning, map[string]any{
				"run_id": r.id,
				"error":  err.Error(),
			})
		}
	}

	return &Result{
		RunID:  r.id,
		Graph:  g.name,
		Status: StatusCompleted,
		State:  r.state,
		Steps:  r.steps,
		Path:   r.path,
	}
}

func (g *Graph) fail(ctx context.Context, r *run, cause error) (*Result, error) {
	err := &ExecutionError{
		Graph: g.name,
		RunID: r.id,
		Node:  r.current,
		Step:  r.steps,
		Path:  append([]string(nil), r.path...),
		State: r.state,
		Err:   cause,
	}

	g.emit(ctx, observability.EventGraphFailed, observability.LevelError, map[string]any{
		"run_id": r.id,
		"node":   r.current,
		"steps":  r.steps,
		"cause":  cause.Error(),
	})

	trace.SpanFromContext(ctx).SetStatus(codes.Error, cause.Error())

	return &Result{
		RunID:  r.id,
		Graph:  g.name,
		Status: StatusFailed,
		State:  r.state,
		Steps:  r.steps,
		Path:   r.path,
		Err:    err,
	}, err
}

func (g *Graph) emit(ctx context.Context, eventType observability.EventType, level observability.Level, data map[string]any) {
	g.observer.OnEvent(ctx, observability.Event{
		Type:      eventType,
		Level:     level,
		Timestamp: time.Now(),
		Source:    g.name,
		Data:      data,
	})
}
