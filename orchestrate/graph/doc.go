// Package graph executes declarative workflow graphs over a shared State.
//
// A Graph is built once from named Nodes, one outgoing Edge per node, an
// entry point and the terminal marker End. Build validates the whole
// topology and fails with a *ConstructionError listing every problem, so a
// Graph that exists is well-formed:
//
//	g, err := graph.NewBuilder().
//	    WithSchema(schema).
//	    AddNode("validate", validate).
//	    AddNode("process", process).
//	    AddNode("fail", fail).
//	    AddEdge("validate", graph.Conditional("should_process", router, map[string]string{
//	        "process": "process",
//	        "error":   "fail",
//	    })).
//	    AddEdge("process", graph.Direct(graph.End)).
//	    AddEdge("fail", graph.Direct(graph.End)).
//	    SetEntryPoint("validate").
//	    Build(config.DefaultGraphConfig("content"))
//
// # Execution
//
// Run walks the graph one step at a time: apply the current node, merge its
// Update into State, then pick the next node from the direct edge or from
// the router evaluated on the merged State. The run completes when the next
// node is End. It fails, returning an *ExecutionError with the State at the
// point of failure, when a node errors, a merge hits a type mismatch, a
// router returns an undeclared label, the step bound is exceeded or the
// context is cancelled.
//
// Cancellation is observed between steps only. Nodes receive a context that
// carries the run's values but not its cancellation; a node that blocks on
// external work should be wrapped with WithTimeout.
//
// # Cycles
//
// Cycles are allowed as long as every node can still reach End. A cycle with
// no way out is rejected by Build; a cycle whose router never takes the exit
// is stopped by the step bound.
//
// # Checkpoints
//
// With checkpointing enabled, the State is saved to a CheckpointStore every N
// steps and Resume continues an interrupted run from its last checkpoint.
//
// A Graph is immutable and safe for concurrent runs.
package graph
