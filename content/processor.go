package content

import (
	"context"

	"github.com/tailored-agentic-units/flowgraph/observability"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/config"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
)

// DefaultGraphName identifies the content graph in events and checkpoints.
const DefaultGraphName = "content-processor"

// NewBuilder assembles the content topology. Callers may add to it before
// building, but the reference nodes and edges are already in place.
func NewBuilder(cfg Config) *graph.Builder {
	return graph.NewBuilder().
		WithSchema(schema).
		AddNode(NodeValidate, Validate(cfg.MaxLength)).
		AddNode(NodeProcess, Transform()).
		AddNode(NodeFormat, Format()).
		AddNode(NodeError, HandleError()).
		SetEntryPoint(NodeValidate).
		AddEdge(NodeValidate, graph.Conditional(RouterName, ShouldProcess(), map[string]string{
			LabelProcess: NodeProcess,
			LabelError:   NodeError,
		})).
		AddEdge(NodeProcess, graph.Direct(NodeFormat)).
		AddEdge(NodeFormat, graph.Direct(graph.End)).
		AddEdge(NodeError, graph.Direct(graph.End))
}

// Processor runs the content graph. It is safe for concurrent use.
type Processor struct {
	graph *graph.Graph
}

// New builds a Processor, resolving the observer and checkpoint store named
// in graphCfg from their registries.
func New(cfg Config, graphCfg config.GraphConfig) (*Processor, error) {
	if graphCfg.Name == "" {
		graphCfg.Name = DefaultGraphName
	}

	g, err := NewBuilder(cfg).Build(graphCfg)
	if err != nil {
		return nil, err
	}
	return &Processor{graph: g}, nil
}

// NewWithDeps builds a Processor with an explicit observer and checkpoint
// store.
func NewWithDeps(cfg Config, graphCfg config.GraphConfig, observer observability.Observer, store graph.CheckpointStore) (*Processor, error) {
	if graphCfg.Name == "" {
		graphCfg.Name = DefaultGraphName
	}

	g, err := NewBuilder(cfg).BuildWithDeps(graphCfg, observer, store)
	if err != nil {
		return nil, err
	}
	return &Processor{graph: g}, nil
}

// Graph returns the underlying graph.
func (p *Processor) Graph() *graph.Graph {
	return p.graph
}

// Process runs text through the graph. Validation failures complete
// normally with Result.Error set; err is non-nil only when the run itself
// failed.
func (p *Processor) Process(ctx context.Context, text string, opts ...graph.RunOption) (*Result, error) {
	res, err := p.graph.Run(ctx, map[string]any{FieldContent: text}, opts...)
	return NewResult(res), err
}

// Resume continues a checkpointed run.
func (p *Processor) Resume(ctx context.Context, runID string, opts ...graph.RunOption) (*Result, error) {
	res, err := p.graph.Resume(ctx, runID, opts...)
	if res == nil {
		return nil, err
	}
	return NewResult(res), err
}

// Result is the typed view of a finished content run.
type Result struct {
	RunID            string       `json:"run_id"`
	Status           graph.Status `json:"status"`
	Content          string       `json:"content"`
	ProcessedContent string       `json:"processed_content,omitempty"`
	FinalResult      string       `json:"final_result"`
	Error            string       `json:"error,omitempty"`
	CurrentStep      string       `json:"current_step"`
	Messages         []string     `json:"messages"`
	Steps            int          `json:"steps"`
	Path             []string     `json:"path"`
	Failure          string       `json:"failure,omitempty"`
}

// NewResult reads the content fields out of a graph result.
func NewResult(res *graph.Result) *Result {
	s := res.State
	out := &Result{
		RunID:            res.RunID,
		Status:           res.Status,
		Content:          s.GetString(FieldContent),
		ProcessedContent: s.GetString(FieldProcessedContent),
		FinalResult:      s.GetString(FieldFinalResult),
		Error:            s.GetString(FieldError),
		CurrentStep:      s.GetString(FieldCurrentStep),
		Messages:         s.GetStrings(FieldMessages),
		Steps:            res.Steps,
		Path:             res.Path,
	}
	if res.Err != nil {
		out.Failure = res.Err.Error()
	}
	return out
}

// Valid reports whether the input passed validation.
func (r *Result) Valid() bool {
	return r.Error == ""
}
