// Package pipeline is the content-processing runtime. It composes the
// content graph with its observers, checkpoint store and telemetry from a
// single Config.
//
// The pipeline initializes from configuration via New, creating every
// subsystem internally. Functional options override any of them in tests.
//
//	p, err := pipeline.New(&cfg)
//	defer p.Close(ctx)
//	res, err := p.Process(ctx, "hello world")
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailored-agentic-units/flowgraph/content"
	"github.com/tailored-agentic-units/flowgraph/observability"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/batch"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph"
	"github.com/tailored-agentic-units/flowgraph/orchestrate/graph/sqlitestore"
)

// BatchResult is the outcome of ProcessBatch.
type BatchResult = batch.Result[string, *content.Result]

// Option configures a Pipeline after config-driven initialization.
type Option func(*options)

type options struct {
	observer observability.Observer
	store    graph.CheckpointStore
	logger   *slog.Logger
	registry *prometheus.Registry
	traceOut io.Writer
}

// WithObserver replaces the observer named in the graph config. Metrics and
// tracing observers are still added when enabled.
func WithObserver(o observability.Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithCheckpointStore replaces the store named in the checkpoint config.
func WithCheckpointStore(s graph.CheckpointStore) Option {
	return func(opts *options) { opts.store = s }
}

// WithLogger routes the "slog" observer to logger instead of slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) { opts.logger = logger }
}

// WithPrometheusRegistry collects metrics into registry instead of a
// private one.
func WithPrometheusRegistry(r *prometheus.Registry) Option {
	return func(opts *options) { opts.registry = r }
}

// WithTraceWriter sends exported spans to w instead of os.Stderr.
func WithTraceWriter(w io.Writer) Option {
	return func(opts *options) { opts.traceOut = w }
}

// Pipeline runs content through the graph. It is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	processor *content.Processor
	observer  observability.Observer
	store     graph.CheckpointStore
	registry  *prometheus.Registry
	httpStats *observability.HTTPMetrics
	closers   []func(context.Context) error
}

// New creates a Pipeline from configuration.
func New(cfg *Config, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{cfg: *cfg}

	observer, err := p.initObservers(o)
	if err != nil {
		p.Close(context.Background())
		return nil, err
	}
	p.observer = observer

	if cfg.Graph.Checkpoint.Enabled() {
		store, err := p.initCheckpointStore(o)
		if err != nil {
			p.Close(context.Background())
			return nil, fmt.Errorf("failed to create checkpoint store: %w", err)
		}
		p.store = store
	}

	processor, err := content.NewWithDeps(cfg.Content, cfg.Graph, p.observer, p.store)
	if err != nil {
		p.Close(context.Background())
		return nil, fmt.Errorf("failed to create processor: %w", err)
	}
	p.processor = processor

	return p, nil
}

func (p *Pipeline) initObservers(o options) (observability.Observer, error) {
	base := o.observer
	if base == nil {
		if p.cfg.Graph.Observer == "slog" && o.logger != nil {
			base = observability.NewSlogObserver(o.logger)
		} else {
			resolved, err := observability.GetObserver(p.cfg.Graph.Observer)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve observer: %w", err)
			}
			base = resolved
		}
	}

	observers := []observability.Observer{base}

	if p.cfg.Metrics.Enabled {
		metrics, err := p.initMetrics(o.registry)
		if err != nil {
			return nil, err
		}
		observers = append(observers, metrics)
	}

	if p.cfg.Tracing.Enabled {
		provider, err := observability.NewTracerProvider(observability.TracerConfig{
			ServiceName:  p.cfg.Tracing.ServiceName,
			Exporter:     p.cfg.Tracing.Exporter,
			SamplingRate: p.cfg.Tracing.SamplingRate,
			Writer:       o.traceOut,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer provider: %w", err)
		}
		p.closers = append(p.closers, provider.Shutdown)
		observers = append(observers, observability.NewTraceObserver())
	}

	return observability.Combine(observers...), nil
}

func (p *Pipeline) initMetrics(registry *prometheus.Registry) (observability.Observer, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	p.registry = registry

	provider, err := observability.NewPrometheusMeterProvider(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}
	p.closers = append(p.closers, provider.Shutdown)

	meter := observability.Meter(provider)

	p.httpStats, err = observability.NewHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	metrics, err := observability.NewMetricsObserver(meter)
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func (p *Pipeline) initCheckpointStore(o options) (graph.CheckpointStore, error) {
	if o.store != nil {
		return o.store, nil
	}

	cp := p.cfg.Graph.Checkpoint
	switch cp.Store {
	case "file":
		path := cp.Path
		if path == "" {
			path = DefaultFileCheckpointPath
		}
		return graph.NewFileCheckpointStore(path), nil
	case "sqlite":
		path := cp.Path
		if path == "" {
			path = DefaultSQLiteCheckpointPath
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		store, err := sqlitestore.Open(path)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func(context.Context) error { return store.Close() })
		return store, nil
	default:
		return graph.GetCheckpointStore(cp.Store)
	}
}

// Config returns the configuration the pipeline was built from.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Process runs one input through the graph.
func (p *Pipeline) Process(ctx context.Context, text string, opts ...graph.RunOption) (*content.Result, error) {
	return p.processor.Process(ctx, text, opts...)
}

// ProcessBatch runs independent inputs concurrently per the batch config.
// A run failure counts as an item failure; validation failures do not.
func (p *Pipeline) ProcessBatch(ctx context.Context, texts []string, progress batch.ProgressFunc[*content.Result]) (BatchResult, error) {
	return batch.ProcessWithObserver(ctx, p.cfg.Batch, p.observer, texts,
		func(ctx context.Context, text string) (*content.Result, error) {
			return p.processor.Process(ctx, text)
		},
		progress,
	)
}

// Resume continues a checkpointed run.
func (p *Pipeline) Resume(ctx context.Context, runID string) (*content.Result, error) {
	if p.store == nil {
		return nil, ErrCheckpointingDisabled
	}
	return p.processor.Resume(ctx, runID)
}

// Checkpoints lists stored checkpoints ordered by run id.
func (p *Pipeline) Checkpoints(ctx context.Context) ([]graph.Checkpoint, error) {
	if p.store == nil {
		return nil, ErrCheckpointingDisabled
	}

	ids, err := p.store.List(ctx)
	if err != nil {
		return nil, err
	}

	checkpoints := make([]graph.Checkpoint, 0, len(ids))
	for _, id := range ids {
		cp, err := p.store.Load(ctx, id)
		if errors.Is(err, graph.ErrCheckpointNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, nil
}

// DeleteCheckpoint removes the checkpoint of runID.
func (p *Pipeline) DeleteCheckpoint(ctx context.Context, runID string) error {
	if p.store == nil {
		return ErrCheckpointingDisabled
	}
	return p.store.Delete(ctx, runID)
}

// Topology describes the content graph.
func (p *Pipeline) Topology() graph.Topology {
	return p.processor.Graph().Topology()
}

// MetricsHandler serves the Prometheus registry, or nil when metrics are
// disabled.
func (p *Pipeline) MetricsHandler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// HTTPMetrics returns the request instruments on the pipeline's meter, or
// nil when metrics are disabled.
func (p *Pipeline) HTTPMetrics() *observability.HTTPMetrics {
	return p.httpStats
}

// Close flushes telemetry and releases the checkpoint store.
func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
