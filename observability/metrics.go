package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/tailored-agentic-units/flowgraph"

// MetricsObserver aggregates engine events into OpenTelemetry instruments.
type MetricsObserver struct {
	runs        metric.Int64Counter
	runSteps    metric.Int64Histogram
	nodeRuns    metric.Int64Counter
	nodeLatency metric.Float64Histogram
	routes      metric.Int64Counter
	checkpoints metric.Int64Counter
	batchItems  metric.Int64Counter
}

// NewMetricsObserver creates the flowgraph instruments on the given meter.
func NewMetricsObserver(meter metric.Meter) (*MetricsObserver, error) {
	runs, err := meter.Int64Counter(
		"flowgraph_runs_total",
		metric.WithDescription("Graph runs by terminal status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create runs counter: %w", err)
	}

	runSteps, err := meter.Int64Histogram(
		"flowgraph_run_steps",
		metric.WithDescription("Node invocations per graph run"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run steps histogram: %w", err)
	}

	nodeRuns, err := meter.Int64Counter(
		"flowgraph_node_executions_total",
		metric.WithDescription("Node invocations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create node executions counter: %w", err)
	}

	nodeLatency, err := meter.Float64Histogram(
		"flowgraph_node_duration_seconds",
		metric.WithDescription("Node execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create node duration histogram: %w", err)
	}

	routes, err := meter.Int64Counter(
		"flowgraph_route_decisions_total",
		metric.WithDescription("Conditional edge decisions by label"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create route decisions counter: %w", err)
	}

	checkpoints, err := meter.Int64Counter(
		"flowgraph_checkpoints_saved_total",
		metric.WithDescription("Checkpoints written during graph runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkpoints counter: %w", err)
	}

	batchItems, err := meter.Int64Counter(
		"flowgraph_batch_items_total",
		metric.WithDescription("Batch items processed by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch items counter: %w", err)
	}

	return &MetricsObserver{
		runs:        runs,
		runSteps:    runSteps,
		nodeRuns:    nodeRuns,
		nodeLatency: nodeLatency,
		routes:      routes,
		checkpoints: checkpoints,
		batchItems:  batchItems,
	}, nil
}

func (m *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	graph := attribute.String("graph", event.Source)

	switch event.Type {
	case EventGraphComplete, EventGraphFailed:
		status := "completed"
		if event.Type == EventGraphFailed {
			status = "failed"
		}
		m.runs.Add(ctx, 1, metric.WithAttributes(graph, attribute.String("status", status)))
		if steps, ok := event.Data["steps"].(int); ok {
			m.runSteps.Record(ctx, int64(steps), metric.WithAttributes(graph))
		}

	case EventNodeComplete:
		node, _ := event.Data["node"].(string)
		outcome := "ok"
		if failed, _ := event.Data["error"].(bool); failed {
			outcome = "error"
		}
		attrs := metric.WithAttributes(graph, attribute.String("node", node))
		m.nodeRuns.Add(ctx, 1, metric.WithAttributes(graph, attribute.String("node", node), attribute.String("outcome", outcome)))
		if d, ok := event.Data["duration"].(time.Duration); ok {
			m.nodeLatency.Record(ctx, d.Seconds(), attrs)
		}

	case EventEdgeRoute:
		if label, ok := event.Data["label"].(string); ok {
			from, _ := event.Data["from"].(string)
			m.routes.Add(ctx, 1, metric.WithAttributes(graph, attribute.String("from", from), attribute.String("label", label)))
		}

	case EventCheckpointSave:
		m.checkpoints.Add(ctx, 1, metric.WithAttributes(graph))

	case EventBatchItem:
		outcome := "ok"
		if failed, _ := event.Data["error"].(bool); failed {
			outcome = "error"
		}
		m.batchItems.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// NewPrometheusMeterProvider builds a MeterProvider whose readings are
// exported through the given Prometheus registerer. A nil registerer uses
// prometheus.DefaultRegisterer.
func NewPrometheusMeterProvider(registerer prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)), nil
}

// Meter returns the flowgraph meter from a provider.
func Meter(provider metric.MeterProvider) metric.Meter {
	return provider.Meter(meterName)
}
