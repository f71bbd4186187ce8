package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/tailored-agentic-units/flowgraph/observability"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, agg metricdata.Aggregation) int64 {
	t.Helper()

	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "aggregation %T is not an int64 sum", agg)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsObserver_RecordsRunAndNodeEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	obs, err := observability.NewMetricsObserver(observability.Meter(provider))
	require.NoError(t, err)

	ctx := context.Background()
	obs.OnEvent(ctx, observability.Event{
		Type:   observability.EventNodeComplete,
		Source: "content",
		Data:   map[string]any{"node": "validate_input", "error": false, "duration": 3 * time.Millisecond},
	})
	obs.OnEvent(ctx, observability.Event{
		Type:   observability.EventEdgeRoute,
		Source: "content",
		Data:   map[string]any{"from": "validate_input", "label": "process"},
	})
	obs.OnEvent(ctx, observability.Event{
		Type:   observability.EventGraphComplete,
		Source: "content",
		Data:   map[string]any{"steps": 3},
	})
	obs.OnEvent(ctx, observability.Event{
		Type:   observability.EventGraphFailed,
		Source: "content",
		Data:   map[string]any{"steps": 1},
	})

	data := collect(t, reader)

	assert.Equal(t, int64(2), sumOf(t, data["flowgraph_runs_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["flowgraph_node_executions_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["flowgraph_route_decisions_total"]))

	hist, ok := data["flowgraph_run_steps"].(metricdata.Histogram[int64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(2), hist.DataPoints[0].Count)
	assert.Equal(t, int64(4), hist.DataPoints[0].Sum)
}

func TestMetricsObserver_IgnoresUnrelatedEvents(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	obs, err := observability.NewMetricsObserver(observability.Meter(provider))
	require.NoError(t, err)

	obs.OnEvent(context.Background(), observability.Event{Type: observability.EventNodeStart, Source: "content"})

	assert.Empty(t, collect(t, reader))
}

func TestNewPrometheusMeterProvider(t *testing.T) {
	registry := prometheus.NewRegistry()

	provider, err := observability.NewPrometheusMeterProvider(registry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	obs, err := observability.NewMetricsObserver(observability.Meter(provider))
	require.NoError(t, err)

	obs.OnEvent(context.Background(), observability.Event{
		Type:   observability.EventGraphComplete,
		Source: "content",
		Data:   map[string]any{"steps": 3},
	})

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "flowgraph_runs_total")
}
