package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records per-route request counts, latency and response size.
type HTTPMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	size     metric.Int64Histogram
}

func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requests, err := meter.Int64Counter(
		"flowgraph_http_requests_total",
		metric.WithDescription("HTTP requests by method, route and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		"flowgraph_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	size, err := meter.Int64Histogram(
		"flowgraph_http_response_size_bytes",
		metric.WithDescription("HTTP response body size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http response size histogram: %w", err)
	}

	return &HTTPMetrics{requests: requests, duration: duration, size: size}, nil
}

// RecordRequest records one finished request. route is the matched router
// pattern, not the raw path.
func (m *HTTPMetrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration, size int) {
	routeAttr := attribute.String("route", route)
	methodAttr := attribute.String("method", method)

	m.requests.Add(ctx, 1, metric.WithAttributes(methodAttr, routeAttr, attribute.String("status", strconv.Itoa(status))))
	m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(methodAttr, routeAttr))
	m.size.Record(ctx, int64(size), metric.WithAttributes(methodAttr, routeAttr))
}
