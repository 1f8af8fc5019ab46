package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// StreamMetrics holds instruments describing event stream traffic.
type StreamMetrics struct {
	connections metric.Int64UpDownCounter
	events      metric.Int64Counter
	filtered    metric.Int64Counter
	errors      metric.Int64Counter
}

// NewStreamMetrics creates stream instruments on the given meter.
func NewStreamMetrics(meter metric.Meter) (*StreamMetrics, error) {
	connections, err := meter.Int64UpDownCounter("eventsource.connections.active",
		metric.WithDescription("Number of open event stream connections"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating eventsource.connections.active: %w", err)
	}
	events, err := meter.Int64Counter("eventsource.events",
		metric.WithDescription("Normalized events delivered to consumers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating eventsource.events: %w", err)
	}
	filtered, err := meter.Int64Counter("eventsource.filtered",
		metric.WithDescription("Raw records dropped by the filter (comments, keep-alives)"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating eventsource.filtered: %w", err)
	}
	errs, err := meter.Int64Counter("eventsource.errors",
		metric.WithDescription("Transport errors passed through to consumers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating eventsource.errors: %w", err)
	}

	return &StreamMetrics{
		connections: connections,
		events:      events,
		filtered:    filtered,
		errors:      errs,
	}, nil
}

// RecordConnection adjusts the active connection gauge by delta.
func (m *StreamMetrics) RecordConnection(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.connections.Add(ctx, delta)
}

// RecordEvent counts a delivered event of the given type.
func (m *StreamMetrics) RecordEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// RecordFiltered counts a dropped raw record; kind is "comment" or "keep-alive".
func (m *StreamMetrics) RecordFiltered(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.filtered.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordError counts a passed-through transport error.
func (m *StreamMetrics) RecordError(ctx context.Context) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1)
}

// RequestMetrics holds instruments for REST calls.
type RequestMetrics struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRequestMetrics creates request instruments on the given meter.
func NewRequestMetrics(meter metric.Meter) (*RequestMetrics, error) {
	total, err := meter.Int64Counter("http.client.requests",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.requests: %w", err)
	}
	duration, err := meter.Float64Histogram("http.client.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http.client.duration: %w", err)
	}
	return &RequestMetrics{total: total, duration: duration}, nil
}

// RecordRequest records a completed request.
func (m *RequestMetrics) RecordRequest(ctx context.Context, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.total.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("method", method)))
}
