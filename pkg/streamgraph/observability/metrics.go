package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records streamgraph metrics.
// Use NewMetricsRecorder() for OTel metrics, NewPromMetrics() for Prometheus,
// or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordProcess records one Process call of a block: the samples it
	// consumed and produced, and the error it reported, if any.
	RecordProcess(ctx context.Context, block string, consumed, produced int, err error)

	// RecordRun records the end of a graph run.
	RecordRun(ctx context.Context, success bool, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	processCalls    metric.Int64Counter
	samplesConsumed metric.Int64Counter
	samplesProduced metric.Int64Counter
	blockErrors     metric.Int64Counter
	graphRuns       metric.Int64Counter
	runDuration     metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("streamgraph")

	processCalls, err := meter.Int64Counter("streamgraph.block.process_calls",
		metric.WithDescription("Number of block Process calls"),
	)
	if err != nil {
		return nil, err
	}

	samplesConsumed, err := meter.Int64Counter("streamgraph.block.samples_consumed",
		metric.WithDescription("Samples consumed from input edges"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, err
	}

	samplesProduced, err := meter.Int64Counter("streamgraph.block.samples_produced",
		metric.WithDescription("Samples written to output edges"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, err
	}

	blockErrors, err := meter.Int64Counter("streamgraph.block.errors",
		metric.WithDescription("Number of errors reported by blocks"),
	)
	if err != nil {
		return nil, err
	}

	graphRuns, err := meter.Int64Counter("streamgraph.graph.runs",
		metric.WithDescription("Number of graph runs"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram("streamgraph.graph.run_duration_ms",
		metric.WithDescription("Graph run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		processCalls:    processCalls,
		samplesConsumed: samplesConsumed,
		samplesProduced: samplesProduced,
		blockErrors:     blockErrors,
		graphRuns:       graphRuns,
		runDuration:     runDuration,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordProcess records a block Process call.
func (m *otelMetrics) RecordProcess(ctx context.Context, block string, consumed, produced int, err error) {
	attrs := metric.WithAttributes(attribute.String("block", block))

	m.processCalls.Add(ctx, 1, attrs)
	if consumed > 0 {
		m.samplesConsumed.Add(ctx, int64(consumed), attrs)
	}
	if produced > 0 {
		m.samplesProduced.Add(ctx, int64(produced), attrs)
	}
	if err != nil {
		m.blockErrors.Add(ctx, 1, attrs)
	}
}

// RecordRun records a graph run.
func (m *otelMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.graphRuns.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}
