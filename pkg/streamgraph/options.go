package streamgraph

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph/event"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/observability"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/report"
)

// DefaultIdleSleep is how long the scheduler sleeps after a cycle in
// which no block made progress.
const DefaultIdleSleep = 500 * time.Microsecond

// runConfig holds configuration for one run of a compiled graph.
type runConfig struct {
	runID     string
	logger    *slog.Logger
	idleSleep time.Duration
	workers   int

	metricsEnabled bool
	metrics        observability.MetricsRecorder
	tracingEnabled bool
	spans          observability.SpanManager

	bus         event.Bus
	reports     report.Store
	reportRetry report.RetryConfig
}

// defaultRunConfig returns the default run configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		logger:    slog.Default(),
		idleSleep: DefaultIdleSleep,
		workers:   1,
		metrics:   observability.NoopMetrics{},
		spans:     observability.NoopSpanManager{},

		reportRetry: report.DefaultRetry,
	}
}

// RunOption configures a run.
type RunOption func(*runConfig)

// WithRunID sets the run identifier used in logs, spans, events and
// reports. Default: a random UUID per Start.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithLogger sets the logger for the run.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIdleSleep sets the pause after a cycle in which no block made
// progress. Zero disables the pause (the scheduler only yields).
// Default: 500µs
func WithIdleSleep(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d >= 0 {
			c.idleSleep = d
		}
	}
}

// WithWorkers sets how many blocks of one topological level may be
// processed concurrently. Values below 2 keep the scheduler sequential.
// Default: 1
//
// Example:
//
//	err := compiled.Run(ctx, streamgraph.WithWorkers(runtime.NumCPU()))
func WithWorkers(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMetrics enables OpenTelemetry metrics for the run.
// Default: disabled
//
// Metrics recorded:
//   - streamgraph.block.process_calls (counter)
//   - streamgraph.block.samples_consumed (counter)
//   - streamgraph.block.samples_produced (counter)
//   - streamgraph.block.errors (counter)
//   - streamgraph.graph.runs (counter)
//   - streamgraph.graph.run_duration_ms (histogram)
//
// Configure the global MeterProvider before running:
//
//	otel.SetMeterProvider(yourMeterProvider)
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		c.metricsEnabled = enabled
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithMetricsRecorder records metrics with a custom recorder, such as
// observability.PromMetrics. A nil recorder disables metrics.
func WithMetricsRecorder(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		c.metricsEnabled = m != nil
		if m == nil {
			m = observability.NoopMetrics{}
		}
		c.metrics = m
	}
}

// WithTracing enables OpenTelemetry tracing for the run.
// Default: disabled
//
// One "streamgraph.run" span covers the run; parameter changes and block
// errors are added to it as span events.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithEventBus publishes lifecycle events (graph.started, graph.stopped,
// graph.failed, block.error, block.parameter_changed) to bus.
// Use a non-blocking bus: the scheduler publishes inline.
func WithEventBus(bus event.Bus) RunOption {
	return func(c *runConfig) {
		c.bus = bus
	}
}

// WithReportStore saves a run report to store when the run ends.
// A failing save is logged and does not change the run result.
func WithReportStore(store report.Store) RunOption {
	return func(c *runConfig) {
		c.reports = store
	}
}

// WithReportRetry sets how a report save that hits a busy database is
// retried. Default: report.DefaultRetry
func WithReportRetry(cfg report.RetryConfig) RunOption {
	return func(c *runConfig) {
		c.reportRetry = cfg
	}
}
