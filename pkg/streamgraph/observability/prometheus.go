package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics implements MetricsRecorder with Prometheus collectors.
type PromMetrics struct {
	processCalls    *prometheus.CounterVec
	samplesConsumed *prometheus.CounterVec
	samplesProduced *prometheus.CounterVec
	blockErrors     *prometheus.CounterVec
	graphRuns       *prometheus.CounterVec
	runDuration     prometheus.Histogram
}

var _ MetricsRecorder = (*PromMetrics)(nil)

// NewPromMetrics creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewPromMetrics(reg prometheus.Registerer) (*PromMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &PromMetrics{
		processCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgraph_block_process_calls_total",
			Help: "Number of block Process calls.",
		}, []string{"block"}),
		samplesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgraph_block_samples_consumed_total",
			Help: "Samples consumed from input edges.",
		}, []string{"block"}),
		samplesProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgraph_block_samples_produced_total",
			Help: "Samples written to output edges.",
		}, []string{"block"}),
		blockErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgraph_block_errors_total",
			Help: "Errors reported by blocks.",
		}, []string{"block"}),
		graphRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "streamgraph_graph_runs_total",
			Help: "Completed graph runs.",
		}, []string{"success"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamgraph_graph_run_duration_seconds",
			Help:    "Graph run duration.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{
		p.processCalls, p.samplesConsumed, p.samplesProduced,
		p.blockErrors, p.graphRuns, p.runDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordProcess records a block Process call.
func (p *PromMetrics) RecordProcess(_ context.Context, block string, consumed, produced int, err error) {
	p.processCalls.WithLabelValues(block).Inc()
	if consumed > 0 {
		p.samplesConsumed.WithLabelValues(block).Add(float64(consumed))
	}
	if produced > 0 {
		p.samplesProduced.WithLabelValues(block).Add(float64(produced))
	}
	if err != nil {
		p.blockErrors.WithLabelValues(block).Inc()
	}
}

// RecordRun records a graph run.
func (p *PromMetrics) RecordRun(_ context.Context, success bool, duration time.Duration) {
	p.graphRuns.WithLabelValues(strconv.FormatBool(success)).Inc()
	p.runDuration.Observe(duration.Seconds())
}
