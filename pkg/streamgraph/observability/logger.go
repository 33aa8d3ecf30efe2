// Package observability provides structured logging, metrics and tracing
// for streamgraph runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry or Prometheus
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// EnrichLogger adds run context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "m17-streamer", "run-123")
//	enriched.Info("starting") // includes graph, run_id
func EnrichLogger(logger *slog.Logger, graph, runID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("graph", graph),
		slog.String("run_id", runID),
	)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, runID string, blocks, workers int) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
		slog.Int("blocks", blocks),
		slog.Int("workers", workers),
	)
}

// LogRunStopped logs a clean end of a graph run.
func LogRunStopped(logger *slog.Logger, runID string, durationMs float64, cycles int64) {
	if logger == nil {
		return
	}
	logger.Info("graph run stopped",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int64("cycles", cycles),
	)
}

// LogRunError logs a graph run ended by a fatal error.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, block string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("block", block),
	)
}

// LogBlockState logs a block lifecycle transition.
func LogBlockState(logger *slog.Logger, block, state string) {
	if logger == nil {
		return
	}
	logger.Debug("block state changed",
		slog.String("block", block),
		slog.String("state", state),
	)
}

// LogBlockError logs an error reported by a block.
// Non-fatal errors are warnings: the block dropped the offending unit and
// the graph keeps running.
func LogBlockError(logger *slog.Logger, block string, err error, fatal bool) {
	if logger == nil {
		return
	}
	level := slog.LevelWarn
	if fatal {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, "block error",
		slog.String("block", block),
		slog.String("error", err.Error()),
		slog.Bool("fatal", fatal),
	)
}

// LogParameterChange logs a runtime parameter update.
func LogParameterChange(logger *slog.Logger, block, name string, value any, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Warn("parameter rejected",
			slog.String("block", block),
			slog.String("param", name),
			slog.Any("value", value),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("parameter changed",
		slog.String("block", block),
		slog.String("param", name),
		slog.Any("value", value),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
