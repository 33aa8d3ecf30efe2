// Package report stores per-run statistics of streamgraph runs.
package report

import (
	"errors"
	"time"
)

// Store persists run reports.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a report. Overwrites a report with the same run ID.
	Save(r *Report) error

	// Load retrieves a report.
	// Returns ErrNotFound if no report exists for the run.
	Load(runID string) (*Report, error)

	// List returns report metadata ordered by start time, oldest first.
	// An empty graph lists the reports of every graph.
	List(graph string) ([]Info, error)

	// Delete removes a report. Returns nil if it doesn't exist.
	Delete(runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading the full report.
type Info struct {
	RunID     string
	Graph     string
	StartedAt time.Time
	StoppedAt time.Time
	Failed    bool
}

// Sentinel errors for report storage.
var (
	// ErrNotFound indicates a report doesn't exist.
	ErrNotFound = errors.New("report not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("report store closed")

	// ErrMissingRunID indicates Save was given a report without a run ID.
	ErrMissingRunID = errors.New("report has no run ID")
)
