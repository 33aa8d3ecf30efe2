package report

import (
	"encoding/json"
	"time"
)

// Version is the current report format version.
const Version = 1

// Report summarizes one graph run: when it ran, how it ended and what
// every block did.
type Report struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	Graph     string    `json:"graph"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`

	// Error is the terminal error of a failed run; empty on a clean stop.
	Error string `json:"error,omitempty"`
	// FailedBlock names the block that caused the failure.
	FailedBlock string `json:"failed_block,omitempty"`

	// Cycles is the number of scheduler passes over the graph.
	Cycles int64         `json:"cycles"`
	Blocks []BlockReport `json:"blocks"`
}

// BlockReport holds the counters and final parameters of one block.
type BlockReport struct {
	Name       string         `json:"name"`
	Calls      int64          `json:"calls"`
	Consumed   int64          `json:"consumed"`
	Produced   int64          `json:"produced"`
	Errors     int64          `json:"errors"`
	// Parameters are kept as JSON values: a stored report loads numbers as
	// float64 and byte slices as base64 strings.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Failed reports whether the run ended with an error.
func (r *Report) Failed() bool { return r.Error != "" }

// Duration returns the wall-clock length of the run.
func (r *Report) Duration() time.Duration {
	return r.StoppedAt.Sub(r.StartedAt)
}

// Block returns the report of the named block.
func (r *Report) Block(name string) (BlockReport, bool) {
	for _, b := range r.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return BlockReport{}, false
}

// Info returns the listing metadata of the report.
func (r *Report) Info() Info {
	return Info{
		RunID:     r.RunID,
		Graph:     r.Graph,
		StartedAt: r.StartedAt,
		StoppedAt: r.StoppedAt,
		Failed:    r.Failed(),
	}
}

// Marshal serializes a report to JSON.
func (r *Report) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal deserializes a report from JSON.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
