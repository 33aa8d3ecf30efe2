package blocks

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
)

var errEmptyVector = errors.New("vector must not be empty")

// RepeatingSource emits a fixed byte template over and over.
// It writes as much as the downstream edge accepts, at most MaxBatch
// bytes per call, and starts from the first byte again on every Start.
// The template of a running source never changes: new "vector" and
// "repeat" values are staged and take effect on the next Start.
type RepeatingSource struct {
	name string

	// staged configuration
	nextVector []byte
	nextRepeat bool

	// active while running
	vector []byte
	repeat bool
	pos    int
	done   bool
}

// NewRepeatingSource creates a source cycling through vector.
// Returns an error if vector is empty.
func NewRepeatingSource(name string, vector []byte) (*RepeatingSource, error) {
	if len(vector) == 0 {
		return nil, errEmptyVector
	}
	v := append([]byte(nil), vector...)
	return &RepeatingSource{
		name:       name,
		nextVector: v,
		nextRepeat: true,
		vector:     v,
		repeat:     true,
	}, nil
}

// Name implements streamgraph.Block.
func (s *RepeatingSource) Name() string { return s.name }

// Inputs implements streamgraph.Block.
func (s *RepeatingSource) Inputs() []streamgraph.PortSpec { return nil }

// Outputs implements streamgraph.Block.
func (s *RepeatingSource) Outputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Start applies staged parameters and rewinds to the beginning of the
// template.
func (s *RepeatingSource) Start() error {
	s.vector = s.nextVector
	s.repeat = s.nextRepeat
	s.pos = 0
	s.done = false
	return nil
}

// Process implements streamgraph.Block.
func (s *RepeatingSource) Process(io *streamgraph.IO) streamgraph.ProcessResult {
	out := io.Out[0]
	budget := min(out.Writable(), streamgraph.MaxBatch)

	produced := 0
	for budget > 0 && !s.done {
		chunk := s.vector[s.pos:]
		if len(chunk) > budget {
			chunk = chunk[:budget]
		}
		n := out.Write(chunk)
		produced += n
		budget -= n
		s.pos += n
		if s.pos == len(s.vector) {
			s.pos = 0
			s.done = !s.repeat
		}
		if n < len(chunk) {
			break
		}
	}
	return streamgraph.Progress(0, produced)
}

// SetParameter implements streamgraph.Tunable.
//
// "vector" replaces the template and "repeat" false makes the source
// stop after one pass. Both are applied by the next Start; a running
// source keeps cycling its current template.
func (s *RepeatingSource) SetParameter(name string, value any) error {
	switch name {
	case "vector":
		v, err := config.AsBytes(value)
		if err != nil {
			return invalid(s.name, name, value, err)
		}
		if len(v) == 0 {
			return invalid(s.name, name, value, errEmptyVector)
		}
		s.nextVector = v
	case "repeat":
		v, err := config.AsBool(value)
		if err != nil {
			return invalid(s.name, name, value, err)
		}
		s.nextRepeat = v
	default:
		return invalid(s.name, name, value, streamgraph.ErrUnknownParameter)
	}
	return nil
}

// Parameters implements streamgraph.Tunable. It reports the staged
// values, which are the running ones unless changed since Start.
func (s *RepeatingSource) Parameters() map[string]any {
	return map[string]any{
		"vector": append([]byte(nil), s.nextVector...),
		"repeat": s.nextRepeat,
	}
}

func invalid(block, name string, value any, reason error) error {
	return &streamgraph.InvalidParameterError{Block: block, Name: name, Value: value, Reason: reason}
}

// outOfRange is the reason used for numeric parameters outside their domain.
func outOfRange(format string, args ...any) error {
	return fmt.Errorf("out of range: "+format, args...)
}
