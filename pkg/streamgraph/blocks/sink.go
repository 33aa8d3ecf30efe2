package blocks

import (
	"sync"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
)

// DefaultSinkLimit is the number of bytes a VectorSink keeps by default.
const DefaultSinkLimit = 1 << 20

// DiscardSink consumes and drops everything it receives.
type DiscardSink struct {
	name string
	buf  []byte
}

// NewDiscardSink creates a sink that drops its input.
func NewDiscardSink(name string) *DiscardSink {
	return &DiscardSink{name: name}
}

// Name implements streamgraph.Block.
func (s *DiscardSink) Name() string { return s.name }

// Inputs implements streamgraph.Block.
func (s *DiscardSink) Inputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Outputs implements streamgraph.Block.
func (s *DiscardSink) Outputs() []streamgraph.PortSpec { return nil }

// Process implements streamgraph.Block.
func (s *DiscardSink) Process(io *streamgraph.IO) streamgraph.ProcessResult {
	n := min(io.In[0].Available(), streamgraph.MaxBatch)
	if n == 0 {
		return streamgraph.Progress(0, 0)
	}
	if len(s.buf) < n {
		s.buf = make([]byte, streamgraph.MaxBatch)
	}
	return streamgraph.Progress(io.In[0].Read(s.buf[:n]), 0)
}

// VectorSink records the bytes it consumes, up to a limit. Bytes beyond
// the limit are consumed and dropped. The recording is cleared on Start.
//
// Data and Len may be called while the graph runs.
type VectorSink struct {
	name  string
	limit int

	mu   sync.Mutex
	data []byte
	buf  []byte
}

// NewVectorSink creates a sink keeping up to limit bytes.
// A non-positive limit uses DefaultSinkLimit.
func NewVectorSink(name string, limit int) *VectorSink {
	if limit <= 0 {
		limit = DefaultSinkLimit
	}
	return &VectorSink{name: name, limit: limit}
}

// Name implements streamgraph.Block.
func (s *VectorSink) Name() string { return s.name }

// Inputs implements streamgraph.Block.
func (s *VectorSink) Inputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Outputs implements streamgraph.Block.
func (s *VectorSink) Outputs() []streamgraph.PortSpec { return nil }

// Start clears the recording.
func (s *VectorSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = s.data[:0]
	return nil
}

// Process implements streamgraph.Block.
func (s *VectorSink) Process(io *streamgraph.IO) streamgraph.ProcessResult {
	n := min(io.In[0].Available(), streamgraph.MaxBatch)
	if n == 0 {
		return streamgraph.Progress(0, 0)
	}
	if len(s.buf) < n {
		s.buf = make([]byte, streamgraph.MaxBatch)
	}
	n = io.In[0].Read(s.buf[:n])

	s.mu.Lock()
	keep := min(n, s.limit-len(s.data))
	if keep > 0 {
		s.data = append(s.data, s.buf[:keep]...)
	}
	s.mu.Unlock()

	return streamgraph.Progress(n, 0)
}

// Data returns a copy of the recorded bytes.
func (s *VectorSink) Data() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}

// Len returns the number of recorded bytes.
func (s *VectorSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// SetParameter implements streamgraph.Tunable. "limit" must be positive;
// lowering it below the recorded length truncates the recording.
func (s *VectorSink) SetParameter(name string, value any) error {
	if name != "limit" {
		return invalid(s.name, name, value, streamgraph.ErrUnknownParameter)
	}
	v, err := config.AsInt(value)
	if err != nil {
		return invalid(s.name, name, value, err)
	}
	if v <= 0 {
		return invalid(s.name, name, value, outOfRange("limit must be positive, got %d", v))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = v
	if len(s.data) > v {
		s.data = s.data[:v]
	}
	return nil
}

// Parameters implements streamgraph.Tunable.
func (s *VectorSink) Parameters() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{"limit": s.limit}
}
