package streamgraph

// MaxBatch bounds the samples a block moves in one Process call.
// Blocks without a natural bound (sources, unconnected outputs) use it so
// Process always returns quickly.
const MaxBatch = 8192

// IO is what a block sees during Process: one stream per declared port,
// indexed like the block's Inputs and Outputs.
type IO struct {
	In  []*InputStream
	Out []*OutputStream
}

// InputStream is the consuming side of an input port.
// An unconnected optional input is always empty.
type InputStream struct {
	port Port
	edge *Edge
}

// Port returns the input port this stream reads.
func (s *InputStream) Port() Port { return s.port }

// Connected reports whether an edge feeds this port.
func (s *InputStream) Connected() bool { return s.edge != nil }

// Available returns the number of samples that can be popped now.
func (s *InputStream) Available() int {
	if s.edge == nil {
		return 0
	}
	return s.edge.Len()
}

// Pop removes the oldest sample.
func (s *InputStream) Pop() (byte, bool) {
	if s.edge == nil {
		return 0, false
	}
	return s.edge.Pop()
}

// Read pops up to len(p) samples into p.
func (s *InputStream) Read(p []byte) int {
	if s.edge == nil {
		return 0
	}
	return s.edge.Read(p)
}

// OutputStream is the producing side of an output port.
// Samples are delivered to every connected edge; an unconnected optional
// output discards what it is given.
type OutputStream struct {
	port  Port
	edges []*Edge
}

// Port returns the output port this stream writes.
func (s *OutputStream) Port() Port { return s.port }

// Connected reports whether at least one edge drains this port.
func (s *OutputStream) Connected() bool { return len(s.edges) > 0 }

// Writable returns how many samples can be written without any consumer
// edge refusing them: the smallest free space across the fan-out.
func (s *OutputStream) Writable() int {
	if len(s.edges) == 0 {
		return MaxBatch
	}
	free := s.edges[0].Free()
	for _, e := range s.edges[1:] {
		free = min(free, e.Free())
	}
	return free
}

// Push writes one sample to every consumer. It writes nothing and returns
// false if any consumer edge is full.
func (s *OutputStream) Push(b byte) bool {
	if s.Writable() < 1 {
		return false
	}
	for _, e := range s.edges {
		e.Push(b)
	}
	return true
}

// Write delivers the longest prefix of p that every consumer can accept
// and returns its length.
//
// The producer is the only writer of its edges, so space measured by
// Writable can only grow before the copies below run.
func (s *OutputStream) Write(p []byte) int {
	n := min(len(p), s.Writable())
	if n == 0 {
		return 0
	}
	for _, e := range s.edges {
		e.Write(p[:n])
	}
	return n
}
