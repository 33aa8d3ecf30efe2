package streamgraph

import (
	"fmt"
	"sync"
)

// DefaultEdgeCapacity is the capacity used by pipeline descriptions that do
// not name one.
const DefaultEdgeCapacity = 4096

// Edge is a bounded FIFO between one output port and one input port.
//
// The buffer never grows: Push fails once Len reaches Cap. That refusal is
// the only flow control in a graph; a producer that cannot push must stop
// producing until the consumer pops.
//
// Edge is safe for one producer and one consumer on separate goroutines.
type Edge struct {
	from Port
	to   Port

	mu   sync.Mutex
	buf  []byte
	head int // next read position
	n    int // buffered samples
}

// NewEdge creates an edge with the given capacity.
// Returns ErrInvalidCapacity if capacity is not positive.
func NewEdge(from, to Port, capacity int) (*Edge, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Edge{
		from: from,
		to:   to,
		buf:  make([]byte, capacity),
	}, nil
}

// From returns the producing output port.
func (e *Edge) From() Port { return e.from }

// To returns the consuming input port.
func (e *Edge) To() Port { return e.to }

// Cap returns the fixed capacity.
func (e *Edge) Cap() int { return len(e.buf) }

// Len returns the number of buffered samples.
func (e *Edge) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.n
}

// Free returns the number of samples that can be pushed without failing.
func (e *Edge) Free() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.buf) - e.n
}

// Push appends one sample. It returns false, leaving the buffer untouched,
// when the edge is full.
func (e *Edge) Push(b byte) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.n == len(e.buf) {
		return false
	}
	e.buf[(e.head+e.n)%len(e.buf)] = b
	e.n++
	return true
}

// Pop removes the oldest sample. It returns false when the edge is empty.
func (e *Edge) Pop() (byte, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.n == 0 {
		return 0, false
	}
	b := e.buf[e.head]
	e.head = (e.head + 1) % len(e.buf)
	e.n--
	return b, true
}

// Write pushes as many samples from p as fit and returns how many were taken.
func (e *Edge) Write(p []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	size := len(e.buf)
	count := min(len(p), size-e.n)
	tail := (e.head + e.n) % size
	first := min(count, size-tail)
	copy(e.buf[tail:tail+first], p[:first])
	copy(e.buf[:count-first], p[first:count])
	e.n += count
	return count
}

// Read pops up to len(p) samples into p and returns how many were read.
func (e *Edge) Read(p []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	size := len(e.buf)
	count := min(len(p), e.n)
	first := min(count, size-e.head)
	copy(p[:first], e.buf[e.head:e.head+first])
	copy(p[first:count], e.buf[:count-first])
	e.head = (e.head + count) % size
	e.n -= count
	return count
}

// Reset drops all buffered samples. Used when a stopped graph is restarted.
func (e *Edge) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.head = 0
	e.n = 0
}

// String formats the edge as from -> to.
func (e *Edge) String() string {
	return fmt.Sprintf("%s -> %s", e.from, e.to)
}
