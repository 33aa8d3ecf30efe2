package streamgraph

import (
	"errors"
	"maps"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a node or a compiled graph.
type State int32

const (
	// Idle is the state before the first Start.
	Idle State = iota
	// Running means Process may be called.
	Running
	// Stopped is entered on Stop or after a fatal error.
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// NodeStats are the running counters of one node.
// Counters accumulate across restarts.
type NodeStats struct {
	Calls    int64 `json:"calls"`
	Consumed int64 `json:"consumed"`
	Produced int64 `json:"produced"`
	Errors   int64 `json:"errors"`
}

// Node is a block placed in a graph. It owns the block's lifecycle state,
// resolves its ports and serializes every call into the block.
type Node struct {
	block   Block
	name    string
	inputs  []Port
	outputs []Port
	io      IO

	// mu serializes Process, SetParameter, Start and Stop.
	mu    sync.Mutex
	state atomic.Int32

	calls    atomic.Int64
	consumed atomic.Int64
	produced atomic.Int64
	errs     atomic.Int64
}

func newNode(b Block) *Node {
	n := &Node{block: b, name: b.Name()}
	for i, spec := range b.Inputs() {
		p := Port{Block: n.name, Direction: Input, Index: i, Type: spec.Type, Optional: spec.Optional}
		n.inputs = append(n.inputs, p)
		n.io.In = append(n.io.In, &InputStream{port: p})
	}
	for i, spec := range b.Outputs() {
		p := Port{Block: n.name, Direction: Output, Index: i, Type: spec.Type, Optional: spec.Optional}
		n.outputs = append(n.outputs, p)
		n.io.Out = append(n.io.Out, &OutputStream{port: p})
	}
	return n
}

// Name returns the block name.
func (n *Node) Name() string { return n.name }

// Block returns the wrapped block.
func (n *Node) Block() Block { return n.block }

// Inputs returns the resolved input ports.
func (n *Node) Inputs() []Port { return n.inputs }

// Outputs returns the resolved output ports.
func (n *Node) Outputs() []Port { return n.outputs }

// State returns the current lifecycle state.
func (n *Node) State() State { return State(n.state.Load()) }

// Start moves the node to Running, calling the block's Start if it has one.
// Returns InvalidStateError if the node is already running.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if st := n.State(); st == Running {
		return &InvalidStateError{Block: n.name, Op: "start", State: st}
	}
	if s, ok := n.block.(Starter); ok {
		if err := s.Start(); err != nil {
			return &BlockError{Block: n.name, Op: "start", Err: err}
		}
	}
	n.state.Store(int32(Running))
	return nil
}

// Stop moves a running node to Stopped. Calling Stop on a node that is not
// running is a no-op. The node is Stopped even when the block's Stop fails.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.State() != Running {
		return nil
	}
	n.state.Store(int32(Stopped))
	if s, ok := n.block.(Stopper); ok {
		if err := s.Stop(); err != nil {
			return &BlockError{Block: n.name, Op: "stop", Err: err}
		}
	}
	return nil
}

// Process runs one bounded unit of work.
// Outside Running it returns a non-fatal InvalidStateError. A panic inside
// the block is recovered and reported as a fatal PanicError.
func (n *Node) Process() (res ProcessResult) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if st := n.State(); st != Running {
		return ProcessResult{
			Exhausted: true,
			Err:       &InvalidStateError{Block: n.name, Op: "process", State: st},
		}
	}

	defer func() {
		if r := recover(); r != nil {
			n.calls.Add(1)
			n.errs.Add(1)
			res = ProcessResult{
				Exhausted: true,
				Err: &PanicError{
					Block: n.name,
					Value: r,
					Stack: string(debug.Stack()),
				},
				Fatal: true,
			}
		}
	}()

	res = n.block.Process(&n.io)
	if res.Consumed == 0 && res.Produced == 0 {
		res.Exhausted = true
	}

	n.calls.Add(1)
	n.consumed.Add(int64(res.Consumed))
	n.produced.Add(int64(res.Produced))
	if res.Err != nil {
		n.errs.Add(1)
	}
	return res
}

// SetParameter validates and applies a runtime parameter.
// It never overlaps a Process call, so a running block sees either the old
// or the new value for a whole unit of work.
func (n *Node) SetParameter(name string, value any) error {
	t, ok := n.block.(Tunable)
	if !ok {
		return &InvalidParameterError{Block: n.name, Name: name, Value: value, Reason: ErrUnknownParameter}
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if err := t.SetParameter(name, value); err != nil {
		var pe *InvalidParameterError
		if errors.As(err, &pe) {
			if pe.Block == "" {
				pe.Block = n.name
			}
			return pe
		}
		return &InvalidParameterError{Block: n.name, Name: name, Value: value, Reason: err}
	}
	return nil
}

// Parameters returns a copy of the block's current parameters.
func (n *Node) Parameters() map[string]any {
	t, ok := n.block.(Tunable)
	if !ok {
		return map[string]any{}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return maps.Clone(t.Parameters())
}

// Stats returns a snapshot of the node counters.
func (n *Node) Stats() NodeStats {
	return NodeStats{
		Calls:    n.calls.Load(),
		Consumed: n.consumed.Load(),
		Produced: n.produced.Load(),
		Errors:   n.errs.Load(),
	}
}

// port resolves a reference built by In or Out.
func (n *Node) port(ref Port) (Port, bool) {
	ports := n.inputs
	if ref.Direction == Output {
		ports = n.outputs
	}
	if ref.Index < 0 || ref.Index >= len(ports) {
		return Port{}, false
	}
	return ports[ref.Index], true
}
