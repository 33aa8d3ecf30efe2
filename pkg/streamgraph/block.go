package streamgraph

// Block is the capability set every processing unit implements.
//
// Process consumes what it can from io.In and produces into io.Out. It must
// never block: when there is no input to work on or no room downstream it
// returns a zero ProcessResult. The runtime guarantees at most one Process
// call per block at a time, and never runs Process concurrently with Start,
// Stop or SetParameter of the same block.
//
// Example:
//
//	type invert struct{}
//
//	func (invert) Name() string                    { return "invert" }
//	func (invert) Inputs() []streamgraph.PortSpec  { return []streamgraph.PortSpec{{Type: streamgraph.Byte}} }
//	func (invert) Outputs() []streamgraph.PortSpec { return []streamgraph.PortSpec{{Type: streamgraph.Byte}} }
//
//	func (invert) Process(io *streamgraph.IO) streamgraph.ProcessResult {
//	    n := min(io.In[0].Available(), io.Out[0].Writable())
//	    for i := 0; i < n; i++ {
//	        b, _ := io.In[0].Pop()
//	        io.Out[0].Push(^b)
//	    }
//	    return streamgraph.Progress(n, n)
//	}
type Block interface {
	// Name is the unique name of the block within its graph.
	Name() string

	// Inputs declares the input ports, in index order.
	Inputs() []PortSpec

	// Outputs declares the output ports, in index order.
	Outputs() []PortSpec

	// Process advances the block by one bounded unit of work.
	Process(io *IO) ProcessResult
}

// Starter is implemented by blocks that allocate per-run resources.
// Start is called on every Idle/Stopped -> Running transition.
type Starter interface {
	Start() error
}

// Stopper is implemented by blocks that release per-run resources.
type Stopper interface {
	Stop() error
}

// Tunable is implemented by blocks with runtime parameters.
//
// SetParameter must validate before applying: on error the previous value
// stays in effect. Returning an error wrapping ErrUnknownParameter marks the
// name as unknown.
type Tunable interface {
	SetParameter(name string, value any) error
	Parameters() map[string]any
}

// ProcessResult reports the outcome of one Process call.
type ProcessResult struct {
	// Consumed is the number of input samples taken from all inputs.
	Consumed int
	// Produced is the number of output samples written (counted once per
	// sample regardless of fan-out).
	Produced int
	// Exhausted means the block cannot progress without new input or
	// free output space.
	Exhausted bool
	// Err reports a block-internal failure. Unless Fatal is set the runtime
	// logs it and keeps running; the offending unit is dropped by the block.
	Err error
	// Fatal stops the whole graph and surfaces Err to the caller.
	Fatal bool
}

// Progress builds a ProcessResult from sample counts.
// A call that moved nothing is exhausted.
func Progress(consumed, produced int) ProcessResult {
	return ProcessResult{
		Consumed:  consumed,
		Produced:  produced,
		Exhausted: consumed == 0 && produced == 0,
	}
}

// Failed builds a non-fatal ProcessResult carrying err.
func Failed(consumed, produced int, err error) ProcessResult {
	r := Progress(consumed, produced)
	r.Err = err
	return r
}

// Fatal builds a ProcessResult that stops the graph.
func Fatal(consumed, produced int, err error) ProcessResult {
	r := Failed(consumed, produced, err)
	r.Fatal = true
	return r
}
