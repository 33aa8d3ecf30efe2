/*
Package streamgraph is a streaming block-graph runtime.

Blocks with typed input and output ports are wired into a directed
acyclic graph by bounded FIFO edges, then executed continuously by a
cooperative scheduler until stopped. Samples are bytes; a port's
ElementType is a compatibility tag checked when ports are connected.

# Basic Usage

	src, err := blocks.NewRepeatingSource("src", make([]byte, 16))
	if err != nil {
	    return err
	}
	throttle, err := blocks.NewThrottle("throttle", 4800)
	if err != nil {
	    return err
	}

	g := streamgraph.NewGraph(streamgraph.WithName("m17-streamer"))
	g.AddBlock(src).AddBlock(throttle).AddBlock(blocks.NewDiscardSink("sink"))

	g.MustConnect(streamgraph.Out("src", 0), streamgraph.In("throttle", 0), streamgraph.DefaultEdgeCapacity).
	    MustConnect(streamgraph.Out("throttle", 0), streamgraph.In("sink", 0), streamgraph.DefaultEdgeCapacity)

	compiled, err := g.Compile()
	if err != nil {
	    return err
	}

	// Runs until ctx is cancelled or a block fails fatally.
	err = compiled.Run(ctx)

# Building Graphs

AddBlock panics on programmer errors (nil block, empty or duplicate
name). Connect returns typed errors: *TypeMismatchError,
*PortOccupiedError, *CycleError, plus ErrBlockNotFound, ErrPortNotFound
and ErrInvalidCapacity. Compile reports every required port left
unconnected as a *DanglingPortError, joined together.

# Scheduling

Each scheduler cycle gives every block one Process call in topological
order. Process never blocks: a block with no input or no room downstream
returns at once, and edges propagate backpressure upstream. A cycle in
which nothing moved is followed by a short idle sleep (WithIdleSleep).

With WithWorkers(n), blocks of the same topological level are processed
concurrently, at most n at a time.

# Lifecycle

Start runs the scheduler in the background; Stop stops it and waits;
Wait returns the terminal error. A block error with Fatal set stops the
graph and is returned from Wait or Run as a *BlockError. Other block
errors are logged and counted while the graph keeps running. Panics in
blocks are recovered as a *PanicError and are always fatal.

A stopped graph can be started again. Edges are emptied and every block
is started afresh, so sources begin again from the start of their data.

# Runtime Parameters

SetParameter changes a block parameter while the graph runs. It never
overlaps the block's Process call, so each unit of work sees a single
consistent value. A rejected value returns an *InvalidParameterError and
leaves the previous value in effect. The same operation is reachable
through control signals; see ControlHandlers.

# Observability

Logging uses log/slog (WithLogger). WithMetrics and WithTracing enable
OpenTelemetry metrics and a per-run span; WithMetricsRecorder accepts
other recorders such as observability.PromMetrics. WithEventBus
publishes lifecycle events and WithReportStore saves a report of every
run.
*/
package streamgraph
