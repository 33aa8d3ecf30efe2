package streamgraph

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// CompiledGraph is an executable graph created by Graph.Compile.
// Its structure is fixed; blocks may still be retuned with SetParameter.
//
// A CompiledGraph runs at most once at a time. After a run ends (Stop,
// context cancellation or a fatal error) it may be started again: edges
// are emptied and every block is started afresh.
//
// All methods are safe for concurrent use.
type CompiledGraph struct {
	name   string
	nodes  map[string]*Node
	edges  []*Edge
	order  []*Node
	levels [][]*Node

	// mu guards run and the Idle/Stopped -> Running transition.
	mu    sync.Mutex
	run   *run
	state atomic.Int32

	// logger is the logger of the latest run, used by SetParameter.
	logger atomic.Pointer[slog.Logger]
}

// Name returns the graph name.
func (cg *CompiledGraph) Name() string { return cg.name }

// Node returns the node of a block by name.
func (cg *CompiledGraph) Node(name string) (*Node, bool) {
	n, ok := cg.nodes[name]
	return n, ok
}

// Order returns block names in the order the scheduler visits them:
// every producer before its consumers, ties broken by insertion order.
func (cg *CompiledGraph) Order() []string {
	names := make([]string, len(cg.order))
	for i, n := range cg.order {
		names[i] = n.Name()
	}
	return names
}

// Levels returns block names grouped by topological level.
// Blocks of one level have no edges between them.
func (cg *CompiledGraph) Levels() [][]string {
	out := make([][]string, len(cg.levels))
	for i, level := range cg.levels {
		for _, n := range level {
			out[i] = append(out[i], n.Name())
		}
	}
	return out
}

// Edges returns the edges in connection order.
func (cg *CompiledGraph) Edges() []*Edge {
	out := make([]*Edge, len(cg.edges))
	copy(out, cg.edges)
	return out
}

// State returns Idle before the first Start, Running while a run is
// active and Stopped afterwards.
func (cg *CompiledGraph) State() State { return State(cg.state.Load()) }

// Stats returns a snapshot of every block's counters.
func (cg *CompiledGraph) Stats() map[string]NodeStats {
	out := make(map[string]NodeStats, len(cg.nodes))
	for name, n := range cg.nodes {
		out[name] = n.Stats()
	}
	return out
}

// RunID returns the identifier of the current or most recent run, or ""
// if the graph was never started.
func (cg *CompiledGraph) RunID() string {
	if r := cg.current(); r != nil {
		return r.id
	}
	return ""
}

// Cycles returns the number of scheduler passes of the current or most
// recent run.
func (cg *CompiledGraph) Cycles() int64 {
	if r := cg.current(); r != nil {
		return r.cycles.Load()
	}
	return 0
}

func (cg *CompiledGraph) current() *run {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	return cg.run
}

func (cg *CompiledGraph) log() *slog.Logger {
	if l := cg.logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}
