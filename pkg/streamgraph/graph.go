package streamgraph

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Graph is a mutable builder for a block graph.
// Add blocks, connect their ports, then call Compile to get an executable
// CompiledGraph.
//
// Graph is NOT safe for concurrent building. Use a single goroutine to
// construct it. After Compile the builder is frozen.
//
// Example:
//
//	g := streamgraph.NewGraph().
//	    AddBlock(src).
//	    AddBlock(sink)
//
//	if _, err := g.Connect(streamgraph.Out("src", 0), streamgraph.In("sink", 0), 4096); err != nil {
//	    return err
//	}
//
//	compiled, err := g.Compile()
type Graph struct {
	mu     sync.RWMutex
	name   string
	logger *slog.Logger

	nodes map[string]*Node
	order []string // insertion order, for stable output
	edges []*Edge

	// inbound maps an input port to its single producing edge.
	inbound map[portKey]*Edge
	// downstream is the block-level dependency graph used for cycle checks.
	downstream map[string]map[string]bool

	frozen bool
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithName names the graph. The name appears in logs, spans and reports.
func WithName(name string) GraphOption {
	return func(g *Graph) {
		g.name = name
	}
}

// WithGraphLogger sets the logger used during construction.
func WithGraphLogger(logger *slog.Logger) GraphOption {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGraph creates an empty graph builder.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{
		name:       "streamgraph",
		logger:     slog.Default(),
		nodes:      make(map[string]*Node),
		inbound:    make(map[portKey]*Edge),
		downstream: make(map[string]map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// AddBlock adds a block to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - b is nil
//   - the block name is empty or contains whitespace
//   - a block with the same name already exists
//   - the graph was already compiled
func (g *Graph) AddBlock(b Block) *Graph {
	if b == nil {
		panic("streamgraph: block cannot be nil")
	}

	name := b.Name()
	if name == "" {
		panic("streamgraph: block name cannot be empty")
	}
	if strings.ContainsAny(name, " \t\n\r") {
		panic("streamgraph: block name cannot contain whitespace")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		panic("streamgraph: cannot add block to a compiled graph")
	}
	if _, exists := g.nodes[name]; exists {
		panic(fmt.Sprintf("streamgraph: duplicate block name: %s", name))
	}

	g.nodes[name] = newNode(b)
	g.order = append(g.order, name)
	g.downstream[name] = make(map[string]bool)
	return g
}

// Connect adds an edge from an output port to an input port.
//
// Errors:
//   - ErrBlockNotFound / ErrPortNotFound for unknown references
//   - ErrInvalidCapacity for capacity <= 0
//   - *TypeMismatchError if the element types differ
//   - *PortOccupiedError if the input already has a producer
//   - *CycleError if the edge would create a dependency cycle
//
// A failed Connect leaves the graph unchanged.
func (g *Graph) Connect(from, to Port, capacity int) (*Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return nil, ErrGraphFrozen
	}

	src, err := g.resolve(from, Output)
	if err != nil {
		return nil, err
	}
	dst, err := g.resolve(to, Input)
	if err != nil {
		return nil, err
	}

	if src.Type != dst.Type {
		return nil, &TypeMismatchError{From: src, To: dst}
	}
	if existing, ok := g.inbound[dst.key()]; ok {
		return nil, &PortOccupiedError{Port: dst, Producer: existing.From()}
	}
	if path := g.pathBetween(dst.Block, src.Block); path != nil {
		return nil, &CycleError{
			From: src.Block,
			To:   dst.Block,
			Path: append([]string{src.Block}, path...),
		}
	}

	edge, err := NewEdge(src, dst, capacity)
	if err != nil {
		return nil, err
	}

	g.edges = append(g.edges, edge)
	g.inbound[dst.key()] = edge
	g.downstream[src.Block][dst.Block] = true

	srcNode := g.nodes[src.Block]
	srcNode.io.Out[src.Index].edges = append(srcNode.io.Out[src.Index].edges, edge)
	g.nodes[dst.Block].io.In[dst.Index].edge = edge

	g.logger.Debug("edge connected",
		slog.String("from", src.String()),
		slog.String("to", dst.String()),
		slog.Int("capacity", capacity),
	)
	return edge, nil
}

// MustConnect is Connect that panics on error.
// Useful for static graphs in examples and tests.
func (g *Graph) MustConnect(from, to Port, capacity int) *Graph {
	if _, err := g.Connect(from, to, capacity); err != nil {
		panic(err)
	}
	return g
}

// SetParameter applies a parameter to a block before the graph is compiled
// or run.
func (g *Graph) SetParameter(block, name string, value any) error {
	g.mu.RLock()
	node, ok := g.nodes[block]
	g.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, block)
	}
	return node.SetParameter(name, value)
}

// Edges returns the edges in connection order.
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// BlockNames returns block names in insertion order.
func (g *Graph) BlockNames() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// resolve turns an In/Out reference into the block's declared port.
func (g *Graph) resolve(ref Port, want Direction) (Port, error) {
	node, ok := g.nodes[ref.Block]
	if !ok {
		return Port{}, fmt.Errorf("%w: %s", ErrBlockNotFound, ref.Block)
	}
	if ref.Direction != want {
		return Port{}, fmt.Errorf("%w: %s is not an %s port", ErrPortNotFound, ref, want)
	}
	p, ok := node.port(ref)
	if !ok {
		return Port{}, fmt.Errorf("%w: %s", ErrPortNotFound, ref)
	}
	return p, nil
}

// pathBetween returns the block path from -> ... -> to along existing
// edges, or nil if to is not reachable. A block reaches itself.
func (g *Graph) pathBetween(from, to string) []string {
	if from == to {
		return []string{from}
	}

	parent := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range g.sortedDownstream(current) {
			if _, seen := parent[next]; seen {
				continue
			}
			parent[next] = current
			if next == to {
				var path []string
				for at := to; at != ""; at = parent[at] {
					path = append([]string{at}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// sortedDownstream lists direct consumers of a block in insertion order.
func (g *Graph) sortedDownstream(block string) []string {
	targets := g.downstream[block]
	out := make([]string, 0, len(targets))
	for _, name := range g.order {
		if targets[name] {
			out = append(out, name)
		}
	}
	return out
}
