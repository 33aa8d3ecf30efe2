package streamgraph

import (
	"errors"
	"log/slog"
)

// Validate checks that the graph can run.
// Returns nil or all problems joined together.
//
// Validation checks:
//  1. The graph has at least one block
//  2. Every required port (input or output) has an edge
//
// Type, occupancy and cycle rules are enforced by Connect, so a graph built
// through the API always satisfies them.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.validate()
}

func (g *Graph) validate() error {
	if len(g.nodes) == 0 {
		return ErrEmptyGraph
	}

	var errs []error
	for _, name := range g.order {
		node := g.nodes[name]
		for i, in := range node.io.In {
			if !in.Connected() && !node.inputs[i].Optional {
				errs = append(errs, &DanglingPortError{Port: node.inputs[i]})
			}
		}
		for i, out := range node.io.Out {
			if !out.Connected() && !node.outputs[i].Optional {
				errs = append(errs, &DanglingPortError{Port: node.outputs[i]})
			}
		}
	}
	return errors.Join(errs...)
}

// Compile validates the graph and creates an executable CompiledGraph.
// The topological order is computed here, once; the builder is frozen
// afterwards and further AddBlock/Connect calls fail.
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return nil, ErrGraphFrozen
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	levels := g.levels()
	var order []*Node
	for _, level := range levels {
		order = append(order, level...)
	}

	g.frozen = true
	g.logger.Debug("graph compiled",
		slog.String("graph", g.name),
		slog.Int("blocks", len(order)),
		slog.Int("edges", len(g.edges)),
		slog.Int("levels", len(levels)),
	)

	nodes := make(map[string]*Node, len(g.nodes))
	for name, node := range g.nodes {
		nodes[name] = node
	}
	edges := make([]*Edge, len(g.edges))
	copy(edges, g.edges)

	return &CompiledGraph{
		name:   g.name,
		nodes:  nodes,
		edges:  edges,
		order:  order,
		levels: levels,
	}, nil
}

// levels groups blocks by longest distance from a source (Kahn's algorithm
// one frontier at a time). Blocks of one level never feed each other, so
// they may be processed in parallel. Within a level, insertion order is kept.
func (g *Graph) levels() [][]*Node {
	indegree := make(map[string]int, len(g.nodes))
	for _, name := range g.order {
		for next := range g.downstream[name] {
			indegree[next]++
		}
	}

	var frontier []string
	for _, name := range g.order {
		if indegree[name] == 0 {
			frontier = append(frontier, name)
		}
	}

	var levels [][]*Node
	for len(frontier) > 0 {
		level := make([]*Node, 0, len(frontier))
		ready := make(map[string]bool)
		for _, name := range frontier {
			level = append(level, g.nodes[name])
			for next := range g.downstream[name] {
				indegree[next]--
				if indegree[next] == 0 {
					ready[next] = true
				}
			}
		}
		levels = append(levels, level)

		frontier = frontier[:0]
		for _, name := range g.order {
			if ready[name] {
				frontier = append(frontier, name)
			}
		}
	}
	return levels
}
