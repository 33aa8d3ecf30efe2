package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/blocks"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/m17"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/registry"
)

// ErrInvalidSpec indicates a description that cannot describe a graph.
var ErrInvalidSpec = errors.New("invalid pipeline spec")

// Spec describes a graph.
type Spec struct {
	Name        string           `yaml:"name" json:"name" toml:"name"`
	Blocks      []BlockSpec      `yaml:"blocks" json:"blocks" toml:"blocks"`
	Connections []ConnectionSpec `yaml:"connections" json:"connections" toml:"connections"`
}

// BlockSpec describes one block.
type BlockSpec struct {
	Name   string         `yaml:"name" json:"name" toml:"name"`
	Type   string         `yaml:"type" json:"type" toml:"type"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty" toml:"params,omitempty"`
}

// ConnectionSpec describes one edge.
type ConnectionSpec struct {
	From string `yaml:"from" json:"from" toml:"from"`
	To   string `yaml:"to" json:"to" toml:"to"`
	// Capacity defaults to streamgraph.DefaultEdgeCapacity.
	Capacity int `yaml:"capacity,omitempty" json:"capacity,omitempty" toml:"capacity,omitempty"`
}

// Load reads a description file. The format follows the extension.
func Load(path string) (*Spec, error) {
	var s Spec
	if err := config.DecodeFile(path, &s); err != nil {
		return nil, fmt.Errorf("load pipeline %s: %w", path, err)
	}
	return &s, nil
}

// Parse decodes a description in the given format.
func Parse(format config.Format, data []byte) (*Spec, error) {
	var s Spec
	if err := config.Decode(format, data, &s); err != nil {
		return nil, fmt.Errorf("parse pipeline: %w", err)
	}
	return &s, nil
}

// Validate checks the description without building any block.
// It returns every problem found, joined.
func (s *Spec) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidSpec, fmt.Sprintf(format, args...)))
	}

	if len(s.Blocks) == 0 {
		invalid("no blocks")
	}
	names := make(map[string]bool, len(s.Blocks))
	for i, b := range s.Blocks {
		switch {
		case b.Name == "":
			invalid("block %d has no name", i)
		case strings.ContainsAny(b.Name, " \t\n\r:"):
			invalid("block name %q contains whitespace or ':'", b.Name)
		case names[b.Name]:
			invalid("duplicate block %q", b.Name)
		}
		names[b.Name] = true
		if b.Type == "" {
			invalid("block %q has no type", b.Name)
		}
	}

	for i, c := range s.Connections {
		for _, end := range []string{c.From, c.To} {
			block, _, err := ParseEndpoint(end)
			if err != nil {
				invalid("connection %d: %v", i, err)
				continue
			}
			if !names[block] {
				invalid("connection %d: unknown block %q", i, block)
			}
		}
		if c.Capacity < 0 {
			invalid("connection %d: negative capacity %d", i, c.Capacity)
		}
	}
	return errors.Join(errs...)
}

// ParseEndpoint splits "block" or "block:index" into its parts.
func ParseEndpoint(s string) (block string, index int, err error) {
	block, idx, found := strings.Cut(s, ":")
	if block == "" {
		return "", 0, fmt.Errorf("endpoint %q has no block", s)
	}
	if !found {
		return block, 0, nil
	}
	index, err = strconv.Atoi(idx)
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("endpoint %q has a bad port index", s)
	}
	return block, index, nil
}

// Build validates s, creates its blocks through reg and connects them.
// The graph is returned uncompiled so callers can adjust it first.
func Build(s *Spec, reg *registry.Registry, opts ...streamgraph.GraphOption) (*streamgraph.Graph, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if s.Name != "" {
		opts = append([]streamgraph.GraphOption{streamgraph.WithName(s.Name)}, opts...)
	}
	g := streamgraph.NewGraph(opts...)
	for _, b := range s.Blocks {
		block, err := reg.Build(b.Type, b.Name, b.Params)
		if err != nil {
			return nil, err
		}
		if block.Name() != b.Name {
			return nil, fmt.Errorf("%w: %s factory named block %q as %q", ErrInvalidSpec, b.Type, b.Name, block.Name())
		}
		g.AddBlock(block)
	}

	for _, c := range s.Connections {
		from, fromIdx, _ := ParseEndpoint(c.From)
		to, toIdx, _ := ParseEndpoint(c.To)
		capacity := c.Capacity
		if capacity == 0 {
			capacity = streamgraph.DefaultEdgeCapacity
		}
		if _, err := g.Connect(streamgraph.Out(from, fromIdx), streamgraph.In(to, toIdx), capacity); err != nil {
			return nil, fmt.Errorf("connect %s -> %s: %w", c.From, c.To, err)
		}
	}
	return g, nil
}

// Compile is Build followed by Graph.Compile.
func Compile(s *Spec, reg *registry.Registry, opts ...streamgraph.GraphOption) (*streamgraph.CompiledGraph, error) {
	g, err := Build(s, reg, opts...)
	if err != nil {
		return nil, err
	}
	return g.Compile()
}

// DefaultRegistry returns a registry with every block type shipped with
// streamgraph: vector_source, throttle, null_sink, vector_sink, m17_coder
// and m17_decoder.
func DefaultRegistry() *registry.Registry {
	r := registry.New()
	if err := errors.Join(blocks.Register(r), m17.Register(r)); err != nil {
		// The registry is new and the type names are distinct.
		panic(err)
	}
	return r
}
