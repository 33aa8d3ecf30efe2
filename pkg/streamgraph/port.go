package streamgraph

import "fmt"

// Direction tells whether a port consumes or produces samples.
type Direction int

const (
	// Input ports consume samples from an upstream edge.
	Input Direction = iota
	// Output ports produce samples into zero or more downstream edges.
	Output
)

// String returns "in" or "out".
func (d Direction) String() string {
	if d == Input {
		return "in"
	}
	return "out"
}

// ElementType tags the samples carried by a port.
// Two ports can only be connected when their element types are equal.
type ElementType struct {
	Name string
	Size int
}

// String returns the type name and width, e.g. "byte/1".
func (t ElementType) String() string {
	return fmt.Sprintf("%s/%d", t.Name, t.Size)
}

// Byte is the element type used by every block shipped with streamgraph.
var Byte = ElementType{Name: "byte", Size: 1}

// PortSpec declares one port of a block.
// Blocks return their port specs from Inputs and Outputs; the position in
// the returned slice is the port index.
type PortSpec struct {
	Type ElementType
	// Optional ports may stay unconnected. Validate reports required ports
	// without an edge as dangling.
	Optional bool
}

// Port identifies one port of one block in a graph.
// Ports are plain values; use In and Out to build them for Connect.
type Port struct {
	Block     string
	Direction Direction
	Index     int
	Type      ElementType
	Optional  bool
}

// In references input port index of the named block.
//
//	g.Connect(streamgraph.Out("throttle", 0), streamgraph.In("encoder", 0), 4096)
func In(block string, index int) Port {
	return Port{Block: block, Direction: Input, Index: index}
}

// Out references output port index of the named block.
func Out(block string, index int) Port {
	return Port{Block: block, Direction: Output, Index: index}
}

// String formats the port as block:direction:index.
func (p Port) String() string {
	return fmt.Sprintf("%s:%s:%d", p.Block, p.Direction, p.Index)
}

// key drops the type information so a reference built with In/Out matches
// the fully resolved port held by the node.
func (p Port) key() portKey {
	return portKey{block: p.Block, dir: p.Direction, index: p.Index}
}

type portKey struct {
	block string
	dir   Direction
	index int
}
