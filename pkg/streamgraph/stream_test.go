package streamgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fanOut builds src -> {a, b} with the given edge capacities and returns
// the source's output stream and the two edges.
func fanOut(t *testing.T, capA, capB int) (*OutputStream, *Edge, *Edge) {
	t.Helper()
	g := NewGraph().
		AddBlock(&counter{name: "src"}).
		AddBlock(&collector{name: "a"}).
		AddBlock(&collector{name: "b"})
	ea, err := g.Connect(Out("src", 0), In("a", 0), capA)
	require.NoError(t, err)
	eb, err := g.Connect(Out("src", 0), In("b", 0), capB)
	require.NoError(t, err)
	return g.nodes["src"].io.Out[0], ea, eb
}

// TestOutputStream_FanOutIsAllOrNothing verifies that every consumer gets
// the same prefix, bounded by the fullest edge.
func TestOutputStream_FanOutIsAllOrNothing(t *testing.T) {
	out, ea, eb := fanOut(t, 8, 3)

	assert.Equal(t, 3, out.Writable())
	assert.Equal(t, 3, out.Write([]byte{1, 2, 3, 4, 5}))
	assert.Equal(t, 3, ea.Len())
	assert.Equal(t, 3, eb.Len())

	assert.False(t, out.Push(6), "b is full")
	assert.Equal(t, 3, ea.Len(), "a must not get a sample b refused")

	eb.Pop()
	assert.True(t, out.Push(6))
	assert.Equal(t, 4, ea.Len())
	assert.Equal(t, 3, eb.Len())
}

// TestOutputStream_UnconnectedDiscards verifies that an unconnected output
// accepts and drops samples.
func TestOutputStream_UnconnectedDiscards(t *testing.T) {
	out := &OutputStream{port: Out("x", 0)}
	assert.False(t, out.Connected())
	assert.Equal(t, MaxBatch, out.Writable())
	assert.Equal(t, 4, out.Write([]byte{1, 2, 3, 4}))
	assert.True(t, out.Push(1))
}

// TestInputStream_Unconnected verifies that an unconnected input is empty.
func TestInputStream_Unconnected(t *testing.T) {
	in := &InputStream{port: In("x", 0)}
	assert.False(t, in.Connected())
	assert.Zero(t, in.Available())
	_, ok := in.Pop()
	assert.False(t, ok)
	assert.Zero(t, in.Read(make([]byte, 4)))
}
