package m17_test

import (
	"bytes"
	"testing"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/blocks"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/m17"
	"github.com/stretchr/testify/require"
)

// pipe compiles bs connected port 0 to port 0, using caps[i] as the
// capacity of the edge after bs[i], and starts every node. Tests drive
// Process by hand.
func pipe(t *testing.T, caps []int, bs ...streamgraph.Block) *streamgraph.CompiledGraph {
	t.Helper()
	require.Len(t, caps, len(bs)-1)

	g := streamgraph.NewGraph()
	for _, b := range bs {
		g.AddBlock(b)
	}
	for i := 1; i < len(bs); i++ {
		_, err := g.Connect(streamgraph.Out(bs[i-1].Name(), 0), streamgraph.In(bs[i].Name(), 0), caps[i-1])
		require.NoError(t, err)
	}
	cg, err := g.Compile()
	require.NoError(t, err)

	for _, name := range cg.Order() {
		n, _ := cg.Node(name)
		require.NoError(t, n.Start())
	}
	return cg
}

func node(t *testing.T, cg *streamgraph.CompiledGraph, name string) *streamgraph.Node {
	t.Helper()
	n, ok := cg.Node(name)
	require.True(t, ok, "block %s", name)
	return n
}

// drain steps every block in order until a whole pass moves nothing.
// Block errors are collected, not failed on.
func drain(t *testing.T, cg *streamgraph.CompiledGraph) []streamgraph.ProcessResult {
	t.Helper()
	var failed []streamgraph.ProcessResult
	for pass := 0; pass < 10000; pass++ {
		moved := false
		for _, name := range cg.Order() {
			res := node(t, cg, name).Process()
			if res.Err != nil {
				failed = append(failed, res)
			}
			if !res.Exhausted {
				moved = true
			}
		}
		if !moved {
			return failed
		}
	}
	t.Fatal("graph did not settle")
	return nil
}

// once returns a source that emits data a single time.
func once(t *testing.T, name string, data []byte) *blocks.RepeatingSource {
	t.Helper()
	src, err := blocks.NewRepeatingSource(name, data)
	require.NoError(t, err)
	require.NoError(t, src.SetParameter("repeat", false))
	return src
}

func fill(b byte) []byte { return bytes.Repeat([]byte{b}, m17.PayloadSize) }

func mustEncoder(t *testing.T, cfg m17.EncoderConfig) *m17.Encoder {
	t.Helper()
	e, err := m17.NewEncoder("enc", cfg)
	require.NoError(t, err)
	return e
}

func mustLSF(t *testing.T, src, dst string, typ uint16, meta string) []byte {
	t.Helper()
	l, err := m17.NewLSF(src, dst, typ, meta)
	require.NoError(t, err)
	return l.AppendFrame(nil)
}
