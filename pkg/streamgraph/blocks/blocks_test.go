package blocks_test

import (
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/blocks"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock for throttle tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// chain compiles blocks connected port 0 to port 0 in the given order and
// starts every node. The scheduler is not started; tests drive Process
// by hand.
func chain(t *testing.T, capacity int, bs ...streamgraph.Block) *streamgraph.CompiledGraph {
	t.Helper()

	g := streamgraph.NewGraph()
	for _, b := range bs {
		g.AddBlock(b)
	}
	for i := 1; i < len(bs); i++ {
		_, err := g.Connect(streamgraph.Out(bs[i-1].Name(), 0), streamgraph.In(bs[i].Name(), 0), capacity)
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

func process(t *testing.T, cg *streamgraph.CompiledGraph, name string) streamgraph.ProcessResult {
	t.Helper()
	n, ok := cg.Node(name)
	require.True(t, ok, "block %s", name)
	res := n.Process()
	require.NoError(t, res.Err)
	return res
}

// step processes every block once in topological order.
func step(t *testing.T, cg *streamgraph.CompiledGraph) {
	t.Helper()
	for _, name := range cg.Order() {
		process(t, cg, name)
	}
}

func mustSource(t *testing.T, name string, vector []byte) *blocks.RepeatingSource {
	t.Helper()
	s, err := blocks.NewRepeatingSource(name, vector)
	require.NoError(t, err)
	return s
}

func ramp(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}
