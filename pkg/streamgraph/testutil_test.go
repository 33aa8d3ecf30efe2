package streamgraph

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test blocks used across tests.

// counter emits 0, 1, 2, ... (mod 256), at most limit samples per run when
// limit is positive.
type counter struct {
	name  string
	limit int
	next  int
}

func (c *counter) Name() string        { return c.name }
func (c *counter) Inputs() []PortSpec  { return nil }
func (c *counter) Outputs() []PortSpec { return []PortSpec{{Type: Byte}} }
func (c *counter) Start() error {
	c.next = 0
	return nil
}
func (c *counter) Process(io *IO) ProcessResult {
	n := min(io.Out[0].Writable(), MaxBatch)
	if c.limit > 0 {
		n = min(n, c.limit-c.next)
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(c.next + i)
	}
	written := io.Out[0].Write(buf)
	c.next += written
	return Progress(0, written)
}

// pass copies input 0 to output 0.
type pass struct {
	name string
	typ  ElementType
}

func (p *pass) Name() string { return p.name }
func (p *pass) elem() ElementType {
	if p.typ == (ElementType{}) {
		return Byte
	}
	return p.typ
}
func (p *pass) Inputs() []PortSpec  { return []PortSpec{{Type: p.elem()}} }
func (p *pass) Outputs() []PortSpec { return []PortSpec{{Type: p.elem()}} }
func (p *pass) Process(io *IO) ProcessResult {
	buf := make([]byte, min(io.In[0].Available(), io.Out[0].Writable(), MaxBatch))
	n := io.In[0].Read(buf)
	io.Out[0].Write(buf[:n])
	return Progress(n, n)
}

// merge interleaves two inputs and has an optional second output.
type merge struct{ name string }

func (m *merge) Name() string { return m.name }
func (m *merge) Inputs() []PortSpec {
	return []PortSpec{{Type: Byte}, {Type: Byte}}
}
func (m *merge) Outputs() []PortSpec {
	return []PortSpec{{Type: Byte}, {Type: Byte, Optional: true}}
}
func (m *merge) Process(io *IO) ProcessResult {
	consumed, produced := 0, 0
	for _, in := range io.In {
		buf := make([]byte, min(in.Available(), io.Out[0].Writable()))
		n := in.Read(buf)
		io.Out[0].Write(buf[:n])
		io.Out[1].Write(buf[:n])
		consumed += n
		produced += n
	}
	return Progress(consumed, produced)
}

// collector records everything it reads.
type collector struct {
	name string
	mu   sync.Mutex
	data []byte
}

func (c *collector) Name() string        { return c.name }
func (c *collector) Inputs() []PortSpec  { return []PortSpec{{Type: Byte}} }
func (c *collector) Outputs() []PortSpec { return nil }
func (c *collector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	return nil
}
func (c *collector) Process(io *IO) ProcessResult {
	buf := make([]byte, min(io.In[0].Available(), MaxBatch))
	n := io.In[0].Read(buf)
	c.mu.Lock()
	c.data = append(c.data, buf[:n]...)
	c.mu.Unlock()
	return Progress(n, 0)
}
func (c *collector) Data() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.data...)
}

// faulty is a sink that reports err from call number failAt on.
type faulty struct {
	name   string
	failAt int64
	err    error
	fatal  bool
	calls  atomic.Int64
}

func (f *faulty) Name() string        { return f.name }
func (f *faulty) Inputs() []PortSpec  { return []PortSpec{{Type: Byte}} }
func (f *faulty) Outputs() []PortSpec { return nil }
func (f *faulty) Process(io *IO) ProcessResult {
	buf := make([]byte, min(io.In[0].Available(), MaxBatch))
	n := io.In[0].Read(buf)
	if f.calls.Add(1) < f.failAt {
		return Progress(n, 0)
	}
	if f.fatal {
		return Fatal(n, 0, f.err)
	}
	return Failed(n, 0, f.err)
}

// panicky panics on its first Process call.
type panicky struct{ name string }

func (p *panicky) Name() string              { return p.name }
func (p *panicky) Inputs() []PortSpec        { return nil }
func (p *panicky) Outputs() []PortSpec       { return []PortSpec{{Type: Byte, Optional: true}} }
func (p *panicky) Process(*IO) ProcessResult { panic("boom") }

var errGainRange = errors.New("gain must be in 1..10")

// gain is a tunable pass-through with lifecycle hooks.
type gain struct {
	pass
	value    int
	startErr error
	stopErr  error
	started  atomic.Int32
	stopped  atomic.Int32
}

func newGain(name string) *gain { return &gain{pass: pass{name: name}, value: 1} }

func (g *gain) Start() error {
	if g.startErr != nil {
		return g.startErr
	}
	g.started.Add(1)
	return nil
}

func (g *gain) Stop() error {
	g.stopped.Add(1)
	return g.stopErr
}

func (g *gain) SetParameter(name string, value any) error {
	if name != "gain" {
		return &InvalidParameterError{Name: name, Value: value, Reason: ErrUnknownParameter}
	}
	v, ok := value.(int)
	if !ok || v < 1 || v > 10 {
		return errGainRange
	}
	g.value = v
	return nil
}

func (g *gain) Parameters() map[string]any { return map[string]any{"gain": g.value} }

// linear builds and compiles bs connected output 0 to input 0 in order.
func linear(t *testing.T, capacity int, bs ...Block) *CompiledGraph {
	t.Helper()
	g := NewGraph(WithName("test"))
	for _, b := range bs {
		g.AddBlock(b)
	}
	for i := 1; i < len(bs); i++ {
		_, err := g.Connect(Out(bs[i-1].Name(), 0), In(bs[i].Name(), 0), capacity)
		require.NoError(t, err)
	}
	cg, err := g.Compile()
	require.NoError(t, err)
	return cg
}

// ramp returns 0, 1, 2, ... (mod 256) of length n.
func ramp(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}
