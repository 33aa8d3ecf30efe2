package blocks_test

import (
	"bytes"
	"testing"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/blocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepeatingSource_EmptyVector(t *testing.T) {
	_, err := blocks.NewRepeatingSource("src", nil)
	assert.Error(t, err)
}

func TestRepeatingSource_CopiesVector(t *testing.T) {
	v := []byte{1, 2, 3}
	src := mustSource(t, "src", v)
	v[0] = 9

	assert.Equal(t, []byte{1, 2, 3}, src.Parameters()["vector"])
}

func TestRepeatingSource_FillsDownstreamCyclically(t *testing.T) {
	src := mustSource(t, "src", []byte{1, 2, 3})
	sink := blocks.NewVectorSink("sink", 0)
	cg := chain(t, 10, src, sink)

	res := process(t, cg, "src")
	assert.Equal(t, 10, res.Produced)
	assert.Equal(t, 0, res.Consumed)
	assert.False(t, res.Exhausted)

	// Edge full: backpressure.
	res = process(t, cg, "src")
	assert.True(t, res.Exhausted)

	process(t, cg, "sink")
	assert.Equal(t, []byte{1, 2, 3, 1, 2, 3, 1, 2, 3, 1}, sink.Data())

	// The source resumes where it stopped.
	res = process(t, cg, "src")
	assert.Equal(t, 10, res.Produced)
	process(t, cg, "sink")
	assert.Equal(t, []byte{2, 3, 1, 2, 3, 1, 2, 3, 1, 2}, sink.Data()[10:])
}

func TestRepeatingSource_BoundedByMaxBatch(t *testing.T) {
	src := mustSource(t, "src", []byte{0})
	cg := chain(t, 3*streamgraph.MaxBatch, src, blocks.NewDiscardSink("sink"))

	res := process(t, cg, "src")
	assert.Equal(t, streamgraph.MaxBatch, res.Produced)
}

func TestRepeatingSource_NoRepeat(t *testing.T) {
	src := mustSource(t, "src", []byte{7, 8})
	require.NoError(t, src.SetParameter("repeat", false))
	sink := blocks.NewVectorSink("sink", 0)
	cg := chain(t, 16, src, sink)

	step(t, cg)
	step(t, cg)
	assert.Equal(t, []byte{7, 8}, sink.Data())

	res := process(t, cg, "src")
	assert.True(t, res.Exhausted)
}

func TestRepeatingSource_StartRewinds(t *testing.T) {
	src := mustSource(t, "src", []byte{1, 2, 3})
	sink := blocks.NewVectorSink("sink", 0)
	cg := chain(t, 2, src, sink)

	step(t, cg)
	assert.Equal(t, []byte{1, 2}, sink.Data())

	n, _ := cg.Node("src")
	require.NoError(t, n.Stop())
	require.NoError(t, n.Start())

	step(t, cg)
	assert.Equal(t, []byte{1, 2, 1, 2}, sink.Data())
}

func TestRepeatingSource_SetParameter(t *testing.T) {
	src := mustSource(t, "src", []byte{1})

	tests := []struct {
		name    string
		param   string
		value   any
		wantErr bool
	}{
		{"vector from list", "vector", []any{4, 5}, false},
		{"vector from string", "vector", "ab", false},
		{"empty vector", "vector", []byte{}, true},
		{"vector out of range", "vector", []any{300}, true},
		{"repeat string", "repeat", "false", false},
		{"repeat garbage", "repeat", "sometimes", true},
		{"unknown", "gain", 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := src.Parameters()
			err := src.SetParameter(tt.param, tt.value)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, streamgraph.ErrInvalidParameter)
			assert.Equal(t, before, src.Parameters())
		})
	}
}

func TestRepeatingSource_UnknownParameter(t *testing.T) {
	src := mustSource(t, "src", []byte{1})
	err := src.SetParameter("nope", 1)
	assert.ErrorIs(t, err, streamgraph.ErrUnknownParameter)
}

func TestRepeatingSource_TemplateFixedWhileRunning(t *testing.T) {
	src := mustSource(t, "src", ramp(8))
	sink := blocks.NewVectorSink("sink", 0)
	cg := chain(t, 5, src, sink)

	step(t, cg)
	require.NoError(t, src.SetParameter("vector", []byte{0xaa, 0xbb}))
	require.NoError(t, src.SetParameter("repeat", false))
	for i := 0; i < 4; i++ {
		step(t, cg)
	}

	// The running source keeps cycling its template from where it was.
	cycles := bytes.Repeat(ramp(8), 4)
	assert.Equal(t, cycles[:25], sink.Data())
	assert.Equal(t, []byte{0xaa, 0xbb}, src.Parameters()["vector"])

	// The staged template and repeat flag apply from the next start.
	n, _ := cg.Node("src")
	require.NoError(t, n.Stop())
	require.NoError(t, n.Start())
	before := len(sink.Data())
	step(t, cg)
	step(t, cg)
	assert.Equal(t, []byte{0xaa, 0xbb}, sink.Data()[before:])

	res := process(t, cg, "src")
	assert.True(t, res.Exhausted)
}
