package m17_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/blocks"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/m17"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncoder_Defaults(t *testing.T) {
	e := mustEncoder(t, m17.EncoderConfig{Src: "n0call", Dst: m17.Broadcast})

	params := e.Parameters()
	assert.Equal(t, "N0CALL", params["src"])
	assert.Equal(t, "@ALL", params["dst"])
	assert.Equal(t, float64(m17.DefaultSampleRate), params["samp_rate"])
	assert.Equal(t, 0, params["type"])
	assert.Equal(t, "", params["meta"])
}

func TestNewEncoder_InvalidConfig(t *testing.T) {
	_, err := m17.NewEncoder("enc", m17.EncoderConfig{Src: "BAD!"})
	assert.ErrorIs(t, err, m17.ErrInvalidCallsign)
	assert.ErrorIs(t, err, streamgraph.ErrInvalidParameter)

	_, err = m17.NewEncoder("enc", m17.EncoderConfig{SampleRate: -1})
	assert.ErrorIs(t, err, m17.ErrRateRange)
}

func TestEncoder_LSFThenStreamFrames(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{
		Src:  "01.02.03.04.05.06",
		Dst:  "255.255.255.255.255.255",
		Meta: "helloworld",
	})
	input := append(fill(0xA1), fill(0xB2)...)
	input = append(input, 0xC3, 0xC3) // incomplete third payload
	sink := blocks.NewVectorSink("sink", 0)
	cg := pipe(t, []int{64, 256}, once(t, "src", input), enc, sink)

	require.Empty(t, drain(t, cg))

	want := mustLSF(t, "01.02.03.", "255.255.2", 0, "helloworld")
	want = m17.AppendStreamFrame(want, 0, false, fill(0xA1))
	want = m17.AppendStreamFrame(want, 1, false, fill(0xB2))
	assert.Equal(t, want, sink.Data())

	stats := enc.Stats()
	assert.Equal(t, int64(1), stats.LSFs)
	assert.Equal(t, int64(2), stats.Frames)
	assert.Equal(t, int64(32), cg.Stats()["enc"].Consumed)
}

func TestEncoder_ResumesPartialFrames(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{Src: "AB1CD", Dst: "@ALL"})
	input := append(fill(1), fill(2)...)
	sink := blocks.NewVectorSink("sink", 0)

	// Edges narrower than a frame force every frame across several calls.
	cg := pipe(t, []int{64, 5}, once(t, "src", input), enc, sink)
	require.Empty(t, drain(t, cg))

	want := mustLSF(t, "AB1CD", "@ALL", 0, "")
	want = m17.AppendStreamFrame(want, 0, false, fill(1))
	want = m17.AppendStreamFrame(want, 1, false, fill(2))
	assert.Equal(t, want, sink.Data())
}

func TestEncoder_ParameterChangeSendsLSF(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{Src: "AB1CD", Dst: "@ALL"})
	src, err := blocks.NewRepeatingSource("src", fill(7))
	require.NoError(t, err)
	sink := blocks.NewVectorSink("sink", 0)
	cg := pipe(t, []int{16, 256}, src, enc, sink)

	for range 3 {
		for _, name := range cg.Order() {
			node(t, cg, name).Process()
		}
	}
	before := sink.Len()

	require.NoError(t, node(t, cg, "enc").SetParameter("dst", "N0CALL"))
	for _, name := range cg.Order() {
		node(t, cg, name).Process()
	}

	data := sink.Data()[before:]
	require.GreaterOrEqual(t, len(data), m17.LSFFrameSize+m17.StreamSize)
	lsf, err := m17.ParseLSF(data[:m17.LSFFrameSize])
	require.NoError(t, err)
	assert.Equal(t, "N0CALL", lsf.Dst.String())
	assert.Equal(t, "AB1CD", lsf.Src.String())

	f, err := m17.ParseStreamFrame(data[m17.LSFFrameSize:])
	require.NoError(t, err)
	assert.Equal(t, fill(7), f.Payload[:])
	assert.Equal(t, int64(2), enc.Stats().LSFs)
}

func TestEncoder_NonLinkParametersKeepStream(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{Src: "AB1CD", Dst: "@ALL"})
	cg := pipe(t, []int{64, 256}, once(t, "src", fill(1)), enc, blocks.NewDiscardSink("sink"))
	require.Empty(t, drain(t, cg))

	require.NoError(t, enc.SetParameter("samp_rate", 9600))
	require.NoError(t, enc.SetParameter("debug", true))
	drain(t, cg)
	assert.Equal(t, int64(1), enc.Stats().LSFs)
}

func TestEncoder_FrameNumberWraps(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{Src: "AB1CD", Dst: "@ALL"})
	dec := m17.NewDecoder("dec", m17.DecoderConfig{Strict: true})
	src, err := blocks.NewRepeatingSource("src", []byte{0x42})
	require.NoError(t, err)
	cg := pipe(t, []int{streamgraph.MaxBatch, streamgraph.MaxBatch, streamgraph.MaxBatch},
		src, enc, dec, blocks.NewDiscardSink("sink"))

	for enc.Stats().Frames < 0x8000+10 {
		for _, name := range cg.Order() {
			res := node(t, cg, name).Process()
			require.NoError(t, res.Err)
		}
	}

	stats := dec.Stats()
	assert.Positive(t, stats.Frames)
	assert.Zero(t, stats.Lost)
	assert.Zero(t, stats.CRCErrors)
	assert.Zero(t, stats.Skipped)
}

func TestEncoder_SetParameter(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{Src: "AB1CD", Dst: "@ALL"})

	tests := []struct {
		name    string
		param   string
		value   any
		wantErr bool
	}{
		{"src", "src", "sp5wwp", false},
		{"dst broadcast", "dst", "@ALL", false},
		{"dst hash", "dst", "#BLN", false},
		{"src invalid char", "src", "N0CALL!", true},
		{"src long is cut", "src", "n0call-portable", false},
		{"src invalid char past the cut", "src", "bad callsign!", true},
		{"src not a string", "src", []int{1}, true},
		{"type", "type", 5, false},
		{"type as string", "type", "2", false},
		{"type negative", "type", -1, true},
		{"type too large", "type", math.MaxUint16 + 1, true},
		{"meta", "meta", "hi", false},
		{"samp_rate", "samp_rate", 32000.0, false},
		{"samp_rate zero", "samp_rate", 0, true},
		{"samp_rate nan", "samp_rate", math.NaN(), true},
		{"debug", "debug", "true", false},
		{"unknown", "gain", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := enc.Parameters()
			err := enc.SetParameter(tt.param, tt.value)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, streamgraph.ErrInvalidParameter)
			assert.Equal(t, before, enc.Parameters())
		})
	}
}

func TestEncoder_MetaIsCut(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{Meta: "0123456789abcdefgh"})
	assert.Equal(t, "0123456789abcd", enc.Parameters()["meta"])
}

func TestEncoder_StartRestartsStream(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{Src: "AB1CD", Dst: "@ALL"})
	sink := blocks.NewVectorSink("sink", 0)
	cg := pipe(t, []int{64, 256}, once(t, "src", fill(3)), enc, sink)
	require.Empty(t, drain(t, cg))

	for _, name := range []string{"src", "enc"} {
		n := node(t, cg, name)
		require.NoError(t, n.Stop())
		require.NoError(t, n.Start())
	}
	require.Empty(t, drain(t, cg))

	one := mustLSF(t, "AB1CD", "@ALL", 0, "")
	one = m17.AppendStreamFrame(one, 0, false, fill(3))
	assert.Equal(t, bytes.Repeat(one, 2), sink.Data())
}

func TestEncoder_LongCallsignIsCut(t *testing.T) {
	enc := mustEncoder(t, m17.EncoderConfig{Src: "n0call-portable", Dst: "@ALL"})
	assert.Equal(t, "N0CALL-PO", enc.Parameters()["src"])
}
