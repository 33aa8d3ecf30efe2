package pipeline

import (
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/blocks"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/m17"
)

// Block names of the streamer graph.
const (
	StreamerSource   = "vector_source"
	StreamerThrottle = "throttle"
	StreamerEncoder  = "m17_coder"
	StreamerDecoder  = "m17_decoder"
	StreamerSink     = "null_sink"
)

// StreamerConfig holds the parameters of the M17 data streamer.
type StreamerConfig struct {
	SampleRate float64
	Src        string
	Dst        string
	Type       int
	Meta       string
	// Vector is repeated by the source; 16 zero bytes when empty.
	Vector []byte
}

// DefaultStreamerConfig returns the stock streamer parameters.
func DefaultStreamerConfig() StreamerConfig {
	return StreamerConfig{
		SampleRate: m17.DefaultSampleRate,
		Src:        "01.02.03.04.05.06",
		Dst:        "255.255.255.255.255.255",
		Meta:       "helloworld",
	}
}

// Streamer describes the M17 data streamer: a repeating source paced by
// a throttle, framed by the encoder, recovered by the decoder and
// discarded.
func Streamer(cfg StreamerConfig) *Spec {
	vector := cfg.Vector
	if len(vector) == 0 {
		vector = make([]byte, m17.PayloadSize)
	}
	return &Spec{
		Name: "m17-streamer",
		Blocks: []BlockSpec{
			{Name: StreamerSource, Type: blocks.TypeVectorSource, Params: map[string]any{"vector": vector}},
			{Name: StreamerThrottle, Type: blocks.TypeThrottle, Params: map[string]any{"rate": cfg.SampleRate}},
			{Name: StreamerEncoder, Type: m17.TypeEncoder, Params: map[string]any{
				"src":       cfg.Src,
				"dst":       cfg.Dst,
				"type":      cfg.Type,
				"meta":      cfg.Meta,
				"samp_rate": cfg.SampleRate,
			}},
			{Name: StreamerDecoder, Type: m17.TypeDecoder},
			{Name: StreamerSink, Type: blocks.TypeNullSink},
		},
		Connections: []ConnectionSpec{
			{From: StreamerSource, To: StreamerThrottle},
			{From: StreamerThrottle, To: StreamerEncoder},
			{From: StreamerEncoder, To: StreamerDecoder},
			{From: StreamerDecoder, To: StreamerSink},
		},
	}
}

// SampleRateParams lists the parameters that follow the streamer's sample
// rate: the throttle's rate and the encoder's samp_rate.
func SampleRateParams() map[string]string {
	return map[string]string{
		StreamerThrottle: "rate",
		StreamerEncoder:  "samp_rate",
	}
}
