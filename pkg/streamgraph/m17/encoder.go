package m17

import (
	"encoding/hex"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
)

// DefaultSampleRate is the encoder input rate used when none is given.
const DefaultSampleRate = 4800

var (
	// ErrTypeRange indicates a stream type outside 0..65535.
	ErrTypeRange = errors.New("type must be in 0..65535")

	// ErrRateRange indicates a sample rate that is not positive and finite.
	ErrRateRange = errors.New("samp_rate must be positive and finite")
)

// EncoderConfig holds the initial parameters of an Encoder.
type EncoderConfig struct {
	Src  string
	Dst  string
	Type uint16
	Meta string
	// SampleRate is the input rate in bytes per second. It is reported in
	// Parameters; framing does not depend on it.
	SampleRate float64
	Debug      bool
	Logger     *slog.Logger
}

// EncoderStats are the counters of an Encoder.
type EncoderStats struct {
	LSFs   int64 `json:"lsfs"`
	Frames int64 `json:"frames"`
}

// Encoder frames its input into an M17 stream.
//
// On Start, and again after any change of src, dst, type or meta, it
// emits an LSF. It then turns every 16 input bytes into one stream frame.
// A frame the output edge cannot take at once is finished on later calls;
// no input is read until it is.
type Encoder struct {
	name   string
	src    string
	dst    string
	meta   string
	rate   float64
	debug  bool
	lsf    LSF
	logger *slog.Logger

	fn      uint16
	sendLSF bool
	frame   []byte // frame being written
	off     int    // bytes of frame already written
	payload [PayloadSize]byte

	lsfs   atomic.Int64
	frames atomic.Int64
}

// NewEncoder creates an encoder block.
// Callsigns are upper-cased and cut to nine characters before encoding;
// an invalid character anywhere in the input is rejected.
func NewEncoder(name string, cfg EncoderConfig) (*Encoder, error) {
	e := &Encoder{
		name:   name,
		logger: cfg.Logger,
		debug:  cfg.Debug,
		rate:   cfg.SampleRate,
		frame:  make([]byte, 0, maxFrameSize),
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.rate == 0 {
		e.rate = DefaultSampleRate
	}
	params := []struct {
		name  string
		value any
	}{
		{"samp_rate", e.rate},
		{"src", cfg.Src},
		{"dst", cfg.Dst},
		{"type", int(cfg.Type)},
		{"meta", cfg.Meta},
	}
	for _, p := range params {
		if err := e.SetParameter(p.name, p.value); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Name implements streamgraph.Block.
func (e *Encoder) Name() string { return e.name }

// Inputs implements streamgraph.Block.
func (e *Encoder) Inputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Outputs implements streamgraph.Block.
func (e *Encoder) Outputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Start resets the frame counter and schedules an LSF.
func (e *Encoder) Start() error {
	e.fn = 0
	e.sendLSF = true
	e.frame = e.frame[:0]
	e.off = 0
	return nil
}

// Stats returns the encoder counters. Safe to call while the graph runs.
func (e *Encoder) Stats() EncoderStats {
	return EncoderStats{LSFs: e.lsfs.Load(), Frames: e.frames.Load()}
}

// Process implements streamgraph.Block.
func (e *Encoder) Process(io *streamgraph.IO) streamgraph.ProcessResult {
	in, out := io.In[0], io.Out[0]
	consumed, produced := 0, 0

	for produced < streamgraph.MaxBatch {
		if e.off < len(e.frame) {
			n := out.Write(e.frame[e.off:])
			e.off += n
			produced += n
			if e.off < len(e.frame) {
				break
			}
			continue
		}

		switch {
		case e.sendLSF:
			e.frame = e.lsf.AppendFrame(e.frame[:0])
			e.sendLSF = false
			e.lsfs.Add(1)
			if e.debug {
				e.logger.Debug("m17 lsf",
					slog.String("block", e.name),
					slog.String("src", e.src),
					slog.String("dst", e.dst),
					slog.Int("type", int(e.lsf.Type)),
					slog.String("meta", e.meta),
				)
			}
		case in.Available() >= PayloadSize:
			consumed += in.Read(e.payload[:])
			e.frame = AppendStreamFrame(e.frame[:0], e.fn, false, e.payload[:])
			if e.debug {
				e.logger.Debug("m17 stream frame",
					slog.String("block", e.name),
					slog.Int("fn", int(e.fn)),
					slog.String("payload", hex.EncodeToString(e.payload[:])),
				)
			}
			e.fn = (e.fn + 1) % maxFrameCount
			e.frames.Add(1)
		default:
			return streamgraph.Progress(consumed, produced)
		}
		e.off = 0
	}
	return streamgraph.Progress(consumed, produced)
}

// SetParameter implements streamgraph.Tunable.
//
// Parameters: "src", "dst" (callsigns), "type" (0..65535), "meta"
// (string, cut to 14 bytes), "samp_rate" (> 0) and "debug" (bool). A
// change of src, dst, type or meta makes the encoder emit a new LSF
// before the next stream frame.
func (e *Encoder) SetParameter(name string, value any) error {
	switch name {
	case "src", "dst":
		s, err := config.AsString(value)
		if err != nil {
			return e.invalid(name, value, err)
		}
		// Characters past the ninth are cut, but still have to be valid.
		if err := checkCallsignChars(strings.ToUpper(s)); err != nil {
			return e.invalid(name, value, err)
		}
		s = NormalizeCallsign(s)
		addr, err := EncodeCallsign(s)
		if err != nil {
			return e.invalid(name, value, err)
		}
		if name == "src" {
			e.src, e.lsf.Src = s, addr
		} else {
			e.dst, e.lsf.Dst = s, addr
		}
	case "type":
		v, err := config.AsInt(value)
		if err != nil {
			return e.invalid(name, value, err)
		}
		if v < 0 || v > math.MaxUint16 {
			return e.invalid(name, value, ErrTypeRange)
		}
		e.lsf.Type = uint16(v)
	case "meta":
		s, err := config.AsString(value)
		if err != nil {
			return e.invalid(name, value, err)
		}
		if len(s) > MetaSize {
			s = s[:MetaSize]
		}
		e.meta = s
		e.lsf.Meta = [MetaSize]byte{}
		copy(e.lsf.Meta[:], s)
	case "samp_rate":
		v, err := config.AsFloat(value)
		if err != nil {
			return e.invalid(name, value, err)
		}
		if v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
			return e.invalid(name, value, ErrRateRange)
		}
		e.rate = v
		return nil
	case "debug":
		v, err := config.AsBool(value)
		if err != nil {
			return e.invalid(name, value, err)
		}
		e.debug = v
		return nil
	default:
		return e.invalid(name, value, streamgraph.ErrUnknownParameter)
	}

	e.sendLSF = true
	return nil
}

// Parameters implements streamgraph.Tunable.
func (e *Encoder) Parameters() map[string]any {
	return map[string]any{
		"src":       e.src,
		"dst":       e.dst,
		"type":      int(e.lsf.Type),
		"meta":      e.meta,
		"samp_rate": e.rate,
		"debug":     e.debug,
	}
}

func (e *Encoder) invalid(name string, value any, reason error) error {
	return &streamgraph.InvalidParameterError{Block: e.name, Name: name, Value: value, Reason: reason}
}
