package m17

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/randalmurphal/streamgraph/pkg/streamgraph"
	"github.com/randalmurphal/streamgraph/pkg/streamgraph/config"
)

// DecoderConfig holds the initial parameters of a Decoder.
type DecoderConfig struct {
	// Strict makes every dropped frame a fatal error.
	Strict bool
	// DebugData logs every decoded payload.
	DebugData bool
	// DebugCtrl logs every decoded LSF.
	DebugCtrl bool
	Logger    *slog.Logger
}

// DecoderStats are the counters of a Decoder.
type DecoderStats struct {
	// Frames is the number of stream frames decoded.
	Frames int64 `json:"frames"`
	// LSFs is the number of link setup frames decoded.
	LSFs int64 `json:"lsfs"`
	// CRCErrors counts frames dropped for a CRC mismatch.
	CRCErrors int64 `json:"crc_errors"`
	// Lost counts stream frames missing from the frame-number sequence.
	Lost int64 `json:"lost"`
	// Skipped counts bytes discarded while hunting for a sync word.
	Skipped int64 `json:"skipped"`
}

// Decoder recovers stream payloads from M17 frames.
//
// It scans its input for sync words, checks each frame's CRC and writes
// the 16-byte payload of every good stream frame. A frame with a bad CRC is
// dropped and reported as a non-fatal error, or a fatal one when strict.
// Frame-number gaps are counted as lost frames.
type Decoder struct {
	name      string
	strict    bool
	debugData bool
	debugCtrl bool
	logger    *slog.Logger

	buf    []byte // undecoded input
	offset int64  // input position of buf[0]

	expect    uint16
	hasExpect bool

	lastLSF   atomic.Pointer[LSF]
	frames    atomic.Int64
	lsfs      atomic.Int64
	crcErrors atomic.Int64
	lost      atomic.Int64
	skipped   atomic.Int64
}

// NewDecoder creates a decoder block.
func NewDecoder(name string, cfg DecoderConfig) *Decoder {
	d := &Decoder{
		name:      name,
		strict:    cfg.Strict,
		debugData: cfg.DebugData,
		debugCtrl: cfg.DebugCtrl,
		logger:    cfg.Logger,
		buf:       make([]byte, 0, streamgraph.MaxBatch+maxFrameSize),
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Name implements streamgraph.Block.
func (d *Decoder) Name() string { return d.name }

// Inputs implements streamgraph.Block.
func (d *Decoder) Inputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Outputs implements streamgraph.Block.
func (d *Decoder) Outputs() []streamgraph.PortSpec {
	return []streamgraph.PortSpec{{Type: streamgraph.Byte}}
}

// Start clears buffered input and the frame-number sequence. Counters
// keep accumulating.
func (d *Decoder) Start() error {
	d.buf = d.buf[:0]
	d.offset = 0
	d.hasExpect = false
	return nil
}

// Stats returns the decoder counters. Safe to call while the graph runs.
func (d *Decoder) Stats() DecoderStats {
	return DecoderStats{
		Frames:    d.frames.Load(),
		LSFs:      d.lsfs.Load(),
		CRCErrors: d.crcErrors.Load(),
		Lost:      d.lost.Load(),
		Skipped:   d.skipped.Load(),
	}
}

// LastLSF returns the most recent link setup data, if any was decoded.
// Safe to call while the graph runs.
func (d *Decoder) LastLSF() (LSF, bool) {
	if l := d.lastLSF.Load(); l != nil {
		return *l, true
	}
	return LSF{}, false
}

// Process implements streamgraph.Block.
func (d *Decoder) Process(io *streamgraph.IO) streamgraph.ProcessResult {
	in, out := io.In[0], io.Out[0]

	consumed := 0
	if free := cap(d.buf) - len(d.buf); free > 0 {
		n := min(in.Available(), free)
		if n > 0 {
			start := len(d.buf)
			d.buf = d.buf[:start+n]
			consumed = in.Read(d.buf[start:])
			d.buf = d.buf[:start+consumed]
		}
	}

	produced := 0
	var errs []error
	pos := 0
scan:
	for len(d.buf)-pos >= SyncSize {
		frame := d.buf[pos:]
		switch binary.BigEndian.Uint16(frame) {
		case SyncLSF:
			if len(frame) < LSFFrameSize {
				break scan
			}
			if err := d.lsf(frame[:LSFFrameSize]); err != nil {
				errs = append(errs, &FrameError{Kind: "lsf", Offset: d.offset + int64(pos), Err: err})
				pos += SyncSize
				continue
			}
			pos += LSFFrameSize

		case SyncStream:
			if len(frame) < StreamSize {
				break scan
			}
			if out.Writable() < PayloadSize {
				break scan
			}
			if err := d.stream(frame[:StreamSize], out); err != nil {
				errs = append(errs, &FrameError{Kind: "stream", Offset: d.offset + int64(pos), Err: err})
				pos += SyncSize
				continue
			}
			produced += PayloadSize
			pos += StreamSize

		default:
			d.skipped.Add(1)
			pos++
		}
	}
	d.buf = d.buf[:copy(d.buf, d.buf[pos:])]
	d.offset += int64(pos)

	res := streamgraph.Progress(consumed, produced)
	if err := errors.Join(errs...); err != nil {
		res.Err = err
		res.Fatal = d.strict
	}
	return res
}

func (d *Decoder) lsf(frame []byte) error {
	l, err := ParseLSF(frame)
	if err != nil {
		if errors.Is(err, ErrBadCRC) {
			d.crcErrors.Add(1)
		}
		return err
	}
	d.lastLSF.Store(&l)
	d.lsfs.Add(1)
	if d.debugCtrl {
		d.logger.Debug("m17 lsf",
			slog.String("block", d.name),
			slog.String("src", DecodeCallsign(l.Src)),
			slog.String("dst", DecodeCallsign(l.Dst)),
			slog.Int("type", int(l.Type)),
			slog.String("meta", l.MetaString()),
		)
	}
	return nil
}

func (d *Decoder) stream(frame []byte, out *streamgraph.OutputStream) error {
	f, err := ParseStreamFrame(frame)
	if err != nil {
		if errors.Is(err, ErrBadCRC) {
			d.crcErrors.Add(1)
		}
		return err
	}

	if d.hasExpect && f.Number != d.expect {
		d.lost.Add(int64((f.Number - d.expect) % maxFrameCount))
	}
	d.expect = (f.Number + 1) % maxFrameCount
	d.hasExpect = !f.Last

	out.Write(f.Payload[:])
	d.frames.Add(1)
	if d.debugData {
		d.logger.Debug("m17 stream frame",
			slog.String("block", d.name),
			slog.Int("fn", int(f.Number)),
			slog.Bool("last", f.Last),
			slog.String("payload", hex.EncodeToString(f.Payload[:])),
		)
	}
	return nil
}

// SetParameter implements streamgraph.Tunable.
// Parameters: "strict", "debug_data" and "debug_ctrl", all bool.
func (d *Decoder) SetParameter(name string, value any) error {
	var target *bool
	switch name {
	case "strict":
		target = &d.strict
	case "debug_data":
		target = &d.debugData
	case "debug_ctrl":
		target = &d.debugCtrl
	default:
		return &streamgraph.InvalidParameterError{Block: d.name, Name: name, Value: value, Reason: streamgraph.ErrUnknownParameter}
	}

	v, err := config.AsBool(value)
	if err != nil {
		return &streamgraph.InvalidParameterError{Block: d.name, Name: name, Value: value, Reason: err}
	}
	*target = v
	return nil
}

// Parameters implements streamgraph.Tunable.
func (d *Decoder) Parameters() map[string]any {
	return map[string]any{
		"strict":     d.strict,
		"debug_data": d.debugData,
		"debug_ctrl": d.debugCtrl,
	}
}
