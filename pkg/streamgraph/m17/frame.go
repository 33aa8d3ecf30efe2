package m17

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Sync words starting each frame.
const (
	SyncLSF    uint16 = 0x55F7
	SyncStream uint16 = 0xFF5D
)

// Frame and field sizes in bytes.
const (
	SyncSize      = 2
	CRCSize       = 2
	MetaSize      = 14
	PayloadSize   = 16
	LSFFrameSize  = SyncSize + 6 + 6 + 2 + MetaSize + CRCSize // 32
	StreamSize    = SyncSize + 2 + PayloadSize + CRCSize      // 22
	maxFrameSize  = LSFFrameSize
	lsfBodySize   = LSFFrameSize - SyncSize - CRCSize
	streamBody    = StreamSize - SyncSize - CRCSize
	maxFrameCount = 0x8000
)

// EndOfStream is the frame-number bit marking the last frame of a stream.
const EndOfStream uint16 = 0x8000

var (
	// ErrBadCRC indicates a frame whose CRC does not match its contents.
	ErrBadCRC = errors.New("crc mismatch")

	// ErrShortFrame indicates fewer bytes than the frame type needs.
	ErrShortFrame = errors.New("short frame")

	// ErrBadSync indicates a frame that does not start with the expected sync word.
	ErrBadSync = errors.New("unexpected sync word")
)

// FrameError reports a frame the decoder dropped.
type FrameError struct {
	// Kind is "lsf" or "stream".
	Kind string
	// Offset is the position of the frame in the decoder's input, counted
	// from the start of the run.
	Offset int64
	Err    error
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	return fmt.Sprintf("m17 %s frame at byte %d: %v", e.Kind, e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *FrameError) Unwrap() error { return e.Err }

// LSF is the Link Setup Frame content.
type LSF struct {
	Dst  Address
	Src  Address
	Type uint16
	Meta [MetaSize]byte
}

// NewLSF builds an LSF from callsigns and a metadata string. Metadata
// longer than 14 bytes is cut; shorter metadata is zero-padded.
func NewLSF(src, dst string, typ uint16, meta string) (LSF, error) {
	var lsf LSF
	var err error
	if lsf.Src, err = EncodeCallsign(src); err != nil {
		return lsf, fmt.Errorf("src: %w", err)
	}
	if lsf.Dst, err = EncodeCallsign(dst); err != nil {
		return lsf, fmt.Errorf("dst: %w", err)
	}
	lsf.Type = typ
	copy(lsf.Meta[:], meta)
	return lsf, nil
}

// MetaString returns the metadata with trailing zero bytes removed.
func (l LSF) MetaString() string {
	n := len(l.Meta)
	for n > 0 && l.Meta[n-1] == 0 {
		n--
	}
	return string(l.Meta[:n])
}

// AppendFrame appends the 32-byte LSF frame to b.
func (l LSF) AppendFrame(b []byte) []byte {
	start := len(b)
	b = binary.BigEndian.AppendUint16(b, SyncLSF)
	b = append(b, l.Dst[:]...)
	b = append(b, l.Src[:]...)
	b = binary.BigEndian.AppendUint16(b, l.Type)
	b = append(b, l.Meta[:]...)
	return binary.BigEndian.AppendUint16(b, CRC(b[start+SyncSize:]))
}

// ParseLSF decodes a 32-byte LSF frame, sync word included.
func ParseLSF(frame []byte) (LSF, error) {
	var l LSF
	if len(frame) < LSFFrameSize {
		return l, ErrShortFrame
	}
	if binary.BigEndian.Uint16(frame) != SyncLSF {
		return l, ErrBadSync
	}
	body := frame[SyncSize : SyncSize+lsfBodySize]
	if CRC(body) != binary.BigEndian.Uint16(frame[SyncSize+lsfBodySize:]) {
		return l, ErrBadCRC
	}
	copy(l.Dst[:], body[0:6])
	copy(l.Src[:], body[6:12])
	l.Type = binary.BigEndian.Uint16(body[12:14])
	copy(l.Meta[:], body[14:])
	return l, nil
}

// StreamFrame is one decoded stream frame.
type StreamFrame struct {
	// Number is the 15-bit frame counter.
	Number uint16
	// Last marks the final frame of a stream.
	Last    bool
	Payload [PayloadSize]byte
}

// AppendStreamFrame appends a 22-byte stream frame to b. Only the low 15
// bits of fn are used.
func AppendStreamFrame(b []byte, fn uint16, last bool, payload []byte) []byte {
	fn &^= EndOfStream
	if last {
		fn |= EndOfStream
	}
	start := len(b)
	b = binary.BigEndian.AppendUint16(b, SyncStream)
	b = binary.BigEndian.AppendUint16(b, fn)
	var p [PayloadSize]byte
	copy(p[:], payload)
	b = append(b, p[:]...)
	return binary.BigEndian.AppendUint16(b, CRC(b[start+SyncSize:]))
}

// ParseStreamFrame decodes a 22-byte stream frame, sync word included.
func ParseStreamFrame(frame []byte) (StreamFrame, error) {
	var f StreamFrame
	if len(frame) < StreamSize {
		return f, ErrShortFrame
	}
	if binary.BigEndian.Uint16(frame) != SyncStream {
		return f, ErrBadSync
	}
	body := frame[SyncSize : SyncSize+streamBody]
	if CRC(body) != binary.BigEndian.Uint16(frame[SyncSize+streamBody:]) {
		return f, ErrBadCRC
	}
	fn := binary.BigEndian.Uint16(body)
	f.Number = fn &^ EndOfStream
	f.Last = fn&EndOfStream != 0
	copy(f.Payload[:], body[2:])
	return f, nil
}
