// Package m17 implements a byte-level M17 stream codec as two graph blocks.
//
// The Encoder (block type "m17_coder") packs every 16 input bytes into a
// stream frame and precedes the stream with a Link Setup Frame (LSF)
// carrying source and destination callsigns, the stream type and 14
// bytes of metadata. The Decoder (block type "m17_decoder") hunts for sync
// words, checks CRCs and emits the stream payloads.
//
// Frame layouts, all fields big-endian:
//
//	LSF     sync 0x55F7 | dst(6) | src(6) | type(2) | meta(14) | crc(2)   32 bytes
//	stream  sync 0xFF5D | fn(2)  | payload(16)                 | crc(2)   22 bytes
//
// The LSF CRC covers dst..meta; the stream CRC covers fn and payload. The
// frame number counts 0..0x7FFF; its top bit marks the last frame of a
// stream. Callsigns use the M17 base-40 address encoding.
//
// Only framing is implemented; there is no convolutional coding,
// interleaving or symbol mapping.
package m17
