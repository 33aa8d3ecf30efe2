package m17

import (
	"errors"
	"fmt"
	"strings"
)

// charMap is the base-40 alphabet; the index of a character is its digit.
const charMap = " ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-/."

const (
	// Broadcast is the callsign of the all-stations address.
	Broadcast = "@ALL"

	// MaxCallsignLen is the longest callsign that fits in 48 bits,
	// including a leading '#'.
	MaxCallsignLen = 9

	broadcastValue = 0xFFFFFFFFFFFF
	pow40_8        = 40 * 40 * 40 * 40 * 40 * 40 * 40 * 40
	pow40_9        = pow40_8 * 40
)

// ErrInvalidCallsign indicates a callsign that cannot be encoded.
var ErrInvalidCallsign = errors.New("invalid callsign")

// Address is an encoded 48-bit M17 address, big-endian.
type Address [6]byte

// String decodes the address.
func (a Address) String() string { return DecodeCallsign(a) }

// EncodeCallsign encodes a callsign of up to nine characters from the
// base-40 alphabet (space, A-Z, 0-9, '-', '/', '.'). "@ALL" encodes as the
// broadcast address; a leading '#' selects the hash address space.
func EncodeCallsign(callsign string) (Address, error) {
	var addr Address
	if callsign == Broadcast {
		putUint48(&addr, broadcastValue)
		return addr, nil
	}
	if len(callsign) > MaxCallsignLen {
		return addr, fmt.Errorf("%w: %q longer than %d characters", ErrInvalidCallsign, callsign, MaxCallsignLen)
	}

	body, hash := strings.CutPrefix(callsign, "#")

	var v uint64
	for i := len(body) - 1; i >= 0; i-- {
		digit := strings.IndexByte(charMap, body[i])
		if digit < 0 {
			return addr, fmt.Errorf("%w: %q has character %q", ErrInvalidCallsign, callsign, body[i])
		}
		v = v*40 + uint64(digit)
	}
	if hash {
		v += pow40_9
	}
	putUint48(&addr, v)
	return addr, nil
}

// NormalizeCallsign upper-cases a callsign and cuts it to nine
// characters, the way radios accept free-form input.
func NormalizeCallsign(callsign string) string {
	if callsign == Broadcast {
		return callsign
	}
	callsign = strings.ToUpper(callsign)
	if len(callsign) > MaxCallsignLen {
		callsign = callsign[:MaxCallsignLen]
	}
	return callsign
}

// checkCallsignChars reports the first character of callsign outside the
// base-40 alphabet. A leading '#' and the broadcast callsign are accepted.
func checkCallsignChars(callsign string) error {
	if callsign == Broadcast {
		return nil
	}
	body := strings.TrimPrefix(callsign, "#")
	for i := 0; i < len(body); i++ {
		if strings.IndexByte(charMap, body[i]) < 0 {
			return fmt.Errorf("%w: %q has character %q", ErrInvalidCallsign, callsign, body[i])
		}
	}
	return nil
}

// DecodeCallsign decodes an address. Addresses in the reserved range
// decode as the empty string.
func DecodeCallsign(addr Address) string {
	v := uint64(0)
	for _, b := range addr {
		v = v<<8 | uint64(b)
	}

	var sb strings.Builder
	if v >= pow40_9 {
		switch {
		case v == broadcastValue:
			return Broadcast
		case v <= pow40_9+pow40_8:
			sb.WriteByte('#')
			v -= pow40_9
		default:
			return ""
		}
	}
	for v > 0 {
		sb.WriteByte(charMap[v%40])
		v /= 40
	}
	return sb.String()
}

func putUint48(addr *Address, v uint64) {
	for i := range addr {
		addr[5-i] = byte(v >> (8 * i))
	}
}
