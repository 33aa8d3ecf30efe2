package m17

// crcPoly is the M17 CRC-16 generator polynomial.
const crcPoly = 0x5935

// CRC computes the M17 CRC-16 of data (polynomial 0x5935, initial value
// 0xFFFF, no reflection, no final XOR).
func CRC(data []byte) uint16 {
	crc := uint32(0xFFFF)
	for _, b := range data {
		crc ^= uint32(b) << 8
		for range 8 {
			crc <<= 1
			if crc&0x10000 != 0 {
				crc = (crc ^ crcPoly) & 0xFFFF
			}
		}
	}
	return uint16(crc)
}
