package adsb

// Pre-computed CRC table, one entry per leading byte
var crcTable [256]uint32

// init initializes the pre-computed CRC table
func init() {
	for i := 0; i < 256; i++ {
		c := uint32(i) << 16
		for j := 0; j < 8; j++ {
			if c&0x800000 != 0 {
				c = (c << 1) ^ MODES_GENERATOR_POLY
			} else {
				c = c << 1
			}
		}
		crcTable[i] = c & crcMask
	}
}

// CRC24 calculates the Mode S CRC-24 of data (dump1090 method). An empty
// input yields 0.
func CRC24(data []byte) uint32 {
	var rem uint32

	for _, b := range data {
		rem = (rem << 8) ^ crcTable[uint32(b)^((rem&0xff0000)>>16)]
		rem &= crcMask
	}

	return rem
}

// appendCRC writes the CRC-24 of the first PayloadBytes of f into its
// trailer, big-endian.
func appendCRC(f *Frame) {
	crc := CRC24(f.Payload())
	for i := 0; i < CRCBytes; i++ {
		f[PayloadBytes+i] = byte(crc >> (8 * uint(CRCBytes-1-i)))
	}
}
