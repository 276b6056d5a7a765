package adsb

import "math"

// EncodeAltitude encodes feet into the 12-bit altitude field with the
// Q bit set (25 ft resolution). Halfway values round to even, and only
// the low 11 bits of feet/25 are kept, so negative or out of range
// altitudes wrap instead of failing.
func EncodeAltitude(feet float64) AltitudeCode {
	n := int64(math.RoundToEven(feet / AltitudeResolutionFt))
	return newAltitudeCode((n & AltitudeNMask) | AltitudeQBit)
}
