package adsb

import (
	"math"
)

// Test-side dump1090 decoding used as the oracle for encoder round trips.

// nlThresholds is dump1090's NL lookup table: NL is 59-i below nlThresholds[i]
var nlThresholds = []float64{
	10.47047130, 14.82817437, 18.18626357, 21.02939493, 23.54504487,
	25.82924707, 27.93898710, 29.91135686, 31.77209708, 33.53993436,
	35.22899598, 36.85025108, 38.41241892, 39.92256684, 41.38651832,
	42.80914012, 44.19454951, 45.54626723, 46.86733252, 48.16039128,
	49.42776439, 50.67150166, 51.89342469, 53.09516153, 54.27817472,
	55.44378444, 56.59318756, 57.72747354, 58.84763776, 59.95459277,
	61.04917774, 62.13216659, 63.20427479, 64.26616523, 65.31845310,
	66.36171008, 67.39646774, 68.42322022, 69.44242631, 70.45451075,
	71.45986473, 72.45884545, 73.45177442, 74.43893416, 75.42056257,
	76.39684391, 77.36789461, 78.33374083, 79.29428225, 80.24923213,
	81.19801349, 82.13956981, 83.07199445, 83.99173563, 84.89166191,
	85.75541621, 86.53536998, 87.00000000,
}

// cprNLTable returns the number of longitude zones using the lookup table
func cprNLTable(lat float64) int {
	absLat := math.Abs(lat)
	for i, t := range nlThresholds {
		if absLat < t {
			return 59 - i
		}
	}
	return 1
}

// cprModInt performs always positive MOD operation (dump1090 style)
func cprModInt(a, b int) int {
	res := a % b
	if res < 0 {
		res += b
	}
	return res
}

func cprNFunction(lat float64, fflag int) int {
	nl := cprNLTable(lat) - fflag
	if nl < 1 {
		nl = 1
	}
	return nl
}

// decodeCPRBothFrames decodes an even/odd pair (dump1090 algorithm). oddLast
// selects which frame is treated as the most recent one.
func decodeCPRBothFrames(lat0, lon0, lat1, lon1 CPRCoord, oddLast bool) (float64, float64, bool) {
	const cprMax = 131072.0

	airDlat0 := 360.0 / 60.0
	airDlat1 := 360.0 / 59.0

	flat0 := float64(lat0)
	flat1 := float64(lat1)
	flon0 := float64(lon0)
	flon1 := float64(lon1)

	j := int(math.Floor(((59*flat0 - 60*flat1) / cprMax) + 0.5))

	rlat0 := airDlat0 * (float64(cprModInt(j, 60)) + flat0/cprMax)
	rlat1 := airDlat1 * (float64(cprModInt(j, 59)) + flat1/cprMax)

	if rlat0 >= 270 {
		rlat0 -= 360
	}
	if rlat1 >= 270 {
		rlat1 -= 360
	}

	if rlat0 < -90 || rlat0 > 90 || rlat1 < -90 || rlat1 > 90 {
		return 0, 0, false
	}
	if cprNLTable(rlat0) != cprNLTable(rlat1) {
		return 0, 0, false
	}

	var rlat, rlon float64
	if oddLast {
		ni := cprNFunction(rlat1, 1)
		m := int(math.Floor((((flon0 * float64(cprNLTable(rlat1)-1)) -
			(flon1 * float64(cprNLTable(rlat1)))) / cprMax) + 0.5))
		rlon = 360.0 / float64(ni) * (float64(cprModInt(m, ni)) + flon1/cprMax)
		rlat = rlat1
	} else {
		ni := cprNFunction(rlat0, 0)
		m := int(math.Floor((((flon0 * float64(cprNLTable(rlat0)-1)) -
			(flon1 * float64(cprNLTable(rlat0)))) / cprMax) + 0.5))
		rlon = 360.0 / float64(ni) * (float64(cprModInt(m, ni)) + flon0/cprMax)
		rlat = rlat0
	}

	rlon -= math.Floor((rlon+180)/360) * 360

	return rlat, rlon, true
}

// getBits extracts bits from data using 1-based indexing (like dump1090)
func getBits(data []byte, firstBit, lastBit int) uint32 {
	var v uint32
	for i := firstBit; i <= lastBit; i++ {
		bi := i - 1
		v <<= 1
		if data[bi/8]&(0x80>>(bi%8)) != 0 {
			v |= 1
		}
	}
	return v
}

// decodedPosition holds the raw fields of a TC 9-18 frame
type decodedPosition struct {
	altitude AltitudeCode
	time     uint32
	parity   Parity
	latCPR   CPRCoord
	lonCPR   CPRCoord
}

func decodePosition(f Frame) decodedPosition {
	me := f[4:PayloadBytes]
	return decodedPosition{
		altitude: AltitudeCode(getBits(me, 9, 20)),
		time:     getBits(me, 21, 21),
		parity:   Parity(getBits(me, 22, 22)),
		latCPR:   CPRCoord(getBits(me, 23, 39)),
		lonCPR:   CPRCoord(getBits(me, 40, 56)),
	}
}

// decodeVelocity returns ground speed, track and vertical rate of a TC 19
// subtype 1 frame (dump1090 method)
func decodeVelocity(f Frame) (float64, float64, int) {
	me := f[4:PayloadBytes]

	ewRaw := int(getBits(me, 15, 24))
	nsRaw := int(getBits(me, 26, 35))

	ewVel := ewRaw - 1
	if getBits(me, 14, 14) != 0 {
		ewVel = -ewVel
	}
	nsVel := nsRaw - 1
	if getBits(me, 25, 25) != 0 {
		nsVel = -nsVel
	}

	speed := math.Sqrt(float64(nsVel*nsVel + ewVel*ewVel))
	track := math.Atan2(float64(ewVel), float64(nsVel)) * 180.0 / math.Pi
	if track < 0 {
		track += 360
	}

	vrRaw := int(getBits(me, 38, 46))
	verticalRate := 0
	if vrRaw != 0 {
		verticalRate = (vrRaw - 1) * 64
		if getBits(me, 37, 37) != 0 {
			verticalRate = -verticalRate
		}
	}

	return speed, track, verticalRate
}
