package adsb

import (
	"math"
)

// setBits writes the low (lastBit-firstBit+1) bits of value into data using
// 1-based, MSB-first bit numbering (dump1090's getbits convention).
func setBits(data []byte, firstBit, lastBit int, value uint32) {
	for i := firstBit; i <= lastBit; i++ {
		bi := i - 1
		if bi/8 >= len(data) {
			return
		}
		mask := byte(0x80 >> (bi % 8))
		if (value>>(lastBit-i))&1 != 0 {
			data[bi/8] |= mask
		} else {
			data[bi/8] &^= mask
		}
	}
}

// newFrame fills the DF17 header: DF/CA, ICAO address and ME type byte
func newFrame(icao ICAOAddress, typeByte byte) Frame {
	var f Frame
	f[0] = DF17CA5
	f[1] = byte(icao >> 16)
	f[2] = byte(icao >> 8)
	f[3] = byte(icao)
	f[4] = typeByte
	return f
}

// EncodeAirbornePosition builds a TC 11 airborne position frame.
//
// ME layout (1-based ME bits): 1-8 type byte, 9-20 altitude, 21 time,
// 22 CPR format, 23-39 CPR latitude, 40-56 CPR longitude.
func EncodeAirbornePosition(icao ICAOAddress, pos Position, altitudeFt float64, parity Parity) Frame {
	f := newFrame(NewICAOAddress(uint32(icao)), TypeAirbornePosition)

	alt := EncodeAltitude(altitudeFt)
	latCPR, lonCPR := EncodeCPR(pos.Latitude, pos.Longitude, parity)

	me := f[4:PayloadBytes]
	setBits(me, 9, 20, uint32(alt))
	setBits(me, 21, 21, 0)
	setBits(me, 22, 22, uint32(parity.Bit()))
	setBits(me, 23, 22+CPR_LAT_BITS, uint32(latCPR))
	setBits(me, 23+CPR_LAT_BITS, 22+CPR_LAT_BITS+CPR_LON_BITS, uint32(lonCPR))

	appendCRC(&f)
	return f
}

// velocityComponent splits a signed value into a direction bit and a
// magnitude-plus-one field truncated and clamped to max.
func velocityComponent(v float64, max uint32) (uint32, uint32) {
	var sign uint32
	if v < 0 {
		sign = 1
		v = -v
	}
	if math.IsNaN(v) {
		return sign, 1
	}
	if v >= float64(max) {
		return sign, max
	}
	mag := uint32(v) + 1
	if mag > max {
		mag = max
	}
	return sign, mag
}

// EncodeAirborneVelocity builds a TC 19 subtype 1 (ground speed) frame.
//
// ME layout (1-based ME bits): 1-8 type byte, 9 intent change, 10 IFR,
// 11-13 NUCv, 14 EW sign, 15-24 EW velocity, 25 NS sign, 26-35 NS
// velocity, 36 vertical rate source, 37 vertical rate sign, 38-46
// vertical rate, 47-56 reserved and GNSS altitude difference (zero).
func EncodeAirborneVelocity(icao ICAOAddress, vel Velocity) Frame {
	f := newFrame(NewICAOAddress(uint32(icao)), TypeAirborneVelocity)

	heading := vel.HeadingDeg * math.Pi / 180.0
	speed := math.Max(0, vel.SpeedKnots)
	ew := speed * math.Sin(heading)
	ns := speed * math.Cos(heading)

	ewSign, ewMag := velocityComponent(ew, VelocityMaxComponent)
	nsSign, nsMag := velocityComponent(ns, VelocityMaxComponent)
	vrSign, vrMag := velocityComponent(vel.VerticalRateFPM/VerticalRateResolution, VerticalRateMax)

	me := f[4:PayloadBytes]
	setBits(me, 9, 9, 0)
	setBits(me, 10, 10, velocityIFRCapability)
	setBits(me, 11, 13, 0)
	setBits(me, 14, 14, ewSign)
	setBits(me, 15, 24, ewMag)
	setBits(me, 25, 25, nsSign)
	setBits(me, 26, 35, nsMag)
	setBits(me, 36, 36, velocityVerticalRateSrc)
	setBits(me, 37, 37, vrSign)
	setBits(me, 38, 46, vrMag)

	appendCRC(&f)
	return f
}

// PositionAVR parses icaoHex and returns the AVR form of an airborne
// position frame. A malformed address is rejected before any byte is built.
func PositionAVR(icaoHex string, lat, lon, altitudeFt float64, parity Parity) (string, error) {
	icao, err := ParseICAO(icaoHex)
	if err != nil {
		return "", err
	}
	return EncodeAirbornePosition(icao, Position{Latitude: lat, Longitude: lon}, altitudeFt, parity).AVR(), nil
}

// VelocityAVR parses icaoHex and returns the AVR form of an airborne
// velocity frame.
func VelocityAVR(icaoHex string, speedKnots, headingDeg, verticalRateFPM float64) (string, error) {
	icao, err := ParseICAO(icaoHex)
	if err != nil {
		return "", err
	}
	vel := Velocity{
		SpeedKnots:      speedKnots,
		HeadingDeg:      headingDeg,
		VerticalRateFPM: verticalRateFPM,
	}
	return EncodeAirborneVelocity(icao, vel).AVR(), nil
}
