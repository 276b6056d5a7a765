package adsb

import (
	"errors"
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var avrPattern = regexp.MustCompile(`^\*[0-9A-F]{28};$`)

// TestPositionAVR_Scenarios compares against frames produced by the
// reference generator
func TestPositionAVR_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		icao     string
		lat, lon float64
		alt      float64
		parity   Parity
		expected string
	}{
		{
			name: "Augusta even", icao: "ABCDEF",
			lat: 33.3699, lon: -81.9645, alt: 10000, parity: Even,
			expected: "*8DABCDEF5899023F213B695F175C;",
		},
		{
			name: "Augusta odd", icao: "ABCDEF",
			lat: 33.3699, lon: -81.9645, alt: 10000, parity: Odd,
			expected: "*8DABCDEF589905E035AFFC577AF2;",
		},
		{
			name: "Southern hemisphere even", icao: "4840D6",
			lat: -33.9, lon: 151.2, alt: 35000, parity: Even,
			expected: "*8D4840D658D781666728F57253F3;",
		},
		{
			name: "Longitude wrapped by two turns", icao: "4840d6",
			lat: -33.9, lon: 151.2 + 720, alt: 35000, parity: Odd,
			expected: "*8D4840D658D785C6D251EB6BE320;",
		},
		{
			name: "Latitude clamped", icao: "1",
			lat: 95, lon: -190, alt: 100, parity: Even,
			expected: "*8D0000015880400000F1C784BC7C;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PositionAVR(tt.icao, tt.lat, tt.lon, tt.alt, tt.parity)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.Len(t, got, AVRFrameLen)
			assert.Regexp(t, avrPattern, got)
		})
	}
}

// TestEncodeAirbornePosition_Fields decodes the packed fields back
func TestEncodeAirbornePosition_Fields(t *testing.T) {
	icao := NewICAOAddress(0xABCDEF)
	pos := Position{Latitude: 33.3699, Longitude: -81.9645}

	for _, parity := range []Parity{Even, Odd} {
		f := EncodeAirbornePosition(icao, pos, 10000, parity)

		assert.Equal(t, byte(0x8D), f[0])
		assert.Equal(t, uint8(17), f.GetDF())
		assert.Equal(t, icao, f.GetICAO())
		assert.Equal(t, uint8(11), f.GetTypeCode())
		assert.Equal(t, byte(TypeAirbornePosition), f[4])
		assert.True(t, f.Valid())
		assert.Equal(t, CRC24(f[:PayloadBytes]), f.CRC())

		d := decodePosition(f)
		latCPR, lonCPR := EncodeCPR(pos.Latitude, pos.Longitude, parity)
		assert.Equal(t, EncodeAltitude(10000), d.altitude)
		assert.Equal(t, uint32(0), d.time)
		assert.Equal(t, parity, d.parity)
		assert.Equal(t, latCPR, d.latCPR)
		assert.Equal(t, lonCPR, d.lonCPR)
	}
}

// TestEncodeAirbornePosition_ReferenceBits checks the CPR bits against the
// known-good dump1090 position pair
func TestEncodeAirbornePosition_ReferenceBits(t *testing.T) {
	icao := NewICAOAddress(0x40621D)

	even := EncodeAirbornePosition(icao, Position{Latitude: 52.2572022, Longitude: 3.9193726}, 38000, Even)
	ref := mustHex(t, "8D40621D58C382D690C8AC2863A7")
	assert.Equal(t, ref[:5], even[:5])
	assert.Equal(t, ref[6]&0x07, even[6]&0x07)
	assert.Equal(t, ref[7:11], even[7:11])

	odd := EncodeAirbornePosition(icao, Position{Latitude: 52.2657802, Longitude: 3.9389126}, 38000, Odd)
	ref = mustHex(t, "8D40621D58C386435CC412692AD6")
	assert.Equal(t, ref[6]&0x07, odd[6]&0x07)
	assert.Equal(t, ref[7:11], odd[7:11])

	lat, lon, ok := decodeCPRBothFrames(decodePosition(even).latCPR, decodePosition(even).lonCPR,
		decodePosition(odd).latCPR, decodePosition(odd).lonCPR, false)
	require.True(t, ok)
	assert.InDelta(t, 52.25720, lat, 1e-5)
	assert.InDelta(t, 3.91937, lon, 1e-5)
}

// TestEncodeAirbornePosition_Idempotent checks identical inputs give identical frames
func TestEncodeAirbornePosition_Idempotent(t *testing.T) {
	icao := NewICAOAddress(0x123456)
	pos := Position{Latitude: 48.8566, Longitude: 2.3522}

	a := EncodeAirbornePosition(icao, pos, 24975, Odd)
	b := EncodeAirbornePosition(icao, pos, 24975, Odd)
	assert.Equal(t, a, b)
	assert.Equal(t, a.AVR(), b.AVR())
}

// TestEncodeAirborneVelocity_Reference reproduces the fields of the
// dump1090 velocity example 8D485020994409940838175B284F
func TestEncodeAirborneVelocity_Reference(t *testing.T) {
	vel := Velocity{
		SpeedKnots:      math.Hypot(8.5, 159.5),
		HeadingDeg:      180 + math.Atan2(8.5, 159.5)*180/math.Pi,
		VerticalRateFPM: -850,
	}

	f := EncodeAirborneVelocity(NewICAOAddress(0x485020), vel)

	// byte 5 is 0x44: IC=0, IFR=1, NUCv=0 in the top bits, then the EW sign
	// and the first EW velocity bits (dump1090 layout, not a bare 0x01)
	ref := mustHex(t, "8D485020994409940838175B284F")
	assert.Equal(t, byte(0x44), f[5])
	assert.Equal(t, ref[:10], f[:10])
	assert.Equal(t, byte(0), f[10])
	assert.True(t, f.Valid())
	assert.Equal(t, "*8D48502099440994083800A418B3;", f.AVR())

	speed, track, vrate := decodeVelocity(f)
	assert.InDelta(t, 159.2, speed, 0.1)
	assert.InDelta(t, 182.88, track, 0.01)
	assert.Equal(t, -832, vrate)
}

func TestEncodeAirborneVelocity_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		vel   Velocity
		vrate int
	}{
		{name: "North-east climb", vel: Velocity{SpeedKnots: 450, HeadingDeg: 45, VerticalRateFPM: 1000}, vrate: 960},
		{name: "South-west descent", vel: Velocity{SpeedKnots: 300, HeadingDeg: 225, VerticalRateFPM: -500}, vrate: -448},
		{name: "Due east level", vel: Velocity{SpeedKnots: 250, HeadingDeg: 90, VerticalRateFPM: 0}, vrate: 0},
		{name: "Due north slow climb", vel: Velocity{SpeedKnots: 120, HeadingDeg: 0, VerticalRateFPM: 100}, vrate: 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := EncodeAirborneVelocity(NewICAOAddress(0xABCDEF), tt.vel)

			assert.Equal(t, byte(TypeAirborneVelocity), f[4])
			assert.Equal(t, uint8(19), f.GetTypeCode())
			assert.Equal(t, byte(1), (f[4]>>0)&0x07)
			assert.Equal(t, byte(0x40), f[5]&0xF8, "IC=0, IFR=1, NUCv=0")
			assert.True(t, f.Valid())

			speed, track, vrate := decodeVelocity(f)
			// truncation loses at most 1 kt per component
			assert.InDelta(t, tt.vel.SpeedKnots, speed, 1.5)
			diff := math.Mod(track-tt.vel.HeadingDeg+540, 360) - 180
			assert.InDelta(t, 0, diff, 0.5)
			assert.Equal(t, tt.vrate, vrate)
		})
	}
}

func TestEncodeAirborneVelocity_Clamping(t *testing.T) {
	f := EncodeAirborneVelocity(NewICAOAddress(1), Velocity{SpeedKnots: 5000, HeadingDeg: 135, VerticalRateFPM: -100000})
	me := f[4:PayloadBytes]

	assert.Equal(t, uint32(0), getBits(me, 14, 14), "east")
	assert.Equal(t, uint32(VelocityMaxComponent), getBits(me, 15, 24))
	assert.Equal(t, uint32(1), getBits(me, 25, 25), "south")
	assert.Equal(t, uint32(VelocityMaxComponent), getBits(me, 26, 35))
	assert.Equal(t, uint32(1), getBits(me, 37, 37), "down")
	assert.Equal(t, uint32(VerticalRateMax), getBits(me, 38, 46))

	// negative speed is treated as zero
	f = EncodeAirborneVelocity(NewICAOAddress(1), Velocity{SpeedKnots: -10, HeadingDeg: 0})
	speed, _, _ := decodeVelocity(f)
	assert.Equal(t, 0.0, speed)
}

// TestFrame_Layout checks the payload/trailer split and the CPR field
// positions of a position frame
func TestFrame_Layout(t *testing.T) {
	f := EncodeAirbornePosition(NewICAOAddress(0xABCDEF), Position{Latitude: 33.3699, Longitude: -81.9645}, 10000, Odd)

	assert.Len(t, f.Payload(), PayloadBytes)
	assert.Equal(t, f[:PayloadBytes], f.Payload())
	assert.Equal(t, FrameBytes, PayloadBytes+CRCBytes)
	assert.Equal(t, "*8DABCDEF589905E035AFFC577AF2;", f.AVR())
	assert.Equal(t, uint32(0x577AF2), f.CRC())
	assert.Equal(t, CRC24(f[:PayloadBytes]), f.CRC())

	// the CPR fields end exactly at the last ME bit
	me := f[4:PayloadBytes]
	assert.Equal(t, 56, 22+CPR_LAT_BITS+CPR_LON_BITS)
	assert.Equal(t, uint32(61466), getBits(me, 23, 39))
	assert.Equal(t, uint32(110588), getBits(me, 40, 56))

	// a corrupted trailer byte is detected
	f[PayloadBytes+CRCBytes-1] ^= 0x01
	assert.False(t, f.Valid())
}

func TestVelocityAVR(t *testing.T) {
	got, err := VelocityAVR("ABCDEF", 450, 45, 1000)
	require.NoError(t, err)
	assert.Len(t, got, AVRFrameLen)
	assert.Regexp(t, avrPattern, got)
	assert.Equal(t, "*8DABCDEF99", got[:11])
}

// TestAVR_InvalidICAO checks malformed identities are rejected up front
func TestAVR_InvalidICAO(t *testing.T) {
	for _, icao := range []string{"", "XYZ123", "1234567", "AB CD", "-12345", "ABCDEF;"} {
		t.Run(icao, func(t *testing.T) {
			frame, err := PositionAVR(icao, 33.3699, -81.9645, 10000, Even)
			assert.Empty(t, frame)
			assert.True(t, errors.Is(err, ErrInvalidICAO))

			frame, err = VelocityAVR(icao, 450, 45, 0)
			assert.Empty(t, frame)
			assert.True(t, errors.Is(err, ErrInvalidICAO))
		})
	}
}

func TestSetBits(t *testing.T) {
	data := make([]byte, 3)
	setBits(data, 1, 4, 0xF)
	assert.Equal(t, []byte{0xF0, 0, 0}, data)

	setBits(data, 7, 10, 0xB)
	assert.Equal(t, []byte{0xF2, 0xC0, 0}, data)

	// overwrites and ignores bits above the field width
	setBits(data, 1, 4, 0x15)
	assert.Equal(t, []byte{0x52, 0xC0, 0}, data)

	// bits past the end are dropped
	setBits(data, 20, 30, 0x7FF)
	assert.Equal(t, []byte{0x52, 0xC0, 0x1F}, data)
}
