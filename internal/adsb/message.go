package adsb

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidICAO is returned when an ICAO address is not 1-6 hex digits
var ErrInvalidICAO = errors.New("invalid identity")

// Parity selects the even or odd CPR format
type Parity uint8

const (
	Even Parity = 0
	Odd  Parity = 1
)

// String returns "even" or "odd"
func (p Parity) String() string {
	if p == Odd {
		return "odd"
	}
	return "even"
}

// Bit returns the F flag value for p
func (p Parity) Bit() int {
	if p == Odd {
		return 1
	}
	return 0
}

// ICAOAddress is a 24-bit Mode S aircraft address
type ICAOAddress uint32

// NewICAOAddress keeps the low 24 bits of v
func NewICAOAddress(v uint32) ICAOAddress {
	return ICAOAddress(v & 0xffffff)
}

// ParseICAO parses a hex ICAO address such as "ABCDEF" or "0x4840d6"
func ParseICAO(s string) (ICAOAddress, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(strings.TrimPrefix(t, "0x"), "0X")
	if len(t) == 0 || len(t) > 6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidICAO, s)
	}
	v, err := strconv.ParseUint(t, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidICAO, s)
	}
	return ICAOAddress(v), nil
}

// String formats the address as 6 uppercase hex digits
func (a ICAOAddress) String() string {
	return fmt.Sprintf("%06X", uint32(a))
}

// CPRCoord is a 17-bit CPR latitude or longitude index
type CPRCoord uint32

func newCPRCoord(v int64) CPRCoord {
	return CPRCoord(v & CPR_MASK)
}

// AltitudeCode is the 12-bit AC12 altitude field of a TC 11 message
type AltitudeCode uint16

func newAltitudeCode(v int64) AltitudeCode {
	return AltitudeCode(v & AltitudeMask)
}

// Position is a geographic position in degrees
type Position struct {
	Latitude  float64
	Longitude float64
}

// Velocity is a ground velocity vector
type Velocity struct {
	SpeedKnots      float64
	HeadingDeg      float64 // clockwise from true north
	VerticalRateFPM float64
}

// Frame is a complete 112-bit DF17 extended squitter, CRC included
type Frame [FrameBytes]byte

// Payload returns the 11 bytes covered by the CRC
func (f Frame) Payload() []byte {
	return f[:PayloadBytes]
}

// CRC returns the 24-bit trailer carried by the frame
func (f Frame) CRC() uint32 {
	var crc uint32
	for _, b := range f[PayloadBytes : PayloadBytes+CRCBytes] {
		crc = crc<<8 | uint32(b)
	}
	return crc
}

// Valid reports whether the trailer matches the CRC of the payload
func (f Frame) Valid() bool {
	return CRC24(f.Payload()) == f.CRC()
}

// AVR renders the frame in AVR ASCII form: "*" + 28 uppercase hex + ";"
func (f Frame) AVR() string {
	var sb strings.Builder
	sb.Grow(AVRFrameLen)
	sb.WriteByte('*')
	sb.WriteString(strings.ToUpper(hex.EncodeToString(f[:])))
	sb.WriteByte(';')
	return sb.String()
}

// String implements fmt.Stringer with the AVR form
func (f Frame) String() string {
	return f.AVR()
}

// GetICAO extracts the ICAO address
func (f Frame) GetICAO() ICAOAddress {
	return ICAOAddress(uint32(f[1])<<16 | uint32(f[2])<<8 | uint32(f[3]))
}

// GetDF extracts the Downlink Format
func (f Frame) GetDF() uint8 {
	return (f[0] >> 3) & 0x1F
}

// GetTypeCode extracts the ME type code
func (f Frame) GetTypeCode() uint8 {
	return (f[4] >> 3) & 0x1F
}
