package beast

import (
	"fmt"
	"strings"
)

// Beast mode message types
const (
	SyncByte   = 0x1A // Beast mode sync byte
	ModeAC     = 0x31 // Mode A/C
	ModeS      = 0x32 // Mode S Short (56 bits)
	ModeSLong  = 0x33 // Mode S Long (112 bits)
	ModeStatus = 0x34 // Status
)

// Beast header sizes
const (
	TimestampBytes = 6
	HeaderBytes    = 2 + TimestampBytes + 1 // sync + type + timestamp + signal

	// 12 MHz MLAT counter, wraps at 48 bits
	TimestampHz   = 12_000_000
	timestampMask = 1<<48 - 1

	DefaultSignal = 0xFF
)

// Receiver input ports (dump1090 defaults)
const (
	PortAVRInput   = 30001
	PortBeastInput = 30004
)

// Format selects the wire rendering of a frame
type Format int

const (
	FormatAVR Format = iota
	FormatBeast
)

// String returns the flag spelling of the format
func (f Format) String() string {
	switch f {
	case FormatAVR:
		return "avr"
	case FormatBeast:
		return "beast"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// DefaultPort returns the receiver input port matching the format
func (f Format) DefaultPort() int {
	if f == FormatBeast {
		return PortBeastInput
	}
	return PortAVRInput
}

// ParseFormat parses "avr" or "beast" (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "avr", "":
		return FormatAVR, nil
	case "beast":
		return FormatBeast, nil
	default:
		return FormatAVR, fmt.Errorf("unknown output format %q (want avr or beast)", s)
	}
}
