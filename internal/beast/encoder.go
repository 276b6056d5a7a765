package beast

import (
	"time"

	"go1090tx/internal/adsb"
)

// Encoder renders frames for a receiver's raw input port
type Encoder struct {
	format Format
	signal byte
	clock  func() time.Time
	epoch  time.Time
}

// NewEncoder creates a new encoder for the given format
func NewEncoder(format Format) *Encoder {
	now := time.Now()
	return &Encoder{
		format: format,
		signal: DefaultSignal,
		clock:  time.Now,
		epoch:  now,
	}
}

// Format returns the wire format of the encoder
func (e *Encoder) Format() Format {
	return e.format
}

// SetClock replaces the time source used for Beast timestamps. The counter
// restarts at zero from the clock's current reading.
func (e *Encoder) SetClock(clock func() time.Time) {
	e.clock = clock
	e.epoch = clock()
}

// SetSignal sets the signal level byte of Beast messages
func (e *Encoder) SetSignal(signal byte) {
	e.signal = signal
}

// Encode renders one frame, newline-terminated for AVR
func (e *Encoder) Encode(frame adsb.Frame) []byte {
	if e.format == FormatBeast {
		return e.encodeBeast(frame)
	}
	return append([]byte(frame.AVR()), '\n')
}

// timestamp returns the 12 MHz counter value for now
func (e *Encoder) timestamp() uint64 {
	elapsed := e.clock().Sub(e.epoch)
	if elapsed < 0 {
		elapsed = 0
	}
	secs := uint64(elapsed / time.Second)
	frac := uint64(elapsed % time.Second)
	ticks := secs*TimestampHz + frac*TimestampHz/uint64(time.Second)
	return ticks & timestampMask
}

// encodeBeast builds a Mode S long message: 0x1A 0x33, 6-byte timestamp,
// signal, 14 data bytes. Every 0x1A after the leading sync byte is doubled.
func (e *Encoder) encodeBeast(frame adsb.Frame) []byte {
	body := make([]byte, 0, HeaderBytes-1+adsb.FrameBytes)
	body = append(body, ModeSLong)

	ts := e.timestamp()
	for i := TimestampBytes - 1; i >= 0; i-- {
		body = append(body, byte(ts>>(8*uint(i))))
	}
	body = append(body, e.signal)
	body = append(body, frame[:]...)

	out := make([]byte, 0, 2*len(body)+1)
	out = append(out, SyncByte)
	return escapeData(out, body)
}

// escapeData appends data to dst doubling every sync byte
func escapeData(dst, data []byte) []byte {
	for _, b := range data {
		dst = append(dst, b)
		if b == SyncByte {
			dst = append(dst, SyncByte)
		}
	}
	return dst
}
