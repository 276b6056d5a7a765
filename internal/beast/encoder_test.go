package beast

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go1090tx/internal/adsb"
)

func mustFrame(t *testing.T, s string) adsb.Frame {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, b, adsb.FrameBytes)
	var f adsb.Frame
	copy(f[:], b)
	return f
}

// unescape reverses escapeData for the bytes after the sync byte
func unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		if data[i] == SyncByte && i+1 < len(data) && data[i+1] == SyncByte {
			i++
		}
	}
	return out
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "avr", want: FormatAVR},
		{in: "AVR", want: FormatAVR},
		{in: "", want: FormatAVR},
		{in: " beast ", want: FormatBeast},
		{in: "sbs", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "avr", FormatAVR.String())
	assert.Equal(t, "beast", FormatBeast.String())
	assert.Equal(t, 30001, FormatAVR.DefaultPort())
	assert.Equal(t, 30004, FormatBeast.DefaultPort())
}

func TestEncoder_AVR(t *testing.T) {
	frame := mustFrame(t, "8D4840D6202CC371C32CE0576098")

	enc := NewEncoder(FormatAVR)
	assert.Equal(t, FormatAVR, enc.Format())
	assert.Equal(t, "*8D4840D6202CC371C32CE0576098;\n", string(enc.Encode(frame)))
}

func TestEncoder_Beast(t *testing.T) {
	frame := mustFrame(t, "8D485020994409940838175B284F")

	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	now := base
	enc := NewEncoder(FormatBeast)
	enc.SetClock(func() time.Time { return now })

	now = base.Add(time.Second)
	out := enc.Encode(frame)

	require.Len(t, out, HeaderBytes+adsb.FrameBytes)
	assert.Equal(t, byte(SyncByte), out[0])
	assert.Equal(t, byte(ModeSLong), out[1])
	// 12,000,000 = 0x000000B71B00
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0xB7, 0x1B, 0x00}, out[2:8])
	assert.Equal(t, byte(DefaultSignal), out[8])
	assert.Equal(t, frame[:], out[9:])
}

func TestEncoder_BeastEscapesSyncBytes(t *testing.T) {
	frame := mustFrame(t, "8D1A2B3C58990000001A0000001A")

	base := time.Unix(0, 0)
	enc := NewEncoder(FormatBeast)
	enc.SetClock(func() time.Time { return base })
	enc.SetSignal(SyncByte)

	out := enc.Encode(frame)

	// signal + three data bytes are doubled
	assert.Len(t, out, HeaderBytes+adsb.FrameBytes+4)
	assert.Equal(t, byte(SyncByte), out[0])

	body := unescape(out[1:])
	require.Len(t, body, HeaderBytes-1+adsb.FrameBytes)
	assert.Equal(t, byte(ModeSLong), body[0])
	assert.Equal(t, make([]byte, TimestampBytes), body[1:7])
	assert.Equal(t, byte(SyncByte), body[7])
	assert.Equal(t, frame[:], body[8:])
}

func TestEncoder_TimestampWraps(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	enc := NewEncoder(FormatBeast)
	enc.SetClock(func() time.Time { return now })

	// clock going backwards never underflows
	now = base.Add(-time.Hour)
	assert.Equal(t, uint64(0), enc.timestamp())

	now = base.Add(250 * time.Millisecond)
	assert.Equal(t, uint64(3_000_000), enc.timestamp())

	// a year of ticks still fits in 48 bits
	now = base.Add(365 * 24 * time.Hour)
	assert.LessOrEqual(t, enc.timestamp(), uint64(timestampMask))
}
