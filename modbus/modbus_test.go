package modbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRCKnownVector(t *testing.T) {
	// Classic reference frame: read one holding register at 0 from unit 1.
	body := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}
	require.Equal(t, uint16(0x0A84), CRC(body))
}

func TestFrameRoundTrip(t *testing.T) {
	pdu := []byte{FuncReadInput, 0x00, 0x00, 0x00, 0x03}
	frame := AppendFrame(nil, 1, pdu)
	require.Len(t, frame, RequestLength)

	addr, got, ok := ParseFrame(frame)
	require.True(t, ok)
	require.Equal(t, byte(1), addr)
	require.Equal(t, pdu, got)
}

func TestParseFrameRejectsCorruption(t *testing.T) {
	frame := AppendFrame(nil, 1, []byte{FuncReadCoils, 0x00, 0x00, 0x00, 0x01})
	frame[2] ^= 0xFF

	_, _, ok := ParseFrame(frame)
	require.False(t, ok)

	_, _, ok = ParseFrame(frame[:3])
	require.False(t, ok)
}

func TestIsException(t *testing.T) {
	code, ok := IsException(exception(FuncReadHolding, ExcIllegalAddress))
	require.True(t, ok)
	require.Equal(t, byte(ExcIllegalAddress), code)

	_, ok = IsException([]byte{FuncReadHolding, 0x02, 0x00, 0x00})
	require.False(t, ok)
}
