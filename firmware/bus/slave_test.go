package bus

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ballbeam-lab/ballbeam/modbus"
)

// fakePort feeds queued bytes to the slave and records what it writes back.
type fakePort struct {
	in  []byte
	out []byte
}

func (p *fakePort) Buffered() int {
	return len(p.in)
}

func (p *fakePort) ReadByte() (byte, error) {
	if len(p.in) == 0 {
		return 0, io.EOF
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.out = append(p.out, b...)
	return len(b), nil
}

func request(fc byte, addr, value uint16) []byte {
	return modbus.AppendFrame(nil, 1, []byte{fc, byte(addr >> 8), byte(addr), byte(value >> 8), byte(value)})
}

func TestSlaveServesWriteAndRead(t *testing.T) {
	bank := modbus.NewBank(1, 6, 3)
	port := &fakePort{}
	s := NewSlave(port, 1, bank)

	port.in = request(modbus.FuncWriteSingleReg, 0, 2000)
	s.Task()
	require.Equal(t, uint16(2000), bank.Hreg(0))
	require.Equal(t, request(modbus.FuncWriteSingleReg, 0, 2000), port.out)

	bank.SetIreg(0, 1750)
	port.out = nil
	port.in = request(modbus.FuncReadInput, 0, 1)
	s.Task()

	addr, pdu, ok := modbus.ParseFrame(port.out)
	require.True(t, ok)
	require.Equal(t, byte(1), addr)
	require.Equal(t, []byte{modbus.FuncReadInput, 2, 0x06, 0xD6}, pdu)
}

func TestSlaveResynchronisesAfterNoise(t *testing.T) {
	bank := modbus.NewBank(1, 6, 3)
	port := &fakePort{}
	s := NewSlave(port, 1, bank)

	// Line noise before a valid frame: the slave sheds bytes until the
	// framing locks again.
	port.in = append([]byte{0xDE, 0xAD, 0xBE}, request(modbus.FuncWriteSingleCoil, 0, 0xFF00)...)
	s.Task()

	require.True(t, bank.Coil(0))
}

func TestSlaveIgnoresForeignAddress(t *testing.T) {
	bank := modbus.NewBank(1, 6, 3)
	port := &fakePort{}
	s := NewSlave(port, 1, bank)

	frame := modbus.AppendFrame(nil, 9, []byte{modbus.FuncWriteSingleCoil, 0x00, 0x00, 0xFF, 0x00})
	port.in = frame
	s.Task()

	require.False(t, bank.Coil(0))
	require.Empty(t, port.out)
}

func TestSlaveHandlesSplitDelivery(t *testing.T) {
	bank := modbus.NewBank(1, 6, 3)
	port := &fakePort{}
	s := NewSlave(port, 1, bank)

	frame := request(modbus.FuncWriteSingleReg, 1, 2)
	port.in = frame[:3]
	s.Task()
	require.Zero(t, bank.Hreg(1))

	port.in = frame[3:]
	s.Task()
	require.Equal(t, uint16(2), bank.Hreg(1))
}
