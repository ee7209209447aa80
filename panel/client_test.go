package panel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ballbeam-lab/ballbeam"
	"github.com/ballbeam-lab/ballbeam/modbus"
)

// loopbackPort answers client requests straight from a register bank, the
// way the firmware slave would.
type loopbackPort struct {
	bank *modbus.Bank
	resp []byte
}

func (p *loopbackPort) Write(b []byte) (int, error) {
	addr, pdu, ok := modbus.ParseFrame(b)
	if ok && addr == ballbeam.SlaveID {
		p.resp = modbus.AppendFrame(p.resp, addr, p.bank.Handle(pdu))
	}
	return len(b), nil
}

func (p *loopbackPort) Read(b []byte) (int, error) {
	// An empty buffer mimics a serial read timeout.
	if len(p.resp) == 0 {
		return 0, nil
	}
	n := copy(b, p.resp)
	p.resp = p.resp[n:]
	return n, nil
}

func newTestClient() (*Client, *modbus.Bank) {
	bank := modbus.NewBank(1, 6, 3)
	return NewClient(&loopbackPort{bank: bank}), bank
}

func TestClientSetActive(t *testing.T) {
	c, bank := newTestClient()

	require.NoError(t, c.SetActive(true))
	require.True(t, bank.Coil(ballbeam.CoilActive))

	active, err := c.Active()
	require.NoError(t, err)
	require.True(t, active)

	require.NoError(t, c.SetActive(false))
	require.False(t, bank.Coil(ballbeam.CoilActive))
}

func TestClientControlWrites(t *testing.T) {
	c, bank := newTestClient()

	require.NoError(t, c.SetController(ballbeam.ControllerLead))
	require.Equal(t, uint16(ballbeam.ControllerLead), bank.Hreg(ballbeam.HregController))

	require.NoError(t, c.SetSetpoint(25.5))
	require.Equal(t, uint16(2550), bank.Hreg(ballbeam.HregSetpoint))

	require.Error(t, c.SetSetpoint(-1))
}

func TestClientTelemetry(t *testing.T) {
	c, bank := newTestClient()
	bank.SetIreg(ballbeam.IregPosition, 1750)
	bank.SetIreg(ballbeam.IregOutput, ballbeam.ToFixed(-6.25))
	bank.SetIreg(ballbeam.IregSetpoint, 2000)

	tel, err := c.Telemetry()
	require.NoError(t, err)
	require.InDelta(t, 17.50, tel.PositionCM, 1e-9)
	require.InDelta(t, -6.25, tel.Output, 1e-9)
	require.InDelta(t, 20.00, tel.SetpointCM, 1e-9)
}

func TestClientReadHregs(t *testing.T) {
	c, bank := newTestClient()
	bank.SetHreg(ballbeam.HregKp, 920)
	bank.SetHreg(ballbeam.HregKi, 620)

	regs, err := c.ReadHregs(ballbeam.HregKp, 2)
	require.NoError(t, err)
	require.Equal(t, []uint16{920, 620}, regs)
}

func TestClientSurfacesBusException(t *testing.T) {
	c, _ := newTestClient()

	_, err := c.readRegs(modbus.FuncReadInput, 10, 2)
	require.ErrorContains(t, err, "bus exception 2")
}
