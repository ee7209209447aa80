// Package panel is the host side of the supervisory bus: a register-transfer
// master for the beam rig plus the interactive command loop used to start,
// tune and observe the control loop.
package panel

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ballbeam-lab/ballbeam"
	"github.com/ballbeam-lab/ballbeam/modbus"
)

// Port is the serial connection to the rig. Ports from go.bug.st/serial
// satisfy it; tests use an in-memory loopback wired to a bank.
type Port interface {
	io.ReadWriter
}

// Telemetry is one snapshot of the rig's input registers.
type Telemetry struct {
	PositionCM float64
	Output     float64
	SetpointCM float64
}

// Client issues requests to the beam's register bank. It owns the port; one
// request is in flight at a time.
type Client struct {
	port    Port
	id      byte
	timeout time.Duration

	buf []byte
}

// NewClient creates a master for the beam's bus unit.
func NewClient(port Port) *Client {
	return &Client{
		port:    port,
		id:      ballbeam.SlaveID,
		timeout: time.Second,
	}
}

// SetActive writes the activation coil.
func (c *Client) SetActive(on bool) error {
	value := uint16(0x0000)
	if on {
		value = 0xFF00
	}
	_, err := c.roundTrip(requestPDU(modbus.FuncWriteSingleCoil, ballbeam.CoilActive, value), 8)
	return err
}

// SetController selects the compensator.
func (c *Client) SetController(sel ballbeam.Controller) error {
	return c.WriteHreg(ballbeam.HregController, uint16(sel))
}

// SetSetpoint commands the ball position in centimetres.
func (c *Client) SetSetpoint(cm float64) error {
	if cm < 0 {
		return errors.New("setpoint must be positive")
	}
	return c.WriteHreg(ballbeam.HregSetpoint, ballbeam.ToFixed(cm))
}

// WriteHreg writes a single holding register.
func (c *Client) WriteHreg(addr, value uint16) error {
	_, err := c.roundTrip(requestPDU(modbus.FuncWriteSingleReg, addr, value), 8)
	return err
}

// ReadHregs reads count holding registers starting at addr.
func (c *Client) ReadHregs(addr, count uint16) ([]uint16, error) {
	return c.readRegs(modbus.FuncReadHolding, addr, count)
}

// Active reads back the activation coil.
func (c *Client) Active() (bool, error) {
	pdu, err := c.roundTrip(requestPDU(modbus.FuncReadCoils, ballbeam.CoilActive, 1), 6)
	if err != nil {
		return false, err
	}
	if len(pdu) < 3 {
		return false, errors.New("short coil response")
	}
	return pdu[2]&1 != 0, nil
}

// Telemetry reads the three input registers in one request. The compensator
// output register wraps for negative values and is decoded as signed.
func (c *Client) Telemetry() (Telemetry, error) {
	regs, err := c.readRegs(modbus.FuncReadInput, ballbeam.IregPosition, 3)
	if err != nil {
		return Telemetry{}, err
	}
	return Telemetry{
		PositionCM: ballbeam.FromFixed(regs[0]),
		Output:     ballbeam.FromFixedSigned(regs[1]),
		SetpointCM: ballbeam.FromFixed(regs[2]),
	}, nil
}

func (c *Client) readRegs(fc byte, addr, count uint16) ([]uint16, error) {
	pdu, err := c.roundTrip(requestPDU(fc, addr, count), 5+2*int(count))
	if err != nil {
		return nil, err
	}
	if len(pdu) < 2+2*int(count) {
		return nil, errors.New("short register response")
	}
	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = uint16(pdu[2+2*i])<<8 | uint16(pdu[3+2*i])
	}
	return regs, nil
}

// roundTrip sends one request and collects the response frame. want is the
// full expected frame length; an exception response is shorter and is
// surfaced as an error.
func (c *Client) roundTrip(pdu []byte, want int) ([]byte, error) {
	c.buf = modbus.AppendFrame(c.buf[:0], c.id, pdu)
	if _, err := c.port.Write(c.buf); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	resp := make([]byte, 0, want)
	tmp := make([]byte, 64)
	deadline := time.Now().Add(c.timeout)
	for {
		n, err := c.port.Read(tmp)
		if n > 0 {
			resp = append(resp, tmp[:n]...)
		}

		// An exception frame is always 5 bytes; check before waiting for
		// the full-length response that will never come.
		if len(resp) >= 5 {
			if addr, p, ok := modbus.ParseFrame(resp[:5]); ok && addr == c.id {
				if code, isExc := modbus.IsException(p); isExc {
					return nil, fmt.Errorf("bus exception %d", code)
				}
			}
		}
		if len(resp) >= want {
			addr, p, ok := modbus.ParseFrame(resp[:want])
			if !ok {
				return nil, errors.New("bad response checksum")
			}
			if addr != c.id {
				return nil, errors.New("response from wrong bus unit")
			}
			return p, nil
		}

		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}
		if n == 0 && time.Now().After(deadline) {
			return nil, errors.New("timed out waiting for response")
		}
	}
}

// requestPDU builds the fixed four-byte request body shared by every
// supported function.
func requestPDU(fc byte, addr, value uint16) []byte {
	return []byte{fc, byte(addr >> 8), byte(addr), byte(value >> 8), byte(value)}
}
