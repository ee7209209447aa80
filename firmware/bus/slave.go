// Package bus serves the register bank over the RTU serial line. It owns
// framing and addressing; the control core only sees the bank.
package bus

import "github.com/ballbeam-lab/ballbeam/modbus"

// Port is the byte-level serial interface the slave runs on. A
// *machine.UART satisfies it on the board; tests use an in-memory port.
type Port interface {
	Buffered() int
	ReadByte() (byte, error)
	Write(p []byte) (int, error)
}

// Slave answers register-transfer requests against a bank. All supported
// requests are fixed length, so framing reduces to accumulating bytes and
// resynchronising on CRC failures.
type Slave struct {
	port Port
	bank *modbus.Bank
	id   byte

	buf  []byte
	resp []byte
}

// NewSlave creates a slave with the given unit identity.
func NewSlave(port Port, id byte, bank *modbus.Bank) *Slave {
	return &Slave{
		port: port,
		bank: bank,
		id:   id,
		buf:  make([]byte, 0, 64),
		resp: make([]byte, 0, 64),
	}
}

// Task is the bus housekeeping step, invoked once per control cycle: drain
// the port, answer every complete request addressed to us, drop everything
// else. Frames with a bad CRC shed one byte and re-parse, which re-locks the
// framing after line noise.
func (s *Slave) Task() {
	for s.port.Buffered() > 0 {
		b, err := s.port.ReadByte()
		if err != nil {
			break
		}
		s.buf = append(s.buf, b)
	}

	for len(s.buf) >= modbus.RequestLength {
		addr, pdu, ok := modbus.ParseFrame(s.buf[:modbus.RequestLength])
		if !ok {
			s.buf = append(s.buf[:0], s.buf[1:]...)
			continue
		}

		var resp []byte
		if addr == s.id {
			resp = s.bank.Handle(pdu)
		}
		s.buf = append(s.buf[:0], s.buf[modbus.RequestLength:]...)

		if resp != nil {
			s.resp = modbus.AppendFrame(s.resp[:0], s.id, resp)
			s.port.Write(s.resp)
		}
	}
}
