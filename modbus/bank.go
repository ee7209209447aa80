package modbus

// Bank is the shared register surface between the control core and the
// supervisory bus: coils plus holding and input registers. The core accesses
// it as plain slots; Handle serves the host's PDUs. Everything runs on the
// single control task, so there is no locking.
type Bank struct {
	coils   []bool
	holding []uint16
	input   []uint16
}

// NewBank allocates a bank with the given register counts. Allocation
// happens once at bring-up; the cycle itself never allocates.
func NewBank(coils, holding, input int) *Bank {
	return &Bank{
		coils:   make([]bool, coils),
		holding: make([]uint16, holding),
		input:   make([]uint16, input),
	}
}

// Coil returns the coil at addr, or false when out of range.
func (b *Bank) Coil(addr uint16) bool {
	if int(addr) >= len(b.coils) {
		return false
	}
	return b.coils[addr]
}

// SetCoil sets the coil at addr. Out-of-range writes are dropped.
func (b *Bank) SetCoil(addr uint16, on bool) {
	if int(addr) < len(b.coils) {
		b.coils[addr] = on
	}
}

// Hreg returns the holding register at addr, or zero when out of range.
func (b *Bank) Hreg(addr uint16) uint16 {
	if int(addr) >= len(b.holding) {
		return 0
	}
	return b.holding[addr]
}

// SetHreg sets the holding register at addr.
func (b *Bank) SetHreg(addr, v uint16) {
	if int(addr) < len(b.holding) {
		b.holding[addr] = v
	}
}

// Ireg returns the input register at addr, or zero when out of range.
func (b *Bank) Ireg(addr uint16) uint16 {
	if int(addr) >= len(b.input) {
		return 0
	}
	return b.input[addr]
}

// SetIreg sets the input register at addr.
func (b *Bank) SetIreg(addr, v uint16) {
	if int(addr) < len(b.input) {
		b.input[addr] = v
	}
}

// Handle serves one request PDU against the bank and returns the response
// PDU, which may be an exception. The request PDU excludes the slave address
// and CRC.
func (b *Bank) Handle(pdu []byte) []byte {
	if len(pdu) == 0 {
		return nil
	}
	if len(pdu) != 5 {
		return exception(pdu[0], ExcIllegalValue)
	}
	fc := pdu[0]
	addr := u16(pdu[1:3])
	value := u16(pdu[3:5])

	switch fc {
	case FuncReadCoils:
		count := value
		if count == 0 || count > 2000 {
			return exception(fc, ExcIllegalValue)
		}
		if int(addr)+int(count) > len(b.coils) {
			return exception(fc, ExcIllegalAddress)
		}
		resp := []byte{fc, byte((count + 7) / 8)}
		resp = append(resp, make([]byte, (count+7)/8)...)
		for i := uint16(0); i < count; i++ {
			if b.coils[addr+i] {
				resp[2+i/8] |= 1 << (i % 8)
			}
		}
		return resp

	case FuncReadHolding, FuncReadInput:
		regs := b.holding
		if fc == FuncReadInput {
			regs = b.input
		}
		count := value
		if count == 0 || count > 125 {
			return exception(fc, ExcIllegalValue)
		}
		if int(addr)+int(count) > len(regs) {
			return exception(fc, ExcIllegalAddress)
		}
		resp := []byte{fc, byte(2 * count)}
		for i := uint16(0); i < count; i++ {
			resp = putU16(resp, regs[addr+i])
		}
		return resp

	case FuncWriteSingleCoil:
		if int(addr) >= len(b.coils) {
			return exception(fc, ExcIllegalAddress)
		}
		switch value {
		case 0xFF00:
			b.coils[addr] = true
		case 0x0000:
			b.coils[addr] = false
		default:
			return exception(fc, ExcIllegalValue)
		}
		return append([]byte(nil), pdu...)

	case FuncWriteSingleReg:
		if int(addr) >= len(b.holding) {
			return exception(fc, ExcIllegalAddress)
		}
		b.holding[addr] = value
		return append([]byte(nil), pdu...)

	default:
		return exception(fc, ExcIllegalFunction)
	}
}
