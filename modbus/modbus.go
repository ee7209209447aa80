// Package modbus implements the register-transfer protocol between the beam
// firmware and the supervisory panel: a register bank, the RTU frame codec,
// and the slave-side request handling. The same codec serves the master side
// in the panel, which keeps both ends of the wire in one place.
package modbus

// Function codes supported by the beam register bank.
const (
	FuncReadCoils       = 0x01
	FuncReadHolding     = 0x03
	FuncReadInput       = 0x04
	FuncWriteSingleCoil = 0x05
	FuncWriteSingleReg  = 0x06
)

// Exception codes.
const (
	ExcIllegalFunction = 0x01
	ExcIllegalAddress  = 0x02
	ExcIllegalValue    = 0x03
)

// exceptionFlag marks a response PDU as an exception.
const exceptionFlag = 0x80

// RequestLength is the wire length of every supported request frame:
// address, function code, four data bytes, two CRC bytes.
const RequestLength = 8

// CRC computes the Modbus RTU CRC-16 (polynomial 0xA001, init 0xFFFF) over
// the given bytes. The wire order is low byte first.
func CRC(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// AppendFrame appends a complete RTU frame (address, PDU, CRC) to dst.
func AppendFrame(dst []byte, addr byte, pdu []byte) []byte {
	start := len(dst)
	dst = append(dst, addr)
	dst = append(dst, pdu...)
	crc := CRC(dst[start:])
	return append(dst, byte(crc), byte(crc>>8))
}

// ParseFrame validates the CRC of a complete RTU frame and splits it into
// slave address and PDU. It returns ok=false for frames that are too short
// or fail the checksum.
func ParseFrame(frame []byte) (addr byte, pdu []byte, ok bool) {
	if len(frame) < 4 {
		return 0, nil, false
	}
	body := frame[:len(frame)-2]
	crc := uint16(frame[len(frame)-2]) | uint16(frame[len(frame)-1])<<8
	if CRC(body) != crc {
		return 0, nil, false
	}
	return body[0], body[1:], true
}

// u16 reads a big-endian register value from a PDU body.
func u16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// putU16 appends a big-endian register value.
func putU16(dst []byte, v uint16) []byte {
	return append(dst, byte(v>>8), byte(v))
}

// exception builds an exception response PDU for the given request function.
func exception(fc, code byte) []byte {
	return []byte{fc | exceptionFlag, code}
}

// IsException reports whether a response PDU carries an exception, and
// returns its code.
func IsException(pdu []byte) (byte, bool) {
	if len(pdu) == 2 && pdu[0]&exceptionFlag != 0 {
		return pdu[1], true
	}
	return 0, false
}
