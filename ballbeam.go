// Package ballbeam holds the constants shared between the beam firmware and
// the host-side supervisory tools: the controller selection enum, the Modbus
// register map, and the plant-specific tuning values.
package ballbeam

// Controller selects which compensator closes the loop. The values are part
// of the bus contract: the host writes them into HregController.
type Controller uint16

const (
	ControllerNone Controller = iota
	ControllerPID
	ControllerLead
)

func (c Controller) String() string {
	switch c {
	case ControllerNone:
		return "none"
	case ControllerPID:
		return "pid"
	case ControllerLead:
		return "lead"
	default:
		return "unknown"
	}
}

// Modbus register map. All numeric registers carry fixed-point x100 values.
const (
	CoilActive uint16 = 0 // host-writable on/off flag

	HregSetpoint   uint16 = 0 // setpoint, cm x100
	HregController uint16 = 1 // Controller value
	HregKp         uint16 = 2
	HregKi         uint16 = 3
	HregKd         uint16 = 4
	HregLeadK      uint16 = 5

	IregPosition uint16 = 0 // filtered ball position, cm x100
	IregOutput   uint16 = 1 // compensator output x100, wraps when negative
	IregSetpoint uint16 = 2 // effective setpoint, cm x100
)

// Bus parameters.
const (
	SlaveID  = 1
	BaudRate = 9600
)

// Plant constants. The actuation offsets and the neutral angle come from the
// mechanical calibration of the rig; the servo range is the only safeguard.
const (
	NeutralAngle = 84
	PIDOffset    = 115
	LeadOffset   = 89

	ServoMinAngle = 60
	ServoMaxAngle = 120

	// BeamMidpointCM seeds the conditioner before the first valid sample.
	BeamMidpointCM = 20.0
)

// Default gains, matching the values the rig was commissioned with.
const (
	DefaultKp    = 9.2
	DefaultKi    = 6.2
	DefaultKd    = 8.0
	DefaultLeadK = 1.0

	DefaultSetpointCM = 20.0
)

// ToFixed converts a value to the x100 register encoding. Negative values
// wrap into the unsigned range; the host decoder uses the same convention.
func ToFixed(v float64) uint16 {
	return uint16(int32(v * 100))
}

// FromFixed decodes a x100 register value.
func FromFixed(reg uint16) float64 {
	return float64(reg) / 100
}

// FromFixedSigned decodes a x100 register that wraps for negative values,
// such as the compensator output telemetry.
func FromFixedSigned(reg uint16) float64 {
	return float64(int16(reg)) / 100
}
