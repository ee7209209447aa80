package device

import (
	"machine"

	"tinygo.org/x/drivers/servo"
)

// ServoConfig has device-level values for setting up the beam servo.
type ServoConfig struct {
	Pin machine.Pin
	PWM servo.PWM
}

// SensorConfig has device-level values for the rangefinder. The I2C bus must
// already be configured by the caller.
type SensorConfig struct {
	// TimingBudgetMicroseconds trades ranging precision for sample rate.
	TimingBudgetMicroseconds uint32
	// PeriodMilliseconds is the continuous ranging period.
	PeriodMilliseconds uint32
}
