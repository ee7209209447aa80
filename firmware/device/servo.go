package device

import (
	"errors"

	"tinygo.org/x/drivers/servo"
)

// BeamServo tilts the beam. It remembers the last committed angle; the
// control core never reads the servo back.
type BeamServo struct {
	servo servo.Servo
	angle int
}

// NewBeamServo attaches the servo PWM. It does not command an angle: the
// beam holds whatever position it is in until the loop goes active.
func NewBeamServo(cfg ServoConfig) (*BeamServo, error) {
	s, err := servo.New(cfg.PWM, cfg.Pin)
	if err != nil {
		return nil, errors.New("error creating servo: " + err.Error())
	}
	return &BeamServo{servo: s}, nil
}

// SetAngle commits an angle to the actuator. The core clamps before calling;
// the driver receives the bounded value as-is.
func (b *BeamServo) SetAngle(angle int) error {
	err := b.servo.SetAngle(angle)
	if err != nil {
		return err
	}
	b.angle = angle
	return nil
}

// Angle returns the last committed angle.
func (b *BeamServo) Angle() int {
	return b.angle
}
