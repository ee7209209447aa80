// Package control implements the real-time core of the ball-and-beam rig:
// sensor conditioning, the two switchable compensators, mode arbitration and
// bounded servo actuation. It is pure Go so it runs unchanged under TinyGo
// on the board and under the host test suite.
package control

import (
	"math"

	"github.com/ballbeam-lab/ballbeam"
)

// RangeSensor is the ranging driver's interface to the core: one raw
// distance in millimetres plus a status code (see StatusOutOfRange).
type RangeSensor interface {
	Measure() (mm uint16, status uint8)
}

// Actuator commits an integer beam angle to the servo.
type Actuator interface {
	SetAngle(angle int) error
}

// Bank is the core's view of the supervisory register bank. The bus layer
// owns framing; the core reads control words and writes telemetry.
type Bank interface {
	Coil(addr uint16) bool
	Hreg(addr uint16) uint16
	SetIreg(addr, value uint16)
}

// Clock returns a monotonic millisecond timestamp.
type Clock func() int64

// Loop owns the per-cycle state of the control core. It is not safe for
// concurrent use; the firmware runs exactly one control task.
type Loop struct {
	sensor RangeSensor
	servo  Actuator
	bank   Bank
	clock  Clock

	cond   Conditioner
	filter Filter
	pid    PID
	lead   Lead

	lastAngle int
}

// NewLoop wires the core to its collaborators. Call Seed before the first
// Cycle so the filter does not step on the first controlled sample.
func NewLoop(sensor RangeSensor, servo Actuator, bank Bank, clock Clock) *Loop {
	return &Loop{
		sensor: sensor,
		servo:  servo,
		bank:   bank,
		clock:  clock,
		cond:   NewConditioner(),
	}
}

// Seed takes one measurement to initialize the filter and stamps the PID
// clock, mirroring the bring-up sequence of the rig.
func (l *Loop) Seed() {
	mm, status := l.sensor.Measure()
	l.filter.Seed(l.cond.Correct(mm, status))
	l.pid.Reset(0, l.clock())
}

// Cycle runs one pass of the control loop: read control word, sample,
// filter, dispatch to the selected compensator, actuate, publish telemetry.
// The caller is responsible for invoking the bus housekeeping step before
// each cycle.
//
// When the activation coil is clear the core is idle: no sensor read, no
// servo write, and the telemetry registers keep their last active values.
func (l *Loop) Cycle() error {
	if !l.bank.Coil(ballbeam.CoilActive) {
		return nil
	}

	selected := ballbeam.Controller(l.bank.Hreg(ballbeam.HregController))
	setpoint := ballbeam.FromFixed(l.bank.Hreg(ballbeam.HregSetpoint))

	mm, status := l.sensor.Measure()
	position := l.filter.Update(l.cond.Correct(mm, status))
	e := setpoint - position

	var output float64
	var angle int
	switch selected {
	case ballbeam.ControllerPID:
		l.pid.Kp = ballbeam.FromFixed(l.bank.Hreg(ballbeam.HregKp))
		l.pid.Ki = ballbeam.FromFixed(l.bank.Hreg(ballbeam.HregKi))
		l.pid.Kd = ballbeam.FromFixed(l.bank.Hreg(ballbeam.HregKd))

		output = l.pid.Update(e, l.clock())
		angle = int(math.Round(output)) + ballbeam.PIDOffset

	case ballbeam.ControllerLead:
		l.lead.K = ballbeam.FromFixed(l.bank.Hreg(ballbeam.HregLeadK))

		output = l.lead.Update(e)
		angle = int(math.Round(output)) + ballbeam.LeadOffset

	default:
		// NONE or an invalid selection: hold the beam level and reset the
		// compensator state. The reset runs every cycle while NONE is
		// selected, not only on the edge; that is what guarantees a clean
		// integrator and a zero derivative when the host re-selects a
		// controller.
		angle = ballbeam.NeutralAngle
		output = 0
		l.pid.Reset(e, l.clock())
		l.lead.Reset(e)
	}

	angle = clampAngle(angle)
	l.lastAngle = angle
	if err := l.servo.SetAngle(angle); err != nil {
		return err
	}

	l.bank.SetIreg(ballbeam.IregPosition, ballbeam.ToFixed(position))
	l.bank.SetIreg(ballbeam.IregOutput, ballbeam.ToFixed(output))
	l.bank.SetIreg(ballbeam.IregSetpoint, ballbeam.ToFixed(setpoint))
	return nil
}

// Angle returns the last committed servo angle.
func (l *Loop) Angle() int {
	return l.lastAngle
}

// Position returns the current filtered ball position in centimetres.
func (l *Loop) Position() float64 {
	return l.filter.Value()
}

// PIDState exposes the PID compensator, mainly for inspection in tests.
func (l *Loop) PIDState() *PID {
	return &l.pid
}

// clampAngle bounds the commanded angle to the mechanical range of the
// servo. This is the sole safeguard against over-travel.
func clampAngle(angle int) int {
	if angle > ballbeam.ServoMaxAngle {
		return ballbeam.ServoMaxAngle
	}
	if angle < ballbeam.ServoMinAngle {
		return ballbeam.ServoMinAngle
	}
	return angle
}
