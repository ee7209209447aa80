package device

import (
	"errors"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/vl53l1x"

	"github.com/ballbeam-lab/ballbeam/control"
)

// outOfRangeMM is the reading the VL53L1X driver reports when the target is
// beyond the ranging limit. A zero reading means no new data.
const outOfRangeMM = 8190

// Rangefinder measures the ball position along the beam with a VL53L1X
// time-of-flight sensor.
type Rangefinder struct {
	sensor vl53l1x.Device
}

// NewRangefinder configures the sensor and starts continuous ranging. A
// sensor that does not respond is a fatal bring-up error; the caller halts.
func NewRangefinder(bus drivers.I2C, cfg SensorConfig) (*Rangefinder, error) {
	sensor := vl53l1x.New(bus)
	if !sensor.Connected() {
		return nil, errors.New("VL53L1X not connected")
	}
	if !sensor.Configure(true) {
		return nil, errors.New("error configuring VL53L1X")
	}
	sensor.SetMeasurementTimingBudget(cfg.TimingBudgetMicroseconds)
	sensor.StartContinuous(cfg.PeriodMilliseconds)

	return &Rangefinder{sensor: sensor}, nil
}

// Measure blocks for the next ranging result and returns the raw distance in
// millimetres plus a status code. Out-of-range results carry the
// out-of-range sentinel; the conditioning layer reuses the last good value.
func (r *Rangefinder) Measure() (uint16, uint8) {
	r.sensor.Read(true)
	mm := r.sensor.Distance()
	if r.sensor.Status() != vl53l1x.RangeValid || mm <= 0 || mm >= outOfRangeMM {
		return 0, control.StatusOutOfRange
	}
	return uint16(mm), 0
}

// Stop halts continuous ranging.
func (r *Rangefinder) Stop() {
	r.sensor.StopContinuous()
}
