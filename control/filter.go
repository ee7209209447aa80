package control

import "github.com/ballbeam-lab/ballbeam"

// StatusOutOfRange is the ranging driver's invalid-measurement sentinel.
// Any other status is treated as a valid reading.
const StatusOutOfRange uint8 = 4

// Alpha is the smoothing factor of the position low-pass filter.
const Alpha = 0.1

// Conditioner turns raw rangefinder readings into corrected beam positions.
// An out-of-range reading reuses the last good raw distance instead of
// injecting a zero, so a single dropped sample does not kick the filter.
type Conditioner struct {
	lastGoodCM float64
}

// NewConditioner seeds the last-good distance with the beam midpoint so an
// out-of-range burst at startup conditions around the middle of the beam.
func NewConditioner() Conditioner {
	return Conditioner{lastGoodCM: ballbeam.BeamMidpointCM}
}

// Correct converts a raw millimetre reading to a corrected distance in
// centimetres, applying the cubic calibration polynomial of the rig.
func (c *Conditioner) Correct(mm uint16, status uint8) float64 {
	if status != StatusOutOfRange {
		c.lastGoodCM = float64(mm) / 10
	}
	return correctDistance(c.lastGoodCM)
}

// correctDistance is the third-degree calibration polynomial fitted against
// reference measurements along the beam. d is in centimetres.
func correctDistance(d float64) float64 {
	return 0.0004*d*d*d - 0.0262*d*d + 1.3680*d - 2.5749
}

// Filter is a first-order exponential moving average of the ball position.
type Filter struct {
	value float64
}

// Seed initializes the filter with a single conditioned sample so the first
// controlled cycle does not step.
func (f *Filter) Seed(x float64) {
	f.value = x
}

// Update advances the filter and returns the new filtered value.
func (f *Filter) Update(x float64) float64 {
	f.value = Alpha*x + (1-Alpha)*f.value
	return f.value
}

// Value returns the current filtered position.
func (f *Filter) Value() float64 {
	return f.value
}
