package control

// maxCumulativeError bounds the PID integrator in both directions
// (anti-windup).
const maxCumulativeError = 90000.0

// PID holds the state for the discrete PID compensator.
type PID struct {
	Kp, Ki, Kd float64

	cumErr  float64
	prevErr float64
	prevMS  int64
}

// Update calculates the compensator output for the current error at the
// given monotonic millisecond timestamp.
//
// The fixed scale factors are part of the bus contract: host-supplied gains
// are in "human" units, and the scaling compensates for dt being in
// milliseconds and the integral being unnormalised.
func (p *PID) Update(e float64, nowMS int64) float64 {
	dt := float64(nowMS - p.prevMS)

	var rate float64
	if dt > 0 {
		p.cumErr += e * dt
		if p.cumErr > maxCumulativeError {
			p.cumErr = maxCumulativeError
		} else if p.cumErr < -maxCumulativeError {
			p.cumErr = -maxCumulativeError
		}
		rate = (e - p.prevErr) / dt
	}
	// dt == 0 means two invocations within the same clock tick: skip the
	// integral and derivative contributions rather than divide by zero.

	out := (p.Kp * 0.1 * e) + (p.Ki * 0.0001 * p.cumErr) + (p.Kd * 100 * rate)

	p.prevErr = e
	p.prevMS = nowMS
	return out
}

// Reset clears the transient state: integrator to zero, previous error to
// the current error, and previous timestamp to now. Re-entering PID after a
// reset therefore starts with no stale integrator and a zero derivative.
func (p *PID) Reset(e float64, nowMS int64) {
	p.cumErr = 0
	p.prevErr = e
	p.prevMS = nowMS
}

// CumulativeError exposes the integrator for inspection.
func (p *PID) CumulativeError() float64 {
	return p.cumErr
}
