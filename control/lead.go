package control

// Discrete phase-lead design constants. These are plant-specific and fixed;
// only the gain K is tunable at runtime.
const (
	leadPole    = 0.7914
	leadZeroIn  = 5.56
	leadZeroOut = 5.381
)

// Lead holds the state for the first-order discrete phase-lead compensator:
//
//	u[k] = 0.7914*u[k-1] + 5.56*K*e[k] - 5.381*K*e[k-1]
type Lead struct {
	K float64

	prevOut float64
	prevErr float64
}

// Update calculates the compensator output for the current error.
func (l *Lead) Update(e float64) float64 {
	out := leadPole*l.prevOut + l.K*leadZeroIn*e - l.K*leadZeroOut*l.prevErr

	l.prevOut = out
	l.prevErr = e
	return out
}

// Reset clears the previous output and pins the previous error to the
// current error, so re-entering lead control does not step the beam.
func (l *Lead) Reset(e float64) {
	l.prevOut = 0
	l.prevErr = e
}
