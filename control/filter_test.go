package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCorrectionPolynomial(t *testing.T) {
	require.InDelta(t, -2.5749, correctDistance(0), 1e-9)
	// p(20) = 0.0004*8000 - 0.0262*400 + 1.3680*20 - 2.5749
	require.InDelta(t, 17.5051, correctDistance(20), 1e-9)
}

func TestConditionerValidSample(t *testing.T) {
	cond := NewConditioner()

	got := cond.Correct(200, 0)
	require.InDelta(t, correctDistance(20), got, 1e-9)
}

func TestConditionerReusesLastGood(t *testing.T) {
	cond := NewConditioner()
	cond.Correct(150, 0)

	// An out-of-range reading must not inject a zero: the stored 15cm is
	// corrected again.
	got := cond.Correct(999, StatusOutOfRange)
	require.InDelta(t, correctDistance(15), got, 1e-9)

	// Any status other than the sentinel is a valid reading.
	got = cond.Correct(300, 2)
	require.InDelta(t, correctDistance(30), got, 1e-9)
}

func TestConditionerSeededWithMidpoint(t *testing.T) {
	cond := NewConditioner()

	// Invalid very first sample: conditions around the beam midpoint
	// rather than an accidental zero.
	got := cond.Correct(0, StatusOutOfRange)
	require.InDelta(t, correctDistance(20), got, 1e-9)
}

func TestFilterConvergesToConstantInput(t *testing.T) {
	var f Filter
	f.Seed(0)

	for i := 0; i < 500; i++ {
		f.Update(12.5)
	}
	require.InDelta(t, 12.5, f.Value(), 1e-6)
}

func TestFilterSeedAvoidsStartupStep(t *testing.T) {
	var f Filter
	f.Seed(17.5)

	require.InDelta(t, 17.5, f.Update(17.5), 1e-9)
}

func TestFilterSmoothing(t *testing.T) {
	var f Filter
	f.Seed(10)

	require.InDelta(t, 0.1*20+0.9*10, f.Update(20), 1e-9)
}
