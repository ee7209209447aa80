package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// synth samples amp*sin(2π·freq·t + phase) + offset at 50Hz for the given
// duration.
func synth(amp, freqHz, phase, offset, seconds float64) (t, y []float64) {
	n := int(seconds * 50)
	t = make([]float64, n)
	y = make([]float64, n)
	for i := range t {
		t[i] = float64(i) / 50
		y[i] = amp*math.Sin(2*math.Pi*freqHz*t[i]+phase) + offset
	}
	return t, y
}

func TestFitSineRecoversSignal(t *testing.T) {
	ts, ys := synth(3.5, 0.2, 0.8, 20, 30)

	fit, err := FitSine(ts, ys, 0.2)
	require.NoError(t, err)
	require.InDelta(t, 3.5, fit.Amplitude, 1e-6)
	require.InDelta(t, 0.8, fit.PhaseRad, 1e-6)
	require.InDelta(t, 20, fit.Offset, 1e-6)
	require.Greater(t, fit.R2, 0.999)
}

func TestFitSineInputValidation(t *testing.T) {
	_, err := FitSine([]float64{1, 2}, []float64{1}, 0.2)
	require.Error(t, err)

	_, err = FitSine([]float64{1, 2}, []float64{1, 2}, 0.2)
	require.Error(t, err)
}

func TestResponseGainAndPhase(t *testing.T) {
	ts, setpoint := synth(2, 0.5, 0, 20, 30)
	// Plant attenuates by half and lags 45 degrees.
	_, position := synth(1, 0.5, -math.Pi/4, 20, 30)

	pt, err := Response(ts, setpoint, position, 0.5)
	require.NoError(t, err)
	require.InDelta(t, -6.0206, pt.MagnitudeDB, 1e-3)
	require.InDelta(t, -45, pt.PhaseDeg, 1e-6)
}

func TestResponseRejectsWeakExcitation(t *testing.T) {
	ts, setpoint := synth(0.01, 0.5, 0, 20, 30)
	_, position := synth(0.005, 0.5, 0, 20, 30)

	_, err := Response(ts, setpoint, position, 0.5)
	require.ErrorContains(t, err, "no excitation")
}

func TestResponseRejectsPoorFit(t *testing.T) {
	ts, setpoint := synth(2, 0.5, 0, 20, 30)
	// Position moves at a different frequency entirely: the fit at 0.5 Hz
	// explains almost none of it.
	_, position := synth(2, 1.7, 0, 20, 30)

	_, err := Response(ts, setpoint, position, 0.5)
	require.ErrorContains(t, err, "poor fit")
}

func TestReadLogAndWindow(t *testing.T) {
	csv := strings.Join([]string{
		"time_ms,setpoint_cm,position_cm,output",
		"0,20.00,17.50,0.00",
		"100,20.00,17.60,1.25",
		"40000,20.00,19.80,-0.50",
		"40100,20.00,19.90,-0.25",
	}, "\n")

	recs, err := ReadLog(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, recs, 4)
	require.InDelta(t, 0.1, recs[1].TimeS, 1e-9)
	require.InDelta(t, -0.5, recs[2].Output, 1e-9)

	tail := Window(recs, 30)
	require.Len(t, tail, 2)
	require.InDelta(t, 40.0, tail[0].TimeS, 1e-9)

	ts, setpoint, position := Columns(tail)
	require.Equal(t, []float64{40.0, 40.1}, ts)
	require.Equal(t, []float64{20, 20}, setpoint)
	require.Equal(t, []float64{19.8, 19.9}, position)
}

func TestReadLogErrors(t *testing.T) {
	_, err := ReadLog(strings.NewReader("time_ms,setpoint_cm,position_cm,output\n"))
	require.Error(t, err)

	_, err = ReadLog(strings.NewReader("time_ms,setpoint_cm,position_cm,output\nx,1,2,3\n"))
	require.ErrorContains(t, err, "bad time")
}
