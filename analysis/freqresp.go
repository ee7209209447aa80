// Package analysis extracts the frequency response of the beam from logged
// telemetry: a sinusoidal setpoint excitation is fitted by least squares in
// both the setpoint and position channels, and the amplitude ratio and phase
// difference per frequency form the Bode data.
package analysis

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Fit acceptance thresholds. A fit below MinR2 means the signal was not a
// clean sinusoid at that frequency; below MinAmplitude there was no relevant
// excitation.
const (
	MinR2        = 0.85
	MinAmplitude = 0.05
)

// DefaultWindowSeconds is the analysis window: only the tail of each capture
// is fitted, after the transient has settled.
const DefaultWindowSeconds = 30.0

// SineFit is the least-squares fit y ≈ A·sin(wt) + B·cos(wt) + offset,
// reported as amplitude and phase.
type SineFit struct {
	Amplitude float64
	PhaseRad  float64
	Offset    float64
	R2        float64
}

// FitSine fits a sinusoid of the given frequency to the samples. t is in
// seconds.
func FitSine(t, y []float64, freqHz float64) (SineFit, error) {
	if len(t) != len(y) {
		return SineFit{}, errors.New("time and signal lengths differ")
	}
	if len(t) < 3 {
		return SineFit{}, errors.New("not enough samples to fit")
	}

	w := 2 * math.Pi * freqHz
	design := mat.NewDense(len(t), 3, nil)
	for i, ti := range t {
		design.Set(i, 0, math.Sin(w*ti))
		design.Set(i, 1, math.Cos(w*ti))
		design.Set(i, 2, 1)
	}

	var qr mat.QR
	qr.Factorize(design)
	var coef mat.Dense
	if err := qr.SolveTo(&coef, false, mat.NewDense(len(y), 1, y)); err != nil {
		return SineFit{}, fmt.Errorf("solving least squares: %w", err)
	}
	a, b, offset := coef.At(0, 0), coef.At(1, 0), coef.At(2, 0)

	var residual, total float64
	mean := 0.0
	for _, yi := range y {
		mean += yi
	}
	mean /= float64(len(y))
	for i, ti := range t {
		fitted := a*math.Sin(w*ti) + b*math.Cos(w*ti) + offset
		residual += (y[i] - fitted) * (y[i] - fitted)
		total += (y[i] - mean) * (y[i] - mean)
	}
	r2 := 0.0
	if total != 0 {
		r2 = 1 - residual/total
	}

	return SineFit{
		Amplitude: math.Hypot(a, b),
		PhaseRad:  math.Atan2(b, a),
		Offset:    offset,
		R2:        r2,
	}, nil
}

// ResponsePoint is one point of the Bode data.
type ResponsePoint struct {
	FrequencyHz float64
	MagnitudeDB float64
	PhaseDeg    float64

	Setpoint SineFit
	Position SineFit
}

// Response fits both channels at one frequency and combines them. Fits that
// fail the quality thresholds are rejected with an error.
func Response(t, setpoint, position []float64, freqHz float64) (ResponsePoint, error) {
	in, err := FitSine(t, setpoint, freqHz)
	if err != nil {
		return ResponsePoint{}, err
	}
	out, err := FitSine(t, position, freqHz)
	if err != nil {
		return ResponsePoint{}, err
	}

	if in.Amplitude < MinAmplitude {
		return ResponsePoint{}, fmt.Errorf("no excitation at %.3f Hz (amplitude %.4f)", freqHz, in.Amplitude)
	}
	if in.R2 < MinR2 || out.R2 < MinR2 {
		return ResponsePoint{}, fmt.Errorf("poor fit at %.3f Hz (R2 in=%.3f out=%.3f)", freqHz, in.R2, out.R2)
	}

	phase := out.PhaseRad - in.PhaseRad
	// The plant lags; wrap into (-2π, 0].
	for phase > 0 {
		phase -= 2 * math.Pi
	}
	for phase <= -2*math.Pi {
		phase += 2 * math.Pi
	}

	return ResponsePoint{
		FrequencyHz: freqHz,
		MagnitudeDB: 20 * math.Log10(out.Amplitude/in.Amplitude),
		PhaseDeg:    phase * 180 / math.Pi,
		Setpoint:    in,
		Position:    out,
	}, nil
}

// Record is one row of a panel telemetry log.
type Record struct {
	TimeS      float64
	SetpointCM float64
	PositionCM float64
	Output     float64
}

// ReadLog parses a telemetry CSV written by the panel
// (time_ms,setpoint_cm,position_cm,output).
func ReadLog(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("log has no data rows")
	}

	recs := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 4 {
			return nil, fmt.Errorf("malformed row %v", row)
		}
		var rec Record
		ms, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("bad time %q: %w", row[0], err)
		}
		rec.TimeS = ms / 1000
		if rec.SetpointCM, err = strconv.ParseFloat(row[1], 64); err != nil {
			return nil, fmt.Errorf("bad setpoint %q: %w", row[1], err)
		}
		if rec.PositionCM, err = strconv.ParseFloat(row[2], 64); err != nil {
			return nil, fmt.Errorf("bad position %q: %w", row[2], err)
		}
		if rec.Output, err = strconv.ParseFloat(row[3], 64); err != nil {
			return nil, fmt.Errorf("bad output %q: %w", row[3], err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Window returns the records from the last seconds of the capture.
func Window(recs []Record, seconds float64) []Record {
	if len(recs) == 0 {
		return recs
	}
	cutoff := recs[len(recs)-1].TimeS - seconds
	for i, rec := range recs {
		if rec.TimeS >= cutoff {
			return recs[i:]
		}
	}
	return recs
}

// Columns splits records into the slices the fitting functions take.
func Columns(recs []Record) (t, setpoint, position []float64) {
	t = make([]float64, len(recs))
	setpoint = make([]float64, len(recs))
	position = make([]float64, len(recs))
	for i, rec := range recs {
		t[i] = rec.TimeS
		setpoint[i] = rec.SetpointCM
		position[i] = rec.PositionCM
	}
	return t, setpoint, position
}
