package analysis

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SaveBodePlots renders magnitude and phase plots into dir as
// bode_magnitude.png and bode_phase.png.
func SaveBodePlots(points []ResponsePoint, dir string) error {
	if len(points) == 0 {
		return fmt.Errorf("no response points to plot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	mag := make(plotter.XYs, len(points))
	phase := make(plotter.XYs, len(points))
	for i, pt := range points {
		mag[i] = plotter.XY{X: pt.FrequencyHz, Y: pt.MagnitudeDB}
		phase[i] = plotter.XY{X: pt.FrequencyHz, Y: pt.PhaseDeg}
	}

	if err := saveBode(mag, "Magnitude", "Gain (dB)", filepath.Join(dir, "bode_magnitude.png")); err != nil {
		return err
	}
	return saveBode(phase, "Phase", "Phase (deg)", filepath.Join(dir, "bode_phase.png"))
}

func saveBode(pts plotter.XYs, title, yLabel, path string) error {
	p := plot.New()
	p.Title.Text = "Ball-and-beam " + title
	p.X.Label.Text = "Frequency (Hz)"
	p.Y.Label.Text = yLabel
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return fmt.Errorf("building plot: %w", err)
	}
	p.Add(line, scatter)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}
