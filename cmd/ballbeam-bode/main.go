// ballbeam-bode extracts the closed-loop frequency response from panel
// telemetry logs. Each log should capture one sinusoidal setpoint excitation;
// pass the excitation frequency with each file as path:freqHz.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ballbeam-lab/ballbeam/analysis"
)

func main() {
	var outDir string
	var window float64
	flag.StringVar(&outDir, "out", "bode", "Output directory for plots")
	flag.Float64Var(&window, "window", analysis.DefaultWindowSeconds, "Seconds from the end of each log to analyse")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatal("usage: ballbeam-bode [flags] log.csv:freqHz [log2.csv:freqHz ...]")
	}

	var points []analysis.ResponsePoint
	for _, arg := range flag.Args() {
		pt, err := analyse(arg, window)
		if err != nil {
			log.Printf("skipping %s: %v", arg, err)
			continue
		}
		points = append(points, pt)
	}
	if len(points) == 0 {
		log.Fatal("no usable captures")
	}
	sort.Slice(points, func(i, j int) bool { return points[i].FrequencyHz < points[j].FrequencyHz })

	fmt.Printf("%10s %12s %10s %8s\n", "freq (Hz)", "gain (dB)", "phase (deg)", "R2")
	for _, pt := range points {
		fmt.Printf("%10.3f %12.2f %10.1f %8.3f\n",
			pt.FrequencyHz, pt.MagnitudeDB, pt.PhaseDeg, pt.Position.R2)
	}

	if err := analysis.SaveBodePlots(points, outDir); err != nil {
		log.Fatal(err)
	}
	fmt.Println("plots written to", outDir)
}

func analyse(arg string, window float64) (analysis.ResponsePoint, error) {
	path, freqStr, ok := strings.Cut(arg, ":")
	if !ok {
		return analysis.ResponsePoint{}, fmt.Errorf("expected path:freqHz")
	}
	freq, err := strconv.ParseFloat(freqStr, 64)
	if err != nil || freq <= 0 {
		return analysis.ResponsePoint{}, fmt.Errorf("invalid frequency %q", freqStr)
	}

	f, err := os.Open(path)
	if err != nil {
		return analysis.ResponsePoint{}, err
	}
	defer f.Close()

	recs, err := analysis.ReadLog(f)
	if err != nil {
		return analysis.ResponsePoint{}, err
	}
	t, setpoint, position := analysis.Columns(analysis.Window(recs, window))
	return analysis.Response(t, setpoint, position, freq)
}
