// Package decode turns raw device lines into calibrated data points.
//
// A Decoder holds the per-run state of the sample pipeline: the transient
// skip counter, the smoothing window and the differential pairing slot. It
// is owned by a single run; the transport reader is its only producer and
// the experiment resets it between runs, never during one.
package decode

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/saxstat/gopstat/pkg/config"
	"github.com/saxstat/gopstat/pkg/technique"
)

// Point is one decoded measurement. Voltage is the applied potential
// reconstructed from elapsed time, except for open-circuit runs where it is
// the measured potential. Current is in µA (differential for paired
// techniques, zero for open circuit).
type Point struct {
	Elapsed float64 // seconds since run start
	Voltage float64 // volts
	Current float64 // microamps
}

// Result classifies the outcome of decoding one line.
type Result int

const (
	// Emitted means a Point was produced.
	Emitted Result = iota
	// Discarded means the line was noise or out of range; not an error.
	Discarded
	// Skipped means a valid sample fell within the transient skip budget.
	Skipped
	// Buffered means the first half of a differential pair was stored.
	Buffered
	// Completed means the line was a run completion sentinel.
	Completed
)

// Decoder converts raw ADC lines into Points for one run.
type Decoder struct {
	spec       technique.DecodeSpec
	calib      config.CalibrationConfig
	wave       technique.Waveform
	windowSize int

	skipped     int
	window      []float64
	pending     float64
	havePending bool
}

// New creates a decoder for one run. wave may be nil for open-circuit
// techniques. windowSize ≤ 1 disables smoothing.
func New(spec technique.DecodeSpec, calib config.CalibrationConfig, wave technique.Waveform, windowSize int) *Decoder {
	if windowSize < 1 {
		windowSize = 1
	}
	return &Decoder{
		spec:       spec,
		calib:      calib,
		wave:       wave,
		windowSize: windowSize,
	}
}

// Decode processes one line received elapsed seconds into the run and
// returns at most one Point. Unparseable and out-of-range lines are
// silently discarded: line noise and firmware diagnostics are expected on
// this channel and do not advance the transient-skip counter.
func (d *Decoder) Decode(text string, elapsed float64) (Point, Result) {
	text = strings.TrimSpace(text)

	for _, s := range d.spec.Sentinels {
		if text == s {
			return Point{}, Completed
		}
	}

	code, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Point{}, Discarded
	}
	if code < 0 || code > d.calib.ADCFullScale {
		return Point{}, Discarded
	}

	if d.skipped < d.spec.SkipSamples {
		d.skipped++
		return Point{}, Skipped
	}

	vout := code / d.calib.ADCFullScale * d.calib.ADCRefVoltage

	if d.spec.Mode == technique.Potential {
		potential := vout + d.calib.OffsetVoltage
		if !isFinite(potential) {
			potential = 0
		}
		return Point{Elapsed: elapsed, Voltage: potential}, Emitted
	}

	applied := 0.0
	if d.wave != nil {
		applied = d.wave(elapsed)
	}

	// TIA equation: I = (2*Vref - Vout - Vapplied) / R
	current := 1e6 * (2*d.calib.RefVoltage - vout - applied) / d.calib.TIAResistance
	current = d.smooth(current) - d.calib.OffsetCurrent

	// The device occasionally returns corrupt codes during mode switches;
	// replace nonsense with zero rather than propagating it.
	if !isFinite(current) || (d.spec.MaxCurrent > 0 && math.Abs(current) > d.spec.MaxCurrent) {
		current = 0
	}

	if d.spec.Mode == technique.Differential {
		if !d.havePending {
			d.pending = current
			d.havePending = true
			return Point{}, Buffered
		}
		d.havePending = false
		diff := current - d.pending
		if d.spec.SignalFirst {
			diff = d.pending - current
		}
		return Point{Elapsed: elapsed, Voltage: applied, Current: diff}, Emitted
	}

	return Point{Elapsed: elapsed, Voltage: applied, Current: current}, Emitted
}

// smooth pushes a current value into the sliding window and returns the
// window mean.
func (d *Decoder) smooth(current float64) float64 {
	d.window = append(d.window, current)
	if len(d.window) > d.windowSize {
		d.window = d.window[1:]
	}
	return stat.Mean(d.window, nil)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
