package technique

import (
	"fmt"
	"time"
)

// LinearSweep performs a single linear potential ramp from start to end.
// The firmware runs it as a one-cycle CV, so the start command reuses the
// START endpoint with cycles fixed to 1 and completion is "CV complete.".
type LinearSweep struct{}

func (LinearSweep) Name() string { return "Linear Sweep Voltammetry" }
func (LinearSweep) Code() string { return "LSV" }

func (LinearSweep) Params() []Param {
	return []Param{
		{Name: "start_voltage", Type: Float, Default: -0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "Starting voltage"},
		{Name: "end_voltage", Type: Float, Default: 0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "End voltage"},
		{Name: "scan_rate", Type: Float, Default: 0.05, Min: 0.01, Max: 0.2, Unit: "V/s", Description: "Scan rate"},
	}
}

func (t LinearSweep) Validate(v Values) error {
	required := []string{"start_voltage", "end_voltage", "scan_rate"}
	if err := validate(t.Params(), v, required); err != nil {
		return err
	}
	if v["start_voltage"] == v["end_voltage"] {
		return fmt.Errorf("start and end voltages cannot be equal")
	}
	return nil
}

func (LinearSweep) Command(v Values) string {
	return command("START",
		formatField(Float, v["start_voltage"]),
		formatField(Float, v["end_voltage"]),
		formatField(Float, v["scan_rate"]),
		"1", // single sweep
	)
}

func (LinearSweep) Waveform(v Values) Waveform {
	return rampWaveform(v["start_voltage"], v["end_voltage"], v["scan_rate"])
}

func (LinearSweep) Decode() DecodeSpec {
	return DecodeSpec{
		Mode:           Current,
		SkipSamples:    50,
		ConfirmMarker:  "START_CONFIRMED",
		ConfirmTimeout: 10 * time.Second,
		Sentinels:      []string{"CV complete."},
		MaxCurrent:     1000,
	}
}

func (LinearSweep) PlotHint() PlotHint {
	return PlotHint{
		XLabel: "Applied Voltage (V)",
		YLabel: "Current (µA)",
		Title:  "Linear Sweep Voltammogram",
		XData:  "voltage",
		YData:  "current",
	}
}
