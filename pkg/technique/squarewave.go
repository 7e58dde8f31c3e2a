package technique

import (
	"fmt"
	"time"
)

// SquareWave superimposes a square-wave modulation on a staircase sweep.
// Forward and reverse pulse currents arrive as alternating samples; the
// decoder pairs them by arrival order and emits their difference.
//
// Wire protocol: SWV:<start_v>:<end_v>:<step>:<pulse>:<freq>, completion
// "SWV complete." (older firmware answers "CV complete.").
type SquareWave struct{}

func (SquareWave) Name() string { return "Square Wave Voltammetry" }
func (SquareWave) Code() string { return "SWV" }

func (SquareWave) Params() []Param {
	return []Param{
		{Name: "start_voltage", Type: Float, Default: -0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "Starting voltage"},
		{Name: "end_voltage", Type: Float, Default: 0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "End voltage"},
		{Name: "step_height", Type: Float, Default: 0.004, Min: 0.001, Max: 0.01, Unit: "V", Description: "Staircase step height"},
		{Name: "pulse_amplitude", Type: Float, Default: 0.025, Min: 0.001, Max: 0.1, Unit: "V", Description: "Square wave pulse amplitude"},
		{Name: "frequency", Type: Float, Default: 15.0, Min: 1.0, Max: 100.0, Unit: "Hz", Description: "Square wave frequency"},
	}
}

func (t SquareWave) Validate(v Values) error {
	required := []string{"start_voltage", "end_voltage", "step_height", "pulse_amplitude", "frequency"}
	if err := validate(t.Params(), v, required); err != nil {
		return err
	}
	if v["start_voltage"] == v["end_voltage"] {
		return fmt.Errorf("start and end voltages cannot be equal")
	}
	if v["pulse_amplitude"] < v["step_height"] {
		return fmt.Errorf("pulse amplitude must be at least the step height")
	}
	return nil
}

func (SquareWave) Command(v Values) string {
	return command("SWV",
		formatField(Float, v["start_voltage"]),
		formatField(Float, v["end_voltage"]),
		formatField(Float, v["step_height"]),
		formatField(Float, v["pulse_amplitude"]),
		formatField(Float, v["frequency"]),
	)
}

func (SquareWave) Waveform(v Values) Waveform {
	// One staircase step per square wave period.
	return staircaseWaveform(v["start_voltage"], v["end_voltage"], v["step_height"], 1.0/v["frequency"])
}

func (SquareWave) Decode() DecodeSpec {
	return DecodeSpec{
		Mode:           Differential,
		SkipSamples:    20,
		ConfirmMarker:  "SWV_CONFIRMED",
		ConfirmTimeout: 5 * time.Second,
		Sentinels:      []string{"SWV complete.", "CV complete."},
		MaxCurrent:     1000,
		SignalFirst:    true, // forward pulse arrives before reverse
	}
}

func (SquareWave) PlotHint() PlotHint {
	return PlotHint{
		XLabel: "Applied Voltage (V)",
		YLabel: "Differential Current (µA)",
		Title:  "Square Wave Voltammogram",
		XData:  "voltage",
		YData:  "current",
	}
}
