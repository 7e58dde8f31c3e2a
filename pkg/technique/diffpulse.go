package technique

import (
	"fmt"
	"time"
)

// DifferentialPulse superimposes periodic pulses on a staircase ramp.
// Baseline and pulse currents arrive as alternating samples; the decoder
// pairs them by arrival order and emits pulse minus baseline.
//
// Wire protocol: DPV:<start_v>:<end_v>:<step>:<pulse>:<period>:<width>,
// completion "DPV complete." (older firmware answers "CV complete.").
type DifferentialPulse struct{}

func (DifferentialPulse) Name() string { return "Differential Pulse Voltammetry" }
func (DifferentialPulse) Code() string { return "DPV" }

func (DifferentialPulse) Params() []Param {
	return []Param{
		{Name: "start_voltage", Type: Float, Default: -0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "Starting voltage"},
		{Name: "end_voltage", Type: Float, Default: 0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "End voltage"},
		{Name: "step_height", Type: Float, Default: 0.004, Min: 0.001, Max: 0.01, Unit: "V", Description: "Potential step height"},
		{Name: "pulse_amplitude", Type: Float, Default: 0.05, Min: 0.001, Max: 0.1, Unit: "V", Description: "Pulse amplitude"},
		{Name: "pulse_period", Type: Float, Default: 0.5, Min: 0.1, Max: 5.0, Unit: "s", Description: "Time between pulses"},
		{Name: "pulse_width", Type: Float, Default: 0.05, Min: 0.01, Max: 0.5, Unit: "s", Description: "Duration of pulse"},
	}
}

func (t DifferentialPulse) Validate(v Values) error {
	required := []string{"start_voltage", "end_voltage", "step_height", "pulse_amplitude", "pulse_period", "pulse_width"}
	if err := validate(t.Params(), v, required); err != nil {
		return err
	}
	if v["start_voltage"] == v["end_voltage"] {
		return fmt.Errorf("start and end voltages cannot be equal")
	}
	if v["pulse_width"] >= v["pulse_period"] {
		return fmt.Errorf("pulse width must be less than pulse period")
	}
	if v["pulse_amplitude"] < v["step_height"] {
		return fmt.Errorf("pulse amplitude must be at least the step height")
	}
	return nil
}

func (DifferentialPulse) Command(v Values) string {
	return command("DPV",
		formatField(Float, v["start_voltage"]),
		formatField(Float, v["end_voltage"]),
		formatField(Float, v["step_height"]),
		formatField(Float, v["pulse_amplitude"]),
		formatField(Float, v["pulse_period"]),
		formatField(Float, v["pulse_width"]),
	)
}

func (DifferentialPulse) Waveform(v Values) Waveform {
	// One staircase step per pulse period.
	return staircaseWaveform(v["start_voltage"], v["end_voltage"], v["step_height"], v["pulse_period"])
}

func (DifferentialPulse) Decode() DecodeSpec {
	return DecodeSpec{
		Mode:           Differential,
		SkipSamples:    15,
		ConfirmMarker:  "DPV_CONFIRMED",
		ConfirmTimeout: 5 * time.Second,
		Sentinels:      []string{"DPV complete.", "CV complete."},
		MaxCurrent:     1000,
	}
}

func (DifferentialPulse) PlotHint() PlotHint {
	return PlotHint{
		XLabel: "Applied Voltage (V)",
		YLabel: "Differential Current (µA)",
		Title:  "Differential Pulse Voltammogram",
		XData:  "voltage",
		YData:  "current",
	}
}
