package technique

import (
	"fmt"
	"time"
)

// NormalPulse applies pulses of increasing potential from a fixed baseline,
// measuring current near the end of each pulse.
//
// Wire protocol: NPV:<baseline>:<start_v>:<end_v>:<step>:<period>:<width>,
// completion "NPV complete." (older firmware answers "CV complete.").
type NormalPulse struct{}

func (NormalPulse) Name() string { return "Normal Pulse Voltammetry" }
func (NormalPulse) Code() string { return "NPV" }

func (NormalPulse) Params() []Param {
	return []Param{
		{Name: "baseline_potential", Type: Float, Default: 0.0, Min: -1.5, Max: 1.5, Unit: "V", Description: "Baseline potential (between pulses)"},
		{Name: "start_voltage", Type: Float, Default: -0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "Starting pulse voltage"},
		{Name: "end_voltage", Type: Float, Default: 0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "End pulse voltage"},
		{Name: "step_height", Type: Float, Default: 0.005, Min: 0.001, Max: 0.01, Unit: "V", Description: "Pulse height increment"},
		{Name: "pulse_period", Type: Float, Default: 1.0, Min: 0.1, Max: 10.0, Unit: "s", Description: "Time between pulses"},
		{Name: "pulse_width", Type: Float, Default: 0.05, Min: 0.01, Max: 1.0, Unit: "s", Description: "Duration of pulse"},
	}
}

func (t NormalPulse) Validate(v Values) error {
	required := []string{"baseline_potential", "start_voltage", "end_voltage", "step_height", "pulse_period", "pulse_width"}
	if err := validate(t.Params(), v, required); err != nil {
		return err
	}
	if v["start_voltage"] == v["end_voltage"] {
		return fmt.Errorf("start and end voltages cannot be equal")
	}
	if v["pulse_width"] >= v["pulse_period"] {
		return fmt.Errorf("pulse width must be less than pulse period")
	}
	return nil
}

func (NormalPulse) Command(v Values) string {
	return command("NPV",
		formatField(Float, v["baseline_potential"]),
		formatField(Float, v["start_voltage"]),
		formatField(Float, v["end_voltage"]),
		formatField(Float, v["step_height"]),
		formatField(Float, v["pulse_period"]),
		formatField(Float, v["pulse_width"]),
	)
}

func (NormalPulse) Waveform(v Values) Waveform {
	return pulseTrainWaveform(
		v["baseline_potential"],
		v["start_voltage"], v["end_voltage"],
		v["step_height"], v["pulse_period"], v["pulse_width"],
	)
}

func (NormalPulse) Decode() DecodeSpec {
	return DecodeSpec{
		Mode:           Current,
		SkipSamples:    10,
		ConfirmMarker:  "NPV_CONFIRMED",
		ConfirmTimeout: 5 * time.Second,
		Sentinels:      []string{"NPV complete.", "CV complete."},
		MaxCurrent:     1000,
	}
}

func (NormalPulse) PlotHint() PlotHint {
	return PlotHint{
		XLabel: "Pulse Voltage (V)",
		YLabel: "Current (µA)",
		Title:  "Normal Pulse Voltammogram",
		XData:  "voltage",
		YData:  "current",
	}
}
