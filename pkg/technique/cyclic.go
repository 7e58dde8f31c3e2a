package technique

import (
	"fmt"
	"time"
)

// CyclicVoltammetry sweeps the potential linearly between two vertices and
// back, for a configured number of cycles, measuring the current response.
//
// Wire protocol (prototype v03 firmware):
//   - start: START:<start_v>:<end_v>:<scan_rate>:<cycles>
//   - data: raw ADC codes, one per line
//   - completion: "CV complete."
type CyclicVoltammetry struct{}

func (CyclicVoltammetry) Name() string { return "Cyclic Voltammetry" }
func (CyclicVoltammetry) Code() string { return "CV" }

func (CyclicVoltammetry) Params() []Param {
	return []Param{
		{Name: "start_voltage", Type: Float, Default: -0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "Starting voltage"},
		{Name: "end_voltage", Type: Float, Default: 0.5, Min: -1.5, Max: 1.5, Unit: "V", Description: "End voltage (reversal point)"},
		{Name: "scan_rate", Type: Float, Default: 0.02, Min: 0.01, Max: 0.2, Unit: "V/s", Description: "Scan rate"},
		{Name: "cycles", Type: Int, Default: 2, Min: 1, Max: 10, Unit: "cycles", Description: "Number of cycles"},
	}
}

func (t CyclicVoltammetry) Validate(v Values) error {
	required := []string{"start_voltage", "end_voltage", "scan_rate", "cycles"}
	if err := validate(t.Params(), v, required); err != nil {
		return err
	}
	if v["start_voltage"] == v["end_voltage"] {
		return fmt.Errorf("start and end voltages cannot be equal")
	}
	return nil
}

func (CyclicVoltammetry) Command(v Values) string {
	return command("START",
		formatField(Float, v["start_voltage"]),
		formatField(Float, v["end_voltage"]),
		formatField(Float, v["scan_rate"]),
		formatField(Int, v["cycles"]),
	)
}

func (CyclicVoltammetry) Waveform(v Values) Waveform {
	return sweepWaveform(v["start_voltage"], v["end_voltage"], v["scan_rate"], int(v["cycles"]))
}

func (CyclicVoltammetry) Decode() DecodeSpec {
	return DecodeSpec{
		Mode:           Current,
		SkipSamples:    50,
		ConfirmMarker:  "START_CONFIRMED",
		ConfirmTimeout: 10 * time.Second,
		Sentinels:      []string{"CV complete."},
		MaxCurrent:     1000,
	}
}

func (CyclicVoltammetry) PlotHint() PlotHint {
	return PlotHint{
		XLabel: "Applied Voltage (V)",
		YLabel: "Current (µA)",
		Title:  "Cyclic Voltammogram",
		XData:  "voltage",
		YData:  "current",
	}
}
