package technique

import (
	"fmt"
	"time"
)

// Potentiometry monitors the open-circuit potential of the cell over time.
// No potential is applied, so there is no waveform: the reported voltage is
// measured, not reconstructed.
//
// Wire protocol: POT:<duration>:<interval>, completion "POT complete."
// (older firmware answers "CV complete.").
type Potentiometry struct{}

func (Potentiometry) Name() string { return "Potentiometry" }
func (Potentiometry) Code() string { return "POT" }

func (Potentiometry) Params() []Param {
	return []Param{
		{Name: "duration", Type: Float, Default: 60.0, Min: 1.0, Max: 3600.0, Unit: "s", Description: "Measurement duration"},
		{Name: "sample_interval", Type: Float, Default: 1.0, Min: 0.1, Max: 60.0, Unit: "s", Description: "Sampling interval"},
	}
}

func (t Potentiometry) Validate(v Values) error {
	required := []string{"duration", "sample_interval"}
	if err := validate(t.Params(), v, required); err != nil {
		return err
	}
	if v["sample_interval"] >= v["duration"] {
		return fmt.Errorf("sample interval must be less than duration")
	}
	return nil
}

func (Potentiometry) Command(v Values) string {
	return command("POT",
		formatField(Float, v["duration"]),
		formatField(Float, v["sample_interval"]),
	)
}

func (Potentiometry) Waveform(v Values) Waveform {
	// Open circuit: the potential is measured, not generated.
	return nil
}

func (Potentiometry) Decode() DecodeSpec {
	return DecodeSpec{
		Mode:           Potential,
		SkipSamples:    5,
		ConfirmMarker:  "POT_CONFIRMED",
		ConfirmTimeout: 2 * time.Second,
		Sentinels:      []string{"POT complete.", "CV complete."},
	}
}

func (Potentiometry) PlotHint() PlotHint {
	return PlotHint{
		XLabel: "Time (s)",
		YLabel: "Potential (V)",
		Title:  "Open Circuit Potential vs Time",
		XData:  "time",
		YData:  "voltage",
	}
}
