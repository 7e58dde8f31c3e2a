package technique

import (
	"fmt"
	"time"
)

// Chronoamperometry holds a constant potential and records the current
// response over time. The firmware has no dedicated CA mode, so the run is
// started as a degenerate CV with equal endpoints and a near-zero scan
// rate, which holds the potential for the duration of the sweep.
type Chronoamperometry struct{}

func (Chronoamperometry) Name() string { return "Chronoamperometry" }
func (Chronoamperometry) Code() string { return "CA" }

func (Chronoamperometry) Params() []Param {
	return []Param{
		{Name: "potential", Type: Float, Default: 0.0, Min: -1.5, Max: 1.5, Unit: "V", Description: "Applied potential"},
		{Name: "duration", Type: Float, Default: 10.0, Min: 0.1, Max: 300.0, Unit: "s", Description: "Measurement duration"},
		{Name: "sample_interval", Type: Float, Default: 0.1, Min: 0.01, Max: 10.0, Unit: "s", Description: "Sampling interval"},
	}
}

func (t Chronoamperometry) Validate(v Values) error {
	required := []string{"potential", "duration"}
	if err := validate(t.Params(), v, required); err != nil {
		return err
	}
	if interval, ok := v["sample_interval"]; ok && interval >= v["duration"] {
		return fmt.Errorf("sample interval must be less than duration")
	}
	return nil
}

func (Chronoamperometry) Command(v Values) string {
	pot := formatField(Float, v["potential"])
	return command("START", pot, pot, "0.001", "1")
}

func (Chronoamperometry) Waveform(v Values) Waveform {
	return constantWaveform(v["potential"])
}

func (Chronoamperometry) Decode() DecodeSpec {
	return DecodeSpec{
		Mode:           Current,
		SkipSamples:    10,
		ConfirmMarker:  "START_CONFIRMED",
		ConfirmTimeout: 2 * time.Second,
		Sentinels:      []string{"CA complete.", "CV complete."},
		MaxCurrent:     1000,
	}
}

func (Chronoamperometry) PlotHint() PlotHint {
	return PlotHint{
		XLabel: "Time (s)",
		YLabel: "Current (µA)",
		Title:  "Chronoamperogram",
		XData:  "time",
		YData:  "current",
	}
}
