package technique

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Builtins(t *testing.T) {
	reg := NewRegistry()

	names := reg.Names()
	assert.Equal(t, []string{
		"Cyclic Voltammetry",
		"Linear Sweep Voltammetry",
		"Square Wave Voltammetry",
		"Differential Pulse Voltammetry",
		"Normal Pulse Voltammetry",
		"Chronoamperometry",
		"Potentiometry",
	}, names)

	// Lookup works by name and by wire code, case-insensitively.
	for _, key := range []string{"cv", "CV", "Cyclic Voltammetry", "cyclic voltammetry"} {
		tech, err := reg.Create(key)
		require.NoError(t, err, key)
		assert.Equal(t, "CV", tech.Code())
	}

	_, err := reg.Create("polarography")
	assert.Error(t, err)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register(CyclicVoltammetry{})
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	v := Defaults(CyclicVoltammetry{})
	assert.Equal(t, Values{
		"start_voltage": -0.5,
		"end_voltage":   0.5,
		"scan_rate":     0.02,
		"cycles":        2,
	}, v)
}

func TestValues_Copy(t *testing.T) {
	orig := Values{"start_voltage": -0.5}
	cp := orig.Copy()
	cp["start_voltage"] = 1.0

	assert.Equal(t, -0.5, orig["start_voltage"])
	assert.Equal(t, 1.0, cp["start_voltage"])
}

func TestValidate(t *testing.T) {
	reg := NewRegistry()

	tests := []struct {
		name    string
		tech    string
		mutate  func(Values)
		wantErr string
	}{
		{
			name:   "cv defaults valid",
			tech:   "cv",
			mutate: func(Values) {},
		},
		{
			name:    "cv missing required",
			tech:    "cv",
			mutate:  func(v Values) { delete(v, "scan_rate") },
			wantErr: "missing required parameter: scan_rate",
		},
		{
			name:    "cv below minimum",
			tech:    "cv",
			mutate:  func(v Values) { v["start_voltage"] = -2.0 },
			wantErr: "below minimum",
		},
		{
			name:    "cv above maximum",
			tech:    "cv",
			mutate:  func(v Values) { v["scan_rate"] = 0.5 },
			wantErr: "above maximum",
		},
		{
			name:   "cv boundary values allowed",
			tech:   "cv",
			mutate: func(v Values) { v["start_voltage"] = -1.5; v["end_voltage"] = 1.5 },
		},
		{
			name:    "cv non-integral cycles",
			tech:    "cv",
			mutate:  func(v Values) { v["cycles"] = 2.5 },
			wantErr: "must be an integer",
		},
		{
			name:    "cv equal endpoints",
			tech:    "cv",
			mutate:  func(v Values) { v["end_voltage"] = -0.5 },
			wantErr: "cannot be equal",
		},
		{
			name:   "cv extra values ignored",
			tech:   "cv",
			mutate: func(v Values) { v["unused"] = 42 },
		},
		{
			name:    "swv pulse amplitude below step",
			tech:    "swv",
			mutate:  func(v Values) { v["pulse_amplitude"] = 0.002; v["step_height"] = 0.004 },
			wantErr: "pulse amplitude must be at least the step height",
		},
		{
			name:    "dpv width not below period",
			tech:    "dpv",
			mutate:  func(v Values) { v["pulse_width"] = 0.5; v["pulse_period"] = 0.5 },
			wantErr: "pulse width must be less than pulse period",
		},
		{
			name:    "ca interval not below duration",
			tech:    "ca",
			mutate:  func(v Values) { v["sample_interval"] = 10.0; v["duration"] = 10.0 },
			wantErr: "sample interval must be less than duration",
		},
		{
			name:   "pot defaults valid",
			tech:   "pot",
			mutate: func(Values) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tech, err := reg.Create(tt.tech)
			require.NoError(t, err)

			v := Defaults(tech)
			tt.mutate(v)

			err = tech.Validate(v)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCommand(t *testing.T) {
	tests := []struct {
		name   string
		tech   Technique
		values Values
		want   string
	}{
		{
			name: "cv",
			tech: CyclicVoltammetry{},
			values: Values{
				"start_voltage": -0.5, "end_voltage": 0.5,
				"scan_rate": 0.02, "cycles": 2,
			},
			want: "START:-0.5:0.5:0.02:2",
		},
		{
			name: "lsv single cycle",
			tech: LinearSweep{},
			values: Values{
				"start_voltage": -0.2, "end_voltage": 0.8, "scan_rate": 0.05,
			},
			want: "START:-0.2:0.8:0.05:1",
		},
		{
			name: "swv",
			tech: SquareWave{},
			values: Values{
				"start_voltage": -0.5, "end_voltage": 0.5,
				"step_height": 0.004, "pulse_amplitude": 0.025, "frequency": 15,
			},
			want: "SWV:-0.5:0.5:0.004:0.025:15",
		},
		{
			name: "dpv",
			tech: DifferentialPulse{},
			values: Values{
				"start_voltage": -0.5, "end_voltage": 0.5,
				"step_height": 0.004, "pulse_amplitude": 0.05,
				"pulse_period": 0.5, "pulse_width": 0.05,
			},
			want: "DPV:-0.5:0.5:0.004:0.05:0.5:0.05",
		},
		{
			name: "ca collapses to a held sweep",
			tech: Chronoamperometry{},
			values: Values{
				"potential": 0.3, "duration": 10, "sample_interval": 0.1,
			},
			want: "START:0.3:0.3:0.001:1",
		},
		{
			name:   "pot",
			tech:   Potentiometry{},
			values: Values{"duration": 60, "sample_interval": 1},
			want:   "POT:60:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tech.Command(tt.values))
		})
	}
}

func TestDecodeSpecs(t *testing.T) {
	tests := []struct {
		tech     Technique
		mode     DecodeMode
		skip     int
		marker   string
		sentinel string
	}{
		{CyclicVoltammetry{}, Current, 50, "START_CONFIRMED", "CV complete."},
		{LinearSweep{}, Current, 50, "START_CONFIRMED", "CV complete."},
		{SquareWave{}, Differential, 20, "SWV_CONFIRMED", "SWV complete."},
		{DifferentialPulse{}, Differential, 15, "DPV_CONFIRMED", "DPV complete."},
		{NormalPulse{}, Current, 10, "NPV_CONFIRMED", "NPV complete."},
		{Chronoamperometry{}, Current, 10, "START_CONFIRMED", "CA complete."},
		{Potentiometry{}, Potential, 5, "POT_CONFIRMED", "POT complete."},
	}

	for _, tt := range tests {
		t.Run(tt.tech.Code(), func(t *testing.T) {
			spec := tt.tech.Decode()
			assert.Equal(t, tt.mode, spec.Mode)
			assert.Equal(t, tt.skip, spec.SkipSamples)
			assert.Equal(t, tt.marker, spec.ConfirmMarker)
			assert.Contains(t, spec.Sentinels, tt.sentinel)
			assert.Positive(t, spec.ConfirmTimeout)
		})
	}

	// Only the forward-first technique pairs signal-first.
	assert.True(t, SquareWave{}.Decode().SignalFirst)
	assert.False(t, DifferentialPulse{}.Decode().SignalFirst)
}

func TestFormatField_RoundTrip(t *testing.T) {
	tests := []struct {
		val  float64
		want string
	}{
		{-0.5, "-0.5"},
		{0.004, "0.004"},
		{0.123456789, "0.123456789"},
		{15, "15"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatField(Float, tt.val))
	}
	assert.Equal(t, "3", formatField(Int, 3))
}
