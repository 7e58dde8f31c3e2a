package technique

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ParamType declares the numeric type of a parameter.
type ParamType int

const (
	Float ParamType = iota
	Int
)

// Param describes one experiment parameter: type, default, inclusive range,
// physical unit and a human description.
type Param struct {
	Name        string
	Type        ParamType
	Default     float64
	Min         float64
	Max         float64
	Unit        string
	Description string
}

// Values holds parameter values keyed by name. Int parameters must hold
// integral values.
type Values map[string]float64

// Copy returns an independent copy of the values.
func (v Values) Copy() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Waveform maps elapsed time since run start to the potential the device is
// expected to be applying at that instant. The device reports only raw ADC
// codes, so the applied potential is reconstructed from time.
type Waveform func(elapsed float64) float64

// DecodeMode selects how raw samples become data points.
type DecodeMode int

const (
	// Current converts each sample through the TIA equation.
	Current DecodeMode = iota
	// Differential pairs alternating samples and emits their difference.
	Differential
	// Potential reports the measured voltage directly (open circuit).
	Potential
)

// DecodeSpec is the per-technique decoding policy.
type DecodeSpec struct {
	Mode           DecodeMode
	SkipSamples    int           // transient samples discarded at run start
	ConfirmMarker  string        // handshake acknowledgment substring
	ConfirmTimeout time.Duration // confirmation wait per attempt
	Sentinels      []string      // completion lines
	MaxCurrent     float64       // sanity bound (µA), 0 disables
	// SignalFirst controls differential pairing order: true when the
	// signal sample of each pair arrives first (SWV: forward−reverse),
	// false when it arrives second (DPV: pulse−baseline).
	SignalFirst bool
}

// PlotHint tells downstream consumers how to present the data.
type PlotHint struct {
	XLabel string
	YLabel string
	Title  string
	XData  string
	YData  string
}

// Technique is the contract every electrochemical technique implements.
// Implementations are stateless values; all per-run state lives in the
// decoder and the experiment.
type Technique interface {
	Name() string
	Code() string
	Params() []Param
	Validate(v Values) error
	Command(v Values) string
	Waveform(v Values) Waveform
	Decode() DecodeSpec
	PlotHint() PlotHint
}

// Defaults returns the schema's default values.
func Defaults(t Technique) Values {
	v := make(Values)
	for _, p := range t.Params() {
		v[p.Name] = p.Default
	}
	return v
}

// Registry maps technique names to implementations. It is an explicit
// value constructed once at startup and passed by handle; there is no
// package-level registry.
type Registry struct {
	order []string
	byKey map[string]Technique
}

// NewRegistry returns a registry with all built-in techniques registered.
func NewRegistry() *Registry {
	r := &Registry{byKey: make(map[string]Technique)}
	for _, t := range []Technique{
		CyclicVoltammetry{},
		LinearSweep{},
		SquareWave{},
		DifferentialPulse{},
		NormalPulse{},
		Chronoamperometry{},
		Potentiometry{},
	} {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a technique, addressable by name or wire code.
func (r *Registry) Register(t Technique) error {
	for _, key := range []string{t.Name(), t.Code()} {
		key = strings.ToLower(key)
		if _, ok := r.byKey[key]; ok {
			return fmt.Errorf("technique %q already registered", key)
		}
		r.byKey[key] = t
	}
	r.order = append(r.order, t.Name())
	return nil
}

// Create returns the technique registered under name (or wire code).
func (r *Registry) Create(name string) (Technique, error) {
	t, ok := r.byKey[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("technique %q not found", name)
	}
	return t, nil
}

// Names lists registered technique names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// validate checks presence of required parameters, then type and range for
// every schema parameter present. The first violation is reported and
// nothing is mutated; extra values outside the schema are allowed.
func validate(schema []Param, v Values, required []string) error {
	for _, name := range required {
		if _, ok := v[name]; !ok {
			return fmt.Errorf("missing required parameter: %s", name)
		}
	}
	for _, p := range schema {
		val, ok := v[p.Name]
		if !ok {
			continue
		}
		if p.Type == Int && val != math.Trunc(val) {
			return fmt.Errorf("%s must be an integer, got %v", p.Name, val)
		}
		if val < p.Min {
			return fmt.Errorf("%s = %v below minimum %v", p.Name, val, p.Min)
		}
		if val > p.Max {
			return fmt.Errorf("%s = %v above maximum %v", p.Name, val, p.Max)
		}
	}
	return nil
}

// formatField encodes one command field so that re-parsing yields the
// original value.
func formatField(t ParamType, val float64) string {
	if t == Int {
		return strconv.FormatInt(int64(val), 10)
	}
	return strconv.FormatFloat(val, 'g', -1, 64)
}

func command(fields ...string) string {
	return strings.Join(fields, ":")
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
