package technique

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waveEps = 1e-9

func TestSweepWaveform(t *testing.T) {
	// -0.5 V → 0.5 V at 0.02 V/s: half cycle 50 s, full cycle 100 s, 2 cycles.
	wave := sweepWaveform(-0.5, 0.5, 0.02, 2)

	assert.InDelta(t, -0.5, wave(0), waveEps, "starts at start voltage")
	assert.InDelta(t, 0.0, wave(25), waveEps, "midway up the forward sweep")
	assert.InDelta(t, 0.5, wave(50), waveEps, "reversal point at half cycle")
	assert.InDelta(t, 0.0, wave(75), waveEps, "midway down the reverse sweep")
	assert.InDelta(t, -0.5, wave(100), waveEps, "back at start after one cycle")
	assert.InDelta(t, 0.5, wave(150), waveEps, "second cycle reversal")
	assert.InDelta(t, -0.5, wave(200), waveEps, "end of final cycle")

	// Out-of-range times clamp.
	assert.InDelta(t, -0.5, wave(-5), waveEps)
	assert.InDelta(t, -0.5, wave(1000), waveEps)

	// Bounded everywhere.
	for e := 0.0; e <= 200; e += 0.5 {
		v := wave(e)
		assert.GreaterOrEqual(t, v, -0.5-waveEps)
		assert.LessOrEqual(t, v, 0.5+waveEps)
	}
}

func TestSweepWaveform_DescendingSweep(t *testing.T) {
	wave := sweepWaveform(0.5, -0.5, 0.02, 1)

	assert.InDelta(t, 0.5, wave(0), waveEps)
	assert.InDelta(t, -0.5, wave(50), waveEps)
	assert.InDelta(t, 0.5, wave(100), waveEps)
}

func TestRampWaveform(t *testing.T) {
	// -0.2 V → 0.8 V at 0.05 V/s: 20 s sweep.
	wave := rampWaveform(-0.2, 0.8, 0.05)

	assert.InDelta(t, -0.2, wave(0), waveEps)
	assert.InDelta(t, 0.3, wave(10), waveEps)
	assert.InDelta(t, 0.8, wave(20), waveEps)
	// Holds the end value, no reversal.
	assert.InDelta(t, 0.8, wave(100), waveEps)
	assert.InDelta(t, -0.2, wave(-1), waveEps)
}

func TestStaircaseWaveform(t *testing.T) {
	// -0.5 V → 0.5 V in 4 mV steps, one step per 1/15 s.
	wave := staircaseWaveform(-0.5, 0.5, 0.004, 1.0/15.0)

	assert.InDelta(t, -0.5, wave(0), waveEps, "first step at start")
	assert.InDelta(t, -0.496, wave(1.0/15.0), waveEps, "one step after one period")
	assert.InDelta(t, -0.46, wave(10.0/15.0), waveEps, "ten steps after ten periods")

	// 250 steps cover the range; beyond that the end value holds.
	assert.InDelta(t, 0.5, wave(250.0/15.0), waveEps)
	assert.InDelta(t, 0.5, wave(1000), waveEps)

	// Monotonic non-decreasing for an ascending staircase.
	prev := math.Inf(-1)
	for e := 0.0; e < 20; e += 0.01 {
		v := wave(e)
		assert.GreaterOrEqual(t, v, prev-waveEps)
		prev = v
	}
}

func TestStaircaseWaveform_Descending(t *testing.T) {
	wave := staircaseWaveform(0.5, -0.5, 0.01, 0.5)

	assert.InDelta(t, 0.5, wave(0), waveEps)
	assert.InDelta(t, 0.49, wave(0.5), waveEps)
	assert.InDelta(t, -0.5, wave(100), waveEps)
}

func TestPulseTrainWaveform(t *testing.T) {
	// Baseline 0 V, pulses -0.5 V → 0.5 V in 5 mV steps, 1 s period, 50 ms width.
	wave := pulseTrainWaveform(0, -0.5, 0.5, 0.005, 1.0, 0.05)

	assert.InDelta(t, -0.5, wave(0), waveEps, "first pulse level")
	assert.InDelta(t, 0, wave(0.5), waveEps, "baseline between pulses")
	assert.InDelta(t, -0.495, wave(1.01), waveEps, "second pulse one step up")
	assert.InDelta(t, 0, wave(1.5), waveEps)
	assert.InDelta(t, -0.45, wave(10.02), waveEps, "eleventh pulse")

	// After the last step the pulse level holds just below the end value.
	assert.InDelta(t, 0.495, wave(500.01), waveEps)
	assert.InDelta(t, 0, wave(500.5), waveEps, "baseline still interleaved")
}

func TestConstantWaveform(t *testing.T) {
	wave := constantWaveform(0.3)
	for _, e := range []float64{0, 1, 60, 3600} {
		assert.Equal(t, 0.3, wave(e))
	}
}

func TestTechniqueWaveforms(t *testing.T) {
	t.Run("cv uses defaults", func(t *testing.T) {
		tech := CyclicVoltammetry{}
		wave := tech.Waveform(Defaults(tech))
		require.NotNil(t, wave)
		assert.InDelta(t, -0.5, wave(0), waveEps)
		assert.InDelta(t, 0.5, wave(50), waveEps)
	})

	t.Run("ca holds the set potential", func(t *testing.T) {
		tech := Chronoamperometry{}
		v := Defaults(tech)
		v["potential"] = 0.25
		wave := tech.Waveform(v)
		require.NotNil(t, wave)
		assert.Equal(t, 0.25, wave(0))
		assert.Equal(t, 0.25, wave(9.9))
	})

	t.Run("pot has no applied waveform", func(t *testing.T) {
		tech := Potentiometry{}
		assert.Nil(t, tech.Waveform(Defaults(tech)))
	})
}
