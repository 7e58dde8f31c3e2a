package technique

import "math"

// sweepWaveform is a triangular ramp: start→end over the first half-cycle,
// end→start over the second, repeated for the given number of cycles.
// Elapsed times past the configured sweep clamp to the final endpoint.
func sweepWaveform(start, end, scanRate float64, cycles int) Waveform {
	halfCycle := math.Abs(end-start) / scanRate
	fullCycle := 2 * halfCycle
	total := float64(cycles) * fullCycle

	return func(elapsed float64) float64 {
		if elapsed < 0 {
			elapsed = 0
		}
		if elapsed > total {
			elapsed = total
		}
		cycleTime := math.Mod(elapsed, fullCycle)
		if cycleTime < halfCycle {
			fraction := cycleTime / halfCycle
			return start + fraction*(end-start)
		}
		fraction := (cycleTime - halfCycle) / halfCycle
		return end - fraction*(end-start)
	}
}

// rampWaveform is a single linear ramp start→end, holding end afterwards.
func rampWaveform(start, end, scanRate float64) Waveform {
	sweepTime := math.Abs(end-start) / scanRate

	return func(elapsed float64) float64 {
		if elapsed <= 0 {
			return start
		}
		if elapsed >= sweepTime {
			return end
		}
		fraction := elapsed / sweepTime
		return start + fraction*(end-start)
	}
}

// staircaseWaveform steps from start towards end by stepHeight every
// stepPeriod seconds, holding end once all steps are taken.
func staircaseWaveform(start, end, stepHeight, stepPeriod float64) Waveform {
	numSteps := int(math.Abs(end-start) / stepHeight)
	direction := sign(end - start)

	return func(elapsed float64) float64 {
		if elapsed < 0 {
			elapsed = 0
		}
		step := int(elapsed / stepPeriod)
		if step >= numSteps {
			return end
		}
		return start + float64(step)*stepHeight*direction
	}
}

// pulseTrainWaveform alternates between a fixed baseline and a staircase of
// pulse potentials: within each period the first width seconds sit at the
// pulse level, the remainder at baseline.
func pulseTrainWaveform(baseline, start, end, stepHeight, period, width float64) Waveform {
	numSteps := int(math.Abs(end-start) / stepHeight)
	direction := sign(end - start)

	return func(elapsed float64) float64 {
		if elapsed < 0 {
			elapsed = 0
		}
		pulse := int(elapsed / period)
		if pulse >= numSteps {
			pulse = numSteps - 1
		}
		if pulse < 0 {
			pulse = 0
		}
		if math.Mod(elapsed, period) < width {
			return start + float64(pulse)*stepHeight*direction
		}
		return baseline
	}
}

// constantWaveform holds a fixed potential for the whole run.
func constantWaveform(potential float64) Waveform {
	return func(float64) float64 {
		return potential
	}
}
