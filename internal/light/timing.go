package light

import "time"

// RampSteps is the number of brightness levels in the alarm ramp.
const RampSteps = 10

// Timing holds every duration the controller waits on.
type Timing struct {
	// Render is how often a running session re-renders and polls the flag.
	Render time.Duration

	// ManualLimit ends a manual session that nobody switched off.
	ManualLimit time.Duration

	// RampStep is the length of each ramp step except the last.
	RampStep time.Duration

	// FinalStep is the length of the last, full-brightness ramp step.
	FinalStep time.Duration

	// RainbowPixel is how long each rainbow pixel stays lit.
	RainbowPixel time.Duration
}

// DefaultTiming returns the production timings with the given final step.
func DefaultTiming(finalStep time.Duration) Timing {
	return Timing{
		Render:       250 * time.Millisecond,
		ManualLimit:  5 * time.Minute,
		RampStep:     5 * time.Minute,
		FinalStep:    finalStep,
		RainbowPixel: 50 * time.Millisecond,
	}
}

// stepDuration returns how long ramp step i lasts.
func (t Timing) stepDuration(i int) time.Duration {
	if i == RampSteps-1 {
		return t.FinalStep
	}
	return t.RampStep
}

// stepBrightness returns the brightness of ramp step i: 0.1 for the first
// step, rising by 0.1 to 1.0 on the last.
func stepBrightness(i int) float64 {
	return float64(i+1) / RampSteps
}
