package audio

import "math"

// Level computes the RMS energy of a frame, in [0, 1]. Used by the CLI to
// render an input level meter from the capturer's latest frame; an empty
// frame (paused capture) yields 0.
func Level(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}

	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// Peak returns the largest absolute sample in a frame, in [0, 1].
func Peak(frame []float32) float64 {
	var peak float64
	for _, s := range frame {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}
