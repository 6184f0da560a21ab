package audio

import "math"

// Tukey returns the tapered-cosine amplitude at position pos of a window
// length samples long. alpha is the tapered fraction of the window: 0 is
// rectangular, 1 is a Hann window. The window is symmetric about length/2
// and reaches 1.0 at its centre.
func Tukey(pos, length int, alpha float64) float32 {
	if length <= 0 || alpha <= 0 {
		return 1
	}
	l := float64(length)
	n := float64(pos)
	if n >= l/2 {
		n = l - n
	}
	if n < alpha*l/2 {
		return float32(0.5 * (1 - math.Cos(2*math.Pi*n/(alpha*l))))
	}
	return 1
}
