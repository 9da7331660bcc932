package interp

import (
	"math"
	"sync"
)

const (
	// SincTaps is the kernel length of the windowed-sinc interpolator.
	SincTaps = 48

	// SincPhases is the number of precomputed fractional phases.
	SincPhases = 8192
)

// sincTable[p][t] holds the Blackman-windowed sinc kernel for fractional
// phase p/SincPhases. Built lazily on first use; ~3 MB of float64.
var (
	sincTable    [][]float64
	sincInitOnce sync.Once
)

func buildSincTable() {
	half := float64(SincTaps) / 2

	sincTable = make([][]float64, SincPhases)
	for p := range SincPhases {
		frac := float64(p) / float64(SincPhases)
		kernel := make([]float64, SincTaps)
		sum := 0.0

		for t := range SincTaps {
			// Tap t reads the sample at offset t-(taps/2-1) relative
			// to the integer read position.
			x := float64(t) - (half - 1) - frac
			s := sinc(x)
			w := blackman((x + half) / float64(SincTaps))
			kernel[t] = s * w
			sum += kernel[t]
		}

		// Normalize to unity DC gain so fractional reads conserve energy.
		if sum != 0 {
			inv := 1 / sum
			for t := range kernel {
				kernel[t] *= inv
			}
		}

		sincTable[p] = kernel
	}
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}

	px := math.Pi * x

	return math.Sin(px) / px
}

func blackman(x float64) float64 {
	if x < 0 || x > 1 {
		return 0
	}

	return 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
}

// SincKernel returns the precomputed kernel for fractional offset frac in
// [0, 1). The returned slice is shared and must not be modified.
func SincKernel(frac float64) []float64 {
	sincInitOnce.Do(buildSincTable)

	if frac < 0 {
		frac = 0
	}

	p := int(frac * SincPhases)
	if p >= SincPhases {
		p = SincPhases - 1
	}

	return sincTable[p]
}

// Sinc4 computes a short 4-tap windowed-sinc interpolation used by the
// harmonizer grain reader, where the full 48-tap kernel is too wide for
// tight grain boundaries.
func Sinc4(t, xm1, x0, x1, x2 float64) float64 {
	w := func(x float64) float64 {
		if x == 0 {
			return 1
		}
		// Hann-windowed sinc over the 4-tap support [-2, 2].
		return sinc(x) * (0.5 + 0.5*math.Cos(math.Pi*x/2))
	}

	return xm1*w(-1-t) + x0*w(-t) + x1*w(1-t) + x2*w(2-t)
}
