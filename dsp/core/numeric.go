package core

import "math"

const defaultEpsilon = 1e-12

// DenormalThreshold is the magnitude below which recursive filter state is
// treated as silence and flushed to exact zero.
const DenormalThreshold = 1e-30

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// Clamp01 limits value to the normalized parameter range [0, 1].
// NaN maps to 0.
func Clamp01(value float64) float64 {
	if value < 0 || math.IsNaN(value) {
		return 0
	}

	if value > 1 {
		return 1
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// FlushDenormal converts tiny denormal-like values to exact zero.
// Every recursive filter, delay tap write, and envelope update in the core
// passes through this to avoid denormal-related CPU stalls.
func FlushDenormal(x float64) float64 {
	if x > -DenormalThreshold && x < DenormalThreshold {
		return 0
	}

	return x
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !(math.IsNaN(v) || math.IsInf(v, 0))
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// SoftClip limits x smoothly via tanh(x*0.7)/0.7. The curve is transparent
// for small inputs and saturates toward ±1/0.7 for large ones.
func SoftClip(x float64) float64 {
	return math.Tanh(x*0.7) / 0.7
}

// Lerp linearly interpolates between a and b by t in [0, 1].
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
