// Package window provides the precomputed analysis/synthesis window tables
// used by the frequency-domain engines.
package window

import (
	"fmt"
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
	TypeBlackmanHarris
)

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic selects the periodic form (for FFT framing) instead of the
// symmetric form.
func WithPeriodic() Option {
	return func(c *config) { c.periodic = true }
}

// Generate returns the window coefficients for the given type and size.
func Generate(t Type, size int, opts ...Option) []float64 {
	if size <= 0 {
		return nil
	}

	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	coeffs := make([]float64, size)

	denom := float64(size - 1)
	if cfg.periodic {
		denom = float64(size)
	}

	if denom == 0 {
		coeffs[0] = 1
		return coeffs
	}

	for i := range coeffs {
		x := float64(i) / denom
		coeffs[i] = value(t, x)
	}

	return coeffs
}

func value(t Type, x float64) float64 {
	switch t {
	case TypeHann:
		return 0.5 - 0.5*math.Cos(2*math.Pi*x)
	case TypeHamming:
		return 0.54 - 0.46*math.Cos(2*math.Pi*x)
	case TypeBlackman:
		return 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
	case TypeBlackmanHarris:
		return 0.35875 -
			0.48829*math.Cos(2*math.Pi*x) +
			0.14128*math.Cos(4*math.Pi*x) -
			0.01168*math.Cos(6*math.Pi*x)
	default:
		return 1
	}
}

// Apply multiplies buf by coeffs in place. Both must have equal length.
func Apply(buf, coeffs []float64) error {
	if len(buf) != len(coeffs) {
		return fmt.Errorf("window apply length mismatch: %d != %d", len(buf), len(coeffs))
	}

	vecmath.MulBlockInPlace(buf, coeffs)

	return nil
}

// ApplyTo writes samples*coeffs into out. All slices must have equal length.
func ApplyTo(out, samples, coeffs []float64) error {
	if len(out) != len(samples) || len(out) != len(coeffs) {
		return fmt.Errorf("window apply length mismatch: %d, %d, %d",
			len(out), len(samples), len(coeffs))
	}

	vecmath.MulBlock(out, samples, coeffs)

	return nil
}
