// Package svf implements a topology-preserving transform (zero-delay
// feedback) state-variable filter producing simultaneous lowpass, bandpass,
// and highpass outputs from a single structure.
package svf

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
)

const (
	defaultCutoffHz = 1000.0
	defaultQ        = 0.7071

	minSVFQ = 0.1
	maxSVFQ = 40.0

	// The cutoff prewarp blows up as fc approaches Nyquist.
	maxCutoffRatio = 0.499
)

// Outputs holds the three simultaneous responses of one tick.
type Outputs struct {
	Low, Band, High float64
}

// Filter is a TPT state-variable filter. Coefficients are
// g = tan(pi*fc/sr) and k = 1/Q; the two integrator states are
// denormal-flushed every sample. The lowpass output has unity DC gain.
type Filter struct {
	sampleRate float64
	cutoffHz   float64
	q          float64

	g  float64
	k  float64
	a1 float64
	a2 float64
	a3 float64

	ic1eq float64
	ic2eq float64
}

// New creates an SVF at 1 kHz with Butterworth Q.
func New(sampleRate float64) (*Filter, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("svf sample rate must be > 0 and finite: %f", sampleRate)
	}

	f := &Filter{
		sampleRate: sampleRate,
		cutoffHz:   defaultCutoffHz,
		q:          defaultQ,
	}
	f.updateCoefficients()

	return f, nil
}

// SetCutoff sets the cutoff frequency in Hz.
func (f *Filter) SetCutoff(hz float64) error {
	if hz <= 0 || !core.IsFinite(hz) {
		return fmt.Errorf("svf cutoff must be > 0 and finite: %f", hz)
	}

	f.cutoffHz = hz
	f.updateCoefficients()

	return nil
}

// SetQ sets the resonance quality factor.
func (f *Filter) SetQ(q float64) error {
	if q < minSVFQ || q > maxSVFQ || !core.IsFinite(q) {
		return fmt.Errorf("svf Q must be in [%g, %g]: %f", minSVFQ, maxSVFQ, q)
	}

	f.q = q
	f.updateCoefficients()

	return nil
}

// SetSampleRate updates the sample rate and retunes.
func (f *Filter) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return fmt.Errorf("svf sample rate must be > 0 and finite: %f", sampleRate)
	}

	f.sampleRate = sampleRate
	f.updateCoefficients()

	return nil
}

// Cutoff returns the cutoff frequency in Hz.
func (f *Filter) Cutoff() float64 { return f.cutoffHz }

// Q returns the quality factor.
func (f *Filter) Q() float64 { return f.q }

// Tick advances one sample and returns all three outputs.
func (f *Filter) Tick(x float64) Outputs {
	v3 := x - f.ic2eq
	v1 := f.a1*f.ic1eq + f.a2*v3
	v2 := f.ic2eq + f.a2*f.ic1eq + f.a3*v3

	f.ic1eq = core.FlushDenormal(2*v1 - f.ic1eq)
	f.ic2eq = core.FlushDenormal(2*v2 - f.ic2eq)

	return Outputs{
		Low:  v2,
		Band: v1,
		High: x - f.k*v1 - v2,
	}
}

// Lowpass advances one sample and returns only the lowpass output.
func (f *Filter) Lowpass(x float64) float64 { return f.Tick(x).Low }

// Bandpass advances one sample and returns only the bandpass output.
func (f *Filter) Bandpass(x float64) float64 { return f.Tick(x).Band }

// Highpass advances one sample and returns only the highpass output.
func (f *Filter) Highpass(x float64) float64 { return f.Tick(x).High }

// Reset clears the integrator states.
func (f *Filter) Reset() {
	f.ic1eq = 0
	f.ic2eq = 0
}

func (f *Filter) updateCoefficients() {
	ratio := f.cutoffHz / f.sampleRate
	if ratio > maxCutoffRatio {
		ratio = maxCutoffRatio
	}

	f.g = math.Tan(math.Pi * ratio)
	f.k = 1 / f.q
	f.a1 = 1 / (1 + f.g*(f.g+f.k))
	f.a2 = f.g * f.a1
	f.a3 = f.g * f.a2
}
