// Package crossover provides a two-way Linkwitz-Riley crossover network
// that splits a signal into complementary lowpass and highpass bands whose
// sum is allpass.
package crossover

import (
	"fmt"

	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/biquad"
)

// Crossover is a two-way Linkwitz-Riley crossover built from cascaded
// Butterworth biquads. Even orders only; LR4 (order 4) is the standard
// choice for multiband processing.
type Crossover struct {
	lp    *biquad.Chain
	hp    *biquad.Chain
	freq  float64
	order int
	sr    float64
}

// New creates a crossover at the given frequency. The order must be a
// multiple of 4 (LR4, LR8, ...); these orders keep both halves in polarity
// so LP + HP sums to allpass without inversion.
func New(freq float64, order int, sampleRate float64) (*Crossover, error) {
	if order <= 0 || order%4 != 0 {
		return nil, fmt.Errorf("crossover order must be a positive multiple of 4: %d", order)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("crossover sample rate must be > 0: %f", sampleRate)
	}

	if freq <= 0 || freq >= sampleRate/2 {
		return nil, fmt.Errorf("crossover frequency must be in (0, %g): %f", sampleRate/2, freq)
	}

	half := order / 2

	lpHalf, err := biquad.ButterworthLowpass(freq, half, sampleRate)
	if err != nil {
		return nil, err
	}

	hpHalf, err := biquad.ButterworthHighpass(freq, half, sampleRate)
	if err != nil {
		return nil, err
	}

	// Linkwitz-Riley = squared Butterworth: run each half twice.
	lpCoeffs := append(append([]biquad.Coefficients{}, lpHalf...), lpHalf...)
	hpCoeffs := append(append([]biquad.Coefficients{}, hpHalf...), hpHalf...)

	return &Crossover{
		lp:    biquad.NewChain(lpCoeffs),
		hp:    biquad.NewChain(hpCoeffs),
		freq:  freq,
		order: order,
		sr:    sampleRate,
	}, nil
}

// ProcessSample filters one input sample and returns the lowpass and
// highpass outputs.
func (c *Crossover) ProcessSample(x float64) (lo, hi float64) {
	return c.lp.ProcessSample(x), c.hp.ProcessSample(x)
}

// ProcessBlock filters a block of input samples, writing the lowpass
// output to lo and the highpass output to hi. All three slices must have
// the same length.
func (c *Crossover) ProcessBlock(input, lo, hi []float64) {
	n := len(input)
	if n == 0 {
		return
	}

	_ = lo[n-1]
	_ = hi[n-1]
	copy(lo, input)
	copy(hi, input)
	c.lp.ProcessBlock(lo)
	c.hp.ProcessBlock(hi)
}

// Freq returns the crossover frequency in Hz.
func (c *Crossover) Freq() float64 { return c.freq }

// Order returns the Linkwitz-Riley order.
func (c *Crossover) Order() int { return c.order }

// Reset clears the internal filter states of both chains.
func (c *Crossover) Reset() {
	c.lp.Reset()
	c.hp.Reset()
}
