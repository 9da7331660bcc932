// Package oversample runs nonlinear processors at a multiple of the host
// rate to suppress alias products: zero-stuff upsampling through a cascaded
// Butterworth anti-image chain, caller processing at the high rate, then an
// identical anti-alias chain and decimation back down.
package oversample

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/biquad"
)

const (
	// filterStages is the number of cascaded biquad stages in each of the
	// anti-image and anti-alias chains (8th-order Butterworth).
	filterStages = 4

	// cutoffRatio places the filter cutoff just under the base-rate
	// Nyquist, leaving headroom for the transition band.
	cutoffRatio = 0.45
)

// Factor is an allowed oversampling ratio.
type Factor int

// Allowed oversampling factors.
const (
	Factor2  Factor = 2
	Factor4  Factor = 4
	Factor8  Factor = 8
	Factor16 Factor = 16
)

func (f Factor) valid() bool {
	return f == Factor2 || f == Factor4 || f == Factor8 || f == Factor16
}

// Oversampler wraps a processing callback between an upsampling and a
// decimating filter chain. All buffers are sized at construction for a
// maximum base-rate block size; ProcessBlock never allocates.
type Oversampler struct {
	factor     Factor
	sampleRate float64

	up   *biquad.Chain
	down *biquad.Chain

	work []float64

	latency int
}

// New creates an oversampler for blocks up to maxBlockSize base-rate samples.
func New(factor Factor, sampleRate float64, maxBlockSize int) (*Oversampler, error) {
	if !factor.valid() {
		return nil, fmt.Errorf("oversampler factor must be 2, 4, 8, or 16: %d", factor)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("oversampler sample rate must be > 0: %f", sampleRate)
	}

	if maxBlockSize < 1 {
		return nil, fmt.Errorf("oversampler max block size must be >= 1: %d", maxBlockSize)
	}

	highRate := sampleRate * float64(factor)
	cutoff := sampleRate * cutoffRatio

	upCoeffs, err := biquad.ButterworthLowpass(cutoff, 2*filterStages, highRate)
	if err != nil {
		return nil, fmt.Errorf("oversampler anti-image design: %w", err)
	}

	downCoeffs, err := biquad.ButterworthLowpass(cutoff, 2*filterStages, highRate)
	if err != nil {
		return nil, fmt.Errorf("oversampler anti-alias design: %w", err)
	}

	return &Oversampler{
		factor:     factor,
		sampleRate: sampleRate,
		up:         biquad.NewChain(upCoeffs),
		down:       biquad.NewChain(downCoeffs),
		work:       make([]float64, maxBlockSize*int(factor)),

		latency: chainGroupDelay(cutoff, sampleRate),
	}, nil
}

// chainGroupDelay returns the passband group delay of the two Butterworth
// chains in base-rate samples. Each second-order section with pole
// frequency w0 and quality q delays low frequencies by 1/(w0*q).
func chainGroupDelay(cutoff, sampleRate float64) int {
	order := 2 * filterStages
	w0 := 2 * math.Pi * cutoff

	tau := 0.0
	for k := 1; k <= filterStages; k++ {
		q := 1 / (2 * math.Sin(float64(2*k-1)*math.Pi/float64(2*order)))
		tau += 1 / (w0 * q)
	}

	return int(math.Round(2 * tau * sampleRate))
}

// Factor returns the oversampling ratio.
func (o *Oversampler) Factor() Factor { return o.factor }

// LatencySamples returns the base-rate latency of the filter chains.
func (o *Oversampler) LatencySamples() int { return o.latency }

// ProcessBlock upsamples buf, invokes process on the high-rate signal in
// place, then filters and decimates back into buf. The callback must
// process its argument in place and must not retain it.
func (o *Oversampler) ProcessBlock(buf []float64, process func(oversampled []float64)) error {
	n := len(buf)
	if n == 0 {
		return nil
	}

	factor := int(o.factor)
	if n*factor > len(o.work) {
		return fmt.Errorf("oversampler block of %d exceeds prepared maximum %d",
			n, len(o.work)/factor)
	}

	work := o.work[:n*factor]

	// Zero-stuff, compensating the energy lost to the inserted zeros.
	gain := float64(factor)
	for i := range work {
		work[i] = 0
	}

	for i, x := range buf {
		work[i*factor] = x * gain
	}

	o.up.ProcessBlock(work)

	if process != nil {
		process(work)
	}

	o.down.ProcessBlock(work)

	for i := range n {
		buf[i] = work[i*factor]
	}

	return nil
}

// Reset clears the filter chain state.
func (o *Oversampler) Reset() {
	o.up.Reset()
	o.down.Reset()
}
