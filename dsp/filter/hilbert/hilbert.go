// Package hilbert provides an FIR Hilbert transformer for analytic-signal
// construction. The imaginary path is an odd-length antisymmetric FIR with
// a Blackman window; the real path is the input delayed by the FIR group
// delay so the two stay phase-aligned.
package hilbert

import (
	"fmt"
	"math"
)

const (
	// DefaultTaps is the default FIR length. Odd, so the group delay
	// (taps-1)/2 is an integer number of samples.
	DefaultTaps = 65

	minTaps = 11
	maxTaps = 511
)

// Transformer produces the analytic signal (real, imaginary) of a real
// input, sample by sample.
type Transformer struct {
	coeffs []float64
	state  []float64
	pos    int

	groupDelay int
}

// New creates a transformer with the given odd tap count.
func New(taps int) (*Transformer, error) {
	if taps < minTaps || taps > maxTaps || taps%2 == 0 {
		return nil, fmt.Errorf("hilbert taps must be odd and in [%d, %d]: %d", minTaps, maxTaps, taps)
	}

	t := &Transformer{
		coeffs:     designCoefficients(taps),
		state:      make([]float64, taps),
		groupDelay: (taps - 1) / 2,
	}

	return t, nil
}

// NewDefault creates a 65-tap transformer.
func NewDefault() (*Transformer, error) {
	return New(DefaultTaps)
}

// designCoefficients returns the Blackman-windowed ideal Hilbert FIR.
// Even-offset taps are zero; odd offsets carry 2/(pi*n).
func designCoefficients(taps int) []float64 {
	coeffs := make([]float64, taps)
	mid := (taps - 1) / 2

	for i := range coeffs {
		n := i - mid
		if n == 0 || n%2 == 0 {
			continue
		}

		ideal := 2 / (math.Pi * float64(n))
		x := float64(i) / float64(taps-1)
		w := 0.42 - 0.5*math.Cos(2*math.Pi*x) + 0.08*math.Cos(4*math.Pi*x)
		coeffs[i] = ideal * w
	}

	return coeffs
}

// GroupDelay returns the latency of both analytic outputs in samples.
func (t *Transformer) GroupDelay() int { return t.groupDelay }

// Tick consumes one input sample and returns the delayed real part and the
// 90-degree shifted imaginary part of the analytic signal.
func (t *Transformer) Tick(x float64) (re, im float64) {
	t.state[t.pos] = x

	taps := len(t.coeffs)

	// Convolve; the write position moves backwards, so state[pos+k]
	// holds x[n-k].
	idx := t.pos
	for i := range taps {
		if c := t.coeffs[i]; c != 0 {
			im += c * t.state[idx]
		}

		idx++
		if idx >= taps {
			idx = 0
		}
	}

	// Real part: input delayed by the group delay. The write position
	// moves backwards, so x[n-groupDelay] sits groupDelay slots ahead.
	reIdx := t.pos + t.groupDelay
	if reIdx >= taps {
		reIdx -= taps
	}

	re = t.state[reIdx]

	t.pos--
	if t.pos < 0 {
		t.pos = taps - 1
	}

	return re, im
}

// Reset clears the FIR delay state.
func (t *Transformer) Reset() {
	for i := range t.state {
		t.state[i] = 0
	}

	t.pos = 0
}
