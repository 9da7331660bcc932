// Package spatial implements the stereo-field engines: mid/side
// processing, a stereo widener, a dimension expander, and a rotary
// speaker. All processors take separate left/right blocks.
package spatial

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/biquad"
)

// MidSide encodes the stereo pair into mid/side, applies independent gain
// and shelf EQ to each component, and decodes back.
type MidSide struct {
	sampleRate float64

	midGain  float64
	sideGain float64

	midShelfDB  float64
	sideShelfDB float64

	midShelf  *biquad.Section
	sideShelf *biquad.Section
}

// NewMidSide creates a neutral mid/side processor.
func NewMidSide(sampleRate float64) (*MidSide, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("mid/side sample rate must be > 0: %f", sampleRate)
	}

	m := &MidSide{
		sampleRate: sampleRate,
		midGain:    1,
		sideGain:   1,
		midShelf:   biquad.NewSection(biquad.Identity()),
		sideShelf:  biquad.NewSection(biquad.Identity()),
	}

	return m, nil
}

// SetMidGain sets the mid gain in [0, 2].
func (m *MidSide) SetMidGain(v float64) error {
	if v < 0 || v > 2 || math.IsNaN(v) {
		return fmt.Errorf("mid/side mid gain must be in [0, 2]: %f", v)
	}

	m.midGain = v

	return nil
}

// SetSideGain sets the side gain in [0, 2].
func (m *MidSide) SetSideGain(v float64) error {
	if v < 0 || v > 2 || math.IsNaN(v) {
		return fmt.Errorf("mid/side side gain must be in [0, 2]: %f", v)
	}

	m.sideGain = v

	return nil
}

// SetMidShelf sets a 6 kHz high shelf on the mid component in dB.
func (m *MidSide) SetMidShelf(dB float64) error {
	if dB < -12 || dB > 12 || math.IsNaN(dB) {
		return fmt.Errorf("mid/side mid shelf must be in [-12, 12] dB: %f", dB)
	}

	m.midShelfDB = dB

	coeffs, err := biquad.HighShelf(6000, dB, m.sampleRate)
	if err != nil {
		return err
	}

	m.midShelf.SetCoefficients(coeffs)

	return nil
}

// SetSideShelf sets a 6 kHz high shelf on the side component in dB.
func (m *MidSide) SetSideShelf(dB float64) error {
	if dB < -12 || dB > 12 || math.IsNaN(dB) {
		return fmt.Errorf("mid/side side shelf must be in [-12, 12] dB: %f", dB)
	}

	m.sideShelfDB = dB

	coeffs, err := biquad.HighShelf(6000, dB, m.sampleRate)
	if err != nil {
		return err
	}

	m.sideShelf.SetCoefficients(coeffs)

	return nil
}

// ProcessBlock processes a stereo pair in place. Both slices must have
// equal length.
func (m *MidSide) ProcessBlock(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("mid/side channel length mismatch: %d != %d", len(left), len(right))
	}

	for i := range left {
		mid := (left[i] + right[i]) * 0.5
		side := (left[i] - right[i]) * 0.5

		mid = m.midShelf.ProcessSample(mid) * m.midGain
		side = m.sideShelf.ProcessSample(side) * m.sideGain

		left[i] = mid + side
		right[i] = mid - side
	}

	return nil
}

// Reset clears the shelf filters.
func (m *MidSide) Reset() {
	m.midShelf.Reset()
	m.sideShelf.Reset()
}
