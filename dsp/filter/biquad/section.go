// Package biquad implements second-order IIR sections in Direct Form II
// Transposed, the numerically stable topology for time-varying coefficients.
package biquad

import "github.com/chimeraaudio/phoenix-dsp/dsp/core"

// Coefficients holds the transfer function coefficients for a single
// second-order section. a0 is normalized to 1 and not stored.
//
// The sign convention follows Direct Form II Transposed:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64 // feedforward (numerator)
	A1, A2     float64 // feedback (denominator)
}

// Identity returns pass-through coefficients.
func Identity() Coefficients {
	return Coefficients{B0: 1}
}

// Section is a single biquad filter with coefficients and internal state.
type Section struct {
	Coefficients

	d0, d1 float64
}

// NewSection returns a Section initialized with the given coefficients
// and zero state.
func NewSection(c Coefficients) *Section {
	return &Section{Coefficients: c}
}

// SetCoefficients swaps coefficients without clearing state. Safe for
// per-block retuning under TDF2.
func (s *Section) SetCoefficients(c Coefficients) {
	s.Coefficients = c
}

// ProcessSample filters one input sample and returns the output.
func (s *Section) ProcessSample(x float64) float64 {
	y := s.B0*x + s.d0
	s.d0 = core.FlushDenormal(s.B1*x - s.A1*y + s.d1)
	s.d1 = core.FlushDenormal(s.B2*x - s.A2*y)

	return y
}

// ProcessBlock filters a block of samples in place. Zero-alloc.
func (s *Section) ProcessBlock(buf []float64) {
	b0, b1, b2 := s.B0, s.B1, s.B2
	a1, a2 := s.A1, s.A2
	d0, d1 := s.d0, s.d1

	for i, x := range buf {
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		buf[i] = y
	}

	s.d0 = core.FlushDenormal(d0)
	s.d1 = core.FlushDenormal(d1)
}

// Reset clears the internal state.
func (s *Section) Reset() {
	s.d0 = 0
	s.d1 = 0
}

// Chain is a cascade of biquad sections sharing one signal path.
type Chain struct {
	sections []*Section
}

// NewChain builds a cascade from the given coefficient list.
func NewChain(coeffs []Coefficients) *Chain {
	sections := make([]*Section, len(coeffs))
	for i, c := range coeffs {
		sections[i] = NewSection(c)
	}

	return &Chain{sections: sections}
}

// Len returns the number of sections.
func (c *Chain) Len() int { return len(c.sections) }

// Section returns the i-th section for retuning.
func (c *Chain) Section(i int) *Section {
	if i < 0 || i >= len(c.sections) {
		return nil
	}

	return c.sections[i]
}

// ProcessSample runs one sample through every section in order.
func (c *Chain) ProcessSample(x float64) float64 {
	for _, s := range c.sections {
		x = s.ProcessSample(x)
	}

	return x
}

// ProcessBlock runs a block through every section in place.
func (c *Chain) ProcessBlock(buf []float64) {
	for _, s := range c.sections {
		s.ProcessBlock(buf)
	}
}

// Reset clears all section state.
func (c *Chain) Reset() {
	for _, s := range c.sections {
		s.Reset()
	}
}
