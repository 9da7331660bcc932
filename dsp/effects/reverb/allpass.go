package reverb

import "github.com/chimeraaudio/phoenix-dsp/dsp/core"

// allpass is an integer-delay Schroeder allpass diffuser in lattice form.
type allpass struct {
	buf  []float64
	pos  int
	gain float64
}

func newAllpass(delay int, gain float64) *allpass {
	if delay < 1 {
		delay = 1
	}

	return &allpass{
		buf:  make([]float64, delay),
		gain: gain,
	}
}

func (a *allpass) tick(x float64) float64 {
	d := a.buf[a.pos]
	v := x - a.gain*d
	y := d + a.gain*v

	a.buf[a.pos] = core.FlushDenormal(v)

	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}

	return y
}

func (a *allpass) reset() {
	for i := range a.buf {
		a.buf[i] = 0
	}

	a.pos = 0
}

// comb is a feedback comb filter with one-pole damping in the loop.
type comb struct {
	buf  []float64
	pos  int
	gain float64

	damp  float64
	state float64
}

func newComb(delay int, gain, damp float64) *comb {
	if delay < 1 {
		delay = 1
	}

	return &comb{
		buf:  make([]float64, delay),
		gain: gain,
		damp: damp,
	}
}

func (c *comb) tick(x float64) float64 {
	y := c.buf[c.pos]

	c.state = core.FlushDenormal(y*(1-c.damp) + c.state*c.damp)
	c.buf[c.pos] = core.FlushDenormal(x + c.state*c.gain)

	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}

	return y
}

func (c *comb) setFeedback(gain float64) { c.gain = gain }
func (c *comb) setDamp(damp float64)     { c.damp = damp }

func (c *comb) reset() {
	for i := range c.buf {
		c.buf[i] = 0
	}

	c.pos = 0
	c.state = 0
}
