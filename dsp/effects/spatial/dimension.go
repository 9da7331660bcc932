package spatial

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/delay"
	"github.com/chimeraaudio/phoenix-dsp/dsp/interp"
)

// Prime allpass delays in samples at 44.1 kHz; primes avoid coincident
// comb notches when the cascade output recombines with the dry signal.
var dimensionAllpassDelays = [4]int{113, 337, 557, 881}

const (
	detuneWindowMs = 40.0

	maxDetuneCents = 20.0
)

type dimAllpass struct {
	buf  []float64
	pos  int
	gain float64
}

func newDimAllpass(size int, gain float64) *dimAllpass {
	return &dimAllpass{buf: make([]float64, size), gain: gain}
}

func (a *dimAllpass) tick(x float64) float64 {
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

func (a *dimAllpass) reset() {
	for i := range a.buf {
		a.buf[i] = 0
	}

	a.pos = 0
}

// detuner is a dual-tap micro pitch shifter: two delay taps sweep through
// a window at the detune rate with complementary sin^2 crossfades, so the
// output stays constant-power while reading slightly faster or slower
// than the write head.
type detuner struct {
	line   *delay.Line
	window float64
	phase  float64
	rate   float64
}

// detuneBaseDelay keeps the sweep inside the sinc kernel's valid range.
const detuneBaseDelay = interp.SincTaps / 2

func newDetuner(sampleRate float64) (*detuner, error) {
	window := detuneWindowMs * 0.001 * sampleRate

	line, err := delay.New(int(window)+detuneBaseDelay+8, delay.InterpolationSinc)
	if err != nil {
		return nil, err
	}

	return &detuner{line: line, window: window}, nil
}

func (d *detuner) setCents(cents float64) {
	ratio := math.Pow(2, cents/1200)
	d.rate = (1 - ratio) / d.window
}

func (d *detuner) tick(x float64) float64 {
	d.line.Write(x)

	out := 0.0

	for t := range 2 {
		ph := d.phase + 0.5*float64(t)
		if ph >= 1 {
			ph -= 1
		}

		g := math.Sin(math.Pi * ph)
		out += d.line.ReadFractional(detuneBaseDelay+ph*d.window) * g * g
	}

	d.phase += d.rate

	for d.phase >= 1 {
		d.phase -= 1
	}

	for d.phase < 0 {
		d.phase += 1
	}

	return out
}

func (d *detuner) reset() {
	d.line.Reset()
	d.phase = 0
}

// DimensionExpander thickens the stereo image: the side signal runs
// through a prime-length allpass cascade, then each channel receives a
// micro-pitch-shifted copy detuned in opposite directions, which
// decorrelates the channels without an audible delay or chorus wobble.
type DimensionExpander struct {
	sampleRate float64

	amount float64
	cents  float64

	allpasses [4]*dimAllpass

	detuneL *detuner
	detuneR *detuner
}

// NewDimensionExpander creates a dimension expander for the given rate.
func NewDimensionExpander(sampleRate float64) (*DimensionExpander, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("dimension expander sample rate must be > 0: %f", sampleRate)
	}

	d := &DimensionExpander{
		sampleRate: sampleRate,
		amount:     0.5,
		cents:      7,
	}

	scale := sampleRate / 44100.0

	for i, base := range dimensionAllpassDelays {
		d.allpasses[i] = newDimAllpass(int(float64(base)*scale+0.5), 0.6)
	}

	var err error

	d.detuneL, err = newDetuner(sampleRate)
	if err != nil {
		return nil, err
	}

	d.detuneR, err = newDetuner(sampleRate)
	if err != nil {
		return nil, err
	}

	d.retune()

	return d, nil
}

// SetAmount sets the effect depth in [0,1].
func (d *DimensionExpander) SetAmount(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("dimension expander amount must be in [0, 1]: %f", v)
	}

	d.amount = v

	return nil
}

// SetDetune sets the micro detune in cents, in [0, 20]; the channels pull
// in opposite directions.
func (d *DimensionExpander) SetDetune(cents float64) error {
	if cents < 0 || cents > maxDetuneCents || math.IsNaN(cents) {
		return fmt.Errorf("dimension expander detune must be in [0, %g] cents: %f", maxDetuneCents, cents)
	}

	d.cents = cents
	d.retune()

	return nil
}

func (d *DimensionExpander) retune() {
	d.detuneL.setCents(d.cents)
	d.detuneR.setCents(-d.cents)
}

// ProcessBlock processes a stereo pair in place. Both slices must have
// equal length.
func (d *DimensionExpander) ProcessBlock(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("dimension expander channel length mismatch: %d != %d", len(left), len(right))
	}

	for i := range left {
		side := (left[i] - right[i]) * 0.5

		diffuse := side
		for _, ap := range d.allpasses {
			diffuse = ap.tick(diffuse)
		}

		wetL := d.detuneL.tick(diffuse)
		wetR := d.detuneR.tick(diffuse)

		left[i] += wetL * d.amount
		right[i] -= wetR * d.amount
	}

	return nil
}

// Reset clears the allpass cascade and both detuners.
func (d *DimensionExpander) Reset() {
	for _, ap := range d.allpasses {
		ap.reset()
	}

	d.detuneL.reset()
	d.detuneR.reset()
}
