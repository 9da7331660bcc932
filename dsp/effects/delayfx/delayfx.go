// Package delayfx implements the echo engines: a clean digital delay and
// tape, bucket-brigade, and magnetic-drum emulations. All share a
// fractional ring-buffer core with a slewed delay time so time changes
// glide instead of clicking.
package delayfx

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/delay"
)

const (
	// MaxDelaySeconds bounds every variant's delay time.
	MaxDelaySeconds = 2.0

	minDelaySeconds = 0.001

	maxFeedback = 1.1

	// Delay-time slew coefficient time constant in ms; slow enough to be
	// click-free, fast enough to feel responsive.
	timeSlewMs = 50.0
)

// echo is the shared fractional delay core.
type echo struct {
	sampleRate float64

	line *delay.Line

	targetSamples  float64
	currentSamples float64
	slewCoeff      float64

	feedback float64
	wet      float64
	dry      float64
}

func newEcho(sampleRate float64, name string) (*echo, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%s delay sample rate must be > 0: %f", name, sampleRate)
	}

	maxSamples := int(MaxDelaySeconds*sampleRate) + 8

	line, err := delay.New(maxSamples, delay.InterpolationHermite)
	if err != nil {
		return nil, err
	}

	e := &echo{
		sampleRate:     sampleRate,
		line:           line,
		targetSamples:  0.25 * sampleRate,
		currentSamples: 0.25 * sampleRate,
		slewCoeff:      math.Exp(-1 / (timeSlewMs * 0.001 * sampleRate)),
		feedback:       0.4,
		wet:            0.5,
		dry:            1,
	}

	return e, nil
}

func (e *echo) setTime(seconds float64, name string) error {
	if seconds < minDelaySeconds || seconds > MaxDelaySeconds || math.IsNaN(seconds) {
		return fmt.Errorf("%s delay time must be in [%g, %g]: %f", name, minDelaySeconds, MaxDelaySeconds, seconds)
	}

	e.targetSamples = seconds * e.sampleRate

	return nil
}

func (e *echo) setFeedback(v float64, name string) error {
	if v < 0 || v > maxFeedback || math.IsNaN(v) {
		return fmt.Errorf("%s delay feedback must be in [0, %g]: %f", name, maxFeedback, v)
	}

	e.feedback = v

	return nil
}

func (e *echo) setWet(v float64, name string) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s delay wet must be >= 0: %f", name, v)
	}

	e.wet = v

	return nil
}

func (e *echo) setDry(v float64, name string) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s delay dry must be >= 0: %f", name, v)
	}

	e.dry = v

	return nil
}

// tickDelay advances the time slew and returns the delayed sample for the
// given extra modulation in samples.
func (e *echo) tickDelay(mod float64) float64 {
	e.currentSamples = e.targetSamples + (e.currentSamples-e.targetSamples)*e.slewCoeff

	d := e.currentSamples + mod
	if d < 1 {
		d = 1
	}

	return e.line.ReadFractional(d)
}

func (e *echo) reset() {
	e.line.Reset()
	e.currentSamples = e.targetSamples
}

// Digital is a clean feedback delay with no loop coloration. Feedback
// above unity is tamed by a soft clipper in the loop.
type Digital struct {
	*echo
}

// NewDigital creates a digital delay.
func NewDigital(sampleRate float64) (*Digital, error) {
	e, err := newEcho(sampleRate, "digital")
	if err != nil {
		return nil, err
	}

	return &Digital{echo: e}, nil
}

// SetTime sets the delay time in seconds.
func (d *Digital) SetTime(seconds float64) error { return d.setTime(seconds, "digital") }

// SetFeedback sets the loop feedback in [0, 1.1].
func (d *Digital) SetFeedback(v float64) error { return d.setFeedback(v, "digital") }

// SetWet sets the wet gain.
func (d *Digital) SetWet(v float64) error { return d.setWet(v, "digital") }

// SetDry sets the dry gain.
func (d *Digital) SetDry(v float64) error { return d.setDry(v, "digital") }

// ProcessSample processes one input sample.
func (d *Digital) ProcessSample(input float64) float64 {
	out := d.tickDelay(0)

	fb := out * d.feedback
	if d.feedback > 1 {
		fb = core.SoftClip(fb)
	}

	d.line.Write(input + fb)

	return input*d.dry + out*d.wet
}

// ProcessBlock processes a block in place.
func (d *Digital) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = d.ProcessSample(x)
	}
}

// Reset clears the delay state.
func (d *Digital) Reset() { d.reset() }
