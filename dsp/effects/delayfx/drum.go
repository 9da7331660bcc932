package delayfx

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
)

const (
	drumWowRateHz = 0.35
	drumWowDepth  = 0.002

	drumToneHz = 3200.0
)

// Fixed playback-head positions as fractions of the drum rotation period.
var drumHeadSpacing = [4]float64{0.25, 0.5, 0.75, 1.0}

// Drum emulates a magnetic-drum echo: one write head and four fixed
// playback heads at mechanical spacings, slow rotational wow, and dark
// repeats from the narrow head-gap response.
type Drum struct {
	*echo

	headLevels [4]float64

	wowPhase  float64
	toneCoeff float64
	toneState float64
	fbState   float64
}

// NewDrum creates a magnetic-drum delay. The delay time sets the drum
// rotation period; the heads sit at quarter spacings of it.
func NewDrum(sampleRate float64) (*Drum, error) {
	e, err := newEcho(sampleRate, "drum")
	if err != nil {
		return nil, err
	}

	d := &Drum{
		echo:       e,
		headLevels: [4]float64{0.0, 0.0, 0.0, 1.0},
		toneCoeff:  math.Exp(-2 * math.Pi * drumToneHz / sampleRate),
	}

	return d, nil
}

// SetTime sets the drum rotation period in seconds.
func (d *Drum) SetTime(seconds float64) error { return d.setTime(seconds, "drum") }

// SetFeedback sets the loop feedback in [0, 1.1].
func (d *Drum) SetFeedback(v float64) error { return d.setFeedback(v, "drum") }

// SetWet sets the wet gain.
func (d *Drum) SetWet(v float64) error { return d.setWet(v, "drum") }

// SetDry sets the dry gain.
func (d *Drum) SetDry(v float64) error { return d.setDry(v, "drum") }

// SetHeadLevel sets the output level of playback head i in [0,1].
func (d *Drum) SetHeadLevel(head int, level float64) error {
	if head < 0 || head >= len(d.headLevels) {
		return fmt.Errorf("drum delay head must be in [0, %d]: %d", len(d.headLevels)-1, head)
	}

	if level < 0 || level > 1 || math.IsNaN(level) {
		return fmt.Errorf("drum delay head level must be in [0, 1]: %f", level)
	}

	d.headLevels[head] = level

	return nil
}

// ProcessSample processes one input sample.
func (d *Drum) ProcessSample(input float64) float64 {
	d.currentSamples = d.targetSamples + (d.currentSamples-d.targetSamples)*d.slewCoeff

	wow := 1 + drumWowDepth*math.Sin(d.wowPhase)

	d.wowPhase += 2 * math.Pi * drumWowRateHz / d.sampleRate
	if d.wowPhase >= 2*math.Pi {
		d.wowPhase -= 2 * math.Pi
	}

	out := 0.0
	last := 0.0

	for i, spacing := range drumHeadSpacing {
		delaySamples := d.currentSamples * spacing * wow
		if delaySamples < 1 {
			delaySamples = 1
		}

		tap := d.line.ReadFractional(delaySamples)
		out += tap * d.headLevels[i]

		if i == len(drumHeadSpacing)-1 {
			last = tap
		}
	}

	// Dark repeats: head-gap lowpass on the feedback from the last head.
	fb := last * d.feedback
	d.fbState = core.FlushDenormal(fb*(1-d.toneCoeff) + d.fbState*d.toneCoeff)

	d.line.Write(input + d.fbState)

	// The wet output shares the same narrow response.
	d.toneState = core.FlushDenormal(out*(1-d.toneCoeff) + d.toneState*d.toneCoeff)

	return input*d.dry + d.toneState*d.wet
}

// ProcessBlock processes a block in place.
func (d *Drum) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = d.ProcessSample(x)
	}
}

// Reset clears drum and filter state.
func (d *Drum) Reset() {
	d.reset()
	d.wowPhase = 0
	d.toneState = 0
	d.fbState = 0
}
