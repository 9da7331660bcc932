package reverb

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/envelope"
)

// Comb tunings at the reference rate for the gated tail.
var gatedCombDelays = [6]int{1116, 1188, 1277, 1356, 1422, 1491}

var gatedDiffuserDelays = [4]int{225, 341, 441, 556}

// Gated is the classic gated reverb: a dense diffuser/comb tail whose
// output is cut by a gate keyed from the dry input. The gate opens on
// signal, holds, then closes with a shaped release; only the wet tail is
// gated.
type Gated struct {
	sampleRate float64

	threshold float64
	holdSec   float64
	release   float64
	size      float64
	damp      float64
	wet       float64
	dry       float64

	diffusers [4]*allpass
	combs     [6]*comb

	detector *envelope.Follower

	gateGain    float64
	holdCounter int
	releaseStep float64
}

// NewGated creates a gated reverb for the given sample rate.
func NewGated(sampleRate float64) (*Gated, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("gated reverb sample rate must be > 0: %f", sampleRate)
	}

	detector, err := envelope.NewFollower(sampleRate, envelope.ModePeak)
	if err != nil {
		return nil, err
	}

	_ = detector.SetAttack(1)
	_ = detector.SetRelease(50)

	g := &Gated{
		sampleRate: sampleRate,
		threshold:  0.05,
		holdSec:    0.15,
		release:    0.05,
		size:       0.5,
		damp:       0.3,
		wet:        0.5,
		dry:        1,
		detector:   detector,
	}

	scale := sampleRate / plateReferenceRate

	for i, d := range gatedDiffuserDelays {
		g.diffusers[i] = newAllpass(int(float64(d)*scale+0.5), 0.7)
	}

	for i, d := range gatedCombDelays {
		g.combs[i] = newComb(int(float64(d)*scale+0.5), 0.8, 0.3)
	}

	g.updateCombs()
	g.updateRelease()

	return g, nil
}

// SetThreshold sets the gate open threshold as linear amplitude.
func (g *Gated) SetThreshold(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("gated reverb threshold must be in [0, 1]: %f", v)
	}

	g.threshold = v

	return nil
}

// SetHold sets the hold time in seconds after the input drops below the
// threshold.
func (g *Gated) SetHold(seconds float64) error {
	if seconds < 0 || seconds > 2 || math.IsNaN(seconds) {
		return fmt.Errorf("gated reverb hold must be in [0, 2]: %f", seconds)
	}

	g.holdSec = seconds

	return nil
}

// SetRelease sets the gate release time in seconds.
func (g *Gated) SetRelease(seconds float64) error {
	if seconds <= 0 || seconds > 1 || math.IsNaN(seconds) {
		return fmt.Errorf("gated reverb release must be in (0, 1]: %f", seconds)
	}

	g.release = seconds
	g.updateRelease()

	return nil
}

// SetSize sets the tail density in [0,1].
func (g *Gated) SetSize(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("gated reverb size must be in [0, 1]: %f", v)
	}

	g.size = v
	g.updateCombs()

	return nil
}

// SetDamp sets comb damping in [0,1].
func (g *Gated) SetDamp(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("gated reverb damp must be in [0, 1]: %f", v)
	}

	g.damp = v
	g.updateCombs()

	return nil
}

// SetWet sets the wet gain.
func (g *Gated) SetWet(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("gated reverb wet must be >= 0: %f", v)
	}

	g.wet = v

	return nil
}

// SetDry sets the dry gain.
func (g *Gated) SetDry(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("gated reverb dry must be >= 0: %f", v)
	}

	g.dry = v

	return nil
}

func (g *Gated) updateCombs() {
	feedback := 0.7 + 0.25*g.size

	for _, c := range g.combs {
		c.setFeedback(feedback)
		c.setDamp(g.damp)
	}
}

func (g *Gated) updateRelease() {
	g.releaseStep = 1 / (g.release * g.sampleRate)
}

// ProcessSample processes one input sample.
func (g *Gated) ProcessSample(input float64) float64 {
	in := input
	for _, ap := range g.diffusers {
		in = ap.tick(in)
	}

	wet := 0.0
	for _, c := range g.combs {
		wet += c.tick(in)
	}

	wet /= float64(len(g.combs))

	// Gate keyed from the dry input, applied to the wet tail only.
	env := g.detector.Tick(input)

	if env >= g.threshold {
		g.gateGain = 1
		g.holdCounter = int(g.holdSec * g.sampleRate)
	} else if g.holdCounter > 0 {
		g.holdCounter--
	} else if g.gateGain > 0 {
		g.gateGain -= g.releaseStep
		if g.gateGain < 0 {
			g.gateGain = 0
		}
	}

	// Shaped (squared) release for a steeper tail cut.
	shaped := g.gateGain * g.gateGain

	return input*g.dry + wet*shaped*g.wet
}

// ProcessBlock processes a block in place.
func (g *Gated) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = g.ProcessSample(x)
	}
}

// Reset clears tail, detector, and gate state.
func (g *Gated) Reset() {
	for _, ap := range g.diffusers {
		ap.reset()
	}

	for _, c := range g.combs {
		c.reset()
	}

	g.detector.Reset()
	g.gateGain = 0
	g.holdCounter = 0
}
