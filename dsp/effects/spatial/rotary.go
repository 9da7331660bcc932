package spatial

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/delay"
	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/crossover"
)

// Rotor speeds in Hz; the horn spins faster than the drum, and both ramp
// between slow and fast over different inertias.
const (
	hornSlowHz = 0.8
	hornFastHz = 6.8
	drumSlowHz = 0.7
	drumFastHz = 5.7

	hornRampSec = 1.0
	drumRampSec = 4.0

	rotaryCrossoverHz = 800.0

	// Doppler depth in ms at full depth.
	dopplerDepthMs = 0.6
)

type rotor struct {
	rate   float64
	slowHz float64
	fastHz float64
	ramp   float64
	phase  float64
	line   *delay.Line
	baseMs float64
}

func newRotor(sampleRate, slowHz, fastHz, rampSec float64) (*rotor, error) {
	maxDelay := int((dopplerDepthMs*2+2)*0.001*sampleRate) + 8

	line, err := delay.New(maxDelay, delay.InterpolationHermite)
	if err != nil {
		return nil, err
	}

	return &rotor{
		rate:   slowHz,
		slowHz: slowHz,
		fastHz: fastHz,
		ramp:   math.Exp(-1 / (rampSec * sampleRate)),
		line:   line,
		baseMs: dopplerDepthMs + 1,
	}, nil
}

// tick spins the rotor one sample and returns the Doppler-shifted signal
// plus the current pan position in [-1, 1].
func (r *rotor) tick(x, sampleRate, target, depth float64) (out, pan float64) {
	r.rate = target + (r.rate-target)*r.ramp

	r.phase += 2 * math.Pi * r.rate / sampleRate
	if r.phase >= 2*math.Pi {
		r.phase -= 2 * math.Pi
	}

	r.line.Write(x)

	d := (r.baseMs + dopplerDepthMs*depth*math.Sin(r.phase)) * 0.001 * sampleRate
	out = r.line.ReadFractional(d)

	// Tremolo: the source faces away half the turn.
	out *= 1 - 0.35*depth*(1+math.Cos(r.phase))*0.5

	return out, math.Sin(r.phase)
}

func (r *rotor) reset() {
	r.line.Reset()
	r.phase = 0
	r.rate = r.slowHz
}

// RotarySpeaker emulates a rotary cabinet: the signal splits at 800 Hz
// into a fast horn and a slow drum rotor, each with Doppler modulation,
// tremolo, and stereo panning; switching between slow and fast ramps each
// rotor at its own mechanical inertia.
type RotarySpeaker struct {
	sampleRate float64

	fast   bool
	depth  float64
	spread float64

	split *crossover.Crossover

	horn *rotor
	drum *rotor
}

// NewRotarySpeaker creates a rotary speaker at slow speed.
func NewRotarySpeaker(sampleRate float64) (*RotarySpeaker, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("rotary speaker sample rate must be > 0: %f", sampleRate)
	}

	split, err := crossover.New(rotaryCrossoverHz, 4, sampleRate)
	if err != nil {
		return nil, err
	}

	horn, err := newRotor(sampleRate, hornSlowHz, hornFastHz, hornRampSec)
	if err != nil {
		return nil, err
	}

	drum, err := newRotor(sampleRate, drumSlowHz, drumFastHz, drumRampSec)
	if err != nil {
		return nil, err
	}

	return &RotarySpeaker{
		sampleRate: sampleRate,
		depth:      0.8,
		spread:     0.7,
		split:      split,
		horn:       horn,
		drum:       drum,
	}, nil
}

// SetFast switches between slow and fast rotor speeds.
func (r *RotarySpeaker) SetFast(fast bool) { r.fast = fast }

// Fast reports whether the fast speed is selected.
func (r *RotarySpeaker) Fast() bool { return r.fast }

// SetDepth sets Doppler/tremolo intensity in [0,1].
func (r *RotarySpeaker) SetDepth(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("rotary speaker depth must be in [0, 1]: %f", v)
	}

	r.depth = v

	return nil
}

// SetSpread sets the stereo panning spread in [0,1].
func (r *RotarySpeaker) SetSpread(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("rotary speaker spread must be in [0, 1]: %f", v)
	}

	r.spread = v

	return nil
}

// ProcessBlock processes a stereo pair in place. Both slices must have
// equal length.
func (r *RotarySpeaker) ProcessBlock(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("rotary speaker channel length mismatch: %d != %d", len(left), len(right))
	}

	hornTarget := hornSlowHz
	drumTarget := drumSlowHz

	if r.fast {
		hornTarget = hornFastHz
		drumTarget = drumFastHz
	}

	for i := range left {
		mono := (left[i] + right[i]) * 0.5

		lo, hi := r.split.ProcessSample(mono)

		hornOut, hornPan := r.horn.tick(hi, r.sampleRate, hornTarget, r.depth)
		drumOut, drumPan := r.drum.tick(lo, r.sampleRate, drumTarget, r.depth*0.6)

		hornPan *= r.spread
		drumPan *= r.spread * 0.5

		left[i] = hornOut*(1-hornPan)*0.5 + drumOut*(1-drumPan)*0.5 + (hornOut+drumOut)*0.5
		right[i] = hornOut*(1+hornPan)*0.5 + drumOut*(1+drumPan)*0.5 + (hornOut+drumOut)*0.5
	}

	return nil
}

// Reset stops both rotors and clears their delay lines.
func (r *RotarySpeaker) Reset() {
	r.split.Reset()
	r.horn.reset()
	r.drum.reset()
}
