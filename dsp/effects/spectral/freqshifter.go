package spectral

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/hilbert"
)

const maxShiftHz = 5000.0

// FrequencyShifter is a single-sideband shifter: an FIR Hilbert
// transformer builds the analytic signal, a complex oscillator rotates it
// by the shift frequency, and the real part is taken, moving every
// component by the same number of Hz (inharmonic, unlike pitch shifting).
// Feedback through the shifter produces barberpole-style spirals; an
// optional complex resonator rings at the shifted output.
type FrequencyShifter struct {
	sampleRate float64

	shiftHz   float64
	feedback  float64
	resonance float64

	analytic *hilbert.Transformer

	oscPhase float64

	resonator complex128
	resPole   complex128

	fbSample float64
}

// NewFrequencyShifter creates a frequency shifter for the given sample rate.
func NewFrequencyShifter(sampleRate float64) (*FrequencyShifter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("frequency shifter sample rate must be > 0: %f", sampleRate)
	}

	analytic, err := hilbert.NewDefault()
	if err != nil {
		return nil, err
	}

	f := &FrequencyShifter{
		sampleRate: sampleRate,
		analytic:   analytic,
	}

	f.updateResonator()

	return f, nil
}

// SetShift sets the shift in Hz; negative shifts move downward.
func (f *FrequencyShifter) SetShift(hz float64) error {
	if hz < -maxShiftHz || hz > maxShiftHz || math.IsNaN(hz) {
		return fmt.Errorf("frequency shifter shift must be in [%g, %g]: %f", -maxShiftHz, maxShiftHz, hz)
	}

	f.shiftHz = hz
	f.updateResonator()

	return nil
}

// SetFeedback sets the shifted-output feedback in [0, 0.95].
func (f *FrequencyShifter) SetFeedback(v float64) error {
	if v < 0 || v > 0.95 || math.IsNaN(v) {
		return fmt.Errorf("frequency shifter feedback must be in [0, 0.95]: %f", v)
	}

	f.feedback = v

	return nil
}

// SetResonance sets the level of the complex resonator in [0,1].
func (f *FrequencyShifter) SetResonance(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("frequency shifter resonance must be in [0, 1]: %f", v)
	}

	f.resonance = v

	return nil
}

// Latency returns the Hilbert group delay in samples.
func (f *FrequencyShifter) Latency() int { return f.analytic.GroupDelay() }

func (f *FrequencyShifter) updateResonator() {
	hz := f.shiftHz
	if hz == 0 {
		hz = 100
	}

	omega := 2 * math.Pi * math.Abs(hz) / f.sampleRate
	f.resPole = cmplx.Rect(0.998, omega)
}

// ProcessSample processes one input sample.
func (f *FrequencyShifter) ProcessSample(input float64) float64 {
	in := input + core.SoftClip(f.fbSample*f.feedback)

	re, im := f.analytic.Tick(in)

	// Rotate the analytic signal; the real part is the shifted output.
	c := math.Cos(f.oscPhase)
	s := math.Sin(f.oscPhase)
	out := re*c - im*s

	f.oscPhase += 2 * math.Pi * f.shiftHz / f.sampleRate
	for f.oscPhase >= 2*math.Pi {
		f.oscPhase -= 2 * math.Pi
	}

	for f.oscPhase < 0 {
		f.oscPhase += 2 * math.Pi
	}

	if f.resonance > 0 {
		f.resonator = f.resonator*f.resPole + complex(out, 0)
		out += real(f.resonator) * f.resonance * 0.05
	}

	f.fbSample = out

	return out
}

// ProcessBlock processes a block in place.
func (f *FrequencyShifter) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(x)
	}
}

// Reset clears the transformer, oscillator, resonator, and feedback state.
func (f *FrequencyShifter) Reset() {
	f.analytic.Reset()
	f.oscPhase = 0
	f.resonator = 0
	f.fbSample = 0
}
