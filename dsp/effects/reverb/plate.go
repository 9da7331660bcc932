// Package reverb implements the reverberation engines: a modulated
// feedback-delay-network plate, an algorithmic-IR convolution reverb, a
// waveguide spring tank, and a gated reverb.
package reverb

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/delay"
	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/biquad"
)

const (
	plateSize = 8

	plateReferenceRate = 44100.0

	maxPreDelaySeconds = 0.1

	plateMinFeedback = 0.5
	plateMaxFeedback = 0.95

	// Damping maps onto a loop lowpass cutoff between these bounds.
	plateDampMaxHz = 20000.0
	plateDampMinHz = 400.0

	plateModDepthSamples = 3.0

	plateLimitThreshold = 0.9
)

// Delay tunings at the reference rate, mutually prime for a dense mode
// distribution.
var plateDelays = [plateSize]float64{1557, 1617, 1491, 1422, 1277, 1356, 1188, 1116}

var plateInputAllpasses = [4]int{225, 341, 441, 556}

var plateOutputAllpasses = [2]int{613, 799}

// Per-line LFO rates in Hz, spread so the lines never beat in sync.
var plateModRates = [plateSize]float64{0.40, 0.47, 0.54, 0.61, 0.68, 0.75, 0.83, 0.90}

var plateHadamard = [plateSize][plateSize]float64{
	{1, 1, 1, 1, 1, 1, 1, 1},
	{1, -1, 1, -1, 1, -1, 1, -1},
	{1, 1, -1, -1, 1, 1, -1, -1},
	{1, -1, -1, 1, 1, -1, -1, 1},
	{1, 1, 1, 1, -1, -1, -1, -1},
	{1, -1, 1, -1, -1, 1, -1, 1},
	{1, 1, -1, -1, -1, -1, 1, 1},
	{1, -1, -1, 1, -1, 1, 1, -1},
}

// Plate is a mono plate reverb: pre-delay, input diffusion, an 8-line
// modulated FDN with Hadamard feedback and loop damping, output diffusion,
// tone shelf, and a soft output limiter.
type Plate struct {
	sampleRate float64

	preDelaySeconds float64
	size            float64
	damp            float64
	brightness      float64
	modDepth        float64
	wet             float64
	dry             float64

	preDelay *delay.Line
	inputAP  [4]*allpass
	outputAP [2]*allpass

	lines       [plateSize]*delay.Line
	baseDelay   [plateSize]float64
	lfoPhase    [plateSize]float64
	filterState [plateSize]float64

	feedback  float64
	dampCoeff float64
	rateScale float64

	shelf *biquad.Section

	inputGain   float64
	outputGain  float64
	matrixScale float64
}

// NewPlate creates a plate reverb for the given sample rate.
func NewPlate(sampleRate float64) (*Plate, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("plate reverb sample rate must be > 0: %f", sampleRate)
	}

	scale := sampleRate / plateReferenceRate

	p := &Plate{
		sampleRate:      sampleRate,
		preDelaySeconds: 0.01,
		size:            0.5,
		damp:            0.3,
		brightness:      0.7,
		modDepth:        1,
		wet:             0.3,
		dry:             1,
		rateScale:       scale,
		shelf:           biquad.NewSection(biquad.Identity()),
	}

	norm := 1 / math.Sqrt(float64(plateSize))
	p.inputGain = norm
	p.outputGain = norm
	p.matrixScale = norm

	maxPre := int(maxPreDelaySeconds*sampleRate) + 2

	var err error

	p.preDelay, err = delay.New(maxPre, delay.InterpolationLinear)
	if err != nil {
		return nil, err
	}

	for i, d := range plateInputAllpasses {
		p.inputAP[i] = newAllpass(int(float64(d)*scale+0.5), 0.7)
	}

	for i, d := range plateOutputAllpasses {
		p.outputAP[i] = newAllpass(int(float64(d)*scale+0.5), 0.5)
	}

	for i := range p.lines {
		p.baseDelay[i] = plateDelays[i] * scale

		maxLine := int(p.baseDelay[i]+plateModDepthSamples) + 8

		p.lines[i], err = delay.New(maxLine, delay.InterpolationHermite)
		if err != nil {
			return nil, err
		}
	}

	p.updateFeedback()
	p.updateDamping()
	p.updateShelf()

	return p, nil
}

// SetPreDelay sets the pre-delay in seconds, up to 100 ms.
func (p *Plate) SetPreDelay(seconds float64) error {
	if seconds < 0 || seconds > maxPreDelaySeconds || math.IsNaN(seconds) {
		return fmt.Errorf("plate reverb pre-delay must be in [0, %g]: %f", maxPreDelaySeconds, seconds)
	}

	p.preDelaySeconds = seconds

	return nil
}

// SetSize sets the room size in [0,1]; larger sizes raise the loop feedback
// toward, but never reaching, unity.
func (p *Plate) SetSize(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("plate reverb size must be in [0, 1]: %f", v)
	}

	p.size = v
	p.updateFeedback()

	return nil
}

// SetDamp sets high-frequency loop damping in [0,1].
func (p *Plate) SetDamp(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("plate reverb damp must be in [0, 1]: %f", v)
	}

	p.damp = v
	p.updateDamping()

	return nil
}

// SetBrightness sets the output tone shelf in [0,1]; 1 is flat.
func (p *Plate) SetBrightness(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("plate reverb brightness must be in [0, 1]: %f", v)
	}

	p.brightness = v
	p.updateShelf()

	return nil
}

// SetModDepth scales the delay-line modulation in [0,1].
func (p *Plate) SetModDepth(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("plate reverb mod depth must be in [0, 1]: %f", v)
	}

	p.modDepth = v

	return nil
}

// SetWet sets the wet gain.
func (p *Plate) SetWet(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("plate reverb wet must be >= 0: %f", v)
	}

	p.wet = v

	return nil
}

// SetDry sets the dry gain.
func (p *Plate) SetDry(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("plate reverb dry must be >= 0: %f", v)
	}

	p.dry = v

	return nil
}

func (p *Plate) updateFeedback() {
	p.feedback = plateMinFeedback + (plateMaxFeedback-plateMinFeedback)*p.size
}

func (p *Plate) updateDamping() {
	cutoff := plateDampMaxHz * math.Pow(plateDampMinHz/plateDampMaxHz, p.damp)
	p.dampCoeff = math.Exp(-2 * math.Pi * cutoff / p.sampleRate)
}

func (p *Plate) updateShelf() {
	gainDB := -12 * (1 - p.brightness)

	coeffs, err := biquad.HighShelf(4000, gainDB, p.sampleRate)
	if err != nil {
		return
	}

	p.shelf.SetCoefficients(coeffs)
}

// softLimit applies a soft-knee ceiling: linear below the threshold,
// saturating above it.
func softLimit(x float64) float64 {
	ax := math.Abs(x)
	if ax <= plateLimitThreshold {
		return x
	}

	head := 1 - plateLimitThreshold
	over := (ax - plateLimitThreshold) / head
	y := plateLimitThreshold + head*math.Tanh(over)

	return math.Copysign(y, x)
}

// ProcessSample processes one input sample.
func (p *Plate) ProcessSample(input float64) float64 {
	in := input

	p.preDelay.Write(in)

	preSamples := p.preDelaySeconds * p.sampleRate
	if preSamples >= 1 {
		in = p.preDelay.ReadFractional(preSamples)
	}

	for _, ap := range p.inputAP {
		in = ap.tick(in)
	}

	var taps [plateSize]float64

	depth := plateModDepthSamples * p.modDepth

	for i := range plateSize {
		d := p.baseDelay[i] + depth*math.Sin(p.lfoPhase[i])
		taps[i] = p.lines[i].ReadFractional(d)

		p.lfoPhase[i] += 2 * math.Pi * plateModRates[i] / p.sampleRate
		if p.lfoPhase[i] >= 2*math.Pi {
			p.lfoPhase[i] -= 2 * math.Pi
		}
	}

	for i := range plateSize {
		fb := 0.0
		for j := range plateSize {
			fb += plateHadamard[i][j] * taps[j]
		}

		fb *= p.matrixScale

		filtered := fb*(1-p.dampCoeff) + p.filterState[i]*p.dampCoeff
		p.filterState[i] = core.FlushDenormal(filtered)

		p.lines[i].Write(in*p.inputGain + filtered*p.feedback)
	}

	wet := 0.0
	for i := range plateSize {
		wet += taps[i]
	}

	wet *= p.outputGain

	for _, ap := range p.outputAP {
		wet = ap.tick(wet)
	}

	wet = p.shelf.ProcessSample(wet)
	wet = softLimit(wet)

	return input*p.dry + wet*p.wet
}

// ProcessBlock processes a block in place.
func (p *Plate) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = p.ProcessSample(x)
	}
}

// Reset clears all delay and filter state.
func (p *Plate) Reset() {
	p.preDelay.Reset()

	for _, ap := range p.inputAP {
		ap.reset()
	}

	for _, ap := range p.outputAP {
		ap.reset()
	}

	for i := range p.lines {
		p.lines[i].Reset()
		p.filterState[i] = 0
		p.lfoPhase[i] = 0
	}

	p.shelf.Reset()
}
