// Package spectral implements the frequency-domain engines: a streaming
// phase-vocoder pitch shifter, a per-bin hysteresis gate, spectral freeze,
// an SSB frequency shifter, and a PSOLA harmonizer.
package spectral

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/window"
)

const (
	// Allowed STFT frame sizes.
	MinFrameSize = 512
	MaxFrameSize = 4096

	defaultFrameSize = 2048

	minPitchRatio = 0.25
	maxPitchRatio = 4.0

	minFormantRatio = 0.5
	maxFormantRatio = 2.0

	// Hann with 75% overlap and analysis+synthesis windowing sums the
	// squared window to exactly 3/2.
	colaNorm = 1.5

	envelopeBins = 32
)

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }

func wrapPhase(p float64) float64 {
	for p > math.Pi {
		p -= 2 * math.Pi
	}

	for p < -math.Pi {
		p += 2 * math.Pi
	}

	return p
}

// PitchShifter is a streaming phase-vocoder pitch shifter. Frames of
// frameSize samples are analyzed every frameSize/4 samples with a Hann
// window; each bin's true frequency is estimated from its phase increment,
// bins are remapped by the pitch ratio, and phase accumulators advance for
// every bin every frame, so silent bins stay phase-coherent when energy
// returns. Latency is one full frame.
type PitchShifter struct {
	sampleRate float64
	frameSize  int
	hop        int

	pitchRatio    float64
	formantRatio  float64
	gateThreshold float64
	feedback      float64

	plan *algofft.Plan[complex128]

	win   []float64
	omega []float64

	inFifo   []float64
	outFifo  []float64
	outAccum []float64
	rover    int

	lastPhase []float64
	sumPhase  []float64

	anaMag  []float64
	anaFreq []float64
	synMag  []float64
	synFreq []float64
	envAna  []float64
	envSyn  []float64

	spectrum  []complex128
	timeFrame []complex128

	lastOut float64
}

// NewPitchShifter creates a streaming pitch shifter with the given STFT
// frame size (power of two in [512, 4096]).
func NewPitchShifter(sampleRate float64, frameSize int) (*PitchShifter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("pitch shifter sample rate must be > 0: %f", sampleRate)
	}

	if frameSize < MinFrameSize || frameSize > MaxFrameSize || !isPowerOfTwo(frameSize) {
		return nil, fmt.Errorf("pitch shifter frame size must be a power of two in [%d, %d]: %d",
			MinFrameSize, MaxFrameSize, frameSize)
	}

	plan, err := algofft.NewPlan64(frameSize)
	if err != nil {
		return nil, fmt.Errorf("pitch shifter FFT plan: %w", err)
	}

	win := window.Generate(window.TypeHann, frameSize, window.WithPeriodic())

	hop := frameSize / 4
	half := frameSize / 2

	p := &PitchShifter{
		sampleRate:   sampleRate,
		frameSize:    frameSize,
		hop:          hop,
		pitchRatio:   1,
		formantRatio: 1,
		plan:         plan,
		win:          win,
		omega:        make([]float64, half+1),
		inFifo:       make([]float64, frameSize),
		outFifo:      make([]float64, hop),
		outAccum:     make([]float64, 2*frameSize),
		rover:        frameSize - hop,
		lastPhase:    make([]float64, half+1),
		sumPhase:     make([]float64, half+1),
		anaMag:       make([]float64, half+1),
		anaFreq:      make([]float64, half+1),
		synMag:       make([]float64, half+1),
		synFreq:      make([]float64, half+1),
		envAna:       make([]float64, half+1),
		envSyn:       make([]float64, half+1),
		spectrum:     make([]complex128, frameSize),
		timeFrame:    make([]complex128, frameSize),
	}

	for k := range p.omega {
		p.omega[k] = 2 * math.Pi * float64(k) / float64(frameSize)
	}

	return p, nil
}

// NewPitchShifterDefault creates a pitch shifter with a 2048-sample frame.
func NewPitchShifterDefault(sampleRate float64) (*PitchShifter, error) {
	return NewPitchShifter(sampleRate, defaultFrameSize)
}

// SetPitchRatio sets the pitch ratio in [0.25, 4].
func (p *PitchShifter) SetPitchRatio(ratio float64) error {
	if ratio < minPitchRatio || ratio > maxPitchRatio || math.IsNaN(ratio) {
		return fmt.Errorf("pitch shifter ratio must be in [%g, %g]: %f", minPitchRatio, maxPitchRatio, ratio)
	}

	p.pitchRatio = ratio

	return nil
}

// SetPitchSemitones sets the pitch shift in semitones.
func (p *PitchShifter) SetPitchSemitones(semitones float64) error {
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return fmt.Errorf("pitch shifter semitones must be finite: %f", semitones)
	}

	return p.SetPitchRatio(math.Pow(2, semitones/12))
}

// SetFormantRatio sets the formant-envelope shift in [0.5, 2]; 1 leaves
// the envelope where the pitch shift moves it.
func (p *PitchShifter) SetFormantRatio(ratio float64) error {
	if ratio < minFormantRatio || ratio > maxFormantRatio || math.IsNaN(ratio) {
		return fmt.Errorf("pitch shifter formant ratio must be in [%g, %g]: %f",
			minFormantRatio, maxFormantRatio, ratio)
	}

	p.formantRatio = ratio

	return nil
}

// SetGateThreshold sets the relative spectral gate threshold in [0,1];
// bins below threshold times the frame peak are muted.
func (p *PitchShifter) SetGateThreshold(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("pitch shifter gate threshold must be in [0, 1]: %f", v)
	}

	p.gateThreshold = v

	return nil
}

// SetFeedback routes shifted output back into the input in [0, 0.9].
func (p *PitchShifter) SetFeedback(v float64) error {
	if v < 0 || v > 0.9 || math.IsNaN(v) {
		return fmt.Errorf("pitch shifter feedback must be in [0, 0.9]: %f", v)
	}

	p.feedback = v

	return nil
}

// FrameSize returns the STFT frame size.
func (p *PitchShifter) FrameSize() int { return p.frameSize }

// Latency returns the processing latency in samples (one frame).
func (p *PitchShifter) Latency() int { return p.frameSize }

// ProcessSample processes one input sample.
func (p *PitchShifter) ProcessSample(input float64) float64 {
	in := input
	if p.feedback > 0 {
		in += core.SoftClip(p.lastOut * p.feedback)
	}

	p.inFifo[p.rover] = in
	out := p.outFifo[p.rover-(p.frameSize-p.hop)]
	p.rover++

	if p.rover >= p.frameSize {
		p.rover = p.frameSize - p.hop
		p.processFrame()
	}

	p.lastOut = out

	return out
}

// ProcessBlock processes a block in place.
func (p *PitchShifter) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = p.ProcessSample(x)
	}
}

func (p *PitchShifter) processFrame() {
	n := p.frameSize
	half := n / 2
	hopF := float64(p.hop)

	for i := range n {
		p.spectrum[i] = complex(p.inFifo[i]*p.win[i], 0)
	}

	err := p.plan.Forward(p.spectrum, p.spectrum)
	if err != nil {
		return
	}

	// Analysis: magnitude and true frequency per bin.
	peak := 0.0

	for k := 0; k <= half; k++ {
		re := real(p.spectrum[k])
		im := imag(p.spectrum[k])

		mag := math.Hypot(re, im)
		phase := math.Atan2(im, re)

		delta := wrapPhase(phase - p.lastPhase[k] - p.omega[k]*hopF)
		p.lastPhase[k] = phase

		p.anaMag[k] = mag
		p.anaFreq[k] = p.omega[k] + delta/hopF

		if mag > peak {
			peak = mag
		}
	}

	// Spectral gate relative to the frame peak.
	if p.gateThreshold > 0 && peak > 0 {
		floor := p.gateThreshold * peak
		for k := 0; k <= half; k++ {
			if p.anaMag[k] < floor {
				p.anaMag[k] = 0
			}
		}
	}

	// Bin remapping by the pitch ratio.
	for k := 0; k <= half; k++ {
		p.synMag[k] = 0
		p.synFreq[k] = p.omega[k] * p.pitchRatio
	}

	for k := 0; k <= half; k++ {
		idx := int(float64(k)*p.pitchRatio + 0.5)
		if idx > half {
			break
		}

		p.synMag[idx] += p.anaMag[k]
		p.synFreq[idx] = p.anaFreq[k] * p.pitchRatio
	}

	if p.formantRatio != 1 {
		p.applyFormantCorrection(half)
	}

	// Phase accumulators advance for every bin, every frame, regardless
	// of magnitude.
	for k := 0; k <= half; k++ {
		p.sumPhase[k] = wrapPhase(p.sumPhase[k] + p.synFreq[k]*hopF)

		p.spectrum[k] = complex(
			p.synMag[k]*math.Cos(p.sumPhase[k]),
			p.synMag[k]*math.Sin(p.sumPhase[k]),
		)
	}

	// Hermitian symmetry for a real output frame.
	p.spectrum[0] = complex(real(p.spectrum[0]), 0)
	p.spectrum[half] = complex(real(p.spectrum[half]), 0)

	for k := 1; k < half; k++ {
		v := p.spectrum[k]
		p.spectrum[n-k] = complex(real(v), -imag(v))
	}

	err = p.plan.Inverse(p.timeFrame, p.spectrum)
	if err != nil {
		return
	}

	for i := range n {
		p.outAccum[i] += real(p.timeFrame[i]) * p.win[i]
	}

	for i := range p.hop {
		p.outFifo[i] = p.outAccum[i] / colaNorm
	}

	copy(p.outAccum, p.outAccum[p.hop:])

	tail := p.outAccum[len(p.outAccum)-p.hop:]
	for i := range tail {
		tail[i] = 0
	}

	copy(p.inFifo, p.inFifo[p.hop:])
}

// applyFormantCorrection rescales the shifted magnitudes so the spectral
// envelope lands at formantRatio instead of riding the pitch ratio.
func (p *PitchShifter) applyFormantCorrection(half int) {
	smoothEnvelope(p.anaMag, p.envAna, half)
	smoothEnvelope(p.synMag, p.envSyn, half)

	shift := p.formantRatio / p.pitchRatio

	for k := 0; k <= half; k++ {
		src := float64(k) / shift
		if src < 0 || src > float64(half) {
			continue
		}

		lo := int(src)
		frac := src - float64(lo)

		hi := lo + 1
		if hi > half {
			hi = half
		}

		want := p.envAna[lo]*(1-frac) + p.envAna[hi]*frac

		have := p.envSyn[k]
		if have < 1e-12 {
			continue
		}

		p.synMag[k] *= want / have
	}
}

// smoothEnvelope writes a coarse spectral envelope of mag into env via a
// moving average.
func smoothEnvelope(mag, env []float64, half int) {
	width := envelopeBins

	for k := 0; k <= half; k++ {
		lo := k - width
		if lo < 0 {
			lo = 0
		}

		hi := k + width
		if hi > half {
			hi = half
		}

		sum := 0.0
		for i := lo; i <= hi; i++ {
			sum += mag[i]
		}

		env[k] = sum / float64(hi-lo+1)
	}
}

// Reset clears all streaming and phase state.
func (p *PitchShifter) Reset() {
	for i := range p.inFifo {
		p.inFifo[i] = 0
	}

	for i := range p.outFifo {
		p.outFifo[i] = 0
	}

	for i := range p.outAccum {
		p.outAccum[i] = 0
	}

	for k := range p.lastPhase {
		p.lastPhase[k] = 0
		p.sumPhase[k] = 0
	}

	p.rover = p.frameSize - p.hop
	p.lastOut = 0
}
