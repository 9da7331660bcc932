package spectral

import (
	"fmt"
	"math"
)

// Gate is a spectral noise gate with per-bin hysteresis. Each bin opens
// when its magnitude crosses the open threshold, closes only after
// dropping below the lower close threshold, and ramps between states over
// attack/release frame counts, so bins near the threshold never chatter.
// Phase is never modified.
type Gate struct {
	sampleRate float64
	frameSize  int

	core *stft

	threshold float64
	attackMs  float64
	releaseMs float64
	centerHz  float64
	bandwidth float64
	invert    bool
	adaptive  bool

	attackStep  float64
	releaseStep float64

	binGain []float64
	binOpen []bool
}

// NewGate creates a spectral gate with the given STFT frame size.
func NewGate(sampleRate float64, frameSize int) (*Gate, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spectral gate sample rate must be > 0: %f", sampleRate)
	}

	core, err := newSTFT(frameSize)
	if err != nil {
		return nil, err
	}

	g := &Gate{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		core:       core,
		threshold:  0.1,
		attackMs:   5,
		releaseMs:  50,
		centerHz:   sampleRate / 4,
		bandwidth:  sampleRate / 2,
		binGain:    make([]float64, frameSize/2+1),
		binOpen:    make([]bool, frameSize/2+1),
	}

	g.updateRamps()

	return g, nil
}

// SetThreshold sets the gate threshold in [0,1] as normalized magnitude.
func (g *Gate) SetThreshold(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("spectral gate threshold must be in [0, 1]: %f", v)
	}

	g.threshold = v

	return nil
}

// SetAttack sets the per-bin opening time in ms.
func (g *Gate) SetAttack(ms float64) error {
	if ms < 0 || ms > 500 || math.IsNaN(ms) {
		return fmt.Errorf("spectral gate attack must be in [0, 500] ms: %f", ms)
	}

	g.attackMs = ms
	g.updateRamps()

	return nil
}

// SetRelease sets the per-bin closing time in ms.
func (g *Gate) SetRelease(ms float64) error {
	if ms < 0 || ms > 2000 || math.IsNaN(ms) {
		return fmt.Errorf("spectral gate release must be in [0, 2000] ms: %f", ms)
	}

	g.releaseMs = ms
	g.updateRamps()

	return nil
}

// SetCenter sets the center of the affected band in Hz.
func (g *Gate) SetCenter(hz float64) error {
	if hz < 0 || hz > g.sampleRate/2 || math.IsNaN(hz) {
		return fmt.Errorf("spectral gate center must be in [0, %g]: %f", g.sampleRate/2, hz)
	}

	g.centerHz = hz

	return nil
}

// SetBandwidth sets the width of the affected band in Hz; bins outside the
// band pass through untouched.
func (g *Gate) SetBandwidth(hz float64) error {
	if hz < 0 || hz > g.sampleRate || math.IsNaN(hz) {
		return fmt.Errorf("spectral gate bandwidth must be in [0, %g]: %f", g.sampleRate, hz)
	}

	g.bandwidth = hz

	return nil
}

// SetInvert keeps the below-threshold residue instead of the signal.
func (g *Gate) SetInvert(invert bool) { g.invert = invert }

// SetAdaptive references the threshold to the frame's mean magnitude
// instead of full scale.
func (g *Gate) SetAdaptive(adaptive bool) { g.adaptive = adaptive }

// Latency returns the STFT pipeline latency in samples.
func (g *Gate) Latency() int { return g.core.latency() }

func (g *Gate) updateRamps() {
	frameMs := float64(g.core.hop) / g.sampleRate * 1000

	g.attackStep = 1
	if g.attackMs > 0 {
		g.attackStep = math.Min(1, frameMs/g.attackMs)
	}

	g.releaseStep = 1
	if g.releaseMs > 0 {
		g.releaseStep = math.Min(1, frameMs/g.releaseMs)
	}
}

func (g *Gate) processSpectrum(spectrum []complex128) {
	half := len(spectrum) - 1
	binHz := g.sampleRate / float64(g.frameSize)

	loHz := g.centerHz - g.bandwidth/2
	hiHz := g.centerHz + g.bandwidth/2

	open := g.threshold
	if g.adaptive {
		mean := 0.0
		for k := 0; k <= half; k++ {
			mean += binMagnitude(spectrum[k], g.frameSize)
		}

		mean /= float64(half + 1)
		open = g.threshold * mean * 8
	}

	// Hysteresis: close only after falling 6 dB under the open level.
	closeThresh := open * 0.5

	for k := 0; k <= half; k++ {
		hz := float64(k) * binHz
		if hz < loHz || hz > hiHz {
			continue
		}

		mag := binMagnitude(spectrum[k], g.frameSize)

		if g.binOpen[k] {
			if mag < closeThresh {
				g.binOpen[k] = false
			}
		} else if mag >= open {
			g.binOpen[k] = true
		}

		if g.binOpen[k] {
			g.binGain[k] += g.attackStep
			if g.binGain[k] > 1 {
				g.binGain[k] = 1
			}
		} else {
			g.binGain[k] -= g.releaseStep
			if g.binGain[k] < 0 {
				g.binGain[k] = 0
			}
		}

		gain := g.binGain[k]
		if g.invert {
			gain = 1 - gain
		}

		spectrum[k] *= complex(gain, 0)
	}
}

// ProcessSample processes one input sample.
func (g *Gate) ProcessSample(input float64) float64 {
	return g.core.tick(input, g.processSpectrum)
}

// ProcessBlock processes a block in place.
func (g *Gate) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = g.ProcessSample(x)
	}
}

// Reset clears streaming and per-bin gate state.
func (g *Gate) Reset() {
	g.core.reset()

	for k := range g.binGain {
		g.binGain[k] = 0
		g.binOpen[k] = false
	}
}
