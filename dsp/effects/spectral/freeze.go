package spectral

import (
	"fmt"
	"math"
	"math/rand"
)

const freezeSeed = 0x46525a45

// Freeze captures the magnitude spectrum of a single frame and sustains it
// indefinitely, advancing each bin's phase by a randomized increment per
// frame so the held sound shimmers instead of buzzing. Blend mixes the
// frozen spectrum with the live signal.
type Freeze struct {
	sampleRate float64
	frameSize  int

	core *stft

	frozen  bool
	capture bool
	blend   float64

	heldMag   []float64
	heldPhase []float64
	phaseInc  []float64

	rng *rand.Rand
}

// NewFreeze creates a spectral freeze with the given STFT frame size.
func NewFreeze(sampleRate float64, frameSize int) (*Freeze, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spectral freeze sample rate must be > 0: %f", sampleRate)
	}

	core, err := newSTFT(frameSize)
	if err != nil {
		return nil, err
	}

	half := frameSize/2 + 1

	return &Freeze{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		core:       core,
		blend:      1,
		heldMag:    make([]float64, half),
		heldPhase:  make([]float64, half),
		phaseInc:   make([]float64, half),
		rng:        rand.New(rand.NewSource(freezeSeed)),
	}, nil
}

// SetFrozen engages or releases the freeze. Engaging captures the next
// analysis frame.
func (f *Freeze) SetFrozen(frozen bool) {
	if frozen && !f.frozen {
		f.capture = true
	}

	f.frozen = frozen
}

// Frozen reports whether the freeze is engaged.
func (f *Freeze) Frozen() bool { return f.frozen }

// SetBlend sets the frozen/live mix in [0,1]; 1 is fully frozen.
func (f *Freeze) SetBlend(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("spectral freeze blend must be in [0, 1]: %f", v)
	}

	f.blend = v

	return nil
}

// Latency returns the STFT pipeline latency in samples.
func (f *Freeze) Latency() int { return f.core.latency() }

func (f *Freeze) processSpectrum(spectrum []complex128) {
	if !f.frozen {
		return
	}

	half := len(spectrum) - 1
	hopF := float64(f.core.hop)

	if f.capture {
		f.capture = false

		for k := 0; k <= half; k++ {
			f.heldMag[k] = math.Hypot(real(spectrum[k]), imag(spectrum[k]))
			f.heldPhase[k] = math.Atan2(imag(spectrum[k]), real(spectrum[k]))

			// Nominal bin advance plus a small random detune per bin.
			omega := 2 * math.Pi * float64(k) / float64(f.frameSize)
			jitter := (f.rng.Float64()*2 - 1) * 0.002
			f.phaseInc[k] = (omega + jitter) * hopF
		}
	}

	for k := 0; k <= half; k++ {
		f.heldPhase[k] = wrapPhase(f.heldPhase[k] + f.phaseInc[k])

		held := complex(
			f.heldMag[k]*math.Cos(f.heldPhase[k]),
			f.heldMag[k]*math.Sin(f.heldPhase[k]),
		)

		spectrum[k] = spectrum[k]*complex(1-f.blend, 0) + held*complex(f.blend, 0)
	}
}

// ProcessSample processes one input sample.
func (f *Freeze) ProcessSample(input float64) float64 {
	return f.core.tick(input, f.processSpectrum)
}

// ProcessBlock processes a block in place.
func (f *Freeze) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(x)
	}
}

// Reset clears streaming state and releases any held frame.
func (f *Freeze) Reset() {
	f.core.reset()
	f.capture = f.frozen

	for k := range f.heldMag {
		f.heldMag[k] = 0
		f.heldPhase[k] = 0
		f.phaseInc[k] = 0
	}

	f.rng = rand.New(rand.NewSource(freezeSeed))
}
