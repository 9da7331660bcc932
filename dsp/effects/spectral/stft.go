package spectral

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/chimeraaudio/phoenix-dsp/dsp/window"
)

// stft is the shared streaming short-time-Fourier-transform core: a Hann
// analysis/synthesis pipeline with quarter-frame hops. Effects mutate the
// spectrum in a callback; the core handles framing, Hermitian symmetry,
// and normalized overlap-add.
type stft struct {
	frameSize int
	hop       int

	plan *algofft.Plan[complex128]
	win  []float64

	inFifo   []float64
	outFifo  []float64
	outAccum []float64
	rover    int

	spectrum  []complex128
	timeFrame []complex128
}

func newSTFT(frameSize int) (*stft, error) {
	if frameSize < MinFrameSize || frameSize > MaxFrameSize || !isPowerOfTwo(frameSize) {
		return nil, fmt.Errorf("stft frame size must be a power of two in [%d, %d]: %d",
			MinFrameSize, MaxFrameSize, frameSize)
	}

	plan, err := algofft.NewPlan64(frameSize)
	if err != nil {
		return nil, fmt.Errorf("stft FFT plan: %w", err)
	}

	hop := frameSize / 4

	return &stft{
		frameSize: frameSize,
		hop:       hop,
		plan:      plan,
		win:       window.Generate(window.TypeHann, frameSize, window.WithPeriodic()),
		inFifo:    make([]float64, frameSize),
		outFifo:   make([]float64, hop),
		outAccum:  make([]float64, 2*frameSize),
		rover:     frameSize - hop,
		spectrum:  make([]complex128, frameSize),
		timeFrame: make([]complex128, frameSize),
	}, nil
}

// latency of the framing pipeline in samples: a sample entering an
// analysis frame emerges one full frame later through the hop-deferred
// output FIFO.
func (s *stft) latency() int { return s.frameSize }

// tick pushes one sample through the pipeline. process is invoked once per
// hop with the half-spectrum [0, frameSize/2]; the upper half is mirrored
// afterwards.
func (s *stft) tick(x float64, process func(spectrum []complex128)) float64 {
	s.inFifo[s.rover] = x
	out := s.outFifo[s.rover-(s.frameSize-s.hop)]
	s.rover++

	if s.rover >= s.frameSize {
		s.rover = s.frameSize - s.hop
		s.processFrame(process)
	}

	return out
}

func (s *stft) processFrame(process func(spectrum []complex128)) {
	n := s.frameSize
	half := n / 2

	for i := range n {
		s.spectrum[i] = complex(s.inFifo[i]*s.win[i], 0)
	}

	err := s.plan.Forward(s.spectrum, s.spectrum)
	if err != nil {
		return
	}

	if process != nil {
		process(s.spectrum[:half+1])
	}

	s.spectrum[0] = complex(real(s.spectrum[0]), 0)
	s.spectrum[half] = complex(real(s.spectrum[half]), 0)

	for k := 1; k < half; k++ {
		v := s.spectrum[k]
		s.spectrum[n-k] = complex(real(v), -imag(v))
	}

	err = s.plan.Inverse(s.timeFrame, s.spectrum)
	if err != nil {
		return
	}

	for i := range n {
		s.outAccum[i] += real(s.timeFrame[i]) * s.win[i]
	}

	for i := range s.hop {
		s.outFifo[i] = s.outAccum[i] / colaNorm
	}

	copy(s.outAccum, s.outAccum[s.hop:])

	tail := s.outAccum[len(s.outAccum)-s.hop:]
	for i := range tail {
		tail[i] = 0
	}

	copy(s.inFifo, s.inFifo[s.hop:])
}

func (s *stft) reset() {
	for i := range s.inFifo {
		s.inFifo[i] = 0
	}

	for i := range s.outFifo {
		s.outFifo[i] = 0
	}

	for i := range s.outAccum {
		s.outAccum[i] = 0
	}

	s.rover = s.frameSize - s.hop
}

// binMagnitude returns a magnitude normalized so a full-scale sine reads
// near 1 regardless of frame size.
func binMagnitude(v complex128, frameSize int) float64 {
	return math.Hypot(real(v), imag(v)) / (float64(frameSize) / 4)
}
