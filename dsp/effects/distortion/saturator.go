// Package distortion implements the nonlinear engines: tube and tape
// saturation with automatic oversampling, a four-band multiband saturator,
// and a bit crusher.
package distortion

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/biquad"
	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/dcblock"
	"github.com/chimeraaudio/phoenix-dsp/dsp/oversample"
)

// Model selects the saturation circuit.
type Model int

// Saturation models.
const (
	ModelTube Model = iota
	ModelTape
)

func (m Model) valid() bool { return m == ModelTube || m == ModelTape }

const (
	// Above this drive the waveshaper generates enough harmonics that the
	// 4x oversampled path takes over.
	autoOversampleDrive = 0.4
)

// Saturator is a mono waveshaping saturator. The tube model is an
// asymmetric tanh stage with an even-harmonic bias; the tape model adds a
// hysteresis memory and presence emphasis around the shaper. High drive
// settings automatically route through a 4x oversampler to keep alias
// products below the noise floor.
type Saturator struct {
	sampleRate float64

	model  Model
	drive  float64
	bias   float64
	mix    float64
	outLin float64

	os *oversample.Oversampler
	dc *dcblock.Blocker

	emphasis   *biquad.Section
	deEmphasis *biquad.Section

	hystState float64

	dryBuf []float64
}

// NewSaturator creates a saturator for blocks up to maxBlockSize samples.
func NewSaturator(sampleRate float64, maxBlockSize int, model Model) (*Saturator, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("saturator sample rate must be > 0: %f", sampleRate)
	}

	if maxBlockSize < 1 {
		return nil, fmt.Errorf("saturator max block size must be >= 1: %d", maxBlockSize)
	}

	if !model.valid() {
		return nil, fmt.Errorf("saturator model must be tube or tape: %d", model)
	}

	os, err := oversample.New(oversample.Factor4, sampleRate, maxBlockSize)
	if err != nil {
		return nil, err
	}

	s := &Saturator{
		sampleRate: sampleRate,
		model:      model,
		drive:      0.3,
		bias:       0.1,
		mix:        1,
		outLin:     1,
		os:         os,
		dc:         dcblock.New(),
		dryBuf:     make([]float64, maxBlockSize),
	}

	// Tape presence emphasis at 3 kHz, undone after the shaper. The
	// filters run at the base rate, outside the oversampled section.
	emph, err := biquad.Peaking(3000, 0.9, 6, sampleRate)
	if err != nil {
		return nil, err
	}

	deEmph, err := biquad.Peaking(3000, 0.9, -6, sampleRate)
	if err != nil {
		return nil, err
	}

	s.emphasis = biquad.NewSection(emph)
	s.deEmphasis = biquad.NewSection(deEmph)

	return s, nil
}

// SetModel selects tube or tape saturation.
func (s *Saturator) SetModel(model Model) error {
	if !model.valid() {
		return fmt.Errorf("saturator model must be tube or tape: %d", model)
	}

	s.model = model

	return nil
}

// SetDrive sets the drive in [0,1].
func (s *Saturator) SetDrive(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("saturator drive must be in [0, 1]: %f", v)
	}

	s.drive = v

	return nil
}

// SetBias sets the even-harmonic bias in [0, 0.5] (tube model).
func (s *Saturator) SetBias(v float64) error {
	if v < 0 || v > 0.5 || math.IsNaN(v) {
		return fmt.Errorf("saturator bias must be in [0, 0.5]: %f", v)
	}

	s.bias = v

	return nil
}

// SetMix sets the dry/wet mix in [0,1].
func (s *Saturator) SetMix(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("saturator mix must be in [0, 1]: %f", v)
	}

	s.mix = v

	return nil
}

// SetOutput sets output trim in dB, in [-24, 24].
func (s *Saturator) SetOutput(dB float64) error {
	if dB < -24 || dB > 24 || math.IsNaN(dB) {
		return fmt.Errorf("saturator output must be in [-24, 24] dB: %f", dB)
	}

	s.outLin = math.Pow(10, dB/20)

	return nil
}

// Latency returns the oversampler latency when the hot path is engaged.
func (s *Saturator) Latency() int {
	return s.os.LatencySamples()
}

func (s *Saturator) gain() float64 {
	return 1 + 9*s.drive
}

func (s *Saturator) shapeTube(x float64) float64 {
	g := s.gain()

	// Asymmetric transfer: the bias offsets the operating point, so even
	// harmonics appear; the static offset is subtracted.
	y := math.Tanh((x + s.bias) * g)
	y -= math.Tanh(s.bias * g)

	return y / math.Tanh(g)
}

func (s *Saturator) shapeTape(x float64) float64 {
	g := s.gain()

	// One-sample hysteresis memory pulls the transfer curve apart on the
	// up and down strokes.
	w := x - 0.25*s.hystState
	y := math.Tanh(w*g) / math.Tanh(g)
	s.hystState = y

	return y
}

func (s *Saturator) shapeBlock(buf []float64) {
	switch s.model {
	case ModelTape:
		for i, x := range buf {
			buf[i] = s.shapeTape(x)
		}
	default:
		for i, x := range buf {
			buf[i] = s.shapeTube(x)
		}
	}
}

// ProcessBlock saturates a block in place.
func (s *Saturator) ProcessBlock(buf []float64) error {
	n := len(buf)
	if n == 0 {
		return nil
	}

	if n > len(s.dryBuf) {
		return fmt.Errorf("saturator block of %d exceeds prepared maximum %d", n, len(s.dryBuf))
	}

	dry := s.dryBuf[:n]
	copy(dry, buf)

	if s.model == ModelTape {
		s.emphasis.ProcessBlock(buf)
	}

	if s.drive > autoOversampleDrive {
		err := s.os.ProcessBlock(buf, s.shapeBlock)
		if err != nil {
			return err
		}
	} else {
		s.shapeBlock(buf)
	}

	if s.model == ModelTape {
		s.deEmphasis.ProcessBlock(buf)
	}

	s.dc.ProcessBlock(buf)

	for i := range n {
		buf[i] = (dry[i]*(1-s.mix) + buf[i]*s.mix) * s.outLin
	}

	return nil
}

// Reset clears shaper, filter, and oversampler state.
func (s *Saturator) Reset() {
	s.os.Reset()
	s.dc.Reset()
	s.emphasis.Reset()
	s.deEmphasis.Reset()
	s.hystState = 0
}
