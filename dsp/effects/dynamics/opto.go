package dynamics

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/envelope"
)

// OptoCompressor models an optical compressor: the release time depends on
// how deep and how long the element has been lit. Short transients recover
// quickly; sustained reduction charges the optical memory and slows the
// release, the way a photocell's resistance creeps back.
type OptoCompressor struct {
	sampleRate float64

	computer *gainComputer
	detector *envelope.Follower

	// Optical memory: slow integral of gain reduction in dB.
	memory          float64
	memoryCharge    float64
	memoryDischarge float64

	baseReleaseMs float64

	gainState   float64
	attackCoeff float64

	makeupLinear float64
}

// NewOptoCompressor creates an opto compressor (-16 dB threshold, 3:1,
// wide 12 dB knee, as the optical topology tends toward).
func NewOptoCompressor(sampleRate float64) (*OptoCompressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("opto compressor sample rate must be > 0: %f", sampleRate)
	}

	computer, err := newGainComputer(-16, 3, 12)
	if err != nil {
		return nil, err
	}

	detector, err := envelope.NewFollower(sampleRate, envelope.ModePeak)
	if err != nil {
		return nil, err
	}

	_ = detector.SetAttack(2)
	_ = detector.SetRelease(30)

	o := &OptoCompressor{
		sampleRate:      sampleRate,
		computer:        computer,
		detector:        detector,
		baseReleaseMs:   80,
		gainState:       1,
		makeupLinear:    1,
		memoryCharge:    1 - math.Exp(-1/(0.05*sampleRate)),
		memoryDischarge: math.Exp(-1 / (2.0 * sampleRate)),
	}

	o.attackCoeff = 1 - math.Exp(-1/(0.010*sampleRate))

	return o, nil
}

// SetThreshold sets the threshold in dBFS.
func (o *OptoCompressor) SetThreshold(dB float64) error {
	err := o.computer.setThreshold(dB)
	if err != nil {
		return fmt.Errorf("opto compressor %w", err)
	}

	return nil
}

// SetRatio sets the compression ratio.
func (o *OptoCompressor) SetRatio(ratio float64) error {
	err := o.computer.setRatio(ratio)
	if err != nil {
		return fmt.Errorf("opto compressor %w", err)
	}

	return nil
}

// SetRelease sets the base release in ms; the effective release stretches
// with the optical memory.
func (o *OptoCompressor) SetRelease(ms float64) error {
	err := validateRelease(ms)
	if err != nil {
		return fmt.Errorf("opto compressor %w", err)
	}

	o.baseReleaseMs = ms

	return nil
}

// SetMakeup sets makeup gain in dB.
func (o *OptoCompressor) SetMakeup(dB float64) error {
	if dB < -24 || dB > 24 || math.IsNaN(dB) {
		return fmt.Errorf("opto compressor makeup must be in [-24, 24] dB: %f", dB)
	}

	o.makeupLinear = math.Pow(10, dB/20)

	return nil
}

// ProcessSample compresses one sample.
func (o *OptoCompressor) ProcessSample(input float64) float64 {
	level := o.detector.Tick(input)
	target := o.computer.gainForLevel(level)

	reductionDB := 0.0
	if target < 1 {
		reductionDB = -20 * math.Log10(target)
	}

	// Charge the optical memory with the current reduction; let it bleed
	// off over seconds.
	if reductionDB > o.memory {
		o.memory += (reductionDB - o.memory) * o.memoryCharge
	} else {
		o.memory *= o.memoryDischarge
	}

	// Release stretches up to 8x under a fully charged memory.
	stretch := 1 + o.memory*0.35
	if stretch > 8 {
		stretch = 8
	}

	releaseCoeff := 1 - math.Exp(-1/(o.baseReleaseMs*0.001*stretch*o.sampleRate))

	if target < o.gainState {
		o.gainState += (target - o.gainState) * o.attackCoeff
	} else {
		o.gainState += (target - o.gainState) * releaseCoeff
	}

	o.gainState = core.FlushDenormal(o.gainState)

	return input * o.gainState * o.makeupLinear
}

// ProcessBlock compresses a block in place.
func (o *OptoCompressor) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = o.ProcessSample(x)
	}
}

// Reset clears detector, memory, and gain state.
func (o *OptoCompressor) Reset() {
	o.detector.Reset()
	o.memory = 0
	o.gainState = 1
}
