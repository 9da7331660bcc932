package distortion

import (
	"fmt"
	"math"
)

const (
	minCrusherBits = 1
	maxCrusherBits = 24

	maxDownsample = 64
)

// BitCrusher applies a staircase quantizer and an integer sample-and-hold
// downsampler.
type BitCrusher struct {
	bits       int
	downsample int
	mix        float64

	levels float64

	held    float64
	counter int
}

// NewBitCrusher creates a bit crusher at full resolution (24 bits, no
// downsampling).
func NewBitCrusher() *BitCrusher {
	b := &BitCrusher{
		bits:       maxCrusherBits,
		downsample: 1,
		mix:        1,
	}

	b.updateLevels()

	return b
}

// SetBits sets the quantizer depth in [1, 24].
func (b *BitCrusher) SetBits(bits int) error {
	if bits < minCrusherBits || bits > maxCrusherBits {
		return fmt.Errorf("bit crusher bits must be in [%d, %d]: %d", minCrusherBits, maxCrusherBits, bits)
	}

	b.bits = bits
	b.updateLevels()

	return nil
}

// SetDownsample sets the sample-and-hold factor in [1, 64].
func (b *BitCrusher) SetDownsample(factor int) error {
	if factor < 1 || factor > maxDownsample {
		return fmt.Errorf("bit crusher downsample must be in [1, %d]: %d", maxDownsample, factor)
	}

	b.downsample = factor

	return nil
}

// SetMix sets the dry/wet mix in [0,1].
func (b *BitCrusher) SetMix(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("bit crusher mix must be in [0, 1]: %f", v)
	}

	b.mix = v

	return nil
}

func (b *BitCrusher) updateLevels() {
	b.levels = math.Exp2(float64(b.bits - 1))
}

// ProcessSample crushes one sample.
func (b *BitCrusher) ProcessSample(input float64) float64 {
	if b.counter == 0 {
		b.held = math.Round(input*b.levels) / b.levels
	}

	b.counter++
	if b.counter >= b.downsample {
		b.counter = 0
	}

	return input*(1-b.mix) + b.held*b.mix
}

// ProcessBlock crushes a block in place.
func (b *BitCrusher) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = b.ProcessSample(x)
	}
}

// Reset clears the hold state.
func (b *BitCrusher) Reset() {
	b.held = 0
	b.counter = 0
}
