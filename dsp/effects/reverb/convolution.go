package reverb

import (
	"fmt"
	"math"
	"math/rand"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/chimeraaudio/phoenix-dsp/dsp/conv"
)

// Character selects the synthesized impulse-response family.
type Character int

// Impulse-response characters.
const (
	CharacterHall Character = iota
	CharacterPlate
	CharacterStairwell
	CharacterChamber
)

func (c Character) valid() bool {
	return c >= CharacterHall && c <= CharacterChamber
}

// String returns the character name.
func (c Character) String() string {
	switch c {
	case CharacterHall:
		return "hall"
	case CharacterPlate:
		return "plate"
	case CharacterStairwell:
		return "stairwell"
	case CharacterChamber:
		return "chamber"
	default:
		return "unknown"
	}
}

type characterProfile struct {
	tailSeconds float64
	earlyTaps   int
	earlySpread float64
	onset       float64
	seed        int64
}

var characterProfiles = map[Character]characterProfile{
	CharacterHall:      {tailSeconds: 4.0, earlyTaps: 12, earlySpread: 0.08, onset: 0.015, seed: 0x48414c4c},
	CharacterPlate:     {tailSeconds: 2.5, earlyTaps: 24, earlySpread: 0.04, onset: 0.002, seed: 0x504c4154},
	CharacterStairwell: {tailSeconds: 2.0, earlyTaps: 8, earlySpread: 0.09, onset: 0.010, seed: 0x53545257},
	CharacterChamber:   {tailSeconds: 3.2, earlyTaps: 16, earlySpread: 0.06, onset: 0.008, seed: 0x4348414d},
}

const (
	// Peak below this marks the synthesized IR as effectively silent; the
	// fallback impulse keeps the engine audible instead of muting the send.
	silentIRPeak = 1e-4

	minTailSeconds = 2.0
	maxTailSeconds = 5.0
)

// Convolution is a mono convolution reverb over a synthesized impulse
// response. Structural parameter changes (character, size, brightness,
// reverse) are deferred: they mark the IR dirty, and the rebuild happens at
// the next block boundary so a half-applied response is never heard.
type Convolution struct {
	sampleRate float64
	blockSize  int

	character  Character
	size       float64
	brightness float64
	reverse    bool

	wet float64
	dry float64

	engine  *conv.Partitioned
	wetBuf  []float64
	latency int

	irDirty         bool
	reloading       bool
	deferredReloads int
}

// NewConvolution creates a convolution reverb; blockSize sets the partition
// size and therefore the latency.
func NewConvolution(sampleRate float64, blockSize int) (*Convolution, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("convolution reverb sample rate must be > 0: %f", sampleRate)
	}

	if blockSize < 1 {
		return nil, fmt.Errorf("convolution reverb block size must be >= 1: %d", blockSize)
	}

	c := &Convolution{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		character:  CharacterHall,
		size:       0.5,
		brightness: 0.7,
		wet:        0.3,
		dry:        1,
		wetBuf:     make([]float64, blockSize),
	}

	err := c.rebuild()
	if err != nil {
		return nil, err
	}

	return c, nil
}

// SetCharacter selects the impulse-response family; takes effect at the
// next block boundary.
func (c *Convolution) SetCharacter(ch Character) error {
	if !ch.valid() {
		return fmt.Errorf("convolution reverb character must be hall, plate, stairwell, or chamber: %d", ch)
	}

	if ch != c.character {
		c.character = ch
		c.markDirty()
	}

	return nil
}

// SetSize scales the response length in [0,1]; smaller sizes truncate the
// tail with a quadratic fade.
func (c *Convolution) SetSize(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("convolution reverb size must be in [0, 1]: %f", v)
	}

	if v != c.size {
		c.size = v
		c.markDirty()
	}

	return nil
}

// SetBrightness sets the one-pole tone filter applied to the IR, in [0,1].
func (c *Convolution) SetBrightness(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("convolution reverb brightness must be in [0, 1]: %f", v)
	}

	if v != c.brightness {
		c.brightness = v
		c.markDirty()
	}

	return nil
}

// SetReverse enables reversed-envelope playback of the response.
func (c *Convolution) SetReverse(reverse bool) {
	if reverse != c.reverse {
		c.reverse = reverse
		c.markDirty()
	}
}

// SetWet sets the wet gain.
func (c *Convolution) SetWet(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("convolution reverb wet must be >= 0: %f", v)
	}

	c.wet = v

	return nil
}

// SetDry sets the dry gain.
func (c *Convolution) SetDry(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("convolution reverb dry must be >= 0: %f", v)
	}

	c.dry = v

	return nil
}

// Latency returns the convolver latency in samples.
func (c *Convolution) Latency() int { return c.latency }

// DeferredReloads returns how many parameter changes arrived while a
// rebuild was already in flight.
func (c *Convolution) DeferredReloads() int { return c.deferredReloads }

// PendingReload reports whether a rebuild is queued for the next block.
func (c *Convolution) PendingReload() bool { return c.irDirty }

func (c *Convolution) markDirty() {
	if c.reloading {
		c.deferredReloads++
	}

	c.irDirty = true
}

func (c *Convolution) rebuild() error {
	c.reloading = true
	defer func() { c.reloading = false }()

	ir := c.synthesizeIR()

	engine, err := conv.NewPartitioned(ir, c.blockSize)
	if err != nil {
		return fmt.Errorf("convolution reverb engine: %w", err)
	}

	c.engine = engine
	c.latency = engine.Latency()
	c.irDirty = false

	return nil
}

// synthesizeIR builds the impulse response for the current character,
// size, brightness, and reverse settings.
func (c *Convolution) synthesizeIR() []float64 {
	profile := characterProfiles[c.character]
	rng := rand.New(rand.NewSource(profile.seed))

	tailSeconds := profile.tailSeconds
	if tailSeconds < minTailSeconds {
		tailSeconds = minTailSeconds
	}

	if tailSeconds > maxTailSeconds {
		tailSeconds = maxTailSeconds
	}

	fullLen := int(tailSeconds * c.sampleRate)
	ir := make([]float64, fullLen)

	// Sparse Gaussian early reflections inside the first 100 ms.
	earlyWindow := 0.1 * c.sampleRate

	for tap := range profile.earlyTaps {
		pos := profile.onset*c.sampleRate + math.Abs(rng.NormFloat64())*profile.earlySpread*c.sampleRate
		if pos >= earlyWindow {
			pos = earlyWindow - 1
		}

		idx := int(pos)
		if idx >= fullLen {
			continue
		}

		amp := rng.NormFloat64() * 0.5 * math.Pow(0.85, float64(tap))
		ir[idx] += amp
	}

	// Exponential noise tail decaying 60 dB over the tail length.
	decayRate := math.Log(1000) / (tailSeconds * c.sampleRate)
	tailStart := int(profile.onset * c.sampleRate)

	for i := tailStart; i < fullLen; i++ {
		env := math.Exp(-decayRate * float64(i-tailStart))
		ir[i] += rng.NormFloat64() * 0.25 * env
	}

	// Brightness: one-pole lowpass across the response.
	cutoff := 1000 * math.Pow(18, c.brightness)
	coeff := math.Exp(-2 * math.Pi * cutoff / c.sampleRate)

	state := 0.0
	for i, x := range ir {
		state = x*(1-coeff) + state*coeff
		ir[i] = state
	}

	// Size truncation with a quadratic fade-out.
	keep := int(float64(fullLen) * (0.25 + 0.75*c.size))
	if keep < c.blockSize {
		keep = c.blockSize
	}

	if keep > fullLen {
		keep = fullLen
	}

	ir = ir[:keep]

	fade := min(512, keep/4)
	for i := range fade {
		t := float64(fade-i) / float64(fade)
		ir[keep-1-i] *= 1 - t*t
	}

	if c.reverse {
		for i, j := 0, len(ir)-1; i < j; i, j = i+1, j-1 {
			ir[i], ir[j] = ir[j], ir[i]
		}
	}

	// Normalize to unit energy so wet level is comparable across settings.
	energy := vecmath.DotProduct(ir, ir)
	if energy > 0 {
		vecmath.ScaleBlockInPlace(ir, 1/math.Sqrt(energy))
	}

	if vecmath.MaxAbs(ir) < silentIRPeak {
		ir = fallbackIR(c.sampleRate)
	}

	return ir
}

// fallbackIR is a plain exponentially decaying impulse used when the
// synthesized response collapses to silence.
func fallbackIR(sampleRate float64) []float64 {
	n := int(0.5 * sampleRate)
	ir := make([]float64, n)

	decayRate := math.Log(1000) / float64(n)
	for i := range ir {
		ir[i] = math.Exp(-decayRate * float64(i))
	}

	ir[0] = 1

	return ir
}

// ProcessBlock processes a block in place. A pending IR rebuild is applied
// first, at the block boundary.
func (c *Convolution) ProcessBlock(buf []float64) error {
	if c.irDirty {
		err := c.rebuild()
		if err != nil {
			return err
		}
	}

	n := len(buf)
	if n == 0 {
		return nil
	}

	if n > len(c.wetBuf) {
		return fmt.Errorf("convolution reverb block of %d exceeds prepared maximum %d", n, len(c.wetBuf))
	}

	wet := c.wetBuf[:n]

	err := c.engine.ProcessBlock(buf, wet)
	if err != nil {
		return err
	}

	for i := range n {
		buf[i] = buf[i]*c.dry + wet[i]*c.wet
	}

	return nil
}

// Reset clears the convolver state, keeping the current response.
func (c *Convolution) Reset() {
	c.engine.Reset()
}
