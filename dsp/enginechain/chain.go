package enginechain

import (
	"fmt"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
	"github.com/chimeraaudio/phoenix-dsp/dsp/smooth"
)

// NumSlots is the fixed number of serial chain slots.
const NumSlots = 6

// mixSmoothMs keeps slot dry/wet moves click-free without audible lag.
const mixSmoothMs = 15.0

type chainSlot struct {
	eng    *Engine
	bypass bool

	mixTarget float64
	mix       *smooth.Smoother
}

// Chain runs up to six engines in series. Every occupied, unbypassed slot
// processes the block in place and is crossfaded against the slot's dry
// input by its smoothed mix; the chain output passes through a scrubber
// so downstream code always sees finite samples.
type Chain struct {
	spec     engine.ProcessSpec
	prepared bool

	slots [NumSlots]chainSlot

	dry [][]float64

	scrubber *engine.Scrubber
	diag     *engine.Diagnostics
}

// NewChain creates an empty chain.
func NewChain() *Chain {
	c := &Chain{
		scrubber: engine.NewScrubber(0),
		diag:     &engine.Diagnostics{},
	}

	for i := range c.slots {
		c.slots[i].mixTarget = 1
	}

	return c
}

// Prepare validates the spec, prepares every occupied slot, and allocates
// the dry buffers. It may be called again on format changes.
func (c *Chain) Prepare(spec engine.ProcessSpec) error {
	err := spec.Validate()
	if err != nil {
		return err
	}

	for i := range c.slots {
		s := &c.slots[i]

		if s.eng != nil {
			err = s.eng.Prepare(spec)
			if err != nil {
				return fmt.Errorf("enginechain: slot %d: %w", i, err)
			}
		}

		s.mix = smooth.NewSmoother(mixSmoothMs, spec.SampleRate)
		s.mix.Snap(s.mixTarget)
	}

	c.dry = make([][]float64, spec.NumChannels)
	for ch := range c.dry {
		c.dry[ch] = make([]float64, spec.MaxBlockSize)
	}

	c.spec = spec
	c.prepared = true

	return nil
}

// SetEngine installs an engine of the given kind in a slot; KindNone
// empties the slot. If the chain is prepared the new engine is prepared
// immediately, so this must run from the control thread while the slot's
// output is not depended on.
func (c *Chain) SetEngine(slot int, kind Kind) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("enginechain: slot must be in [0, %d): %d", NumSlots, slot)
	}

	if kind == KindNone {
		c.slots[slot].eng = nil
		return nil
	}

	eng, err := NewEngine(kind)
	if err != nil {
		return err
	}

	if c.prepared {
		err = eng.Prepare(c.spec)
		if err != nil {
			return fmt.Errorf("enginechain: slot %d: %w", slot, err)
		}
	}

	c.slots[slot].eng = eng

	return nil
}

// EngineAt returns the engine in a slot, or nil when the slot is empty or
// out of range.
func (c *Chain) EngineAt(slot int) *Engine {
	if slot < 0 || slot >= NumSlots {
		return nil
	}

	return c.slots[slot].eng
}

// SetBypass toggles a slot's bypass.
func (c *Chain) SetBypass(slot int, bypass bool) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("enginechain: slot must be in [0, %d): %d", NumSlots, slot)
	}

	c.slots[slot].bypass = bypass

	return nil
}

// SetMix sets a slot's dry/wet mix target in [0, 1]; the move is smoothed
// over the next blocks.
func (c *Chain) SetMix(slot int, mix float64) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("enginechain: slot must be in [0, %d): %d", NumSlots, slot)
	}

	if mix < 0 || mix > 1 || !core.IsFinite(mix) {
		return fmt.Errorf("enginechain: slot mix must be in [0, 1]: %f", mix)
	}

	c.slots[slot].mixTarget = mix
	if c.slots[slot].mix != nil {
		c.slots[slot].mix.SetTarget(mix)
	}

	return nil
}

// UpdateEngineParameters forwards normalized parameter targets to a
// slot's engine. Empty slots ignore the update.
func (c *Chain) UpdateEngineParameters(slot int, params map[int]float64) error {
	if slot < 0 || slot >= NumSlots {
		return fmt.Errorf("enginechain: slot must be in [0, %d): %d", NumSlots, slot)
	}

	if c.slots[slot].eng != nil {
		c.slots[slot].eng.UpdateParameters(params)
	}

	return nil
}

// Process runs the block through every occupied, unbypassed slot in order
// and scrubs the result. Calling before Prepare is a counted no-op.
func (c *Chain) Process(block [][]float64) {
	if !c.prepared {
		c.diag.CountNotPrepared()
		return
	}

	n := 0
	if len(block) > 0 {
		n = len(block[0])
	}

	if n == 0 || n > c.spec.MaxBlockSize {
		return
	}

	for i := range c.slots {
		s := &c.slots[i]

		if s.eng == nil || s.bypass {
			// Bypassed slots still settle their mix smoother so a
			// re-engage does not jump.
			s.mix.SetTarget(s.mixTarget)
			s.mix.TickBlock(n)

			continue
		}

		for ch := range block {
			copy(c.dry[ch][:n], block[ch])
		}

		s.eng.Process(block)

		s.mix.SetTarget(s.mixTarget)
		mix := s.mix.TickBlock(n)

		if mix < 1 {
			for ch := range block {
				dry := c.dry[ch]
				wet := block[ch]

				for j := range wet {
					wet[j] = dry[j] + (wet[j]-dry[j])*mix
				}
			}
		}
	}

	scrubbed := c.scrubber.ScrubBlock(block)
	if scrubbed > 0 {
		c.diag.CountScrubbed(scrubbed)
	}
}

// Reset resets every occupied slot and snaps the mix smoothers.
func (c *Chain) Reset() {
	for i := range c.slots {
		s := &c.slots[i]

		if s.eng != nil {
			s.eng.Reset()
		}

		if s.mix != nil {
			s.mix.Snap(s.mixTarget)
		}
	}
}

// LatencySamples returns the summed latency of all occupied, unbypassed
// slots.
func (c *Chain) LatencySamples() int {
	total := 0

	for i := range c.slots {
		s := &c.slots[i]
		if s.eng != nil && !s.bypass {
			total += s.eng.LatencySamples()
		}
	}

	return total
}

// Diagnostics returns the chain's fault counters. Per-engine counters live
// on the engines themselves.
func (c *Chain) Diagnostics() *engine.Diagnostics { return c.diag }
