package engine

import (
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
)

const defaultScrubClip = 4.0

// Scrubber is the runtime safety net. After every engine (and at chain
// exit) it rewrites NaN and ±Inf samples to 0 and soft-clips samples whose
// magnitude exceeds the clip level, so the finiteness invariant of the
// engine contract holds even under pathological parameter combinations.
type Scrubber struct {
	clip float64
}

// NewScrubber creates a scrubber with the given clip magnitude.
// clip <= 0 selects the default of 4.0.
func NewScrubber(clip float64) *Scrubber {
	if clip <= 0 || !core.IsFinite(clip) {
		clip = defaultScrubClip
	}

	return &Scrubber{clip: clip}
}

// Clip returns the configured clip magnitude.
func (s *Scrubber) Clip() float64 { return s.clip }

// ScrubBlock sanitizes every channel of block in place and returns the
// number of samples that were replaced or clipped.
func (s *Scrubber) ScrubBlock(block [][]float64) int {
	scrubbed := 0
	for _, ch := range block {
		scrubbed += s.scrubChannel(ch)
	}

	return scrubbed
}

func (s *Scrubber) scrubChannel(buf []float64) int {
	scrubbed := 0

	for i, x := range buf {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			buf[i] = 0
			scrubbed++

			continue
		}

		if x > s.clip || x < -s.clip {
			buf[i] = core.SoftClip(x)
			scrubbed++
		}
	}

	return scrubbed
}
