// Package engine defines the contract every Chimera Phoenix DSP engine obeys:
// a uniform prepare/process/reset lifecycle, lock-free normalized parameter
// targets, latency reporting, and the runtime safety net that guarantees
// finite output.
package engine

import (
	"fmt"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
)

const (
	// MinSampleRate and MaxSampleRate bound the sample rates an engine
	// must accept at prepare time.
	MinSampleRate = 22050.0
	MaxSampleRate = 192000.0

	// MaxChannels is the widest block an engine processes (stereo).
	MaxChannels = 2
)

// ProcessSpec describes the fixed processing environment between one Prepare
// call and the next. It is immutable once passed to Prepare.
type ProcessSpec struct {
	SampleRate   float64
	MaxBlockSize int
	NumChannels  int
}

// Validate reports whether the spec is usable for audio processing.
func (s ProcessSpec) Validate() error {
	if s.SampleRate < MinSampleRate || s.SampleRate > MaxSampleRate || !core.IsFinite(s.SampleRate) {
		return fmt.Errorf("engine spec sample rate must be in [%g, %g]: %f",
			MinSampleRate, MaxSampleRate, s.SampleRate)
	}

	if s.MaxBlockSize < 1 {
		return fmt.Errorf("engine spec max block size must be >= 1: %d", s.MaxBlockSize)
	}

	if s.NumChannels < 1 || s.NumChannels > MaxChannels {
		return fmt.Errorf("engine spec channel count must be 1 or 2: %d", s.NumChannels)
	}

	return nil
}

// Engine is the uniform contract over all DSP engines.
//
// Lifecycle: Prepare is called before audio starts and again whenever the
// sample rate, block size, or channel layout changes. All allocation happens
// inside Prepare; Process must not allocate, block, or lock.
//
// Process transforms the block in place. Each element of block is one
// channel of equal length, at most MaxBlockSize samples. Output is finite
// for finite input. Calling Process before a successful Prepare leaves the
// block untouched and increments the NotPrepared diagnostic.
//
// Reset clears delay lines, envelopes, and phase accumulators without
// reallocating. It is safe from the control thread while audio is paused.
//
// UpdateParameters is the control-thread entry point. Values are normalized
// to [0, 1]; out-of-range values are clamped, unknown indices are counted
// and skipped while the remaining entries still apply.
type Engine interface {
	Prepare(spec ProcessSpec) error
	Process(block [][]float64)
	Reset()
	UpdateParameters(params map[int]float64)
	LatencySamples() int
	ParameterCount() int
	ParameterName(index int) string
	Diagnostics() *Diagnostics
}
