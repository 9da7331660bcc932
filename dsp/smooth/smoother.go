// Package smooth provides one-pole parameter smoothing for zipper-free
// transitions between control-thread parameter targets on the audio thread.
package smooth

import (
	"math"
	"sync/atomic"
)

const defaultTimeConstantMs = 20.0

// Smoother is an audio-thread-only one-pole lowpass toward a target value.
//
// The coefficient derives from a time constant tau in milliseconds:
// coeff = exp(-1 / (tau * 0.001 * sampleRate)). A step change in the target
// therefore produces an exponential glide with no sample discontinuity.
type Smoother struct {
	current float64
	target  float64
	coeff   float64
}

// NewSmoother creates a smoother with the given time constant in ms.
// Non-positive values select the 20 ms default.
func NewSmoother(timeConstantMs, sampleRate float64) *Smoother {
	s := &Smoother{}
	s.SetTimeConstant(timeConstantMs, sampleRate)

	return s
}

// SetTimeConstant updates the smoothing time constant.
func (s *Smoother) SetTimeConstant(timeConstantMs, sampleRate float64) {
	if timeConstantMs <= 0 {
		timeConstantMs = defaultTimeConstantMs
	}

	if sampleRate <= 0 {
		s.coeff = 0
		return
	}

	s.coeff = math.Exp(-1 / (timeConstantMs * 0.001 * sampleRate))
}

// SetTarget updates the value the smoother glides toward.
func (s *Smoother) SetTarget(v float64) { s.target = v }

// Target returns the current target value.
func (s *Smoother) Target() float64 { return s.target }

// Current returns the last smoothed output without advancing.
func (s *Smoother) Current() float64 { return s.current }

// Snap jumps current and target to v immediately. Used at prepare time so
// the first block does not glide from zero.
func (s *Smoother) Snap(v float64) {
	s.current = v
	s.target = v
}

// Tick advances one sample and returns the next smoothed value.
func (s *Smoother) Tick() float64 {
	s.current = s.target + (s.current-s.target)*s.coeff

	// Settle exactly on the target once the residual is inaudible, so
	// silence decays to true zero instead of a denormal tail.
	if diff := s.current - s.target; diff < 1e-10 && diff > -1e-10 {
		s.current = s.target
	}

	return s.current
}

// TickBlock advances blockSize samples at once and returns the resulting
// value. Used by engines that smooth per block rather than per sample.
func (s *Smoother) TickBlock(blockSize int) float64 {
	if blockSize <= 0 {
		return s.current
	}

	c := math.Pow(s.coeff, float64(blockSize))
	s.current = s.target + (s.current-s.target)*c

	if diff := s.current - s.target; diff < 1e-10 && diff > -1e-10 {
		s.current = s.target
	}

	return s.current
}

// IsSettled reports whether current has converged onto the target.
func (s *Smoother) IsSettled() bool { return s.current == s.target }

// Atomic is a smoother whose target is written by the control thread and
// read by the audio thread, using a single atomic word so readers never
// observe torn values. The smoothing state itself stays audio-thread-only.
type Atomic struct {
	target atomic.Uint64

	current float64
	coeff   float64
}

// NewAtomic creates an atomic-target smoother.
func NewAtomic(timeConstantMs, sampleRate float64) *Atomic {
	a := &Atomic{}
	a.SetTimeConstant(timeConstantMs, sampleRate)

	return a
}

// SetTimeConstant updates the smoothing time constant.
func (a *Atomic) SetTimeConstant(timeConstantMs, sampleRate float64) {
	if timeConstantMs <= 0 {
		timeConstantMs = defaultTimeConstantMs
	}

	if sampleRate <= 0 {
		a.coeff = 0
		return
	}

	a.coeff = math.Exp(-1 / (timeConstantMs * 0.001 * sampleRate))
}

// SetTarget stores a new target from any thread.
func (a *Atomic) SetTarget(v float64) {
	a.target.Store(math.Float64bits(v))
}

// Target returns the current target value.
func (a *Atomic) Target() float64 {
	return math.Float64frombits(a.target.Load())
}

// Current returns the last smoothed output without advancing.
func (a *Atomic) Current() float64 { return a.current }

// Snap jumps current and target to v immediately.
func (a *Atomic) Snap(v float64) {
	a.target.Store(math.Float64bits(v))
	a.current = v
}

// Tick advances one sample toward the atomic target. Audio thread only.
func (a *Atomic) Tick() float64 {
	t := a.Target()
	a.current = t + (a.current-t)*a.coeff

	if diff := a.current - t; diff < 1e-10 && diff > -1e-10 {
		a.current = t
	}

	return a.current
}
