// Package envelope provides the peak, RMS, and hybrid level detectors used
// by the dynamics engines.
package envelope

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
)

const (
	defaultAttackMs  = 10.0
	defaultReleaseMs = 100.0
	defaultRMSTaps   = 1024

	minFollowerTimeMs = 0.01
	maxFollowerTimeMs = 10000.0
)

// Mode selects the detector algorithm of a Follower.
type Mode int

const (
	// ModePeak is an asymmetric one-pole with separate attack/release.
	ModePeak Mode = iota
	// ModeRMS is a moving average of squared samples over a fixed window.
	ModeRMS
	// ModeHybrid blends 0.7*peak + 0.3*RMS.
	ModeHybrid
)

// Follower tracks the level of a signal. The envelope is non-negative,
// finite, and decays monotonically under silence.
type Follower struct {
	sampleRate float64
	mode       Mode
	attackMs   float64
	releaseMs  float64

	attackCoeff  float64
	releaseCoeff float64
	peak         float64

	squares  []float64
	sqIndex  int
	sqFilled int
	sqSum    float64

	flushCountdown int
}

// NewFollower creates a follower with 10 ms attack and 100 ms release.
func NewFollower(sampleRate float64, mode Mode) (*Follower, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("envelope follower sample rate must be > 0 and finite: %f", sampleRate)
	}

	f := &Follower{
		sampleRate: sampleRate,
		mode:       mode,
		attackMs:   defaultAttackMs,
		releaseMs:  defaultReleaseMs,
		squares:    make([]float64, defaultRMSTaps),
	}
	f.updateCoefficients()

	return f, nil
}

// SetAttack sets attack time in milliseconds.
func (f *Follower) SetAttack(ms float64) error {
	if ms < minFollowerTimeMs || ms > maxFollowerTimeMs || !core.IsFinite(ms) {
		return fmt.Errorf("envelope follower attack must be in [%g, %g]: %f",
			minFollowerTimeMs, maxFollowerTimeMs, ms)
	}

	f.attackMs = ms
	f.updateCoefficients()

	return nil
}

// SetRelease sets release time in milliseconds.
func (f *Follower) SetRelease(ms float64) error {
	if ms < minFollowerTimeMs || ms > maxFollowerTimeMs || !core.IsFinite(ms) {
		return fmt.Errorf("envelope follower release must be in [%g, %g]: %f",
			minFollowerTimeMs, maxFollowerTimeMs, ms)
	}

	f.releaseMs = ms
	f.updateCoefficients()

	return nil
}

// SetMode switches the detector algorithm without clearing state.
func (f *Follower) SetMode(mode Mode) error {
	if mode != ModePeak && mode != ModeRMS && mode != ModeHybrid {
		return fmt.Errorf("invalid envelope follower mode: %d", mode)
	}

	f.mode = mode

	return nil
}

// Attack returns attack time in milliseconds.
func (f *Follower) Attack() float64 { return f.attackMs }

// Release returns release time in milliseconds.
func (f *Follower) Release() float64 { return f.releaseMs }

// Mode returns the detector algorithm.
func (f *Follower) Mode() Mode { return f.mode }

// Envelope returns the current level estimate without advancing.
func (f *Follower) Envelope() float64 {
	switch f.mode {
	case ModeRMS:
		return f.rmsValue()
	case ModeHybrid:
		return 0.7*f.peak + 0.3*f.rmsValue()
	default:
		return f.peak
	}
}

// Tick advances the follower with one input sample and returns the level.
func (f *Follower) Tick(x float64) float64 {
	mag := math.Abs(x)

	if mag > f.peak {
		f.peak += (mag - f.peak) * f.attackCoeff
	} else {
		f.peak = mag + (f.peak-mag)*f.releaseCoeff
	}

	f.peak = core.FlushDenormal(f.peak)

	if f.mode != ModePeak {
		f.pushSquare(mag * mag)
	}

	// Periodic deep flush keeps the running RMS sum from drifting on
	// denormal residue during long silences.
	f.flushCountdown--
	if f.flushCountdown <= 0 {
		f.flushCountdown = 1024
		f.sqSum = core.FlushDenormal(f.sqSum)
	}

	return f.Envelope()
}

// Reset clears all envelope state.
func (f *Follower) Reset() {
	f.peak = 0
	f.sqIndex = 0
	f.sqFilled = 0
	f.sqSum = 0

	for i := range f.squares {
		f.squares[i] = 0
	}
}

func (f *Follower) pushSquare(sq float64) {
	if f.sqFilled == len(f.squares) {
		f.sqSum -= f.squares[f.sqIndex]
	} else {
		f.sqFilled++
	}

	f.squares[f.sqIndex] = sq
	f.sqSum += sq

	f.sqIndex++
	if f.sqIndex >= len(f.squares) {
		f.sqIndex = 0
	}
}

func (f *Follower) rmsValue() float64 {
	if f.sqFilled == 0 {
		return 0
	}

	mean := f.sqSum / float64(f.sqFilled)
	if mean <= 0 {
		return 0
	}

	return math.Sqrt(mean)
}

func (f *Follower) updateCoefficients() {
	f.attackCoeff = 1.0 - math.Exp(-1/(f.attackMs*0.001*f.sampleRate))
	f.releaseCoeff = math.Exp(-1 / (f.releaseMs * 0.001 * f.sampleRate))
}
