// Package dynamics implements the dynamics engines: compressors, a
// transient shaper, a noise gate, and a lookahead mastering limiter. All
// share a log2-domain soft-knee gain computer and the envelope package's
// peak/RMS/hybrid detectors.
package dynamics

import (
	"fmt"
	"math"
)

const (
	minThresholdDB = -80.0
	maxThresholdDB = 0.0

	minRatio = 1.0
	maxRatio = 100.0

	minKneeDB = 0.0
	maxKneeDB = 24.0

	minAttackMs  = 0.01
	maxAttackMs  = 500.0
	minReleaseMs = 1.0
	maxReleaseMs = 5000.0

	// log2(x) = ln(x) * log2E; 20*log10(x) dB = dbPerLog2 * log2(x).
	dbPerLog2 = 6.0205999132796
)

// gainComputer maps a detector level to a gain in the log2 domain with a
// quadratic soft knee.
type gainComputer struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64

	thresholdLog2 float64
	kneeLog2      float64
	invKneeLog2   float64

	// 1 - 1/ratio; 1 for limiting.
	compressionFactor float64
}

func newGainComputer(thresholdDB, ratio, kneeDB float64) (*gainComputer, error) {
	g := &gainComputer{}

	err := g.setThreshold(thresholdDB)
	if err != nil {
		return nil, err
	}

	err = g.setRatio(ratio)
	if err != nil {
		return nil, err
	}

	err = g.setKnee(kneeDB)
	if err != nil {
		return nil, err
	}

	return g, nil
}

func (g *gainComputer) setThreshold(dB float64) error {
	if dB < minThresholdDB || dB > maxThresholdDB || math.IsNaN(dB) {
		return fmt.Errorf("threshold must be in [%g, %g] dB: %f", minThresholdDB, maxThresholdDB, dB)
	}

	g.thresholdDB = dB
	g.thresholdLog2 = dB / dbPerLog2

	return nil
}

func (g *gainComputer) setRatio(ratio float64) error {
	if ratio < minRatio || ratio > maxRatio || math.IsNaN(ratio) {
		return fmt.Errorf("ratio must be in [%g, %g]: %f", minRatio, maxRatio, ratio)
	}

	g.ratio = ratio
	g.compressionFactor = 1 - 1/ratio

	return nil
}

// setLimiting configures a 1:inf ratio.
func (g *gainComputer) setLimiting() {
	g.ratio = math.Inf(1)
	g.compressionFactor = 1
}

func (g *gainComputer) setKnee(kneeDB float64) error {
	if kneeDB < minKneeDB || kneeDB > maxKneeDB || math.IsNaN(kneeDB) {
		return fmt.Errorf("knee must be in [%g, %g] dB: %f", minKneeDB, maxKneeDB, kneeDB)
	}

	g.kneeDB = kneeDB
	g.kneeLog2 = kneeDB / dbPerLog2

	if g.kneeLog2 > 0 {
		g.invKneeLog2 = 1 / g.kneeLog2
	} else {
		g.invKneeLog2 = 0
	}

	return nil
}

// gainForLevel returns the linear gain for a linear detector level.
func (g *gainComputer) gainForLevel(level float64) float64 {
	if level <= 0 {
		return 1
	}

	overshoot := math.Log2(level) - g.thresholdLog2

	if g.kneeDB <= 0 {
		if overshoot <= 0 {
			return 1
		}

		return math.Exp2(-overshoot * g.compressionFactor)
	}

	halfKnee := g.kneeLog2 * 0.5

	if overshoot < -halfKnee {
		return 1
	}

	effective := overshoot
	if overshoot <= halfKnee {
		scratch := overshoot + halfKnee
		effective = scratch * scratch * 0.5 * g.invKneeLog2
	}

	return math.Exp2(-effective * g.compressionFactor)
}

// gainReductionDB returns the reduction the computer applies at the given
// level, as a positive dB figure.
func (g *gainComputer) gainReductionDB(level float64) float64 {
	gain := g.gainForLevel(level)
	if gain >= 1 {
		return 0
	}

	return -20 * math.Log10(gain)
}

func validateAttack(ms float64) error {
	if ms < minAttackMs || ms > maxAttackMs || math.IsNaN(ms) {
		return fmt.Errorf("attack must be in [%g, %g] ms: %f", minAttackMs, maxAttackMs, ms)
	}

	return nil
}

func validateRelease(ms float64) error {
	if ms < minReleaseMs || ms > maxReleaseMs || math.IsNaN(ms) {
		return fmt.Errorf("release must be in [%g, %g] ms: %f", minReleaseMs, maxReleaseMs, ms)
	}

	return nil
}
