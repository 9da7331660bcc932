package dynamics

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/envelope"
)

type gateState int

const (
	gateClosed gateState = iota
	gateOpening
	gateOpen
	gateHolding
	gateClosing
)

// NoiseGate attenuates the signal below a threshold. Hysteresis keeps the
// open and close thresholds apart, a hold timer bridges short gaps, and
// the release ramps the gain down to the range floor instead of hard
// muting.
type NoiseGate struct {
	sampleRate float64

	detector *envelope.Follower

	thresholdDB  float64
	hysteresisDB float64
	holdMs       float64
	attackMs     float64
	releaseMs    float64
	rangeDB      float64

	openLevel  float64
	closeLevel float64
	floorGain  float64

	attackCoeff  float64
	releaseCoeff float64
	holdSamples  int

	state       gateState
	holdCounter int
	gain        float64
}

// NewNoiseGate creates a gate (-50 dB threshold, 6 dB hysteresis).
func NewNoiseGate(sampleRate float64) (*NoiseGate, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("noise gate sample rate must be > 0: %f", sampleRate)
	}

	detector, err := envelope.NewFollower(sampleRate, envelope.ModePeak)
	if err != nil {
		return nil, err
	}

	_ = detector.SetAttack(0.5)
	_ = detector.SetRelease(20)

	g := &NoiseGate{
		sampleRate:   sampleRate,
		detector:     detector,
		thresholdDB:  -50,
		hysteresisDB: 6,
		holdMs:       50,
		attackMs:     1,
		releaseMs:    100,
		rangeDB:      -80,
	}

	g.recalculate()

	return g, nil
}

// SetThreshold sets the open threshold in dBFS.
func (g *NoiseGate) SetThreshold(dB float64) error {
	if dB < -100 || dB > 0 || math.IsNaN(dB) {
		return fmt.Errorf("noise gate threshold must be in [-100, 0] dB: %f", dB)
	}

	g.thresholdDB = dB
	g.recalculate()

	return nil
}

// SetHysteresis sets the gap between open and close thresholds in dB.
func (g *NoiseGate) SetHysteresis(dB float64) error {
	if dB < 0 || dB > 24 || math.IsNaN(dB) {
		return fmt.Errorf("noise gate hysteresis must be in [0, 24] dB: %f", dB)
	}

	g.hysteresisDB = dB
	g.recalculate()

	return nil
}

// SetHold sets the hold time in ms.
func (g *NoiseGate) SetHold(ms float64) error {
	if ms < 0 || ms > 2000 || math.IsNaN(ms) {
		return fmt.Errorf("noise gate hold must be in [0, 2000] ms: %f", ms)
	}

	g.holdMs = ms
	g.recalculate()

	return nil
}

// SetAttack sets the opening time in ms.
func (g *NoiseGate) SetAttack(ms float64) error {
	err := validateAttack(ms)
	if err != nil {
		return fmt.Errorf("noise gate %w", err)
	}

	g.attackMs = ms
	g.recalculate()

	return nil
}

// SetRelease sets the closing time in ms.
func (g *NoiseGate) SetRelease(ms float64) error {
	err := validateRelease(ms)
	if err != nil {
		return fmt.Errorf("noise gate %w", err)
	}

	g.releaseMs = ms
	g.recalculate()

	return nil
}

// SetRange sets the closed-gate floor in dB, in [-100, 0].
func (g *NoiseGate) SetRange(dB float64) error {
	if dB < -100 || dB > 0 || math.IsNaN(dB) {
		return fmt.Errorf("noise gate range must be in [-100, 0] dB: %f", dB)
	}

	g.rangeDB = dB
	g.recalculate()

	return nil
}

func (g *NoiseGate) recalculate() {
	g.openLevel = math.Pow(10, g.thresholdDB/20)
	g.closeLevel = math.Pow(10, (g.thresholdDB-g.hysteresisDB)/20)
	g.floorGain = math.Pow(10, g.rangeDB/20)
	g.attackCoeff = 1 - math.Exp(-1/(g.attackMs*0.001*g.sampleRate))
	g.releaseCoeff = 1 - math.Exp(-1/(g.releaseMs*0.001*g.sampleRate))
	g.holdSamples = int(g.holdMs * 0.001 * g.sampleRate)
}

// ProcessSample gates one sample.
func (g *NoiseGate) ProcessSample(input float64) float64 {
	level := g.detector.Tick(input)

	switch g.state {
	case gateClosed, gateClosing:
		if level >= g.openLevel {
			g.state = gateOpening
		}
	case gateOpen, gateOpening:
		if level < g.closeLevel {
			g.state = gateHolding
			g.holdCounter = g.holdSamples
		}
	case gateHolding:
		if level >= g.openLevel {
			g.state = gateOpen
		} else {
			g.holdCounter--
			if g.holdCounter <= 0 {
				g.state = gateClosing
			}
		}
	}

	var target float64

	switch g.state {
	case gateOpening, gateOpen, gateHolding:
		target = 1
	default:
		target = g.floorGain
	}

	if target > g.gain {
		g.gain += (target - g.gain) * g.attackCoeff

		if g.gain > 0.999 {
			g.gain = 1
			if g.state == gateOpening {
				g.state = gateOpen
			}
		}
	} else {
		g.gain += (target - g.gain) * g.releaseCoeff

		if g.gain-target < 1e-6 && g.state == gateClosing {
			g.state = gateClosed
		}
	}

	return input * g.gain
}

// ProcessBlock gates a block in place.
func (g *NoiseGate) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = g.ProcessSample(x)
	}
}

// Reset closes the gate and clears the detector.
func (g *NoiseGate) Reset() {
	g.detector.Reset()
	g.state = gateClosed
	g.holdCounter = 0
	g.gain = g.floorGain
}
