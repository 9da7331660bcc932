package dynamics

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/envelope"
)

// Compressor is a feed-forward soft-knee compressor with a selectable
// peak/RMS/hybrid detector.
type Compressor struct {
	sampleRate float64

	computer *gainComputer
	detector *envelope.Follower

	attackMs  float64
	releaseMs float64

	autoMakeup   bool
	makeupDB     float64
	makeupLinear float64

	lastGain float64
}

// NewCompressor creates a compressor with an RMS detector and moderate
// defaults (-18 dB threshold, 4:1, 6 dB knee).
func NewCompressor(sampleRate float64) (*Compressor, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("compressor sample rate must be > 0: %f", sampleRate)
	}

	computer, err := newGainComputer(-18, 4, 6)
	if err != nil {
		return nil, err
	}

	detector, err := envelope.NewFollower(sampleRate, envelope.ModeRMS)
	if err != nil {
		return nil, err
	}

	c := &Compressor{
		sampleRate:   sampleRate,
		computer:     computer,
		detector:     detector,
		attackMs:     10,
		releaseMs:    100,
		makeupLinear: 1,
		lastGain:     1,
	}

	_ = detector.SetAttack(c.attackMs)
	_ = detector.SetRelease(c.releaseMs)

	return c, nil
}

// SetThreshold sets the threshold in dBFS.
func (c *Compressor) SetThreshold(dB float64) error {
	err := c.computer.setThreshold(dB)
	if err != nil {
		return fmt.Errorf("compressor %w", err)
	}

	c.updateMakeup()

	return nil
}

// SetRatio sets the compression ratio.
func (c *Compressor) SetRatio(ratio float64) error {
	err := c.computer.setRatio(ratio)
	if err != nil {
		return fmt.Errorf("compressor %w", err)
	}

	c.updateMakeup()

	return nil
}

// SetKnee sets the soft-knee width in dB.
func (c *Compressor) SetKnee(dB float64) error {
	err := c.computer.setKnee(dB)
	if err != nil {
		return fmt.Errorf("compressor %w", err)
	}

	return nil
}

// SetAttack sets the detector attack in ms.
func (c *Compressor) SetAttack(ms float64) error {
	err := validateAttack(ms)
	if err != nil {
		return fmt.Errorf("compressor %w", err)
	}

	c.attackMs = ms

	return c.detector.SetAttack(ms)
}

// SetRelease sets the detector release in ms.
func (c *Compressor) SetRelease(ms float64) error {
	err := validateRelease(ms)
	if err != nil {
		return fmt.Errorf("compressor %w", err)
	}

	c.releaseMs = ms

	return c.detector.SetRelease(ms)
}

// SetDetectorMode selects the peak, RMS, or hybrid detector.
func (c *Compressor) SetDetectorMode(mode envelope.Mode) error {
	return c.detector.SetMode(mode)
}

// SetMakeup sets manual makeup gain in dB and disables auto makeup.
func (c *Compressor) SetMakeup(dB float64) error {
	if dB < -24 || dB > 24 || math.IsNaN(dB) {
		return fmt.Errorf("compressor makeup must be in [-24, 24] dB: %f", dB)
	}

	c.autoMakeup = false
	c.makeupDB = dB
	c.makeupLinear = math.Pow(10, dB/20)

	return nil
}

// SetAutoMakeup derives makeup from the threshold and ratio.
func (c *Compressor) SetAutoMakeup(auto bool) {
	c.autoMakeup = auto
	c.updateMakeup()
}

func (c *Compressor) updateMakeup() {
	if !c.autoMakeup {
		return
	}

	// Half the reduction a 0 dBFS signal would see.
	c.makeupDB = -c.computer.thresholdDB * c.computer.compressionFactor * 0.5
	c.makeupLinear = math.Pow(10, c.makeupDB/20)
}

// GainReduction returns the current gain reduction in dB (positive).
func (c *Compressor) GainReduction() float64 {
	if c.lastGain >= 1 {
		return 0
	}

	return -20 * math.Log10(c.lastGain)
}

// ProcessSample compresses one sample.
func (c *Compressor) ProcessSample(input float64) float64 {
	return c.ProcessSampleSidechain(input, input)
}

// ProcessSampleSidechain compresses input using sidechain for detection.
func (c *Compressor) ProcessSampleSidechain(input, sidechain float64) float64 {
	level := c.detector.Tick(sidechain)
	gain := c.computer.gainForLevel(level)
	c.lastGain = gain

	return input * gain * c.makeupLinear
}

// ProcessBlock compresses a block in place.
func (c *Compressor) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = c.ProcessSampleSidechain(x, x)
	}
}

// Reset clears detector state.
func (c *Compressor) Reset() {
	c.detector.Reset()
	c.lastGain = 1
}
