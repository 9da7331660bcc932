package dynamics

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/envelope"
)

// TransientShaper rebalances attack and sustain independently of level: a
// fast and a slow envelope follower track the same signal, and their
// difference marks transient (fast above slow) versus sustain (fast below
// slow) regions, each scaled by its own gain.
type TransientShaper struct {
	fast *envelope.Follower
	slow *envelope.Follower

	attackDB  float64
	sustainDB float64
}

// NewTransientShaper creates a transient shaper with neutral gains.
func NewTransientShaper(sampleRate float64) (*TransientShaper, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("transient shaper sample rate must be > 0: %f", sampleRate)
	}

	fast, err := envelope.NewFollower(sampleRate, envelope.ModePeak)
	if err != nil {
		return nil, err
	}

	_ = fast.SetAttack(1)
	_ = fast.SetRelease(50)

	slow, err := envelope.NewFollower(sampleRate, envelope.ModePeak)
	if err != nil {
		return nil, err
	}

	_ = slow.SetAttack(40)
	_ = slow.SetRelease(120)

	return &TransientShaper{fast: fast, slow: slow}, nil
}

// SetAttackGain sets the transient boost/cut in dB, in [-24, 24].
func (t *TransientShaper) SetAttackGain(dB float64) error {
	if dB < -24 || dB > 24 || math.IsNaN(dB) {
		return fmt.Errorf("transient shaper attack gain must be in [-24, 24] dB: %f", dB)
	}

	t.attackDB = dB

	return nil
}

// SetSustainGain sets the sustain boost/cut in dB, in [-24, 24].
func (t *TransientShaper) SetSustainGain(dB float64) error {
	if dB < -24 || dB > 24 || math.IsNaN(dB) {
		return fmt.Errorf("transient shaper sustain gain must be in [-24, 24] dB: %f", dB)
	}

	t.sustainDB = dB

	return nil
}

// ProcessSample shapes one sample.
func (t *TransientShaper) ProcessSample(input float64) float64 {
	fast := t.fast.Tick(input)
	slow := t.slow.Tick(input)

	// Normalized envelope difference in [-1, 1]: positive during the
	// attack portion, negative during sustain/decay.
	denom := fast + slow
	if denom < 1e-9 {
		return input
	}

	diff := (fast - slow) / denom

	var gainDB float64
	if diff > 0 {
		gainDB = t.attackDB * diff
	} else {
		gainDB = t.sustainDB * -diff
	}

	return input * math.Pow(10, gainDB/20)
}

// ProcessBlock shapes a block in place.
func (t *TransientShaper) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = t.ProcessSample(x)
	}
}

// Reset clears both followers.
func (t *TransientShaper) Reset() {
	t.fast.Reset()
	t.slow.Reset()
}
