package delayfx

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
)

const (
	// Emulated bucket count; the clock rate follows from stages / delay
	// time, and the anti-alias filter tracks the clock.
	bbdStages = 4096.0

	bbdEmphasisHz = 3000.0
)

// BBD emulates a bucket-brigade delay: companding (pre-emphasis, soft
// clip, de-emphasis) around the bucket chain and a clock-tracking lowpass
// that darkens long delay times.
type BBD struct {
	*echo

	companding float64

	preState  float64
	deState   float64
	emphCoeff float64

	clockState1 float64
	clockState2 float64
}

// NewBBD creates a bucket-brigade delay.
func NewBBD(sampleRate float64) (*BBD, error) {
	e, err := newEcho(sampleRate, "bbd")
	if err != nil {
		return nil, err
	}

	b := &BBD{
		echo:       e,
		companding: 0.5,
		emphCoeff:  math.Exp(-2 * math.Pi * bbdEmphasisHz / sampleRate),
	}

	return b, nil
}

// SetTime sets the delay time in seconds.
func (b *BBD) SetTime(seconds float64) error { return b.setTime(seconds, "bbd") }

// SetFeedback sets the loop feedback in [0, 1.1].
func (b *BBD) SetFeedback(v float64) error { return b.setFeedback(v, "bbd") }

// SetWet sets the wet gain.
func (b *BBD) SetWet(v float64) error { return b.setWet(v, "bbd") }

// SetDry sets the dry gain.
func (b *BBD) SetDry(v float64) error { return b.setDry(v, "bbd") }

// SetCompanding sets companding intensity in [0,1].
func (b *BBD) SetCompanding(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("bbd delay companding must be in [0, 1]: %f", v)
	}

	b.companding = v

	return nil
}

// clockCutoff returns the anti-alias cutoff tracking the bucket clock:
// half the clock rate, with headroom, capped below Nyquist.
func (b *BBD) clockCutoff() float64 {
	delaySec := b.currentSamples / b.sampleRate
	if delaySec < minDelaySeconds {
		delaySec = minDelaySeconds
	}

	clock := bbdStages / delaySec
	cutoff := clock * 0.35

	limit := b.sampleRate * 0.45
	if cutoff > limit {
		cutoff = limit
	}

	if cutoff < 500 {
		cutoff = 500
	}

	return cutoff
}

// ProcessSample processes one input sample.
func (b *BBD) ProcessSample(input float64) float64 {
	out := b.tickDelay(0)

	// De-emphasis on the way out of the chain.
	b.deState = core.FlushDenormal(out*(1-b.emphCoeff) + b.deState*b.emphCoeff)
	out = out + (b.deState-out)*b.companding

	fb := out * b.feedback

	// Pre-emphasis into the chain: boost the highs the soft clip will
	// compress, then clip.
	drive := input + fb
	b.preState = core.FlushDenormal(drive*(1-b.emphCoeff) + b.preState*b.emphCoeff)
	emphasized := drive + (drive-b.preState)*b.companding

	clipped := core.SoftClip(emphasized)
	write := emphasized + (clipped-emphasized)*b.companding

	// Two cascaded one-poles tracking the bucket clock.
	coeff := math.Exp(-2 * math.Pi * b.clockCutoff() / b.sampleRate)
	b.clockState1 = core.FlushDenormal(write*(1-coeff) + b.clockState1*coeff)
	b.clockState2 = core.FlushDenormal(b.clockState1*(1-coeff) + b.clockState2*coeff)

	b.line.Write(b.clockState2)

	return input*b.dry + out*b.wet
}

// ProcessBlock processes a block in place.
func (b *BBD) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = b.ProcessSample(x)
	}
}

// Reset clears delay and filter state.
func (b *BBD) Reset() {
	b.reset()
	b.preState = 0
	b.deState = 0
	b.clockState1 = 0
	b.clockState2 = 0
}
