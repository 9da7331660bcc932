package delayfx

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
)

const (
	tapeWowRateHz     = 0.5
	tapeFlutterRateHz = 6.3

	// Peak depths as fractions of the delay time.
	tapeWowDepth     = 0.003
	tapeFlutterDepth = 0.0005
)

// Tape emulates a tape echo: wow and flutter on the transport, tape
// saturation in the record path, and progressive high-frequency loss on
// each repeat.
type Tape struct {
	*echo

	drive float64
	age   float64

	wowPhase     float64
	flutterPhase float64

	lossCoeff float64
	lossState float64
}

// NewTape creates a tape delay.
func NewTape(sampleRate float64) (*Tape, error) {
	e, err := newEcho(sampleRate, "tape")
	if err != nil {
		return nil, err
	}

	t := &Tape{
		echo:  e,
		drive: 0.4,
		age:   0.5,
	}

	t.updateLoss()

	return t, nil
}

// SetTime sets the delay time in seconds.
func (t *Tape) SetTime(seconds float64) error { return t.setTime(seconds, "tape") }

// SetFeedback sets the loop feedback in [0, 1.1].
func (t *Tape) SetFeedback(v float64) error { return t.setFeedback(v, "tape") }

// SetWet sets the wet gain.
func (t *Tape) SetWet(v float64) error { return t.setWet(v, "tape") }

// SetDry sets the dry gain.
func (t *Tape) SetDry(v float64) error { return t.setDry(v, "tape") }

// SetDrive sets record-path saturation in [0,1].
func (t *Tape) SetDrive(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("tape delay drive must be in [0, 1]: %f", v)
	}

	t.drive = v

	return nil
}

// SetAge sets tape age in [0,1]; older tape loses more highs per repeat
// and wobbles harder.
func (t *Tape) SetAge(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("tape delay age must be in [0, 1]: %f", v)
	}

	t.age = v
	t.updateLoss()

	return nil
}

func (t *Tape) updateLoss() {
	cutoff := 12000 * math.Pow(0.25, t.age)
	t.lossCoeff = math.Exp(-2 * math.Pi * cutoff / t.sampleRate)
}

// ProcessSample processes one input sample.
func (t *Tape) ProcessSample(input float64) float64 {
	wobble := 1 + 0.5*t.age

	mod := t.currentSamples * (tapeWowDepth*wobble*math.Sin(t.wowPhase) +
		tapeFlutterDepth*wobble*math.Sin(t.flutterPhase))

	t.wowPhase += 2 * math.Pi * tapeWowRateHz / t.sampleRate
	if t.wowPhase >= 2*math.Pi {
		t.wowPhase -= 2 * math.Pi
	}

	t.flutterPhase += 2 * math.Pi * tapeFlutterRateHz / t.sampleRate
	if t.flutterPhase >= 2*math.Pi {
		t.flutterPhase -= 2 * math.Pi
	}

	out := t.tickDelay(mod)

	// Repeat path: high-frequency loss, then tape saturation.
	fb := out * t.feedback
	t.lossState = core.FlushDenormal(fb*(1-t.lossCoeff) + t.lossState*t.lossCoeff)

	gain := 1 + 3*t.drive
	saturated := math.Tanh(t.lossState*gain) / gain * (1 + t.drive*0.5)

	t.line.Write(input + saturated)

	return input*t.dry + out*t.wet
}

// ProcessBlock processes a block in place.
func (t *Tape) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = t.ProcessSample(x)
	}
}

// Reset clears delay and transport state.
func (t *Tape) Reset() {
	t.reset()
	t.wowPhase = 0
	t.flutterPhase = 0
	t.lossState = 0
}
