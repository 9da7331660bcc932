package spatial

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/delay"
	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/biquad"
)

const maxHaasMs = 30.0

// Widener scales the side signal to widen or narrow the image, optionally
// folds the bass to mono below a corner frequency, and can add a
// Haas-effect delay on one channel. At width 1 with no bass-mono and no
// Haas delay the processor passes the signal through untouched, bit for
// bit.
type Widener struct {
	sampleRate float64

	width      float64
	bassMono   bool
	bassMonoHz float64
	haasMs     float64
	haasGain   float64

	sideHP *biquad.Chain

	haasLine *delay.Line
}

// NewWidener creates a widener at unity width.
func NewWidener(sampleRate float64) (*Widener, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("widener sample rate must be > 0: %f", sampleRate)
	}

	w := &Widener{
		sampleRate: sampleRate,
		width:      1,
		bassMonoHz: 120,
		haasGain:   0.5,
	}

	err := w.rebuildBassFilter()
	if err != nil {
		return nil, err
	}

	maxHaas := int(maxHaasMs*0.001*sampleRate) + 2

	w.haasLine, err = delay.New(maxHaas, delay.InterpolationLinear)
	if err != nil {
		return nil, err
	}

	return w, nil
}

// SetWidth sets the stereo width in [0, 2]; 0 is mono, 1 is untouched.
func (w *Widener) SetWidth(v float64) error {
	if v < 0 || v > 2 || math.IsNaN(v) {
		return fmt.Errorf("widener width must be in [0, 2]: %f", v)
	}

	w.width = v

	return nil
}

// SetBassMono folds the side signal to mono below the corner frequency.
func (w *Widener) SetBassMono(enabled bool) { w.bassMono = enabled }

// SetBassMonoFreq sets the bass-mono corner in Hz, in [20, 500].
func (w *Widener) SetBassMonoFreq(hz float64) error {
	if hz < 20 || hz > 500 || math.IsNaN(hz) {
		return fmt.Errorf("widener bass mono frequency must be in [20, 500]: %f", hz)
	}

	w.bassMonoHz = hz

	return w.rebuildBassFilter()
}

// SetHaas sets the Haas delay in ms, in [0, 30]; 0 disables it.
func (w *Widener) SetHaas(ms float64) error {
	if ms < 0 || ms > maxHaasMs || math.IsNaN(ms) {
		return fmt.Errorf("widener haas delay must be in [0, %g] ms: %f", maxHaasMs, ms)
	}

	w.haasMs = ms

	return nil
}

func (w *Widener) rebuildBassFilter() error {
	coeffs, err := biquad.ButterworthHighpass(w.bassMonoHz, 2, w.sampleRate)
	if err != nil {
		return err
	}

	w.sideHP = biquad.NewChain(coeffs)

	return nil
}

// ProcessBlock processes a stereo pair in place. Both slices must have
// equal length.
func (w *Widener) ProcessBlock(left, right []float64) error {
	if len(left) != len(right) {
		return fmt.Errorf("widener channel length mismatch: %d != %d", len(left), len(right))
	}

	// Identity fast path; keeps width=1 bit-exact.
	if w.width == 1 && !w.bassMono && w.haasMs == 0 {
		return nil
	}

	haasSamples := w.haasMs * 0.001 * w.sampleRate

	for i := range left {
		mid := (left[i] + right[i]) * 0.5
		side := (left[i] - right[i]) * 0.5

		if w.bassMono {
			side = w.sideHP.ProcessSample(side)
		}

		side *= w.width

		l := mid + side
		r := mid - side

		if haasSamples >= 1 {
			// Mix a delayed copy into the right channel at reduced gain;
			// the ear places the image toward the earlier channel.
			w.haasLine.Write(r)
			r += w.haasLine.ReadFractional(haasSamples) * w.haasGain
		}

		left[i] = l
		right[i] = r
	}

	return nil
}

// Reset clears the bass filter and Haas delay.
func (w *Widener) Reset() {
	w.sideHP.Reset()
	w.haasLine.Reset()
}
