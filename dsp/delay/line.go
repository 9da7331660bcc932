// Package delay provides the fixed-capacity interpolated ring buffer that
// underlies every time-domain effect in the core.
package delay

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/interp"
)

// Interpolation selects the fractional read kernel of a Line.
type Interpolation int

const (
	// InterpolationLinear is a 2-point crossfade. Cheapest; slight
	// high-frequency loss under modulation.
	InterpolationLinear Interpolation = iota
	// InterpolationHermite is a 4-point cubic. The default for modulated
	// delays.
	InterpolationHermite
	// InterpolationSinc is a 48-tap Blackman-windowed sinc with 8192
	// precomputed phases. Used where the read position must be
	// transparent, e.g. the micro pitch shifters; the kernel reads
	// half a tap span ahead of the integer position, so delays must
	// stay above interp.SincTaps/2.
	InterpolationSinc
)

// Line is a circular delay line with a fractional read head.
//
// Capacity is rounded up to a power of two so wrapping is a mask. Writes
// advance one sample at a time; reads address a delay in samples behind the
// write head. All allocation happens at construction.
type Line struct {
	buffer   []float64
	mask     int
	writePos int
	mode     Interpolation
}

// New returns a delay line able to resolve delays up to maxDelay samples.
func New(maxDelay int, mode Interpolation) (*Line, error) {
	if maxDelay <= 0 {
		return nil, fmt.Errorf("delay line max delay must be > 0: %d", maxDelay)
	}

	size := nextPowerOfTwo(maxDelay + interp.SincTaps)

	return &Line{
		buffer: make([]float64, size),
		mask:   size - 1,
		mode:   mode,
	}, nil
}

// Len returns the internal buffer size.
func (d *Line) Len() int { return len(d.buffer) }

// MaxDelay returns the largest fractional delay the line can resolve.
func (d *Line) MaxDelay() float64 {
	return float64(len(d.buffer) - interp.SincTaps - 1)
}

// Write pushes one sample, flushing denormals on the way in so silent
// feedback loops decay to exact zero.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = core.FlushDenormal(sample)
	d.writePos = (d.writePos + 1) & d.mask
}

// Read reads an integer delay in samples behind the write head.
// Read(1) returns the most recently written sample.
func (d *Line) Read(delay int) float64 {
	return d.buffer[(d.writePos-delay)&d.mask]
}

// ReadFractional reads a fractional delay using the line's interpolation
// mode. The delay is clamped to [1, MaxDelay].
func (d *Line) ReadFractional(delay float64) float64 {
	maxDelay := d.MaxDelay()
	if delay < 1 {
		delay = 1
	}

	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(math.Floor(delay))
	t := delay - float64(p)

	switch d.mode {
	case InterpolationLinear:
		return interp.Linear(t, d.Read(p), d.Read(p+1))

	case InterpolationSinc:
		kernel := interp.SincKernel(t)
		half := interp.SincTaps/2 - 1
		acc := 0.0

		for tap, k := range kernel {
			acc += k * d.Read(p+tap-half)
		}

		return acc

	default:
		return interp.Hermite4(t, d.Read(maxInt(1, p-1)), d.Read(p), d.Read(p+1), d.Read(p+2))
	}
}

// Tap is Write followed by ReadFractional, the common echo inner loop.
func (d *Line) Tap(sample, delay float64) float64 {
	d.Write(sample)
	return d.ReadFractional(delay)
}

// Reset clears line state without reallocating.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}

	d.writePos = 0
}

func nextPowerOfTwo(n int) int {
	size := 1
	for size < n {
		size <<= 1
	}

	return size
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}

	return b
}
