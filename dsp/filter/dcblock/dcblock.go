// Package dcblock removes zero-frequency offset with a first-order
// high-pass whose pole sits at R=0.995 (~20 Hz at 48 kHz).
package dcblock

import "github.com/chimeraaudio/phoenix-dsp/dsp/core"

const (
	defaultPole   = 0.995
	flushInterval = 1024
)

// Blocker implements y[n] = x[n] - x[n-1] + R*y[n-1].
type Blocker struct {
	pole float64

	x1 float64
	y1 float64

	flushCountdown int
}

// New creates a DC blocker with the default pole radius.
func New() *Blocker {
	return &Blocker{pole: defaultPole, flushCountdown: flushInterval}
}

// NewWithPole creates a DC blocker with a custom pole radius in (0, 1).
// Out-of-range values fall back to the default.
func NewWithPole(pole float64) *Blocker {
	if pole <= 0 || pole >= 1 {
		pole = defaultPole
	}

	return &Blocker{pole: pole, flushCountdown: flushInterval}
}

// Tick filters one sample.
func (b *Blocker) Tick(x float64) float64 {
	y := x - b.x1 + b.pole*b.y1
	b.x1 = x
	b.y1 = y

	b.flushCountdown--
	if b.flushCountdown <= 0 {
		b.flushCountdown = flushInterval
		b.y1 = core.FlushDenormal(b.y1)
	}

	return y
}

// ProcessBlock filters a block in place.
func (b *Blocker) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = b.Tick(x)
	}
}

// Reset clears filter state.
func (b *Blocker) Reset() {
	b.x1 = 0
	b.y1 = 0
	b.flushCountdown = flushInterval
}
