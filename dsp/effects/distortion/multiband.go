package distortion

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/crossover"
)

const multibandBands = 4

// Default split points in Hz.
var defaultCrossovers = [3]float64{150, 800, 4000}

// Multiband splits the signal into four bands with Linkwitz-Riley LR4
// crossovers, drives each band through its own tanh stage, and sums. The
// allpass-complementary splits keep the recombined signal flat at zero
// drive.
type Multiband struct {
	sampleRate float64

	splitLow *crossover.Crossover
	splitMid *crossover.Crossover
	splitHi  *crossover.Crossover

	drive [multibandBands]float64
	level [multibandBands]float64

	low   []float64
	high  []float64
	band0 []float64
	band1 []float64
	band2 []float64
	band3 []float64
}

// NewMultiband creates a four-band saturator for blocks up to maxBlockSize.
func NewMultiband(sampleRate float64, maxBlockSize int) (*Multiband, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("multiband saturator sample rate must be > 0: %f", sampleRate)
	}

	if maxBlockSize < 1 {
		return nil, fmt.Errorf("multiband saturator max block size must be >= 1: %d", maxBlockSize)
	}

	m := &Multiband{
		sampleRate: sampleRate,
		low:        make([]float64, maxBlockSize),
		high:       make([]float64, maxBlockSize),
		band0:      make([]float64, maxBlockSize),
		band1:      make([]float64, maxBlockSize),
		band2:      make([]float64, maxBlockSize),
		band3:      make([]float64, maxBlockSize),
	}

	for i := range m.drive {
		m.drive[i] = 0.2
		m.level[i] = 1
	}

	var err error

	m.splitMid, err = crossover.New(defaultCrossovers[1], 4, sampleRate)
	if err != nil {
		return nil, err
	}

	m.splitLow, err = crossover.New(defaultCrossovers[0], 4, sampleRate)
	if err != nil {
		return nil, err
	}

	m.splitHi, err = crossover.New(defaultCrossovers[2], 4, sampleRate)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// SetBandDrive sets the drive of band i (0 = lowest) in [0,1].
func (m *Multiband) SetBandDrive(band int, v float64) error {
	if band < 0 || band >= multibandBands {
		return fmt.Errorf("multiband saturator band must be in [0, %d]: %d", multibandBands-1, band)
	}

	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("multiband saturator drive must be in [0, 1]: %f", v)
	}

	m.drive[band] = v

	return nil
}

// SetBandLevel sets the output level of band i in [0, 2].
func (m *Multiband) SetBandLevel(band int, v float64) error {
	if band < 0 || band >= multibandBands {
		return fmt.Errorf("multiband saturator band must be in [0, %d]: %d", multibandBands-1, band)
	}

	if v < 0 || v > 2 || math.IsNaN(v) {
		return fmt.Errorf("multiband saturator level must be in [0, 2]: %f", v)
	}

	m.level[band] = v

	return nil
}

func saturateBand(buf []float64, drive float64) {
	if drive <= 0 {
		return
	}

	g := 1 + 9*drive
	norm := math.Tanh(g)

	for i, x := range buf {
		buf[i] = math.Tanh(x*g) / norm
	}
}

// ProcessBlock saturates a block in place.
func (m *Multiband) ProcessBlock(buf []float64) error {
	n := len(buf)
	if n == 0 {
		return nil
	}

	if n > len(m.low) {
		return fmt.Errorf("multiband saturator block of %d exceeds prepared maximum %d", n, len(m.low))
	}

	low := m.low[:n]
	high := m.high[:n]
	b0 := m.band0[:n]
	b1 := m.band1[:n]
	b2 := m.band2[:n]
	b3 := m.band3[:n]

	// Tree split: mid first, then each half again.
	m.splitMid.ProcessBlock(buf, low, high)
	m.splitLow.ProcessBlock(low, b0, b1)
	m.splitHi.ProcessBlock(high, b2, b3)

	saturateBand(b0, m.drive[0])
	saturateBand(b1, m.drive[1])
	saturateBand(b2, m.drive[2])
	saturateBand(b3, m.drive[3])

	for i := range n {
		buf[i] = b0[i]*m.level[0] + b1[i]*m.level[1] + b2[i]*m.level[2] + b3[i]*m.level[3]
	}

	return nil
}

// Reset clears all crossover state.
func (m *Multiband) Reset() {
	m.splitLow.Reset()
	m.splitMid.Reset()
	m.splitHi.Reset()
}
