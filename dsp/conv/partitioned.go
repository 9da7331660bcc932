// Package conv implements uniformly partitioned FFT overlap-add
// convolution for streaming impulse-response processing. The partition
// size tracks the prepare-time block size, so the convolver adds exactly
// one partition of latency.
package conv

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Errors reported by the partitioned convolver.
var (
	ErrEmptyKernel = errors.New("conv: empty impulse response kernel")
)

// Partitioned convolves a stream against a fixed kernel using a
// frequency-domain delay line: the kernel is split into equal partitions,
// each block of input is transformed once, and the per-partition spectra
// are multiplied and accumulated before a single inverse transform.
type Partitioned struct {
	partSize int
	fftSize  int
	latency  int

	plan      *algofft.Plan[complex128]
	irSpectra [][]complex128

	history [][]complex128
	histPos int

	freqAcc []complex128
	timeBuf []complex128
	overlap []float64

	inBuf  []float64
	inFill int

	outRing  []float64
	outRead  int
	outWrite int
}

// NewPartitioned creates a convolver for the given kernel. blockSize sets
// the partition size (rounded up to a power of two) and therefore the
// latency.
func NewPartitioned(kernel []float64, blockSize int) (*Partitioned, error) {
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}

	if blockSize < 1 {
		return nil, fmt.Errorf("conv: block size must be >= 1: %d", blockSize)
	}

	partSize := 1
	for partSize < blockSize {
		partSize <<= 1
	}

	fftSize := partSize * 2

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("conv: FFT plan of size %d: %w", fftSize, err)
	}

	numParts := (len(kernel) + partSize - 1) / partSize

	p := &Partitioned{
		partSize:  partSize,
		fftSize:   fftSize,
		latency:   partSize,
		plan:      plan,
		irSpectra: make([][]complex128, numParts),
		history:   make([][]complex128, numParts),
		freqAcc:   make([]complex128, fftSize),
		timeBuf:   make([]complex128, fftSize),
		overlap:   make([]float64, partSize),
		inBuf:     make([]float64, partSize),
		outRing:   make([]float64, 4*partSize),
	}

	for i := range p.history {
		p.history[i] = make([]complex128, fftSize)
	}

	err = p.computeIRSpectra(kernel)
	if err != nil {
		return nil, err
	}

	// The first partition of output emerges only after a full input
	// partition has accumulated.
	p.outWrite = partSize

	return p, nil
}

func (p *Partitioned) computeIRSpectra(kernel []float64) error {
	for part := range p.irSpectra {
		spectrum := make([]complex128, p.fftSize)

		start := part * p.partSize
		end := min(start+p.partSize, len(kernel))

		for i := start; i < end; i++ {
			spectrum[i-start] = complex(kernel[i], 0)
		}

		err := p.plan.Forward(spectrum, spectrum)
		if err != nil {
			return fmt.Errorf("conv: IR partition %d FFT: %w", part, err)
		}

		p.irSpectra[part] = spectrum
	}

	return nil
}

// PartSize returns the partition size in samples.
func (p *Partitioned) PartSize() int { return p.partSize }

// Latency returns the additional delay in samples (one partition).
func (p *Partitioned) Latency() int { return p.latency }

// ProcessBlock convolves input into output. Both slices must have equal
// length; any length is accepted, independent of the partition size.
func (p *Partitioned) ProcessBlock(input, output []float64) error {
	if len(input) != len(output) {
		return fmt.Errorf("conv: input/output length mismatch: %d != %d", len(input), len(output))
	}

	for i, x := range input {
		p.inBuf[p.inFill] = x
		p.inFill++

		if p.inFill == p.partSize {
			err := p.processPartition()
			if err != nil {
				return err
			}

			p.inFill = 0
		}

		output[i] = p.outRing[p.outRead]
		p.outRing[p.outRead] = 0
		p.outRead = (p.outRead + 1) % len(p.outRing)
	}

	return nil
}

func (p *Partitioned) processPartition() error {
	// Transform the newest input partition into the history slot.
	spectrum := p.history[p.histPos]
	for i := range p.fftSize {
		if i < p.partSize {
			spectrum[i] = complex(p.inBuf[i], 0)
		} else {
			spectrum[i] = 0
		}
	}

	err := p.plan.Forward(spectrum, spectrum)
	if err != nil {
		return fmt.Errorf("conv: input partition FFT: %w", err)
	}

	// Multiply-accumulate every partition against its matching input
	// spectrum from the frequency-domain delay line.
	for i := range p.freqAcc {
		p.freqAcc[i] = 0
	}

	numParts := len(p.irSpectra)
	for part := range numParts {
		hist := p.history[(p.histPos-part+numParts)%numParts]
		ir := p.irSpectra[part]

		for i := range p.freqAcc {
			p.freqAcc[i] += hist[i] * ir[i]
		}
	}

	p.histPos = (p.histPos + 1) % numParts

	err = p.plan.Inverse(p.timeBuf, p.freqAcc)
	if err != nil {
		return fmt.Errorf("conv: output partition IFFT: %w", err)
	}

	// Overlap-add the first half with the previous tail; stash the
	// second half as the next tail.
	for i := range p.partSize {
		p.outRing[(p.outWrite+i)%len(p.outRing)] = real(p.timeBuf[i]) + p.overlap[i]
		p.overlap[i] = real(p.timeBuf[p.partSize+i])
	}

	p.outWrite = (p.outWrite + p.partSize) % len(p.outRing)

	return nil
}

// Reset clears all streaming state, keeping the kernel spectra.
func (p *Partitioned) Reset() {
	for _, h := range p.history {
		for i := range h {
			h[i] = 0
		}
	}

	for i := range p.overlap {
		p.overlap[i] = 0
	}

	for i := range p.outRing {
		p.outRing[i] = 0
	}

	p.histPos = 0
	p.inFill = 0
	p.outRead = 0
	p.outWrite = p.partSize
}
