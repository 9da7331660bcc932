package conv

import (
	"math"
	"math/rand"
	"testing"
)

func TestNewPartitionedValidation(t *testing.T) {
	tests := []struct {
		name      string
		kernel    []float64
		blockSize int
		wantErr   bool
	}{
		{"valid", []float64{1, 0.5}, 64, false},
		{"empty kernel", nil, 64, true},
		{"zero block", []float64{1}, 0, true},
		{"negative block", []float64{1}, -4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPartitioned(tt.kernel, tt.blockSize)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPartitioned() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && p == nil {
				t.Error("NewPartitioned() returned nil without error")
			}
		})
	}
}

func TestEmptyKernelSentinel(t *testing.T) {
	if _, err := NewPartitioned([]float64{}, 64); err != ErrEmptyKernel {
		t.Errorf("error = %v, want ErrEmptyKernel", err)
	}
}

func TestPartSizeRoundsUp(t *testing.T) {
	tests := []struct {
		blockSize int
		want      int
	}{
		{1, 1},
		{64, 64},
		{65, 128},
		{100, 128},
		{512, 512},
	}

	for _, tt := range tests {
		p, err := NewPartitioned([]float64{1}, tt.blockSize)
		if err != nil {
			t.Fatalf("NewPartitioned(block=%d) error = %v", tt.blockSize, err)
		}

		if p.PartSize() != tt.want {
			t.Errorf("PartSize() for block %d = %d, want %d", tt.blockSize, p.PartSize(), tt.want)
		}

		if p.Latency() != tt.want {
			t.Errorf("Latency() for block %d = %d, want %d", tt.blockSize, p.Latency(), tt.want)
		}
	}
}

func TestLengthMismatch(t *testing.T) {
	p, _ := NewPartitioned([]float64{1}, 64)

	if err := p.ProcessBlock(make([]float64, 64), make([]float64, 32)); err == nil {
		t.Error("mismatched lengths should fail")
	}
}

// TestImpulseThroughIdentityKernel convolves an impulse with a unit kernel
// and expects the impulse back after exactly one partition of latency.
func TestImpulseThroughIdentityKernel(t *testing.T) {
	const block = 64

	p, err := NewPartitioned([]float64{1}, block)
	if err != nil {
		t.Fatalf("NewPartitioned() error = %v", err)
	}

	input := make([]float64, 4*block)
	input[3] = 1

	output := make([]float64, len(input))
	if err := p.ProcessBlock(input, output); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	wantIdx := 3 + p.Latency()
	for i, y := range output {
		want := 0.0
		if i == wantIdx {
			want = 1
		}

		if math.Abs(y-want) > 1e-9 {
			t.Errorf("output[%d] = %g, want %g", i, y, want)
		}
	}
}

// TestMatchesDirectConvolution compares the streaming convolver against a
// direct time-domain convolution over a multi-partition kernel.
func TestMatchesDirectConvolution(t *testing.T) {
	const (
		block     = 32
		kernelLen = 100 // spans four partitions
		inputLen  = 512
	)

	rng := rand.New(rand.NewSource(7))

	kernel := make([]float64, kernelLen)
	for i := range kernel {
		kernel[i] = rng.Float64()*2 - 1
	}

	input := make([]float64, inputLen)
	for i := range input {
		input[i] = rng.Float64()*2 - 1
	}

	p, err := NewPartitioned(kernel, block)
	if err != nil {
		t.Fatalf("NewPartitioned() error = %v", err)
	}

	output := make([]float64, inputLen)
	if err := p.ProcessBlock(input, output); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	latency := p.Latency()
	for i := latency; i < inputLen; i++ {
		n := i - latency

		direct := 0.0
		for k := 0; k < kernelLen && k <= n; k++ {
			direct += kernel[k] * input[n-k]
		}

		if math.Abs(output[i]-direct) > 1e-6 {
			t.Fatalf("output[%d] = %g, direct = %g", i, output[i], direct)
		}
	}
}

func TestVariableBlockLengths(t *testing.T) {
	kernel := []float64{0.5, 0.25, 0.125}

	a, _ := NewPartitioned(kernel, 64)
	b, _ := NewPartitioned(kernel, 64)

	rng := rand.New(rand.NewSource(3))

	input := make([]float64, 400)
	for i := range input {
		input[i] = rng.Float64()*2 - 1
	}

	// One shot against irregular chunks.
	whole := make([]float64, len(input))
	if err := a.ProcessBlock(input, whole); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	chunked := make([]float64, len(input))
	for _, bounds := range [][2]int{{0, 7}, {7, 70}, {70, 71}, {71, 300}, {300, 400}} {
		if err := b.ProcessBlock(input[bounds[0]:bounds[1]], chunked[bounds[0]:bounds[1]]); err != nil {
			t.Fatalf("chunked ProcessBlock() error = %v", err)
		}
	}

	for i := range whole {
		if math.Abs(whole[i]-chunked[i]) > 1e-12 {
			t.Fatalf("chunked output diverges at %d: %g != %g", i, whole[i], chunked[i])
		}
	}
}

func TestReset(t *testing.T) {
	kernel := []float64{1, 0.5}

	p, _ := NewPartitioned(kernel, 64)

	input := make([]float64, 256)
	for i := range input {
		input[i] = 1
	}

	out1 := make([]float64, len(input))
	if err := p.ProcessBlock(input, out1); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	p.Reset()

	out2 := make([]float64, len(input))
	if err := p.ProcessBlock(input, out2); err != nil {
		t.Fatalf("ProcessBlock() after Reset error = %v", err)
	}

	for i := range out1 {
		if out1[i] != out2[i] {
			t.Fatalf("Reset did not restore initial state at %d: %g != %g", i, out1[i], out2[i])
		}
	}
}
