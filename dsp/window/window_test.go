package window

import (
	"math"
	"testing"
)

func TestGenerateSizes(t *testing.T) {
	tests := []struct {
		name string
		size int
		want int
	}{
		{"zero", 0, 0},
		{"negative", -4, 0},
		{"one", 1, 1},
		{"typical", 2048, 2048},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(TypeHann, tt.size)
			if len(got) != tt.want {
				t.Errorf("Generate(size=%d) length = %d, want %d", tt.size, len(got), tt.want)
			}
		})
	}
}

func TestRectangularIsAllOnes(t *testing.T) {
	for _, c := range Generate(TypeRectangular, 64) {
		if c != 1 {
			t.Fatalf("rectangular coefficient = %f, want 1", c)
		}
	}
}

func TestHannSymmetric(t *testing.T) {
	w := Generate(TypeHann, 65)

	if w[0] != 0 || math.Abs(w[64]) > 1e-12 {
		t.Errorf("symmetric Hann endpoints = %g, %g, want 0", w[0], w[64])
	}

	if math.Abs(w[32]-1) > 1e-12 {
		t.Errorf("symmetric Hann center = %f, want 1", w[32])
	}

	for i := range 32 {
		if math.Abs(w[i]-w[64-i]) > 1e-12 {
			t.Errorf("Hann not symmetric at %d: %g vs %g", i, w[i], w[64-i])
		}
	}
}

func TestHannPeriodic(t *testing.T) {
	const n = 64

	w := Generate(TypeHann, n, WithPeriodic())

	if w[0] != 0 {
		t.Errorf("periodic Hann w[0] = %g, want 0", w[0])
	}

	if math.Abs(w[n/2]-1) > 1e-12 {
		t.Errorf("periodic Hann w[%d] = %f, want 1", n/2, w[n/2])
	}

	// The periodic Hann sums to exactly N/2, the property the
	// overlap-add engines rely on.
	sum := 0.0
	for _, c := range w {
		sum += c
	}

	if math.Abs(sum-n/2) > 1e-9 {
		t.Errorf("periodic Hann sum = %f, want %d", sum, n/2)
	}
}

func TestAllTypesBounded(t *testing.T) {
	types := []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman, TypeBlackmanHarris}

	for _, typ := range types {
		for i, c := range Generate(typ, 128, WithPeriodic()) {
			if c < -1e-6 || c > 1+1e-12 {
				t.Errorf("type %d coefficient[%d] = %f out of range", typ, i, c)
			}
		}
	}
}

func TestApply(t *testing.T) {
	buf := []float64{1, 2, 3, 4}
	coeffs := []float64{0.5, 0.5, 2, 0}

	if err := Apply(buf, coeffs); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	want := []float64{0.5, 1, 6, 0}
	for i := range buf {
		if buf[i] != want[i] {
			t.Errorf("buf[%d] = %f, want %f", i, buf[i], want[i])
		}
	}

	if err := Apply(buf, coeffs[:2]); err == nil {
		t.Error("Apply() with mismatched lengths should fail")
	}
}

func TestApplyTo(t *testing.T) {
	out := make([]float64, 3)
	samples := []float64{1, -2, 3}
	coeffs := []float64{2, 0.5, 0}

	if err := ApplyTo(out, samples, coeffs); err != nil {
		t.Fatalf("ApplyTo() error = %v", err)
	}

	want := []float64{2, -1, 0}
	for i := range out {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %f, want %f", i, out[i], want[i])
		}
	}

	if err := ApplyTo(out[:2], samples, coeffs); err == nil {
		t.Error("ApplyTo() with mismatched lengths should fail")
	}
}
