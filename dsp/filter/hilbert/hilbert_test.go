package hilbert

import (
	"math"
	"testing"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		taps    int
		wantErr bool
	}{
		{"valid default", 65, false},
		{"valid min", 11, false},
		{"valid max", 511, false},
		{"even", 64, true},
		{"too small", 9, true},
		{"too large", 513, true},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.taps)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d) error = %v, wantErr %v", tt.taps, err, tt.wantErr)
				return
			}

			if !tt.wantErr && tr.GroupDelay() != (tt.taps-1)/2 {
				t.Errorf("GroupDelay() = %d, want %d", tr.GroupDelay(), (tt.taps-1)/2)
			}
		})
	}
}

func TestNewDefault(t *testing.T) {
	tr, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}

	if tr.GroupDelay() != 32 {
		t.Errorf("GroupDelay() = %d, want 32", tr.GroupDelay())
	}
}

func TestRealPathIsPureDelay(t *testing.T) {
	tr, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}

	delay := tr.GroupDelay()
	input := make([]float64, 256)
	for i := range input {
		input[i] = math.Sin(0.3 * float64(i))
	}

	for i, x := range input {
		re, _ := tr.Tick(x)

		if i >= delay {
			if math.Abs(re-input[i-delay]) > 1e-12 {
				t.Fatalf("real path at %d = %g, want delayed input %g", i, re, input[i-delay])
			}
		}
	}
}

// TestQuadraturePhase drives a mid-band sine and checks the analytic
// magnitude stays near constant, which only holds when the imaginary path
// is 90 degrees from the real path at matched amplitude.
func TestQuadraturePhase(t *testing.T) {
	tr, err := NewDefault()
	if err != nil {
		t.Fatalf("NewDefault() error = %v", err)
	}

	const sr = 48000.0

	var minMag, maxMag float64 = math.Inf(1), 0

	for i := range 4800 {
		x := math.Sin(2 * math.Pi * 6000 * float64(i) / sr)
		re, im := tr.Tick(x)

		// Skip the FIR fill-in transient.
		if i < 200 {
			continue
		}

		mag := math.Hypot(re, im)
		minMag = math.Min(minMag, mag)
		maxMag = math.Max(maxMag, mag)
	}

	if minMag < 0.95 || maxMag > 1.05 {
		t.Errorf("analytic magnitude range [%f, %f], want ~[1, 1]", minMag, maxMag)
	}
}

func TestReset(t *testing.T) {
	tr, _ := NewDefault()

	for range 200 {
		tr.Tick(1)
	}

	tr.Reset()

	re, im := tr.Tick(0)
	if re != 0 || im != 0 {
		t.Errorf("Tick(0) after Reset = (%g, %g), want (0, 0)", re, im)
	}
}
