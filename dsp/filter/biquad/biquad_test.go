package biquad

import (
	"math"
	"testing"
)

func TestDesignValidation(t *testing.T) {
	tests := []struct {
		name        string
		freq, q, sr float64
		wantErr     bool
	}{
		{"valid", 1000, 0.707, 48000, false},
		{"freq zero", 0, 0.707, 48000, true},
		{"freq negative", -100, 0.707, 48000, true},
		{"freq at nyquist", 24000, 0.707, 48000, true},
		{"q zero", 1000, 0, 48000, true},
		{"q NaN", 1000, math.NaN(), 48000, true},
		{"sr zero", 1000, 0.707, 0, true},
		{"sr NaN", 1000, 0.707, math.NaN(), true},
	}

	designs := map[string]func(freq, q, sr float64) (Coefficients, error){
		"Lowpass":  Lowpass,
		"Highpass": Highpass,
		"Bandpass": Bandpass,
		"Allpass":  Allpass,
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, design := range designs {
				_, err := design(tt.freq, tt.q, tt.sr)
				if (err != nil) != tt.wantErr {
					t.Errorf("%s(%f, %f, %f) error = %v, wantErr %v", name, tt.freq, tt.q, tt.sr, err, tt.wantErr)
				}
			}
		})
	}
}

func TestPeakingGainValidation(t *testing.T) {
	if _, err := Peaking(1000, 1, 6, 48000); err != nil {
		t.Errorf("Peaking() error = %v", err)
	}

	if _, err := Peaking(1000, 1, math.NaN(), 48000); err == nil {
		t.Error("Peaking(NaN gain) should fail")
	}

	if _, err := HighShelf(4000, math.Inf(1), 48000); err == nil {
		t.Error("HighShelf(Inf gain) should fail")
	}
}

func TestIdentityPassesSignal(t *testing.T) {
	s := NewSection(Identity())

	for _, x := range []float64{0, 1, -0.5, 0.25} {
		if got := s.ProcessSample(x); got != x {
			t.Errorf("identity ProcessSample(%f) = %f", x, got)
		}
	}
}

func TestLowpassDCGain(t *testing.T) {
	c, err := Lowpass(1000, 0.7071, 48000)
	if err != nil {
		t.Fatalf("Lowpass() error = %v", err)
	}

	// DC gain is (B0+B1+B2)/(1+A1+A2).
	gain := (c.B0 + c.B1 + c.B2) / (1 + c.A1 + c.A2)
	if math.Abs(gain-1) > 1e-9 {
		t.Errorf("lowpass DC gain = %f, want 1", gain)
	}
}

func TestHighpassDCGain(t *testing.T) {
	c, err := Highpass(1000, 0.7071, 48000)
	if err != nil {
		t.Fatalf("Highpass() error = %v", err)
	}

	gain := (c.B0 + c.B1 + c.B2) / (1 + c.A1 + c.A2)
	if math.Abs(gain) > 1e-9 {
		t.Errorf("highpass DC gain = %g, want 0", gain)
	}
}

func TestPeakingZeroGainIsIdentity(t *testing.T) {
	c, err := Peaking(1000, 1, 0, 48000)
	if err != nil {
		t.Fatalf("Peaking() error = %v", err)
	}

	// At 0 dB the numerator equals the denominator.
	if math.Abs(c.B0-1) > 1e-12 || math.Abs(c.B1-c.A1) > 1e-12 || math.Abs(c.B2-c.A2) > 1e-12 {
		t.Errorf("0 dB peaking is not identity: %+v", c)
	}
}

func TestShelfDCGain(t *testing.T) {
	// A +6 dB low shelf has ~2x DC gain; a high shelf leaves DC alone.
	low, err := LowShelf(1000, 6, 48000)
	if err != nil {
		t.Fatalf("LowShelf() error = %v", err)
	}

	gain := (low.B0 + low.B1 + low.B2) / (1 + low.A1 + low.A2)
	want := math.Pow(10, 6.0/20)
	if math.Abs(gain-want) > 0.01 {
		t.Errorf("low shelf DC gain = %f, want %f", gain, want)
	}

	high, err := HighShelf(1000, 6, 48000)
	if err != nil {
		t.Fatalf("HighShelf() error = %v", err)
	}

	gain = (high.B0 + high.B1 + high.B2) / (1 + high.A1 + high.A2)
	if math.Abs(gain-1) > 0.01 {
		t.Errorf("high shelf DC gain = %f, want 1", gain)
	}
}

func TestAllpassUnityMagnitude(t *testing.T) {
	c, err := Allpass(1000, 0.7071, 48000)
	if err != nil {
		t.Fatalf("Allpass() error = %v", err)
	}

	s := NewSection(c)

	// Drive with a sine away from the corner; settled amplitude stays 1.
	peak := 0.0
	for i := range 48000 {
		x := math.Sin(2 * math.Pi * 440 * float64(i) / 48000)
		y := s.ProcessSample(x)

		if i > 24000 {
			peak = math.Max(peak, math.Abs(y))
		}
	}

	if peak < 0.99 || peak > 1.01 {
		t.Errorf("allpass peak = %f, want ~1", peak)
	}
}

func TestButterworthOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		order   int
		wantErr bool
	}{
		{"order 2", 2, false},
		{"order 4", 4, false},
		{"order 8", 8, false},
		{"order 0", 0, true},
		{"order odd", 3, true},
		{"order negative", -2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coeffs, err := ButterworthLowpass(1000, tt.order, 48000)
			if (err != nil) != tt.wantErr {
				t.Errorf("ButterworthLowpass(order=%d) error = %v, wantErr %v", tt.order, err, tt.wantErr)
				return
			}

			if !tt.wantErr && len(coeffs) != tt.order/2 {
				t.Errorf("sections = %d, want %d", len(coeffs), tt.order/2)
			}
		})
	}
}

func TestButterworthLowpassRolloff(t *testing.T) {
	coeffs, err := ButterworthLowpass(1000, 4, 48000)
	if err != nil {
		t.Fatalf("ButterworthLowpass() error = %v", err)
	}

	chain := NewChain(coeffs)

	// An octave above cutoff an order-4 response is down ~24 dB.
	peak := 0.0
	for i := range 48000 {
		x := math.Sin(2 * math.Pi * 4000 * float64(i) / 48000)
		y := chain.ProcessSample(x)

		if i > 24000 {
			peak = math.Max(peak, math.Abs(y))
		}
	}

	if peak > 0.05 {
		t.Errorf("order-4 lowpass leakage two octaves up = %f, want < 0.05", peak)
	}
}

func TestChainProcessBlockMatchesPerSample(t *testing.T) {
	coeffs, _ := ButterworthHighpass(500, 4, 48000)

	a := NewChain(coeffs)
	b := NewChain(coeffs)

	input := make([]float64, 200)
	for i := range input {
		input[i] = math.Sin(0.07 * float64(i))
	}

	blockOut := make([]float64, len(input))
	copy(blockOut, input)
	a.ProcessBlock(blockOut)

	for i, x := range input {
		if want := b.ProcessSample(x); blockOut[i] != want {
			t.Fatalf("sample %d: block %g != per-sample %g", i, blockOut[i], want)
		}
	}
}

func TestSectionReset(t *testing.T) {
	c, _ := Lowpass(1000, 0.7071, 48000)
	s := NewSection(c)

	for range 100 {
		s.ProcessSample(1)
	}

	s.Reset()

	fresh := NewSection(c)
	if got, want := s.ProcessSample(0.5), fresh.ProcessSample(0.5); got != want {
		t.Errorf("after Reset = %g, want %g", got, want)
	}
}
