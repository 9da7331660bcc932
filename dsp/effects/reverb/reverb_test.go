package reverb

import (
	"math"
	"testing"
)

func TestNewPlateValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		wantErr    bool
	}{
		{"valid 44100", 44100, false},
		{"valid 48000", 48000, false},
		{"valid 96000", 96000, false},
		{"invalid zero", 0, true},
		{"invalid negative", -48000, true},
		{"invalid NaN", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPlate(tt.sampleRate)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPlate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && p == nil {
				t.Error("NewPlate() returned nil without error")
			}
		})
	}
}

func TestPlateSetterRanges(t *testing.T) {
	p, err := NewPlate(48000)
	if err != nil {
		t.Fatalf("NewPlate() error = %v", err)
	}

	tests := []struct {
		name    string
		set     func() error
		wantErr bool
	}{
		{"size ok", func() error { return p.SetSize(0.8) }, false},
		{"size high", func() error { return p.SetSize(1.5) }, true},
		{"damp ok", func() error { return p.SetDamp(0.2) }, false},
		{"damp negative", func() error { return p.SetDamp(-0.1) }, true},
		{"predelay ok", func() error { return p.SetPreDelay(0.05) }, false},
		{"predelay long", func() error { return p.SetPreDelay(0.5) }, true},
		{"brightness ok", func() error { return p.SetBrightness(1) }, false},
		{"brightness NaN", func() error { return p.SetBrightness(math.NaN()) }, true},
		{"mod depth ok", func() error { return p.SetModDepth(0.5) }, false},
		{"mod depth high", func() error { return p.SetModDepth(2) }, true},
		{"wet ok", func() error { return p.SetWet(1) }, false},
		{"wet negative", func() error { return p.SetWet(-1) }, true},
		{"dry ok", func() error { return p.SetDry(0) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(); (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlateImpulseDecaysToSilence(t *testing.T) {
	p, err := NewPlate(48000)
	if err != nil {
		t.Fatalf("NewPlate() error = %v", err)
	}

	_ = p.SetSize(0.5)
	_ = p.SetWet(1)
	_ = p.SetDry(0)

	y := p.ProcessSample(1)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		t.Fatal("non-finite output on impulse")
	}

	// The tail must have energy and then die away.
	tailPeak := 0.0
	for range 48000 {
		y = p.ProcessSample(0)
		tailPeak = math.Max(tailPeak, math.Abs(y))
	}

	if tailPeak == 0 {
		t.Error("reverb produced no tail")
	}

	// After 10 more seconds of silence the tail is inaudible.
	late := 0.0
	for range 10 * 48000 {
		y = p.ProcessSample(0)
		late = math.Max(late, math.Abs(y))
	}

	if late > 1e-4 {
		t.Errorf("tail after 11 s = %g, want < 1e-4", late)
	}
}

func TestPlateProcessBlockFinite(t *testing.T) {
	p, _ := NewPlate(48000)

	buf := make([]float64, 512)
	for i := range buf {
		buf[i] = math.Sin(0.1 * float64(i))
	}

	for range 20 {
		p.ProcessBlock(buf)
	}

	for i, x := range buf {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			t.Fatalf("non-finite sample at %d", i)
		}
	}
}

func TestPlateReset(t *testing.T) {
	p, _ := NewPlate(48000)
	_ = p.SetWet(1)
	_ = p.SetDry(0)

	for range 4800 {
		p.ProcessSample(1)
	}

	p.Reset()

	// State is cleared; silence in produces silence out immediately.
	if y := p.ProcessSample(0); y != 0 {
		t.Errorf("output after Reset = %g, want 0", y)
	}
}

func TestNewSpringValidation(t *testing.T) {
	if _, err := NewSpring(0); err == nil {
		t.Error("NewSpring(0) should fail")
	}

	s, err := NewSpring(48000)
	if err != nil {
		t.Fatalf("NewSpring() error = %v", err)
	}

	if err := s.SetSprings(0); err == nil {
		t.Error("SetSprings(0) should fail")
	}

	if err := s.SetSprings(5); err == nil {
		t.Error("SetSprings(5) should fail")
	}

	for n := 1; n <= 4; n++ {
		if err := s.SetSprings(n); err != nil {
			t.Errorf("SetSprings(%d) error = %v", n, err)
		}
	}
}

func TestSpringImpulseDecay(t *testing.T) {
	s, err := NewSpring(48000)
	if err != nil {
		t.Fatalf("NewSpring() error = %v", err)
	}

	_ = s.SetDecay(0.5)
	_ = s.SetDrip(0)
	_ = s.SetWet(1)
	_ = s.SetDry(0)

	s.ProcessSample(1)

	tailPeak := 0.0
	for range 48000 {
		y := s.ProcessSample(0)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatal("non-finite tail sample")
		}

		tailPeak = math.Max(tailPeak, math.Abs(y))
	}

	if tailPeak == 0 {
		t.Error("spring produced no tail")
	}

	late := 0.0
	for range 10 * 48000 {
		late = math.Max(late, math.Abs(s.ProcessSample(0)))
	}

	if late > 1e-4 {
		t.Errorf("tail after 11 s = %g, want < 1e-4", late)
	}
}

// TestSpringSilenceDecaysWithDrip keeps the drip generator active; its
// impulses ride an input envelope, so sustained silence must still decay
// to nothing.
func TestSpringSilenceDecaysWithDrip(t *testing.T) {
	s, err := NewSpring(48000)
	if err != nil {
		t.Fatalf("NewSpring() error = %v", err)
	}

	_ = s.SetDrip(0.5)
	_ = s.SetWet(1)
	_ = s.SetDry(0)

	for i := range 4800 {
		s.ProcessSample(0.5 * math.Sin(2*math.Pi*440*float64(i)/48000))
	}

	var peak float64
	for i := range 5 * 48000 {
		y := s.ProcessSample(0)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatal("non-finite tail sample")
		}

		// Peak over the final second only; the tank needs time to ring out.
		if i >= 4*48000 {
			peak = math.Max(peak, math.Abs(y))
		}
	}

	if peak > 1e-4 {
		t.Errorf("tail peak after 4 s of silence = %g, want < 1e-4 (-80 dBFS)", peak)
	}
}

func TestNewGatedValidation(t *testing.T) {
	if _, err := NewGated(0); err == nil {
		t.Error("NewGated(0) should fail")
	}

	g, err := NewGated(48000)
	if err != nil {
		t.Fatalf("NewGated() error = %v", err)
	}

	if err := g.SetThreshold(0.5); err != nil {
		t.Errorf("SetThreshold(0.5) error = %v", err)
	}

	if err := g.SetThreshold(1.5); err == nil {
		t.Error("SetThreshold(1.5) should fail")
	}

	if err := g.SetHold(0.1); err != nil {
		t.Errorf("SetHold(0.1) error = %v", err)
	}

	if err := g.SetHold(3); err == nil {
		t.Error("SetHold(3) should fail")
	}

	if err := g.SetRelease(0); err == nil {
		t.Error("SetRelease(0) should fail")
	}

	if err := g.SetRelease(0.2); err != nil {
		t.Errorf("SetRelease(0.2) error = %v", err)
	}
}

// TestGatedTailIsCut drives a burst and verifies the gated tail dies much
// faster than the hold+release window would allow a free reverb to ring.
func TestGatedTailIsCut(t *testing.T) {
	g, err := NewGated(48000)
	if err != nil {
		t.Fatalf("NewGated() error = %v", err)
	}

	_ = g.SetThreshold(0.05)
	_ = g.SetHold(0.05)
	_ = g.SetRelease(0.05)
	_ = g.SetWet(1)
	_ = g.SetDry(0)

	for i := range 4800 {
		g.ProcessSample(0.8 * math.Sin(0.2*float64(i)))
	}

	// Hold 50 ms + release 50 ms + detector release: well within half a
	// second the gate has clamped the tail.
	for range 24000 {
		g.ProcessSample(0)
	}

	peak := 0.0
	for range 4800 {
		peak = math.Max(peak, math.Abs(g.ProcessSample(0)))
	}

	if peak > 1e-3 {
		t.Errorf("gated tail after 0.5 s silence = %g, want < 1e-3", peak)
	}
}

func TestNewConvolutionValidation(t *testing.T) {
	if _, err := NewConvolution(0, 256); err == nil {
		t.Error("NewConvolution(0, 256) should fail")
	}

	if _, err := NewConvolution(48000, 0); err == nil {
		t.Error("NewConvolution(48000, 0) should fail")
	}

	c, err := NewConvolution(48000, 256)
	if err != nil {
		t.Fatalf("NewConvolution() error = %v", err)
	}

	if c.Latency() < 256 {
		t.Errorf("Latency() = %d, want >= 256", c.Latency())
	}
}

func TestConvolutionCharacterValidation(t *testing.T) {
	c, _ := NewConvolution(48000, 256)

	for _, ch := range []Character{CharacterHall, CharacterPlate, CharacterStairwell, CharacterChamber} {
		if err := c.SetCharacter(ch); err != nil {
			t.Errorf("SetCharacter(%d) error = %v", ch, err)
		}
	}

	if err := c.SetCharacter(Character(99)); err == nil {
		t.Error("SetCharacter(99) should fail")
	}
}

func TestConvolutionProducesFiniteTail(t *testing.T) {
	c, err := NewConvolution(44100, 128)
	if err != nil {
		t.Fatalf("NewConvolution() error = %v", err)
	}

	_ = c.SetWet(1)
	_ = c.SetDry(0)

	buf := make([]float64, 128)
	buf[0] = 1

	energy := 0.0
	for block := range 100 {
		if err := c.ProcessBlock(buf); err != nil {
			t.Fatalf("ProcessBlock() error = %v", err)
		}

		for i, x := range buf {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				t.Fatalf("non-finite sample at block %d index %d", block, i)
			}

			energy += x * x
			buf[i] = 0
		}
	}

	if energy == 0 {
		t.Error("convolution reverb produced no tail energy")
	}
}

func TestConvolutionRebuildOnCharacterChange(t *testing.T) {
	c, _ := NewConvolution(48000, 128)

	buf := make([]float64, 128)
	if err := c.ProcessBlock(buf); err != nil {
		t.Fatalf("ProcessBlock() error = %v", err)
	}

	if err := c.SetCharacter(CharacterStairwell); err != nil {
		t.Fatalf("SetCharacter() error = %v", err)
	}

	if !c.PendingReload() {
		t.Error("character change should mark a pending reload")
	}

	if err := c.ProcessBlock(buf); err != nil {
		t.Fatalf("ProcessBlock() after change error = %v", err)
	}

	if c.PendingReload() {
		t.Error("reload should complete at the next block boundary")
	}
}
