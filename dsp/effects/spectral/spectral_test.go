package spectral

import (
	"math"
	"testing"
)

// estimateHz counts hysteresis-guarded zero crossings and returns the
// dominant frequency of buf in Hz.
func estimateHz(buf []float64, sampleRate float64) float64 {
	const band = 0.05

	state := 0
	crossings := 0

	for _, x := range buf {
		switch {
		case x > band && state <= 0:
			if state < 0 {
				crossings++
			}

			state = 1
		case x < -band && state >= 0:
			if state > 0 {
				crossings++
			}

			state = -1
		}
	}

	return float64(crossings) / 2 * sampleRate / float64(len(buf))
}

func TestNewPitchShifterValidation(t *testing.T) {
	tests := []struct {
		name      string
		sr        float64
		frameSize int
		wantErr   bool
	}{
		{"valid 2048", 48000, 2048, false},
		{"valid min", 48000, 512, false},
		{"valid max", 48000, 4096, false},
		{"not power of two", 48000, 1000, true},
		{"too small", 48000, 256, true},
		{"too large", 48000, 8192, true},
		{"bad sample rate", 0, 2048, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPitchShifter(tt.sr, tt.frameSize)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewPitchShifter() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if p.FrameSize() != tt.frameSize {
					t.Errorf("FrameSize() = %d, want %d", p.FrameSize(), tt.frameSize)
				}

				if p.Latency() != tt.frameSize {
					t.Errorf("Latency() = %d, want %d", p.Latency(), tt.frameSize)
				}
			}
		})
	}
}

func TestPitchShifterSetterRanges(t *testing.T) {
	p, err := NewPitchShifterDefault(48000)
	if err != nil {
		t.Fatalf("NewPitchShifterDefault() error = %v", err)
	}

	tests := []struct {
		name    string
		set     func() error
		wantErr bool
	}{
		{"ratio min", func() error { return p.SetPitchRatio(0.25) }, false},
		{"ratio max", func() error { return p.SetPitchRatio(4) }, false},
		{"ratio low", func() error { return p.SetPitchRatio(0.1) }, true},
		{"ratio high", func() error { return p.SetPitchRatio(5) }, true},
		{"ratio NaN", func() error { return p.SetPitchRatio(math.NaN()) }, true},
		{"semitones octave", func() error { return p.SetPitchSemitones(12) }, false},
		{"semitones out of ratio range", func() error { return p.SetPitchSemitones(30) }, true},
		{"semitones NaN", func() error { return p.SetPitchSemitones(math.NaN()) }, true},
		{"formant ok", func() error { return p.SetFormantRatio(1.5) }, false},
		{"formant low", func() error { return p.SetFormantRatio(0.4) }, true},
		{"gate ok", func() error { return p.SetGateThreshold(0.3) }, false},
		{"gate high", func() error { return p.SetGateThreshold(1.5) }, true},
		{"feedback ok", func() error { return p.SetFeedback(0.5) }, false},
		{"feedback high", func() error { return p.SetFeedback(0.95) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(); (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestPitchShifterOctaveUp shifts a sine one octave and measures the
// output frequency by zero-crossing rate.
func TestPitchShifterOctaveUp(t *testing.T) {
	const (
		sr   = 48000.0
		inHz = 480.0
	)

	p, err := NewPitchShifterDefault(sr)
	if err != nil {
		t.Fatalf("NewPitchShifterDefault() error = %v", err)
	}

	_ = p.SetPitchSemitones(12)

	// Settle through the latency plus several frames.
	n := 0
	for range 4 * p.Latency() {
		p.ProcessSample(math.Sin(2 * math.Pi * inHz * float64(n) / sr))
		n++
	}

	out := make([]float64, 48000)
	for i := range out {
		out[i] = p.ProcessSample(math.Sin(2 * math.Pi * inHz * float64(n) / sr))
		n++

		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			t.Fatal("non-finite output")
		}
	}

	got := estimateHz(out, sr)
	want := 2 * inHz

	if math.Abs(got-want) > 0.1*want {
		t.Errorf("shifted frequency = %f Hz, want ~%f", got, want)
	}
}

func TestPitchShifterUnityRatioKeepsFrequency(t *testing.T) {
	const (
		sr   = 48000.0
		inHz = 1007.8125 // bin-centered for a 2048 frame
	)

	p, _ := NewPitchShifterDefault(sr)
	_ = p.SetPitchRatio(1)

	n := 0
	for range 4 * p.Latency() {
		p.ProcessSample(math.Sin(2 * math.Pi * inHz * float64(n) / sr))
		n++
	}

	out := make([]float64, 48000)
	energy := 0.0
	for i := range out {
		out[i] = p.ProcessSample(math.Sin(2 * math.Pi * inHz * float64(n) / sr))
		energy += out[i] * out[i]
		n++
	}

	if energy == 0 {
		t.Fatal("unity ratio produced silence")
	}

	got := estimateHz(out, sr)
	if math.Abs(got-inHz) > 0.05*inHz {
		t.Errorf("unity-ratio frequency = %f Hz, want ~%f", got, inHz)
	}
}

func TestPitchShifterReset(t *testing.T) {
	p, _ := NewPitchShifterDefault(48000)
	_ = p.SetPitchSemitones(7)

	for i := range 10000 {
		p.ProcessSample(math.Sin(0.2 * float64(i)))
	}

	p.Reset()

	if y := p.ProcessSample(0); y != 0 {
		t.Errorf("output after Reset = %g, want 0", y)
	}
}

func TestNewGateValidation(t *testing.T) {
	if _, err := NewGate(0, 2048); err == nil {
		t.Error("NewGate(0, 2048) should fail")
	}

	if _, err := NewGate(48000, 1000); err == nil {
		t.Error("NewGate with non-power-of-two frame should fail")
	}

	g, err := NewGate(48000, 2048)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}

	if g.Latency() != 2048 {
		t.Errorf("Latency() = %d, want %d", g.Latency(), 2048)
	}
}

func TestGateSetterRanges(t *testing.T) {
	g, _ := NewGate(48000, 2048)

	tests := []struct {
		name    string
		set     func() error
		wantErr bool
	}{
		{"threshold ok", func() error { return g.SetThreshold(0.2) }, false},
		{"threshold high", func() error { return g.SetThreshold(1.5) }, true},
		{"attack ok", func() error { return g.SetAttack(10) }, false},
		{"attack long", func() error { return g.SetAttack(600) }, true},
		{"release ok", func() error { return g.SetRelease(100) }, false},
		{"release long", func() error { return g.SetRelease(2500) }, true},
		{"center ok", func() error { return g.SetCenter(1000) }, false},
		{"center above nyquist", func() error { return g.SetCenter(30000) }, true},
		{"bandwidth ok", func() error { return g.SetBandwidth(4000) }, false},
		{"bandwidth negative", func() error { return g.SetBandwidth(-1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(); (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestGateOpenIsTransparent sets a zero threshold and zero attack so every
// bin opens instantly; the overlap-add pipeline then reconstructs the
// input exactly, one latency later.
func TestGateOpenIsTransparent(t *testing.T) {
	g, err := NewGate(48000, 2048)
	if err != nil {
		t.Fatalf("NewGate() error = %v", err)
	}

	_ = g.SetThreshold(0)
	_ = g.SetAttack(0)

	latency := g.Latency()

	input := make([]float64, 4*2048)
	for i := range input {
		input[i] = math.Sin(0.013*float64(i)) * 0.7
	}

	for i, x := range input {
		y := g.ProcessSample(x)

		if i >= latency+2048 {
			if math.Abs(y-input[i-latency]) > 1e-6 {
				t.Fatalf("open gate output[%d] = %g, want %g", i, y, input[i-latency])
			}
		}
	}
}

func TestGateMutesQuietSignal(t *testing.T) {
	g, _ := NewGate(48000, 2048)
	_ = g.SetThreshold(0.5)

	peak := 0.0
	for i := range 6 * 2048 {
		y := g.ProcessSample(0.01 * math.Sin(2*math.Pi*1000*float64(i)/48000))

		if i > 2*2048 {
			peak = math.Max(peak, math.Abs(y))
		}
	}

	if peak > 1e-6 {
		t.Errorf("quiet signal leaked through closed gate: %g", peak)
	}
}

func TestGateInvertMutesLoudSignal(t *testing.T) {
	g, _ := NewGate(48000, 2048)
	_ = g.SetThreshold(0.1)
	_ = g.SetAttack(0)
	g.SetInvert(true)

	// Bin-centered so every leakage bin clears the threshold and is muted.
	peak := 0.0
	for i := range 8 * 2048 {
		y := g.ProcessSample(math.Sin(2 * math.Pi * 1007.8125 * float64(i) / 48000))

		if i > 4*2048 {
			peak = math.Max(peak, math.Abs(y))
		}
	}

	if peak > 0.05 {
		t.Errorf("inverted gate passed a loud signal: %g", peak)
	}
}

func TestFreezeBypassIsTransparent(t *testing.T) {
	f, err := NewFreeze(48000, 2048)
	if err != nil {
		t.Fatalf("NewFreeze() error = %v", err)
	}

	if f.Frozen() {
		t.Error("new freeze should start released")
	}

	latency := f.Latency()

	input := make([]float64, 4*2048)
	for i := range input {
		input[i] = math.Sin(0.02 * float64(i))
	}

	for i, x := range input {
		y := f.ProcessSample(x)

		if i >= latency+2048 {
			if math.Abs(y-input[i-latency]) > 1e-6 {
				t.Fatalf("released freeze output[%d] = %g, want %g", i, y, input[i-latency])
			}
		}
	}
}

func TestFreezeSustainsAfterInputStops(t *testing.T) {
	f, _ := NewFreeze(48000, 2048)
	_ = f.SetBlend(1)

	// Feed a sine, engage, then cut the input.
	for i := range 4 * 2048 {
		f.ProcessSample(math.Sin(2 * math.Pi * 500 * float64(i) / 48000))
	}

	f.SetFrozen(true)
	if !f.Frozen() {
		t.Fatal("SetFrozen(true) did not engage")
	}

	for i := range 2 * 2048 {
		f.ProcessSample(math.Sin(2 * math.Pi * 500 * float64(i) / 48000))
	}

	// A full second of silence later the held spectrum still sounds.
	energy := 0.0
	for range 48000 {
		y := f.ProcessSample(0)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			t.Fatal("non-finite frozen output")
		}

		energy += y * y
	}

	if energy < 1e-3 {
		t.Errorf("frozen tail energy = %g, want sustained output", energy)
	}
}

func TestFreezeBlendValidation(t *testing.T) {
	f, _ := NewFreeze(48000, 2048)

	if err := f.SetBlend(0.5); err != nil {
		t.Errorf("SetBlend(0.5) error = %v", err)
	}

	if err := f.SetBlend(1.5); err == nil {
		t.Error("SetBlend(1.5) should fail")
	}

	if err := f.SetBlend(math.NaN()); err == nil {
		t.Error("SetBlend(NaN) should fail")
	}
}

func TestNewFrequencyShifterValidation(t *testing.T) {
	if _, err := NewFrequencyShifter(0); err == nil {
		t.Error("NewFrequencyShifter(0) should fail")
	}

	f, err := NewFrequencyShifter(48000)
	if err != nil {
		t.Fatalf("NewFrequencyShifter() error = %v", err)
	}

	if f.Latency() != 32 {
		t.Errorf("Latency() = %d, want 32", f.Latency())
	}

	if err := f.SetShift(5001); err == nil {
		t.Error("SetShift(5001) should fail")
	}

	if err := f.SetShift(-5000); err != nil {
		t.Errorf("SetShift(-5000) error = %v", err)
	}

	if err := f.SetFeedback(0.96); err == nil {
		t.Error("SetFeedback(0.96) should fail")
	}

	if err := f.SetResonance(1.1); err == nil {
		t.Error("SetResonance(1.1) should fail")
	}
}

// TestFrequencyShifterZeroShiftIsPureDelay verifies that at zero shift the
// output is exactly the Hilbert real path, a pure delay.
func TestFrequencyShifterZeroShiftIsPureDelay(t *testing.T) {
	f, err := NewFrequencyShifter(48000)
	if err != nil {
		t.Fatalf("NewFrequencyShifter() error = %v", err)
	}

	delay := f.Latency()

	input := make([]float64, 512)
	for i := range input {
		input[i] = math.Sin(0.21 * float64(i))
	}

	for i, x := range input {
		y := f.ProcessSample(x)

		if i >= delay {
			if math.Abs(y-input[i-delay]) > 1e-12 {
				t.Fatalf("zero-shift output[%d] = %g, want %g", i, y, input[i-delay])
			}
		}
	}
}

func TestFrequencyShifterMovesSine(t *testing.T) {
	const (
		sr    = 48000.0
		inHz  = 1000.0
		shift = 150.0
	)

	f, _ := NewFrequencyShifter(sr)
	_ = f.SetShift(shift)

	// Skip the FIR transient.
	n := 0
	for range 1000 {
		f.ProcessSample(math.Sin(2 * math.Pi * inHz * float64(n) / sr))
		n++
	}

	out := make([]float64, 48000)
	for i := range out {
		out[i] = f.ProcessSample(math.Sin(2 * math.Pi * inHz * float64(n) / sr))
		n++
	}

	got := estimateHz(out, sr)
	want := inHz + shift

	if math.Abs(got-want) > 0.05*want {
		t.Errorf("shifted frequency = %f Hz, want ~%f", got, want)
	}
}

func TestQuantizeToScale(t *testing.T) {
	tests := []struct {
		name      string
		semitones int
		scale     Scale
		root      int
		want      int
	}{
		{"chromatic identity", 3, ScaleChromatic, 0, 3},
		{"major in scale", 7, ScaleMajor, 0, 7},
		{"major tritone ties down", 6, ScaleMajor, 0, 5},
		{"major minor second ties down", 1, ScaleMajor, 0, 0},
		{"major octave", 12, ScaleMajor, 0, 12},
		{"major below zero in scale", -1, ScaleMajor, 0, -1},
		{"pentatonic tie resolves down", 3, ScalePentatonicMajor, 0, 2},
		{"minor third in natural minor", 3, ScaleNaturalMinor, 0, 3},
		{"blues flat five", 6, ScaleBlues, 0, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuantizeToScale(tt.semitones, tt.scale, tt.root); got != tt.want {
				t.Errorf("QuantizeToScale(%d, %v, %d) = %d, want %d", tt.semitones, tt.scale, tt.root, got, tt.want)
			}
		})
	}
}

func TestScaleStrings(t *testing.T) {
	for _, s := range []Scale{
		ScaleChromatic, ScaleMajor, ScaleNaturalMinor, ScaleHarmonicMinor,
		ScaleMelodicMinor, ScaleDorian, ScaleMixolydian,
		ScalePentatonicMajor, ScalePentatonicMinor, ScaleBlues,
	} {
		if s.String() == "unknown" {
			t.Errorf("Scale(%d) has no name", s)
		}
	}

	if Scale(99).String() != "unknown" {
		t.Error("out-of-range scale should be unknown")
	}
}

func TestNewHarmonizerValidation(t *testing.T) {
	if _, err := NewHarmonizer(0); err == nil {
		t.Error("NewHarmonizer(0) should fail")
	}

	h, err := NewHarmonizer(48000)
	if err != nil {
		t.Fatalf("NewHarmonizer() error = %v", err)
	}

	if h.Latency() != 2048 {
		t.Errorf("Latency() = %d, want 2048", h.Latency())
	}

	tests := []struct {
		name    string
		set     func() error
		wantErr bool
	}{
		{"voices ok", func() error { return h.SetVoices(4) }, false},
		{"voices zero", func() error { return h.SetVoices(0) }, true},
		{"voices high", func() error { return h.SetVoices(5) }, true},
		{"scale ok", func() error { return h.SetScale(ScaleDorian) }, false},
		{"scale unknown", func() error { return h.SetScale(Scale(42)) }, true},
		{"root ok", func() error { return h.SetRoot(11) }, false},
		{"root high", func() error { return h.SetRoot(12) }, true},
		{"interval ok", func() error { return h.SetVoiceInterval(0, -12) }, false},
		{"interval far", func() error { return h.SetVoiceInterval(0, 30) }, true},
		{"interval bad voice", func() error { return h.SetVoiceInterval(4, 0) }, true},
		{"gain ok", func() error { return h.SetVoiceGain(1, 0.5) }, false},
		{"gain high", func() error { return h.SetVoiceGain(1, 1.5) }, true},
		{"wet ok", func() error { return h.SetWet(1) }, false},
		{"wet negative", func() error { return h.SetWet(-1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.set(); (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestHarmonizerUnisonVoice checks a single zero-interval voice replays
// the input at the original frequency.
func TestHarmonizerUnisonVoice(t *testing.T) {
	const sr = 48000.0

	h, err := NewHarmonizer(sr)
	if err != nil {
		t.Fatalf("NewHarmonizer() error = %v", err)
	}

	_ = h.SetVoices(1)
	_ = h.SetScale(ScaleChromatic)
	_ = h.SetVoiceInterval(0, 0)
	_ = h.SetWet(1)
	_ = h.SetDry(0)

	n := 0
	for range 4 * 2048 {
		h.ProcessSample(math.Sin(2 * math.Pi * 440 * float64(n) / sr))
		n++
	}

	out := make([]float64, 24000)
	for i := range out {
		out[i] = h.ProcessSample(math.Sin(2 * math.Pi * 440 * float64(n) / sr))
		n++
	}

	got := estimateHz(out, sr)
	if math.Abs(got-440) > 0.05*440 {
		t.Errorf("unison frequency = %f Hz, want ~440", got)
	}
}

// TestHarmonizerOctaveVoice checks a +12 semitone voice doubles the
// replay frequency.
func TestHarmonizerOctaveVoice(t *testing.T) {
	const sr = 48000.0

	h, _ := NewHarmonizer(sr)
	_ = h.SetVoices(1)
	_ = h.SetScale(ScaleChromatic)
	_ = h.SetVoiceInterval(0, 12)
	_ = h.SetWet(1)
	_ = h.SetDry(0)

	n := 0
	for range 4 * 2048 {
		h.ProcessSample(math.Sin(2 * math.Pi * 440 * float64(n) / sr))
		n++
	}

	out := make([]float64, 24000)
	for i := range out {
		out[i] = h.ProcessSample(math.Sin(2 * math.Pi * 440 * float64(n) / sr))
		n++

		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			t.Fatal("non-finite harmonizer output")
		}
	}

	got := estimateHz(out, sr)
	if math.Abs(got-880) > 0.1*880 {
		t.Errorf("octave voice frequency = %f Hz, want ~880", got)
	}
}

func TestHarmonizerReset(t *testing.T) {
	h, _ := NewHarmonizer(48000)
	_ = h.SetWet(1)
	_ = h.SetDry(0)

	for i := range 8192 {
		h.ProcessSample(math.Sin(0.1 * float64(i)))
	}

	h.Reset()

	if y := h.ProcessSample(0); y != 0 {
		t.Errorf("output after Reset = %g, want 0", y)
	}
}
