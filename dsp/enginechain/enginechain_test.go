package enginechain

import (
	"math"
	"testing"

	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
)

func testSpec() engine.ProcessSpec {
	return engine.ProcessSpec{SampleRate: 48000, MaxBlockSize: 256, NumChannels: 2}
}

func makeBlock(channels, n int) [][]float64 {
	block := make([][]float64, channels)
	for ch := range block {
		block[ch] = make([]float64, n)
		for i := range block[ch] {
			block[ch][i] = 0.5 * math.Sin(0.07*float64(i)+float64(ch))
		}
	}

	return block
}

func TestRegistryCoversEveryKind(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != int(kindCount)-1 {
		t.Fatalf("Kinds() = %d entries, want %d", len(kinds), int(kindCount)-1)
	}

	for _, k := range kinds {
		if !k.Valid() {
			t.Errorf("kind %d reported invalid", k)
		}

		if k.String() == "none" {
			t.Errorf("kind %d has no registered name", k)
		}

		if ParameterCount(k) == 0 {
			t.Errorf("%s has no parameters", k)
		}

		if ParameterName(k, 0) == "" {
			t.Errorf("%s parameter 0 has no name", k)
		}

		if ParameterName(k, ParameterCount(k)) != "" {
			t.Errorf("%s out-of-range parameter name should be empty", k)
		}
	}
}

func TestNewEngineUnknownKind(t *testing.T) {
	if _, err := NewEngine(KindNone); err == nil {
		t.Error("NewEngine(KindNone) should fail")
	}

	if _, err := NewEngine(Kind(99)); err == nil {
		t.Error("NewEngine(99) should fail")
	}
}

// TestEveryKindPreparesAndProcesses builds each registered engine at its
// defaults and pushes a few blocks through, which exercises every build
// closure and applier binding.
func TestEveryKindPreparesAndProcesses(t *testing.T) {
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			e, err := NewEngine(k)
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}

			if err := e.Prepare(testSpec()); err != nil {
				t.Fatalf("Prepare() error = %v", err)
			}

			if e.LatencySamples() < 0 {
				t.Errorf("LatencySamples() = %d, want >= 0", e.LatencySamples())
			}

			block := makeBlock(2, 256)
			for range 8 {
				e.Process(block)
			}

			for ch := range block {
				for i, x := range block[ch] {
					if math.IsNaN(x) || math.IsInf(x, 0) {
						t.Fatalf("non-finite sample at ch %d index %d", ch, i)
					}
				}
			}

			e.Reset()
		})
	}
}

func TestEngineProcessBeforePrepareIsCountedNoOp(t *testing.T) {
	e, err := NewEngine(KindDigitalDelay)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	block := makeBlock(2, 64)
	want := makeBlock(2, 64)

	e.Process(block)

	for ch := range block {
		for i := range block[ch] {
			if block[ch][i] != want[ch][i] {
				t.Fatalf("unprepared Process altered sample ch %d index %d", ch, i)
			}
		}
	}

	if e.Diagnostics().NotPrepared() != 1 {
		t.Errorf("NotPrepared() = %d, want 1", e.Diagnostics().NotPrepared())
	}
}

func TestEngineInvalidSpecRejected(t *testing.T) {
	e, _ := NewEngine(KindPlateReverb)

	tests := []struct {
		name string
		spec engine.ProcessSpec
	}{
		{"low sample rate", engine.ProcessSpec{SampleRate: 8000, MaxBlockSize: 256, NumChannels: 2}},
		{"zero block size", engine.ProcessSpec{SampleRate: 48000, MaxBlockSize: 0, NumChannels: 2}},
		{"too many channels", engine.ProcessSpec{SampleRate: 48000, MaxBlockSize: 256, NumChannels: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.Prepare(tt.spec); err == nil {
				t.Error("Prepare() with invalid spec should fail")
			}
		})
	}
}

func TestEngineRejectsUnknownParameterIndices(t *testing.T) {
	e, _ := NewEngine(KindCompressor)

	e.UpdateParameters(map[int]float64{0: 0.5, 99: 0.2})

	if got := e.Diagnostics().RejectedIndices(); got != 1 {
		t.Errorf("RejectedIndices() = %d, want 1", got)
	}
}

func TestEngineKindAndNames(t *testing.T) {
	e, _ := NewEngine(KindBitCrusher)

	if e.Kind() != KindBitCrusher {
		t.Errorf("Kind() = %v, want %v", e.Kind(), KindBitCrusher)
	}

	if e.ParameterCount() != ParameterCount(KindBitCrusher) {
		t.Errorf("ParameterCount() = %d, want %d", e.ParameterCount(), ParameterCount(KindBitCrusher))
	}

	if e.ParameterName(0) == "" {
		t.Error("ParameterName(0) should not be empty")
	}

	if e.ParameterName(-1) != "" {
		t.Error("ParameterName(-1) should be empty")
	}
}

func TestChainSlotRangeValidation(t *testing.T) {
	c := NewChain()

	for _, slot := range []int{-1, NumSlots} {
		if err := c.SetEngine(slot, KindPlateReverb); err == nil {
			t.Errorf("SetEngine(%d) should fail", slot)
		}

		if err := c.SetBypass(slot, true); err == nil {
			t.Errorf("SetBypass(%d) should fail", slot)
		}

		if err := c.SetMix(slot, 0.5); err == nil {
			t.Errorf("SetMix(%d) should fail", slot)
		}

		if err := c.UpdateEngineParameters(slot, nil); err == nil {
			t.Errorf("UpdateEngineParameters(%d) should fail", slot)
		}

		if c.EngineAt(slot) != nil {
			t.Errorf("EngineAt(%d) should be nil", slot)
		}
	}

	if err := c.SetMix(0, 1.5); err == nil {
		t.Error("SetMix(0, 1.5) should fail")
	}

	if err := c.SetMix(0, math.NaN()); err == nil {
		t.Error("SetMix(0, NaN) should fail")
	}
}

func TestChainSetEngineAndClear(t *testing.T) {
	c := NewChain()

	if err := c.SetEngine(0, KindDigitalDelay); err != nil {
		t.Fatalf("SetEngine() error = %v", err)
	}

	if c.EngineAt(0) == nil {
		t.Fatal("EngineAt(0) is nil after SetEngine")
	}

	if c.EngineAt(0).Kind() != KindDigitalDelay {
		t.Errorf("installed kind = %v, want %v", c.EngineAt(0).Kind(), KindDigitalDelay)
	}

	if err := c.SetEngine(0, KindNone); err != nil {
		t.Fatalf("SetEngine(KindNone) error = %v", err)
	}

	if c.EngineAt(0) != nil {
		t.Error("EngineAt(0) should be nil after clearing")
	}
}

func TestChainProcessBeforePrepareIsCountedNoOp(t *testing.T) {
	c := NewChain()

	block := makeBlock(2, 64)
	want := makeBlock(2, 64)

	c.Process(block)

	for ch := range block {
		for i := range block[ch] {
			if block[ch][i] != want[ch][i] {
				t.Fatalf("unprepared Process altered sample ch %d index %d", ch, i)
			}
		}
	}

	if c.Diagnostics().NotPrepared() != 1 {
		t.Errorf("NotPrepared() = %d, want 1", c.Diagnostics().NotPrepared())
	}
}

func TestChainEmptyPassesThrough(t *testing.T) {
	c := NewChain()

	if err := c.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	block := makeBlock(2, 256)
	want := makeBlock(2, 256)

	c.Process(block)

	for ch := range block {
		for i := range block[ch] {
			if block[ch][i] != want[ch][i] {
				t.Fatalf("empty chain altered sample ch %d index %d", ch, i)
			}
		}
	}
}

func TestChainLatencySumsUnbypassedSlots(t *testing.T) {
	c := NewChain()

	if err := c.SetEngine(0, KindPitchShifter); err != nil {
		t.Fatalf("SetEngine() error = %v", err)
	}

	if err := c.SetEngine(1, KindDigitalDelay); err != nil {
		t.Fatalf("SetEngine() error = %v", err)
	}

	if err := c.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	shifterLatency := c.EngineAt(0).LatencySamples()
	if shifterLatency <= 0 {
		t.Fatalf("pitch shifter latency = %d, want > 0", shifterLatency)
	}

	want := shifterLatency + c.EngineAt(1).LatencySamples()
	if c.LatencySamples() != want {
		t.Errorf("LatencySamples() = %d, want %d", c.LatencySamples(), want)
	}

	_ = c.SetBypass(0, true)

	want -= shifterLatency
	if c.LatencySamples() != want {
		t.Errorf("LatencySamples() with bypass = %d, want %d", c.LatencySamples(), want)
	}
}

// TestChainZeroMixIsTransparent pins a slot's mix at zero before Prepare
// so it snaps there; the crossfade then returns the dry block untouched.
func TestChainZeroMixIsTransparent(t *testing.T) {
	c := NewChain()

	if err := c.SetEngine(0, KindTubeSaturator); err != nil {
		t.Fatalf("SetEngine() error = %v", err)
	}

	if err := c.SetMix(0, 0); err != nil {
		t.Fatalf("SetMix() error = %v", err)
	}

	if err := c.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	block := makeBlock(2, 256)
	want := makeBlock(2, 256)

	for range 4 {
		c.Process(block)
	}

	// Re-fill and compare a fresh block; the saturator has state but the
	// zero mix discards its wet signal entirely.
	block = makeBlock(2, 256)
	c.Process(block)

	for ch := range block {
		for i := range block[ch] {
			if block[ch][i] != want[ch][i] {
				t.Fatalf("zero-mix slot altered sample ch %d index %d", ch, i)
			}
		}
	}
}

func TestChainProcessesSerialEngines(t *testing.T) {
	c := NewChain()

	_ = c.SetEngine(0, KindCompressor)
	_ = c.SetEngine(2, KindPlateReverb)
	_ = c.SetEngine(5, KindStereoWidener)

	if err := c.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	block := makeBlock(2, 256)
	for range 20 {
		c.Process(block)

		for ch := range block {
			for i, x := range block[ch] {
				if math.IsNaN(x) || math.IsInf(x, 0) {
					t.Fatalf("non-finite sample at ch %d index %d", ch, i)
				}
			}
		}
	}

	c.Reset()
}

func TestChainOversizedBlockIgnored(t *testing.T) {
	c := NewChain()

	if err := c.Prepare(testSpec()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	block := makeBlock(2, 512)
	want := makeBlock(2, 512)

	c.Process(block)

	for ch := range block {
		for i := range block[ch] {
			if block[ch][i] != want[ch][i] {
				t.Fatalf("oversized block was touched at ch %d index %d", ch, i)
			}
		}
	}
}

func TestChainForwardsParameterUpdates(t *testing.T) {
	c := NewChain()

	_ = c.SetEngine(0, KindCompressor)

	if err := c.UpdateEngineParameters(0, map[int]float64{0: 0.5, 42: 0.1}); err != nil {
		t.Fatalf("UpdateEngineParameters() error = %v", err)
	}

	if got := c.EngineAt(0).Diagnostics().RejectedIndices(); got != 1 {
		t.Errorf("RejectedIndices() = %d, want 1", got)
	}

	// Empty slots swallow updates without error.
	if err := c.UpdateEngineParameters(1, map[int]float64{0: 0.5}); err != nil {
		t.Fatalf("UpdateEngineParameters() on empty slot error = %v", err)
	}
}
