package engine

import (
	"math"
	"testing"
)

func TestProcessSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    ProcessSpec
		wantErr bool
	}{
		{"valid mono", ProcessSpec{SampleRate: 48000, MaxBlockSize: 512, NumChannels: 1}, false},
		{"valid stereo", ProcessSpec{SampleRate: 44100, MaxBlockSize: 64, NumChannels: 2}, false},
		{"valid min rate", ProcessSpec{SampleRate: 22050, MaxBlockSize: 1, NumChannels: 1}, false},
		{"valid max rate", ProcessSpec{SampleRate: 192000, MaxBlockSize: 4096, NumChannels: 2}, false},
		{"rate too low", ProcessSpec{SampleRate: 8000, MaxBlockSize: 512, NumChannels: 1}, true},
		{"rate too high", ProcessSpec{SampleRate: 384000, MaxBlockSize: 512, NumChannels: 1}, true},
		{"rate NaN", ProcessSpec{SampleRate: math.NaN(), MaxBlockSize: 512, NumChannels: 1}, true},
		{"block zero", ProcessSpec{SampleRate: 48000, MaxBlockSize: 0, NumChannels: 1}, true},
		{"channels zero", ProcessSpec{SampleRate: 48000, MaxBlockSize: 512, NumChannels: 0}, true},
		{"channels three", ProcessSpec{SampleRate: 48000, MaxBlockSize: 512, NumChannels: 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTargetsSetGet(t *testing.T) {
	targets := NewTargets(4)

	if targets.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", targets.Count())
	}

	if !targets.Set(0, 0.5) {
		t.Error("Set(0) returned false")
	}

	if got := targets.Get(0); got != 0.5 {
		t.Errorf("Get(0) = %f, want 0.5", got)
	}

	// Out-of-range values clamp.
	targets.Set(1, 2.5)
	if got := targets.Get(1); got != 1 {
		t.Errorf("Get(1) after Set(2.5) = %f, want 1", got)
	}

	targets.Set(2, -0.5)
	if got := targets.Get(2); got != 0 {
		t.Errorf("Get(2) after Set(-0.5) = %f, want 0", got)
	}

	// NaN maps to 0.
	targets.Set(3, math.NaN())
	if got := targets.Get(3); got != 0 {
		t.Errorf("Get(3) after Set(NaN) = %f, want 0", got)
	}

	// Unknown indices are rejected.
	if targets.Set(4, 0.5) || targets.Set(-1, 0.5) {
		t.Error("Set out of range returned true")
	}

	if got := targets.Get(17); got != 0 {
		t.Errorf("Get(17) = %f, want 0", got)
	}
}

func TestTargetsApply(t *testing.T) {
	targets := NewTargets(2)

	rejected := targets.Apply(map[int]float64{
		0:  0.25,
		1:  0.75,
		5:  0.5,
		-1: 0.5,
	})

	if rejected != 2 {
		t.Errorf("Apply() rejected = %d, want 2", rejected)
	}

	if targets.Get(0) != 0.25 || targets.Get(1) != 0.75 {
		t.Error("Apply() did not store the valid entries")
	}
}

func TestScrubberReplacesNonFinite(t *testing.T) {
	s := NewScrubber(0)

	block := [][]float64{
		{0.5, math.NaN(), math.Inf(1), -0.5},
		{math.Inf(-1), 0, 1, 2},
	}

	scrubbed := s.ScrubBlock(block)

	if scrubbed != 3 {
		t.Errorf("ScrubBlock() = %d, want 3", scrubbed)
	}

	for ch := range block {
		for i, x := range block[ch] {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				t.Errorf("block[%d][%d] = %f still non-finite", ch, i, x)
			}
		}
	}

	if block[0][1] != 0 || block[0][2] != 0 || block[1][0] != 0 {
		t.Error("non-finite samples should be rewritten to 0")
	}

	if block[0][0] != 0.5 || block[0][3] != -0.5 {
		t.Error("finite in-range samples must pass untouched")
	}
}

func TestScrubberSoftClipsLoudSamples(t *testing.T) {
	s := NewScrubber(4)

	block := [][]float64{{10, -10, 3.9}}
	scrubbed := s.ScrubBlock(block)

	if scrubbed != 2 {
		t.Errorf("ScrubBlock() = %d, want 2", scrubbed)
	}

	limit := 1 / 0.7
	if math.Abs(block[0][0]) > limit || math.Abs(block[0][1]) > limit {
		t.Errorf("clipped samples exceed soft limit: %f, %f", block[0][0], block[0][1])
	}

	if block[0][2] != 3.9 {
		t.Errorf("sample within clip level changed: %f", block[0][2])
	}
}

func TestScrubberDefaultClip(t *testing.T) {
	if got := NewScrubber(0).Clip(); got != 4 {
		t.Errorf("default clip = %f, want 4", got)
	}

	if got := NewScrubber(math.NaN()).Clip(); got != 4 {
		t.Errorf("NaN clip = %f, want 4", got)
	}

	if got := NewScrubber(2).Clip(); got != 2 {
		t.Errorf("explicit clip = %f, want 2", got)
	}
}

func TestDiagnosticsCounters(t *testing.T) {
	var d Diagnostics

	d.CountNotPrepared()
	d.CountNotPrepared()
	d.CountScrubbed(5)
	d.CountScrubbed(0)
	d.CountScrubbed(-3)
	d.CountFailedAlloc()
	d.CountRejectedIndices(2)
	d.CountDeferredReload()

	if d.NotPrepared() != 2 {
		t.Errorf("NotPrepared() = %d, want 2", d.NotPrepared())
	}

	if d.ScrubbedSamples() != 5 {
		t.Errorf("ScrubbedSamples() = %d, want 5", d.ScrubbedSamples())
	}

	if d.FailedAllocs() != 1 {
		t.Errorf("FailedAllocs() = %d, want 1", d.FailedAllocs())
	}

	if d.RejectedIndices() != 2 {
		t.Errorf("RejectedIndices() = %d, want 2", d.RejectedIndices())
	}

	if d.DeferredReloads() != 1 {
		t.Errorf("DeferredReloads() = %d, want 1", d.DeferredReloads())
	}
}
