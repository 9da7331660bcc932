package enginechain

import (
	"github.com/chimeraaudio/phoenix-dsp/dsp/effects/spectral"
	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
)

func init() {
	registerKind(KindPitchShifter, &kindDef{
		name: "pitch shifter",
		params: []paramSpec{
			{name: "pitch", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "formant", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "gate", smoothMs: smoothDefaultMs, initial: 0},
			{name: "feedback", smoothMs: smoothDefaultMs, initial: 0},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*spectral.PitchShifter, spec.NumChannels)

			for i := range chs {
				p, err := spectral.NewPitchShifterDefault(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = p
			}

			return &builtProcessor{
				process: func(block [][]float64) {
					for i, ch := range block {
						if i < len(chs) {
							chs[i].ProcessBlock(ch)
						}
					}
				},
				reset: func() {
					for _, c := range chs {
						c.Reset()
					}
				},
				latency: func() int { return chs[0].Latency() },
				appliers: []func(float64){
					func(v float64) {
						semis := mapLin(v, -24, 24)
						for _, c := range chs {
							_ = c.SetPitchSemitones(semis)
						}
					},
					func(v float64) {
						ratio := mapLin(v, 0.5, 2)
						for _, c := range chs {
							_ = c.SetFormantRatio(ratio)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetGateThreshold(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetFeedback(v * 0.9)
						}
					},
				},
			}, nil
		},
	})

	registerKind(KindSpectralGate, &kindDef{
		name: "spectral gate",
		params: []paramSpec{
			{name: "threshold", smoothMs: smoothDefaultMs, initial: 0.1},
			{name: "attack", smoothMs: smoothDefaultMs, initial: 0.02},
			{name: "release", smoothMs: smoothDefaultMs, initial: 0.1},
			{name: "center", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "bandwidth", smoothMs: smoothDefaultMs, initial: 1},
			{name: "invert", smoothMs: 0, initial: 0},
			{name: "adaptive", smoothMs: 0, initial: 0},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*spectral.Gate, spec.NumChannels)

			for i := range chs {
				g, err := spectral.NewGate(spec.SampleRate, 2048)
				if err != nil {
					return nil, err
				}

				chs[i] = g
			}

			nyquist := spec.SampleRate * 0.5

			return &builtProcessor{
				process: func(block [][]float64) {
					for i, ch := range block {
						if i < len(chs) {
							chs[i].ProcessBlock(ch)
						}
					}
				},
				reset: func() {
					for _, c := range chs {
						c.Reset()
					}
				},
				latency: func() int { return chs[0].Latency() },
				appliers: []func(float64){
					func(v float64) {
						for _, c := range chs {
							_ = c.SetThreshold(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetAttack(v * 500)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetRelease(v * 2000)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetCenter(v * nyquist)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetBandwidth(v * spec.SampleRate)
						}
					},
					func(v float64) {
						inv := mapBool(v)
						for _, c := range chs {
							c.SetInvert(inv)
						}
					},
					func(v float64) {
						adaptive := mapBool(v)
						for _, c := range chs {
							c.SetAdaptive(adaptive)
						}
					},
				},
			}, nil
		},
	})

	registerKind(KindSpectralFreeze, &kindDef{
		name: "spectral freeze",
		params: []paramSpec{
			{name: "frozen", smoothMs: 0, initial: 0},
			{name: "blend", smoothMs: smoothDefaultMs, initial: 1},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*spectral.Freeze, spec.NumChannels)

			for i := range chs {
				f, err := spectral.NewFreeze(spec.SampleRate, 2048)
				if err != nil {
					return nil, err
				}

				chs[i] = f
			}

			return &builtProcessor{
				process: func(block [][]float64) {
					for i, ch := range block {
						if i < len(chs) {
							chs[i].ProcessBlock(ch)
						}
					}
				},
				reset: func() {
					for _, c := range chs {
						c.Reset()
					}
				},
				latency: func() int { return chs[0].Latency() },
				appliers: []func(float64){
					func(v float64) {
						frozen := mapBool(v)
						for _, c := range chs {
							c.SetFrozen(frozen)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetBlend(v)
						}
					},
				},
			}, nil
		},
	})

	registerKind(KindFrequencyShifter, &kindDef{
		name: "frequency shifter",
		params: []paramSpec{
			{name: "shift", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "feedback", smoothMs: smoothDefaultMs, initial: 0},
			{name: "resonance", smoothMs: smoothDefaultMs, initial: 0},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*spectral.FrequencyShifter, spec.NumChannels)

			for i := range chs {
				f, err := spectral.NewFrequencyShifter(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = f
			}

			return &builtProcessor{
				process: func(block [][]float64) {
					for i, ch := range block {
						if i < len(chs) {
							chs[i].ProcessBlock(ch)
						}
					}
				},
				reset: func() {
					for _, c := range chs {
						c.Reset()
					}
				},
				latency: func() int { return chs[0].Latency() },
				appliers: []func(float64){
					func(v float64) {
						hz := mapLin(v, -5000, 5000)
						for _, c := range chs {
							_ = c.SetShift(hz)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetFeedback(v * 0.95)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetResonance(v)
						}
					},
				},
			}, nil
		},
	})

	registerKind(KindHarmonizer, &kindDef{
		name: "harmonizer",
		params: []paramSpec{
			{name: "voices", smoothMs: 0, initial: 0.33},
			{name: "scale", smoothMs: 0, initial: 0.11},
			{name: "root", smoothMs: 0, initial: 0},
			{name: "interval 1", smoothMs: 0, initial: 0.5},
			{name: "interval 2", smoothMs: 0, initial: 0.583},
			{name: "interval 3", smoothMs: 0, initial: 0.646},
			{name: "interval 4", smoothMs: 0, initial: 0.729},
			{name: "formant preserve", smoothMs: 0, initial: 0},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.5},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*spectral.Harmonizer, spec.NumChannels)

			for i := range chs {
				h, err := spectral.NewHarmonizer(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = h
			}

			intervalApplier := func(voice int) func(float64) {
				return func(v float64) {
					semis := mapInt(v, -24, 24)
					for _, c := range chs {
						_ = c.SetVoiceInterval(voice, semis)
					}
				}
			}

			return &builtProcessor{
				process: func(block [][]float64) {
					for i, ch := range block {
						if i < len(chs) {
							chs[i].ProcessBlock(ch)
						}
					}
				},
				reset: func() {
					for _, c := range chs {
						c.Reset()
					}
				},
				latency: func() int { return chs[0].Latency() },
				appliers: []func(float64){
					func(v float64) {
						n := mapInt(v, 1, 4)
						for _, c := range chs {
							_ = c.SetVoices(n)
						}
					},
					func(v float64) {
						s := spectral.Scale(mapInt(v, 0, 9))
						for _, c := range chs {
							_ = c.SetScale(s)
						}
					},
					func(v float64) {
						root := mapInt(v, 0, 11)
						for _, c := range chs {
							_ = c.SetRoot(root)
						}
					},
					intervalApplier(0),
					intervalApplier(1),
					intervalApplier(2),
					intervalApplier(3),
					func(v float64) {
						keep := mapBool(v)
						for _, c := range chs {
							c.SetFormantPreserve(keep)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetWet(v)
							_ = c.SetDry(1 - v*0.5)
						}
					},
				},
			}, nil
		},
	})
}
