package enginechain

import (
	"github.com/chimeraaudio/phoenix-dsp/dsp/effects/dynamics"
	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
	"github.com/chimeraaudio/phoenix-dsp/dsp/envelope"
)

func init() {
	registerKind(KindCompressor, &kindDef{
		name: "compressor",
		params: []paramSpec{
			{name: "threshold", smoothMs: smoothDefaultMs, initial: 0.775},
			{name: "ratio", smoothMs: smoothDefaultMs, initial: 0.158},
			{name: "knee", smoothMs: smoothDefaultMs, initial: 0.25},
			{name: "attack", smoothMs: smoothDefaultMs, initial: 0.02},
			{name: "release", smoothMs: smoothDefaultMs, initial: 0.03},
			{name: "detector", smoothMs: 0, initial: 0.5},
			{name: "makeup", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "auto makeup", smoothMs: 0, initial: 0},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*dynamics.Compressor, spec.NumChannels)

			for i := range chs {
				c, err := dynamics.NewCompressor(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = c
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
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) {
						dB := mapLin(v, -80, 0)
						for _, c := range chs {
							_ = c.SetThreshold(dB)
						}
					},
					func(v float64) {
						ratio := mapLin(v, 1, 20)
						for _, c := range chs {
							_ = c.SetRatio(ratio)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetKnee(v * 24)
						}
					},
					func(v float64) {
						ms := mapLin(v, 0.01, 500)
						for _, c := range chs {
							_ = c.SetAttack(ms)
						}
					},
					func(v float64) {
						ms := mapLin(v, 1, 5000)
						for _, c := range chs {
							_ = c.SetRelease(ms)
						}
					},
					func(v float64) {
						mode := envelope.Mode(mapInt(v, 0, 2))
						for _, c := range chs {
							_ = c.SetDetectorMode(mode)
						}
					},
					func(v float64) {
						dB := mapLin(v, -24, 24)
						for _, c := range chs {
							_ = c.SetMakeup(dB)
						}
					},
					func(v float64) {
						auto := mapBool(v)
						for _, c := range chs {
							c.SetAutoMakeup(auto)
						}
					},
				},
			}, nil
		},
	})

	registerKind(KindOptoCompressor, &kindDef{
		name: "opto compressor",
		params: []paramSpec{
			{name: "threshold", smoothMs: smoothDefaultMs, initial: 0.8},
			{name: "ratio", smoothMs: smoothDefaultMs, initial: 0.105},
			{name: "release", smoothMs: smoothDefaultMs, initial: 0.12},
			{name: "makeup", smoothMs: smoothDefaultMs, initial: 0.5},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*dynamics.OptoCompressor, spec.NumChannels)

			for i := range chs {
				c, err := dynamics.NewOptoCompressor(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = c
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
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) {
						dB := mapLin(v, -80, 0)
						for _, c := range chs {
							_ = c.SetThreshold(dB)
						}
					},
					func(v float64) {
						ratio := mapLin(v, 1, 20)
						for _, c := range chs {
							_ = c.SetRatio(ratio)
						}
					},
					func(v float64) {
						ms := mapLin(v, 1, 5000)
						for _, c := range chs {
							_ = c.SetRelease(ms)
						}
					},
					func(v float64) {
						dB := mapLin(v, -24, 24)
						for _, c := range chs {
							_ = c.SetMakeup(dB)
						}
					},
				},
			}, nil
		},
	})

	registerKind(KindLimiter, &kindDef{
		name: "limiter",
		params: []paramSpec{
			{name: "threshold", smoothMs: smoothDefaultMs, initial: 0.99625},
			{name: "ceiling", smoothMs: smoothDefaultMs, initial: 0.9875},
			{name: "makeup", smoothMs: smoothDefaultMs, initial: 0},
			{name: "lookahead", smoothMs: 0, initial: 0.495},
			{name: "release", smoothMs: smoothDefaultMs, initial: 0.02},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*dynamics.Limiter, spec.NumChannels)

			for i := range chs {
				l, err := dynamics.NewLimiter(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = l
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
						dB := mapLin(v, -80, 0)
						for _, c := range chs {
							_ = c.SetThreshold(dB)
						}
					},
					func(v float64) {
						dB := mapLin(v, -24, 0)
						for _, c := range chs {
							_ = c.SetCeiling(dB)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetMakeup(v * 24)
						}
					},
					func(v float64) {
						ms := mapLin(v, 0.1, 10)
						for _, c := range chs {
							_ = c.SetLookahead(ms)
						}
					},
					func(v float64) {
						ms := mapLin(v, 1, 5000)
						for _, c := range chs {
							_ = c.SetRelease(ms)
						}
					},
				},
			}, nil
		},
	})

	registerKind(KindTransientShaper, &kindDef{
		name: "transient shaper",
		params: []paramSpec{
			{name: "attack", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "sustain", smoothMs: smoothDefaultMs, initial: 0.5},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*dynamics.TransientShaper, spec.NumChannels)

			for i := range chs {
				t, err := dynamics.NewTransientShaper(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = t
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
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) {
						dB := mapLin(v, -24, 24)
						for _, c := range chs {
							_ = c.SetAttackGain(dB)
						}
					},
					func(v float64) {
						dB := mapLin(v, -24, 24)
						for _, c := range chs {
							_ = c.SetSustainGain(dB)
						}
					},
				},
			}, nil
		},
	})

	registerKind(KindNoiseGate, &kindDef{
		name: "noise gate",
		params: []paramSpec{
			{name: "threshold", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "hysteresis", smoothMs: smoothDefaultMs, initial: 0.25},
			{name: "hold", smoothMs: smoothDefaultMs, initial: 0.025},
			{name: "attack", smoothMs: smoothDefaultMs, initial: 0.002},
			{name: "release", smoothMs: smoothDefaultMs, initial: 0.02},
			{name: "range", smoothMs: smoothDefaultMs, initial: 0.2},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*dynamics.NoiseGate, spec.NumChannels)

			for i := range chs {
				g, err := dynamics.NewNoiseGate(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = g
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
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) {
						dB := mapLin(v, -100, 0)
						for _, c := range chs {
							_ = c.SetThreshold(dB)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetHysteresis(v * 24)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetHold(v * 2000)
						}
					},
					func(v float64) {
						ms := mapLin(v, 0.01, 500)
						for _, c := range chs {
							_ = c.SetAttack(ms)
						}
					},
					func(v float64) {
						ms := mapLin(v, 1, 5000)
						for _, c := range chs {
							_ = c.SetRelease(ms)
						}
					},
					func(v float64) {
						dB := mapLin(v, -100, 0)
						for _, c := range chs {
							_ = c.SetRange(dB)
						}
					},
				},
			}, nil
		},
	})
}
