package enginechain

import (
	"github.com/chimeraaudio/phoenix-dsp/dsp/effects/reverb"
	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
)

const smoothDefaultMs = 20.0

func init() {
	registerKind(KindPlateReverb, &kindDef{
		name: "plate reverb",
		params: []paramSpec{
			{name: "size", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "damp", smoothMs: smoothDefaultMs, initial: 0.3},
			{name: "predelay", smoothMs: smoothDefaultMs, initial: 0.1},
			{name: "brightness", smoothMs: smoothDefaultMs, initial: 0.7},
			{name: "mod depth", smoothMs: smoothDefaultMs, initial: 1},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.3},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*reverb.Plate, spec.NumChannels)

			for i := range chs {
				p, err := reverb.NewPlate(spec.SampleRate)
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
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) {
						for _, c := range chs {
							_ = c.SetSize(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetDamp(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetPreDelay(v * 0.1)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetBrightness(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetModDepth(v)
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

	registerKind(KindSpringReverb, &kindDef{
		name: "spring reverb",
		params: []paramSpec{
			{name: "springs", smoothMs: 0, initial: 0.67},
			{name: "decay", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "tension", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "drip", smoothMs: smoothDefaultMs, initial: 0.3},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.3},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*reverb.Spring, spec.NumChannels)

			for i := range chs {
				s, err := reverb.NewSpring(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = s
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
						for _, c := range chs {
							_ = c.SetSprings(mapInt(v, 1, 4))
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetDecay(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetTension(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetDrip(v)
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

	registerKind(KindGatedReverb, &kindDef{
		name: "gated reverb",
		params: []paramSpec{
			{name: "threshold", smoothMs: smoothDefaultMs, initial: 0.05},
			{name: "hold", smoothMs: smoothDefaultMs, initial: 0.075},
			{name: "release", smoothMs: smoothDefaultMs, initial: 0.05},
			{name: "size", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "damp", smoothMs: smoothDefaultMs, initial: 0.3},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.5},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*reverb.Gated, spec.NumChannels)

			for i := range chs {
				g, err := reverb.NewGated(spec.SampleRate)
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
						for _, c := range chs {
							_ = c.SetThreshold(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetHold(v * 2)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetRelease(0.005 + v*0.995)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetSize(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetDamp(v)
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

	registerKind(KindConvolutionReverb, &kindDef{
		name: "convolution reverb",
		params: []paramSpec{
			{name: "character", smoothMs: 0, initial: 0},
			{name: "size", smoothMs: 0, initial: 0.5},
			{name: "brightness", smoothMs: 0, initial: 0.7},
			{name: "reverse", smoothMs: 0, initial: 0},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.3},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*reverb.Convolution, spec.NumChannels)

			for i := range chs {
				c, err := reverb.NewConvolution(spec.SampleRate, spec.MaxBlockSize)
				if err != nil {
					return nil, err
				}

				chs[i] = c
			}

			return &builtProcessor{
				process: func(block [][]float64) {
					for i, ch := range block {
						if i < len(chs) {
							_ = chs[i].ProcessBlock(ch)
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
						ch := reverb.Character(mapInt(v, 0, 3))
						for _, c := range chs {
							_ = c.SetCharacter(ch)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetSize(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetBrightness(v)
						}
					},
					func(v float64) {
						rev := mapBool(v)
						for _, c := range chs {
							c.SetReverse(rev)
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
