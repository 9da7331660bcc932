package enginechain

import (
	"github.com/chimeraaudio/phoenix-dsp/dsp/effects/distortion"
	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
)

func registerSaturatorKind(kind Kind, name string, model distortion.Model) {
	registerKind(kind, &kindDef{
		name: name,
		params: []paramSpec{
			{name: "drive", smoothMs: smoothDefaultMs, initial: 0.3},
			{name: "bias", smoothMs: smoothDefaultMs, initial: 0},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 1},
			{name: "output", smoothMs: smoothDefaultMs, initial: 0.5},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*distortion.Saturator, spec.NumChannels)

			for i := range chs {
				s, err := distortion.NewSaturator(spec.SampleRate, spec.MaxBlockSize, model)
				if err != nil {
					return nil, err
				}

				chs[i] = s
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
						for _, c := range chs {
							_ = c.SetDrive(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetBias(v * 0.5)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetMix(v)
						}
					},
					func(v float64) {
						dB := mapLin(v, -24, 24)
						for _, c := range chs {
							_ = c.SetOutput(dB)
						}
					},
				},
			}, nil
		},
	})
}

func init() {
	registerSaturatorKind(KindTubeSaturator, "tube saturator", distortion.ModelTube)
	registerSaturatorKind(KindTapeSaturator, "tape saturator", distortion.ModelTape)

	registerKind(KindMultibandSaturator, &kindDef{
		name: "multiband saturator",
		params: []paramSpec{
			{name: "low drive", smoothMs: smoothDefaultMs, initial: 0.2},
			{name: "low mid drive", smoothMs: smoothDefaultMs, initial: 0.2},
			{name: "high mid drive", smoothMs: smoothDefaultMs, initial: 0.2},
			{name: "high drive", smoothMs: smoothDefaultMs, initial: 0.2},
			{name: "low level", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "low mid level", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "high mid level", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "high level", smoothMs: smoothDefaultMs, initial: 0.5},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*distortion.Multiband, spec.NumChannels)

			for i := range chs {
				m, err := distortion.NewMultiband(spec.SampleRate, spec.MaxBlockSize)
				if err != nil {
					return nil, err
				}

				chs[i] = m
			}

			driveApplier := func(band int) func(float64) {
				return func(v float64) {
					for _, c := range chs {
						_ = c.SetBandDrive(band, v)
					}
				}
			}

			levelApplier := func(band int) func(float64) {
				return func(v float64) {
					for _, c := range chs {
						_ = c.SetBandLevel(band, v*2)
					}
				}
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
				latency: func() int { return 0 },
				appliers: []func(float64){
					driveApplier(0),
					driveApplier(1),
					driveApplier(2),
					driveApplier(3),
					levelApplier(0),
					levelApplier(1),
					levelApplier(2),
					levelApplier(3),
				},
			}, nil
		},
	})

	registerKind(KindBitCrusher, &kindDef{
		name: "bit crusher",
		params: []paramSpec{
			{name: "bits", smoothMs: 0, initial: 0.478},
			{name: "downsample", smoothMs: 0, initial: 0.048},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 1},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*distortion.BitCrusher, spec.NumChannels)
			for i := range chs {
				chs[i] = distortion.NewBitCrusher()
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
						bits := mapInt(v, 1, 24)
						for _, c := range chs {
							_ = c.SetBits(bits)
						}
					},
					func(v float64) {
						factor := mapInt(v, 1, 64)
						for _, c := range chs {
							_ = c.SetDownsample(factor)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetMix(v)
						}
					},
				},
			}, nil
		},
	})
}
