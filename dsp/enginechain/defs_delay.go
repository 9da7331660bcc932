package enginechain

import (
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/effects/delayfx"
	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
)

// Delay time maps exponentially so the low end of the knob still resolves
// short slapback settings.
func mapDelayTime(v float64) float64 {
	const minSec, maxSec = 0.001, 2.0

	return minSec * math.Pow(maxSec/minSec, v)
}

func init() {
	registerKind(KindDigitalDelay, &kindDef{
		name: "digital delay",
		params: []paramSpec{
			{name: "time", smoothMs: smoothDefaultMs, initial: 0.68},
			{name: "feedback", smoothMs: smoothDefaultMs, initial: 0.35},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.35},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*delayfx.Digital, spec.NumChannels)

			for i := range chs {
				d, err := delayfx.NewDigital(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = d
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
						sec := mapDelayTime(v)
						for _, c := range chs {
							_ = c.SetTime(sec)
						}
					},
					func(v float64) {
						fb := v * 1.1
						for _, c := range chs {
							_ = c.SetFeedback(fb)
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

	registerKind(KindTapeDelay, &kindDef{
		name: "tape delay",
		params: []paramSpec{
			{name: "time", smoothMs: smoothDefaultMs, initial: 0.68},
			{name: "feedback", smoothMs: smoothDefaultMs, initial: 0.4},
			{name: "drive", smoothMs: smoothDefaultMs, initial: 0.3},
			{name: "age", smoothMs: smoothDefaultMs, initial: 0.4},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.35},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*delayfx.Tape, spec.NumChannels)

			for i := range chs {
				d, err := delayfx.NewTape(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = d
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
						sec := mapDelayTime(v)
						for _, c := range chs {
							_ = c.SetTime(sec)
						}
					},
					func(v float64) {
						fb := v * 1.1
						for _, c := range chs {
							_ = c.SetFeedback(fb)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetDrive(v)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetAge(v)
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

	registerKind(KindBBDDelay, &kindDef{
		name: "bbd delay",
		params: []paramSpec{
			{name: "time", smoothMs: smoothDefaultMs, initial: 0.55},
			{name: "feedback", smoothMs: smoothDefaultMs, initial: 0.4},
			{name: "companding", smoothMs: smoothDefaultMs, initial: 0.6},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.35},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*delayfx.BBD, spec.NumChannels)

			for i := range chs {
				d, err := delayfx.NewBBD(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = d
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
						sec := mapDelayTime(v)
						for _, c := range chs {
							_ = c.SetTime(sec)
						}
					},
					func(v float64) {
						fb := v * 1.1
						for _, c := range chs {
							_ = c.SetFeedback(fb)
						}
					},
					func(v float64) {
						for _, c := range chs {
							_ = c.SetCompanding(v)
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

	registerKind(KindDrumDelay, &kindDef{
		name: "drum delay",
		params: []paramSpec{
			{name: "time", smoothMs: smoothDefaultMs, initial: 0.68},
			{name: "feedback", smoothMs: smoothDefaultMs, initial: 0.4},
			{name: "head 1", smoothMs: smoothDefaultMs, initial: 0},
			{name: "head 2", smoothMs: smoothDefaultMs, initial: 0.6},
			{name: "head 3", smoothMs: smoothDefaultMs, initial: 0},
			{name: "head 4", smoothMs: smoothDefaultMs, initial: 1},
			{name: "mix", smoothMs: smoothDefaultMs, initial: 0.35},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			chs := make([]*delayfx.Drum, spec.NumChannels)

			for i := range chs {
				d, err := delayfx.NewDrum(spec.SampleRate)
				if err != nil {
					return nil, err
				}

				chs[i] = d
			}

			headApplier := func(head int) func(float64) {
				return func(v float64) {
					for _, c := range chs {
						_ = c.SetHeadLevel(head, v)
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
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) {
						sec := mapDelayTime(v)
						for _, c := range chs {
							_ = c.SetTime(sec)
						}
					},
					func(v float64) {
						fb := v * 1.1
						for _, c := range chs {
							_ = c.SetFeedback(fb)
						}
					},
					headApplier(0),
					headApplier(1),
					headApplier(2),
					headApplier(3),
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
