package enginechain

import (
	"github.com/chimeraaudio/phoenix-dsp/dsp/effects/spatial"
	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
)

// stereoProcess wraps a left/right block processor; on non-stereo layouts
// the slot passes audio through untouched.
func stereoProcess(f func(left, right []float64) error) func([][]float64) {
	return func(block [][]float64) {
		if len(block) != 2 {
			return
		}

		_ = f(block[0], block[1])
	}
}

func init() {
	registerKind(KindMidSide, &kindDef{
		name: "mid side",
		params: []paramSpec{
			{name: "mid gain", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "side gain", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "mid shelf", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "side shelf", smoothMs: smoothDefaultMs, initial: 0.5},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			ms, err := spatial.NewMidSide(spec.SampleRate)
			if err != nil {
				return nil, err
			}

			return &builtProcessor{
				process: stereoProcess(ms.ProcessBlock),
				reset:   ms.Reset,
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) { _ = ms.SetMidGain(v * 2) },
					func(v float64) { _ = ms.SetSideGain(v * 2) },
					func(v float64) { _ = ms.SetMidShelf(mapLin(v, -12, 12)) },
					func(v float64) { _ = ms.SetSideShelf(mapLin(v, -12, 12)) },
				},
			}, nil
		},
	})

	registerKind(KindStereoWidener, &kindDef{
		name: "stereo widener",
		params: []paramSpec{
			{name: "width", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "bass mono", smoothMs: 0, initial: 0},
			{name: "bass mono freq", smoothMs: smoothDefaultMs, initial: 0.21},
			{name: "haas", smoothMs: smoothDefaultMs, initial: 0},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			w, err := spatial.NewWidener(spec.SampleRate)
			if err != nil {
				return nil, err
			}

			return &builtProcessor{
				process: stereoProcess(w.ProcessBlock),
				reset:   w.Reset,
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) { _ = w.SetWidth(v * 2) },
					func(v float64) { w.SetBassMono(mapBool(v)) },
					func(v float64) { _ = w.SetBassMonoFreq(mapLin(v, 20, 500)) },
					func(v float64) { _ = w.SetHaas(v * 30) },
				},
			}, nil
		},
	})

	registerKind(KindDimensionExpander, &kindDef{
		name: "dimension expander",
		params: []paramSpec{
			{name: "amount", smoothMs: smoothDefaultMs, initial: 0.5},
			{name: "detune", smoothMs: smoothDefaultMs, initial: 0.35},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			d, err := spatial.NewDimensionExpander(spec.SampleRate)
			if err != nil {
				return nil, err
			}

			return &builtProcessor{
				process: stereoProcess(d.ProcessBlock),
				reset:   d.Reset,
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) { _ = d.SetAmount(v) },
					func(v float64) { _ = d.SetDetune(v * 20) },
				},
			}, nil
		},
	})

	registerKind(KindRotarySpeaker, &kindDef{
		name: "rotary speaker",
		params: []paramSpec{
			{name: "fast", smoothMs: 0, initial: 0},
			{name: "depth", smoothMs: smoothDefaultMs, initial: 0.8},
			{name: "spread", smoothMs: smoothDefaultMs, initial: 0.7},
		},
		build: func(spec engine.ProcessSpec) (*builtProcessor, error) {
			r, err := spatial.NewRotarySpeaker(spec.SampleRate)
			if err != nil {
				return nil, err
			}

			return &builtProcessor{
				process: stereoProcess(r.ProcessBlock),
				reset:   r.Reset,
				latency: func() int { return 0 },
				appliers: []func(float64){
					func(v float64) { r.SetFast(mapBool(v)) },
					func(v float64) { _ = r.SetDepth(v) },
					func(v float64) { _ = r.SetSpread(v) },
				},
			}, nil
		},
	})
}
