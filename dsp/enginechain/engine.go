package enginechain

import (
	"fmt"

	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
	"github.com/chimeraaudio/phoenix-dsp/dsp/smooth"
)

// mapping helpers from the normalized [0,1] parameter domain.

func mapLin(v, lo, hi float64) float64 { return lo + (hi-lo)*v }

func mapInt(v float64, lo, hi int) int {
	i := lo + int(v*float64(hi-lo)+0.5)
	if i < lo {
		i = lo
	}

	if i > hi {
		i = hi
	}

	return i
}

func mapBool(v float64) bool { return v >= 0.5 }

// Engine adapts one registered kind to the engine.Engine contract. The
// control thread writes normalized targets; Process pulls each target
// through its smoother once per block and pushes the mapped value into
// the underlying processors, so parameter motion is click-free without
// per-sample setter calls.
type Engine struct {
	kind Kind
	def  *kindDef

	spec     engine.ProcessSpec
	prepared bool

	proc *builtProcessor

	targets   *engine.Targets
	smoothers []*smooth.Smoother

	diag *engine.Diagnostics
}

// NewEngine creates an unprepared engine of the given kind.
func NewEngine(kind Kind) (*Engine, error) {
	def, err := lookupKind(kind)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		kind:    kind,
		def:     def,
		targets: engine.NewTargets(len(def.params)),
		diag:    &engine.Diagnostics{},
	}

	for i, p := range def.params {
		e.targets.Set(i, p.initial)
	}

	return e, nil
}

// Kind returns the engine kind.
func (e *Engine) Kind() Kind { return e.kind }

// Prepare allocates processing state for the spec. It may be called again
// with a new spec; all audio state is rebuilt.
func (e *Engine) Prepare(spec engine.ProcessSpec) error {
	err := spec.Validate()
	if err != nil {
		return err
	}

	proc, err := e.def.build(spec)
	if err != nil {
		e.diag.CountFailedAlloc()
		return fmt.Errorf("enginechain: prepare %s: %w", e.def.name, err)
	}

	if len(proc.appliers) != len(e.def.params) {
		return fmt.Errorf("enginechain: %s built %d appliers for %d params",
			e.def.name, len(proc.appliers), len(e.def.params))
	}

	e.spec = spec
	e.proc = proc

	e.smoothers = make([]*smooth.Smoother, len(e.def.params))
	for i, p := range e.def.params {
		ms := p.smoothMs
		if ms <= 0 {
			// Snapped parameters still go through a smoother for the
			// shared code path, just with no time constant.
			ms = 0.001
		}

		sm := smooth.NewSmoother(ms, spec.SampleRate)
		sm.Snap(e.targets.Get(i))
		e.smoothers[i] = sm
	}

	e.prepared = true

	return nil
}

// Process runs one block in place. Calling before Prepare is a counted
// no-op.
func (e *Engine) Process(block [][]float64) {
	if !e.prepared {
		e.diag.CountNotPrepared()
		return
	}

	n := 0
	if len(block) > 0 {
		n = len(block[0])
	}

	if n == 0 {
		return
	}

	for i, sm := range e.smoothers {
		sm.SetTarget(e.targets.Get(i))

		if e.def.params[i].smoothMs <= 0 {
			sm.Snap(sm.Target())
		}

		v := sm.TickBlock(n)
		e.proc.appliers[i](v)
	}

	e.proc.process(block)
}

// Reset clears all audio state without touching parameters.
func (e *Engine) Reset() {
	if !e.prepared {
		return
	}

	e.proc.reset()
}

// UpdateParameters sets normalized parameter targets by index. Unknown
// indices are counted and ignored; values are clamped to [0,1].
func (e *Engine) UpdateParameters(params map[int]float64) {
	rejected := e.targets.Apply(params)
	if rejected > 0 {
		e.diag.CountRejectedIndices(rejected)
	}
}

// LatencySamples returns the current latency of the engine.
func (e *Engine) LatencySamples() int {
	if !e.prepared {
		return 0
	}

	return e.proc.latency()
}

// ParameterCount returns the number of parameters.
func (e *Engine) ParameterCount() int { return len(e.def.params) }

// ParameterName returns the parameter name for an index.
func (e *Engine) ParameterName(index int) string { return ParameterName(e.kind, index) }

// Diagnostics returns the engine's fault counters.
func (e *Engine) Diagnostics() *engine.Diagnostics { return e.diag }

var _ engine.Engine = (*Engine)(nil)
