// Package enginechain hosts the processing engines: a registry of engine
// kinds with their parameter layouts, an adapter that wraps each effect
// family behind the engine.Engine contract with per-parameter smoothing,
// and a six-slot serial chain.
package enginechain

import (
	"fmt"

	"github.com/chimeraaudio/phoenix-dsp/dsp/engine"
)

// Kind identifies an engine type.
type Kind int

// Engine kinds.
const (
	KindNone Kind = iota
	KindPlateReverb
	KindSpringReverb
	KindGatedReverb
	KindConvolutionReverb
	KindDigitalDelay
	KindTapeDelay
	KindBBDDelay
	KindDrumDelay
	KindPitchShifter
	KindSpectralGate
	KindSpectralFreeze
	KindFrequencyShifter
	KindHarmonizer
	KindCompressor
	KindOptoCompressor
	KindLimiter
	KindTransientShaper
	KindNoiseGate
	KindTubeSaturator
	KindTapeSaturator
	KindMultibandSaturator
	KindBitCrusher
	KindMidSide
	KindStereoWidener
	KindDimensionExpander
	KindRotarySpeaker

	kindCount
)

// Kinds returns every instantiable kind (excluding KindNone).
func Kinds() []Kind {
	kinds := make([]Kind, 0, int(kindCount)-1)
	for k := KindPlateReverb; k < kindCount; k++ {
		kinds = append(kinds, k)
	}

	return kinds
}

// Valid reports whether the kind can be instantiated.
func (k Kind) Valid() bool { return k > KindNone && k < kindCount }

// String returns the kind name.
func (k Kind) String() string {
	def, ok := kindDefs[k]
	if !ok {
		return "none"
	}

	return def.name
}

// paramSpec describes one normalized parameter of a kind.
type paramSpec struct {
	name string

	// smoothMs is the one-pole smoothing time constant; 0 snaps the
	// value (discrete selectors).
	smoothMs float64

	// initial is the default normalized value.
	initial float64
}

// builtProcessor is a prepared engine instance: closures bound to the
// concrete per-channel processors.
type builtProcessor struct {
	process  func(block [][]float64)
	reset    func()
	latency  func() int
	appliers []func(v float64)
}

// kindDef is the registry entry for one engine kind.
type kindDef struct {
	name   string
	params []paramSpec
	build  func(spec engine.ProcessSpec) (*builtProcessor, error)
}

var kindDefs = map[Kind]*kindDef{}

func registerKind(k Kind, def *kindDef) {
	kindDefs[k] = def
}

// ParameterCount returns the number of parameters of a kind.
func ParameterCount(k Kind) int {
	def, ok := kindDefs[k]
	if !ok {
		return 0
	}

	return len(def.params)
}

// ParameterName returns the name of a kind's parameter, or "" when the
// index is out of range.
func ParameterName(k Kind, index int) string {
	def, ok := kindDefs[k]
	if !ok || index < 0 || index >= len(def.params) {
		return ""
	}

	return def.params[index].name
}

func lookupKind(k Kind) (*kindDef, error) {
	def, ok := kindDefs[k]
	if !ok {
		return nil, fmt.Errorf("enginechain: unknown engine kind: %d", k)
	}

	return def, nil
}
