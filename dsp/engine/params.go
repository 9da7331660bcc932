package engine

import (
	"math"
	"sync/atomic"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
)

// Targets holds the normalized [0, 1] parameter targets of one engine.
//
// The control thread writes via Set/Apply, the audio thread reads via Get.
// Each slot is a single atomic word, so readers never observe torn values.
// The slot count is fixed at construction; Targets never reallocates.
type Targets struct {
	values []atomic.Uint64
}

// NewTargets creates a target set with count slots, all initialized to 0.
func NewTargets(count int) *Targets {
	if count < 0 {
		count = 0
	}

	return &Targets{values: make([]atomic.Uint64, count)}
}

// Count returns the number of parameter slots.
func (t *Targets) Count() int {
	return len(t.values)
}

// Set stores a normalized value into slot index. Values outside [0, 1] are
// clamped; NaN maps to 0. Unknown indices return false.
func (t *Targets) Set(index int, value float64) bool {
	if index < 0 || index >= len(t.values) {
		return false
	}

	t.values[index].Store(math.Float64bits(core.Clamp01(value)))

	return true
}

// Get returns the current target of slot index, or 0 for unknown indices.
func (t *Targets) Get(index int) float64 {
	if index < 0 || index >= len(t.values) {
		return 0
	}

	return math.Float64frombits(t.values[index].Load())
}

// Apply stores every entry of params, clamping values and skipping unknown
// indices. It returns the number of rejected indices.
func (t *Targets) Apply(params map[int]float64) int {
	rejected := 0

	for index, value := range params {
		if !t.Set(index, value) {
			rejected++
		}
	}

	return rejected
}
