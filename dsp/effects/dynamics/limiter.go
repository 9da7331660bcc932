package dynamics

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/interp"
)

const (
	maxLookaheadMs = 10.0

	limiterKneeDB = 2.0
)

// Limiter is a lookahead mastering limiter. Makeup gain is applied before
// detection, a polyphase windowed-sinc true-peak detector estimates
// intersample peaks at 4x, a sliding forward maximum over the lookahead
// horizon feeds a soft-knee 1:inf gain computer, and the gain ramp
// therefore reaches every peak before the delayed signal does. A hard
// clamp at the ceiling backstops the smoothed gain.
type Limiter struct {
	sampleRate float64

	ceilingDB  float64
	ceilingLin float64

	makeupDB  float64
	makeupLin float64

	lookaheadMs      float64
	lookaheadSamples int

	computer *gainComputer

	delay    []float64
	delayPos int

	peaks  []float64
	tpHist [interp.SincTaps]float64
	tpPos  int

	// Monotonic deque over the lookahead window for the forward maximum.
	dqIdx   []int
	dqHead  int
	dqTail  int
	counter int

	attackCoeff   float64
	baseReleaseMs float64

	memory          float64
	memoryCharge    float64
	memoryDischarge float64

	gainState float64
}

// NewLimiter creates a mastering limiter with a -0.3 dBFS ceiling and
// 5 ms of lookahead.
func NewLimiter(sampleRate float64) (*Limiter, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("limiter sample rate must be > 0: %f", sampleRate)
	}

	maxSamples := int(maxLookaheadMs*0.001*sampleRate) + 1

	computer, err := newGainComputer(-0.3, maxRatio, limiterKneeDB)
	if err != nil {
		return nil, err
	}

	computer.setLimiting()

	l := &Limiter{
		sampleRate:      sampleRate,
		ceilingDB:       -0.3,
		ceilingLin:      math.Pow(10, -0.3/20),
		makeupLin:       1,
		computer:        computer,
		delay:           make([]float64, maxSamples),
		peaks:           make([]float64, maxSamples),
		dqIdx:           make([]int, maxSamples+1),
		baseReleaseMs:   100,
		memoryCharge:    1 - math.Exp(-1/(0.05*sampleRate)),
		memoryDischarge: math.Exp(-1 / (1.0 * sampleRate)),
		gainState:       1,
	}

	err = l.SetLookahead(5)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// SetCeiling sets the output ceiling in dBFS, in [-24, 0].
func (l *Limiter) SetCeiling(dB float64) error {
	if dB < -24 || dB > 0 || math.IsNaN(dB) {
		return fmt.Errorf("limiter ceiling must be in [-24, 0] dB: %f", dB)
	}

	l.ceilingDB = dB
	l.ceilingLin = math.Pow(10, dB/20)

	return nil
}

// SetThreshold sets the detector threshold in dBFS, in [-80, 0]. Gain
// reduction engages here; the ceiling clamp is independent.
func (l *Limiter) SetThreshold(dB float64) error {
	err := l.computer.setThreshold(dB)
	if err != nil {
		return fmt.Errorf("limiter %w", err)
	}

	l.computer.setLimiting()

	return nil
}

// SetMakeup sets input makeup gain in dB, applied before the ceiling.
func (l *Limiter) SetMakeup(dB float64) error {
	if dB < 0 || dB > 24 || math.IsNaN(dB) {
		return fmt.Errorf("limiter makeup must be in [0, 24] dB: %f", dB)
	}

	l.makeupDB = dB
	l.makeupLin = math.Pow(10, dB/20)

	return nil
}

// SetLookahead sets the lookahead in ms, in (0, 10].
func (l *Limiter) SetLookahead(ms float64) error {
	if ms <= 0 || ms > maxLookaheadMs || math.IsNaN(ms) {
		return fmt.Errorf("limiter lookahead must be in (0, %g] ms: %f", maxLookaheadMs, ms)
	}

	l.lookaheadMs = ms

	samples := int(ms * 0.001 * l.sampleRate)
	if samples < 1 {
		samples = 1
	}

	// Re-applying the current lookahead must not disturb audio state.
	if samples == l.lookaheadSamples {
		return nil
	}

	l.lookaheadSamples = samples

	// The attack ramp must complete within the lookahead.
	l.attackCoeff = 1 - math.Exp(-2.5/float64(samples))

	l.Reset()

	return nil
}

// SetRelease sets the base release in ms; sustained limiting stretches it.
func (l *Limiter) SetRelease(ms float64) error {
	err := validateRelease(ms)
	if err != nil {
		return fmt.Errorf("limiter %w", err)
	}

	l.baseReleaseMs = ms

	return nil
}

// Latency returns the lookahead delay in samples.
func (l *Limiter) Latency() int { return l.lookaheadSamples }

// truePeak estimates the intersample peak by evaluating the three
// quarter-sample phases of the windowed-sinc kernel over the recent
// history, a 4x polyphase oversampled detector. The estimate trails the
// input by half the kernel, well inside the lookahead horizon.
func (l *Limiter) truePeak(x float64) float64 {
	l.tpHist[l.tpPos] = x
	l.tpPos++

	if l.tpPos >= len(l.tpHist) {
		l.tpPos = 0
	}

	// With tpPos at the oldest sample, the kernel center sits half a
	// kernel back from the newest.
	center := (l.tpPos + interp.SincTaps/2 - 1) % interp.SincTaps
	peak := math.Abs(l.tpHist[center])

	for _, frac := range [3]float64{0.25, 0.5, 0.75} {
		kernel := interp.SincKernel(frac)

		v := 0.0
		for t, k := range kernel {
			v += k * l.tpHist[(l.tpPos+t)%interp.SincTaps]
		}

		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	return peak
}

// pushPeak inserts a detector value into the sliding-maximum window.
func (l *Limiter) pushPeak(p float64) {
	// Drop smaller tail entries; they can never be the maximum again.
	for l.dqTail > l.dqHead && l.peaks[l.dqIdx[(l.dqTail-1)%len(l.dqIdx)]%len(l.peaks)] <= p {
		l.dqTail--
	}

	l.peaks[l.counter%len(l.peaks)] = p
	l.dqIdx[l.dqTail%len(l.dqIdx)] = l.counter
	l.dqTail++

	// Expire entries that left the lookahead window.
	for l.dqIdx[l.dqHead%len(l.dqIdx)] <= l.counter-l.lookaheadSamples {
		l.dqHead++
	}

	l.counter++
}

func (l *Limiter) windowMax() float64 {
	if l.dqHead >= l.dqTail {
		return 0
	}

	return l.peaks[l.dqIdx[l.dqHead%len(l.dqIdx)]%len(l.peaks)]
}

// ProcessSample limits one sample; output is delayed by the lookahead.
func (l *Limiter) ProcessSample(input float64) float64 {
	boosted := input * l.makeupLin

	l.pushPeak(l.truePeak(boosted))

	delayed := l.delay[l.delayPos]
	l.delay[l.delayPos] = boosted

	l.delayPos++
	if l.delayPos >= l.lookaheadSamples {
		l.delayPos = 0
	}

	target := l.computer.gainForLevel(l.windowMax())

	reductionDB := 0.0
	if target < 1 {
		reductionDB = -20 * math.Log10(target)
	}

	if reductionDB > l.memory {
		l.memory += (reductionDB - l.memory) * l.memoryCharge
	} else {
		l.memory *= l.memoryDischarge
	}

	stretch := 1 + l.memory*0.25
	if stretch > 6 {
		stretch = 6
	}

	releaseCoeff := 1 - math.Exp(-1/(l.baseReleaseMs*0.001*stretch*l.sampleRate))

	if target < l.gainState {
		l.gainState += (target - l.gainState) * l.attackCoeff
	} else {
		l.gainState += (target - l.gainState) * releaseCoeff
	}

	l.gainState = core.FlushDenormal(l.gainState)

	out := delayed * l.gainState

	// Backstop: the smoothed gain may overshoot by a hair on pathological
	// transients.
	return core.Clamp(out, -l.ceilingLin, l.ceilingLin)
}

// ProcessBlock limits a block in place.
func (l *Limiter) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = l.ProcessSample(x)
	}
}

// Reset clears delay, window, memory, and gain state.
func (l *Limiter) Reset() {
	for i := range l.delay {
		l.delay[i] = 0
	}

	for i := range l.peaks {
		l.peaks[i] = 0
	}

	l.tpHist = [interp.SincTaps]float64{}
	l.tpPos = 0
	l.delayPos = 0
	l.dqHead = 0
	l.dqTail = 0
	l.counter = 0
	l.memory = 0
	l.gainState = 1
}
