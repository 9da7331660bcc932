package spectral

import (
	"fmt"
	"math"

	"github.com/chimeraaudio/phoenix-dsp/dsp/filter/svf"
	"github.com/chimeraaudio/phoenix-dsp/dsp/interp"
	"github.com/chimeraaudio/phoenix-dsp/dsp/window"
)

const (
	harmonizerGrainSize = 2048
	harmonizerHop       = harmonizerGrainSize / 4
	harmonizerMaxVoices = 4

	grainsPerVoice = harmonizerGrainSize / harmonizerHop

	harmonizerRingSize = 16384

	formantBands = 5
)

// Default voice intervals in semitones: unison, third, fifth, seventh.
var defaultVoiceIntervals = [harmonizerMaxVoices]int{0, 4, 7, 11}

// Formant band centers in Hz at ratio 1.
var formantCenters = [formantBands]float64{400, 800, 1600, 3200, 6400}

type grain struct {
	active  bool
	readPos float64
	age     int
}

type harmonizerVoice struct {
	interval  int
	ratio     float64
	gain      float64
	grains    [grainsPerVoice]grain
	nextGrain int
	counter   int

	formant [formantBands]*svf.Filter
}

// Harmonizer is a granular (PSOLA-style) pitch harmonizer: each voice
// replays overlapping Hann-windowed grains from an input ring at its pitch
// ratio. Voice intervals are quantized to a musical scale, and an optional
// bandpass bank re-centers formants that the ratio would drag along.
type Harmonizer struct {
	sampleRate float64

	ring     []float64
	mask     int
	writePos int

	grainWin []float64

	voices      int
	scale       Scale
	root        int
	formantKeep bool
	wet         float64
	dry         float64

	voice [harmonizerMaxVoices]*harmonizerVoice
}

// NewHarmonizer creates a harmonizer for the given sample rate.
func NewHarmonizer(sampleRate float64) (*Harmonizer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("harmonizer sample rate must be > 0: %f", sampleRate)
	}

	h := &Harmonizer{
		sampleRate: sampleRate,
		ring:       make([]float64, harmonizerRingSize),
		mask:       harmonizerRingSize - 1,
		grainWin:   window.Generate(window.TypeHann, harmonizerGrainSize),
		voices:     2,
		scale:      ScaleMajor,
		wet:        0.5,
		dry:        1,
	}

	for i := range h.voice {
		v := &harmonizerVoice{
			interval: defaultVoiceIntervals[i],
			gain:     1,
		}

		for b := range v.formant {
			f, err := svf.New(sampleRate)
			if err != nil {
				return nil, err
			}

			_ = f.SetQ(1.5)
			v.formant[b] = f
		}

		h.voice[i] = v
	}

	h.retune()

	return h, nil
}

// SetVoices sets the number of active voices in [1,4].
func (h *Harmonizer) SetVoices(n int) error {
	if n < 1 || n > harmonizerMaxVoices {
		return fmt.Errorf("harmonizer voices must be in [1, %d]: %d", harmonizerMaxVoices, n)
	}

	h.voices = n

	return nil
}

// SetScale sets the quantization scale.
func (h *Harmonizer) SetScale(s Scale) error {
	if !s.valid() {
		return fmt.Errorf("harmonizer scale is unknown: %d", s)
	}

	h.scale = s
	h.retune()

	return nil
}

// SetRoot sets the scale root as a pitch class (0 = C ... 11 = B).
func (h *Harmonizer) SetRoot(root int) error {
	if root < 0 || root > 11 {
		return fmt.Errorf("harmonizer root must be in [0, 11]: %d", root)
	}

	h.root = root
	h.retune()

	return nil
}

// SetVoiceInterval sets a voice's interval in semitones, in [-24, 24]; it
// is quantized to the current scale.
func (h *Harmonizer) SetVoiceInterval(voice, semitones int) error {
	if voice < 0 || voice >= harmonizerMaxVoices {
		return fmt.Errorf("harmonizer voice must be in [0, %d]: %d", harmonizerMaxVoices-1, voice)
	}

	if semitones < -24 || semitones > 24 {
		return fmt.Errorf("harmonizer interval must be in [-24, 24]: %d", semitones)
	}

	h.voice[voice].interval = semitones
	h.retune()

	return nil
}

// SetVoiceGain sets a voice's output gain in [0,1].
func (h *Harmonizer) SetVoiceGain(voice int, gain float64) error {
	if voice < 0 || voice >= harmonizerMaxVoices {
		return fmt.Errorf("harmonizer voice must be in [0, %d]: %d", harmonizerMaxVoices-1, voice)
	}

	if gain < 0 || gain > 1 || math.IsNaN(gain) {
		return fmt.Errorf("harmonizer voice gain must be in [0, 1]: %f", gain)
	}

	h.voice[voice].gain = gain

	return nil
}

// SetFormantPreserve toggles the formant-correcting bandpass bank.
func (h *Harmonizer) SetFormantPreserve(keep bool) { h.formantKeep = keep }

// SetWet sets the wet gain.
func (h *Harmonizer) SetWet(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("harmonizer wet must be >= 0: %f", v)
	}

	h.wet = v

	return nil
}

// SetDry sets the dry gain.
func (h *Harmonizer) SetDry(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("harmonizer dry must be >= 0: %f", v)
	}

	h.dry = v

	return nil
}

// Latency returns the grain delay in samples.
func (h *Harmonizer) Latency() int { return harmonizerGrainSize }

// retune recomputes each voice's ratio from its quantized interval and
// repositions its formant bank.
func (h *Harmonizer) retune() {
	for _, v := range h.voice {
		quantized := QuantizeToScale(v.interval, h.scale, h.root)
		v.ratio = math.Pow(2, float64(quantized)/12)

		nyquist := h.sampleRate / 2

		for b, center := range formantCenters {
			hz := center / v.ratio
			if hz >= nyquist {
				hz = nyquist * 0.99
			}

			_ = v.formant[b].SetCutoff(hz)
		}
	}
}

// readRing reads the ring at a fractional absolute position with 4-point
// windowed-sinc interpolation.
func (h *Harmonizer) readRing(pos float64) float64 {
	i := int(math.Floor(pos))
	frac := pos - float64(i)

	xm1 := h.ring[(i-1)&h.mask]
	x0 := h.ring[i&h.mask]
	x1 := h.ring[(i+1)&h.mask]
	x2 := h.ring[(i+2)&h.mask]

	return interp.Sinc4(frac, xm1, x0, x1, x2)
}

func (h *Harmonizer) tickVoice(v *harmonizerVoice) float64 {
	if v.counter%harmonizerHop == 0 {
		g := &v.grains[v.nextGrain]
		v.nextGrain = (v.nextGrain + 1) % grainsPerVoice

		// Start far enough back that a fast grain never outruns the
		// write head.
		span := float64(harmonizerGrainSize) * math.Max(1, v.ratio)

		g.active = true
		g.readPos = float64(h.writePos) - span
		g.age = 0
	}

	v.counter++

	sum := 0.0
	active := 0

	for i := range v.grains {
		g := &v.grains[i]
		if !g.active {
			continue
		}

		sum += h.readRing(g.readPos) * h.grainWin[g.age]
		active++

		g.readPos += v.ratio
		g.age++

		if g.age >= harmonizerGrainSize {
			g.active = false
		}
	}

	if active == 0 {
		return 0
	}

	out := sum / math.Sqrt(float64(active))

	if h.formantKeep && v.ratio != 1 {
		banded := 0.0
		for b := range v.formant {
			banded += v.formant[b].Bandpass(out)
		}

		out = banded + out*0.3
	}

	return out * v.gain
}

// ProcessSample processes one input sample.
func (h *Harmonizer) ProcessSample(input float64) float64 {
	h.ring[h.writePos&h.mask] = input
	h.writePos++

	wet := 0.0
	for i := range h.voices {
		wet += h.tickVoice(h.voice[i])
	}

	wet /= math.Sqrt(float64(h.voices))

	return input*h.dry + wet*h.wet
}

// ProcessBlock processes a block in place.
func (h *Harmonizer) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = h.ProcessSample(x)
	}
}

// Reset clears the ring, every grain, and the formant banks.
func (h *Harmonizer) Reset() {
	for i := range h.ring {
		h.ring[i] = 0
	}

	h.writePos = 0

	for _, v := range h.voice {
		for i := range v.grains {
			v.grains[i] = grain{}
		}

		v.nextGrain = 0
		v.counter = 0

		for b := range v.formant {
			v.formant[b].Reset()
		}
	}
}
