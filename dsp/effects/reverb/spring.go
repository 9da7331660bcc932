package reverb

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/chimeraaudio/phoenix-dsp/dsp/core"
	"github.com/chimeraaudio/phoenix-dsp/dsp/delay"
)

const (
	maxSprings = 4

	// Series first-order allpasses per spring; their frequency-dependent
	// group delay produces the characteristic downward chirp.
	dispersionStages = 8

	springCoupling = 0.1

	springSeed = 0x53505247
)

// Spring base loop delays in seconds, slightly detuned per spring.
var springLoopSeconds = [maxSprings]float64{0.051, 0.047, 0.056, 0.043}

var springWobbleRates = [maxSprings]float64{0.7, 0.9, 0.6, 1.1}

// ap1 is a first-order allpass: y = -a*x + x1 + a*y1.
type ap1 struct {
	a  float64
	x1 float64
	y1 float64
}

func (f *ap1) tick(x float64) float64 {
	y := -f.a*x + f.x1 + f.a*f.y1
	f.x1 = x
	f.y1 = core.FlushDenormal(y)

	return y
}

func (f *ap1) reset() {
	f.x1 = 0
	f.y1 = 0
}

type springElement struct {
	loop       *delay.Line
	dispersion [dispersionStages]ap1
	damp       float64
	dampState  float64
	lfoPhase   float64
	out        float64
}

// Spring is a mono spring-tank reverb: up to four lightly cross-coupled
// waveguide springs, each a delay loop behind a dispersive allpass cascade,
// with tension wobble and a stochastic drip generator.
type Spring struct {
	sampleRate float64

	springs int
	decay   float64
	tension float64
	drip    float64
	wet     float64
	dry     float64

	elements [maxSprings]*springElement
	feedback float64

	dripEnv     float64
	dripAttack  float64
	dripRelease float64

	rng *rand.Rand
}

// NewSpring creates a spring reverb for the given sample rate.
func NewSpring(sampleRate float64) (*Spring, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spring reverb sample rate must be > 0: %f", sampleRate)
	}

	s := &Spring{
		sampleRate: sampleRate,
		springs:    3,
		decay:      0.5,
		tension:    0.5,
		drip:       0.3,
		wet:        0.3,
		dry:        1,

		dripAttack:  1 - math.Exp(-1/(0.005*sampleRate)),
		dripRelease: math.Exp(-1 / (0.25 * sampleRate)),

		rng: rand.New(rand.NewSource(springSeed)),
	}

	for i := range s.elements {
		// Tension shortens the loop; leave headroom for the full range.
		maxLoop := int(springLoopSeconds[i]*sampleRate*1.5) + 8

		line, err := delay.New(maxLoop, delay.InterpolationLinear)
		if err != nil {
			return nil, err
		}

		elem := &springElement{loop: line}
		for j := range elem.dispersion {
			elem.dispersion[j].a = 0.55 + 0.02*float64(i)
		}

		s.elements[i] = elem
	}

	s.updateDecay()
	s.updateDamping()

	return s, nil
}

// SetSprings sets the number of parallel springs in [1,4].
func (s *Spring) SetSprings(n int) error {
	if n < 1 || n > maxSprings {
		return fmt.Errorf("spring reverb spring count must be in [1, %d]: %d", maxSprings, n)
	}

	s.springs = n

	return nil
}

// SetDecay sets tank decay in [0,1].
func (s *Spring) SetDecay(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("spring reverb decay must be in [0, 1]: %f", v)
	}

	s.decay = v
	s.updateDecay()

	return nil
}

// SetTension sets spring tension in [0,1]; higher tension shortens the
// loops and brightens the tank.
func (s *Spring) SetTension(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("spring reverb tension must be in [0, 1]: %f", v)
	}

	s.tension = v
	s.updateDamping()

	return nil
}

// SetDrip sets the level of the stochastic drip excitation in [0,1].
func (s *Spring) SetDrip(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("spring reverb drip must be in [0, 1]: %f", v)
	}

	s.drip = v

	return nil
}

// SetWet sets the wet gain.
func (s *Spring) SetWet(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("spring reverb wet must be >= 0: %f", v)
	}

	s.wet = v

	return nil
}

// SetDry sets the dry gain.
func (s *Spring) SetDry(v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("spring reverb dry must be >= 0: %f", v)
	}

	s.dry = v

	return nil
}

func (s *Spring) updateDecay() {
	s.feedback = 0.55 + 0.40*s.decay
}

func (s *Spring) updateDamping() {
	cutoff := 2000 + 6000*s.tension
	coeff := math.Exp(-2 * math.Pi * cutoff / s.sampleRate)

	for _, e := range s.elements {
		e.damp = coeff
	}
}

// ProcessSample processes one input sample.
func (s *Spring) ProcessSample(input float64) float64 {
	in := input

	// Drip excitation: sparse random impulses riding on the input level.
	// The firing rate follows the drip parameter and the amplitude tracks
	// an input envelope, so a silent input drips nothing.
	a := math.Abs(input)
	if a > s.dripEnv {
		s.dripEnv += (a - s.dripEnv) * s.dripAttack
	} else {
		s.dripEnv *= s.dripRelease
	}

	s.dripEnv = core.FlushDenormal(s.dripEnv)

	if s.drip > 0 && s.rng.Float64() < 0.0008*s.drip {
		in += (s.rng.Float64()*2 - 1) * s.drip * s.dripEnv
	}

	active := s.elements[:s.springs]

	sum := 0.0
	for _, e := range active {
		sum += e.out
	}

	wet := 0.0

	loopScale := 1.2 - 0.4*s.tension

	for i, e := range active {
		// 10% of the feedback comes from the other springs.
		others := (sum - e.out) / math.Max(1, float64(len(active)-1))
		fb := e.out*(1-springCoupling) + others*springCoupling

		filtered := fb*(1-e.damp) + e.dampState*e.damp
		e.dampState = core.FlushDenormal(filtered)

		drive := in + filtered*s.feedback
		for j := range e.dispersion {
			drive = e.dispersion[j].tick(drive)
		}

		e.loop.Write(drive)

		d := springLoopSeconds[i] * s.sampleRate * loopScale
		d *= 1 + 0.004*math.Sin(e.lfoPhase)

		e.lfoPhase += 2 * math.Pi * springWobbleRates[i] / s.sampleRate
		if e.lfoPhase >= 2*math.Pi {
			e.lfoPhase -= 2 * math.Pi
		}

		e.out = e.loop.ReadFractional(d)
		wet += e.out
	}

	wet /= math.Sqrt(float64(len(active)))

	return input*s.dry + wet*s.wet
}

// ProcessBlock processes a block in place.
func (s *Spring) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = s.ProcessSample(x)
	}
}

// Reset clears all tank state and rewinds the drip generator.
func (s *Spring) Reset() {
	for _, e := range s.elements {
		e.loop.Reset()
		e.dampState = 0
		e.lfoPhase = 0
		e.out = 0

		for j := range e.dispersion {
			e.dispersion[j].reset()
		}
	}

	s.dripEnv = 0
	s.rng = rand.New(rand.NewSource(springSeed))
}
