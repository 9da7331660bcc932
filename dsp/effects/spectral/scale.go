package spectral

// Scale identifies a quantization scale for the harmonizer.
type Scale int

// Supported scales.
const (
	ScaleChromatic Scale = iota
	ScaleMajor
	ScaleNaturalMinor
	ScaleHarmonicMinor
	ScaleMelodicMinor
	ScaleDorian
	ScaleMixolydian
	ScalePentatonicMajor
	ScalePentatonicMinor
	ScaleBlues
)

func (s Scale) valid() bool {
	return s >= ScaleChromatic && s <= ScaleBlues
}

// String returns the scale name.
func (s Scale) String() string {
	switch s {
	case ScaleChromatic:
		return "chromatic"
	case ScaleMajor:
		return "major"
	case ScaleNaturalMinor:
		return "natural minor"
	case ScaleHarmonicMinor:
		return "harmonic minor"
	case ScaleMelodicMinor:
		return "melodic minor"
	case ScaleDorian:
		return "dorian"
	case ScaleMixolydian:
		return "mixolydian"
	case ScalePentatonicMajor:
		return "pentatonic major"
	case ScalePentatonicMinor:
		return "pentatonic minor"
	case ScaleBlues:
		return "blues"
	default:
		return "unknown"
	}
}

// Scale degrees as semitone offsets within one octave.
var scaleDegrees = map[Scale][]int{
	ScaleChromatic:       {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	ScaleMajor:           {0, 2, 4, 5, 7, 9, 11},
	ScaleNaturalMinor:    {0, 2, 3, 5, 7, 8, 10},
	ScaleHarmonicMinor:   {0, 2, 3, 5, 7, 8, 11},
	ScaleMelodicMinor:    {0, 2, 3, 5, 7, 9, 11},
	ScaleDorian:          {0, 2, 3, 5, 7, 9, 10},
	ScaleMixolydian:      {0, 2, 4, 5, 7, 9, 10},
	ScalePentatonicMajor: {0, 2, 4, 7, 9},
	ScalePentatonicMinor: {0, 3, 5, 7, 10},
	ScaleBlues:           {0, 3, 5, 6, 7, 10},
}

// QuantizeToScale snaps a semitone interval to the nearest tone of the
// scale rooted at root (0 = C, 11 = B). Ties resolve downward.
func QuantizeToScale(semitones int, scale Scale, root int) int {
	degrees, ok := scaleDegrees[scale]
	if !ok {
		return semitones
	}

	root = ((root % 12) + 12) % 12

	best := semitones
	bestDist := 1 << 30

	// Search the scale tones in the octaves around the interval.
	base := semitones - semitones%12 - 24

	for oct := 0; oct < 5; oct++ {
		for _, d := range degrees {
			tone := base + oct*12 + d + root

			dist := tone - semitones
			if dist < 0 {
				dist = -dist
			}

			if dist < bestDist || (dist == bestDist && tone < best) {
				best = tone
				bestDist = dist
			}
		}
	}

	return best
}
