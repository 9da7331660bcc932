package biquad

import (
	"fmt"
	"math"
)

// RBJ cookbook designs. Every constructor validates its arguments and
// returns a0-normalized coefficients.

func validateDesign(freq, q, sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("biquad design sample rate must be > 0: %f", sampleRate)
	}

	if freq <= 0 || freq >= sampleRate/2 {
		return fmt.Errorf("biquad design frequency must be in (0, %g): %f", sampleRate/2, freq)
	}

	if q <= 0 || math.IsNaN(q) || math.IsInf(q, 0) {
		return fmt.Errorf("biquad design Q must be > 0: %f", q)
	}

	return nil
}

func angular(freq, sampleRate float64) (sinW, cosW float64) {
	w := 2 * math.Pi * freq / sampleRate
	return math.Sin(w), math.Cos(w)
}

// Lowpass designs a second-order lowpass at freq with quality q.
func Lowpass(freq, q, sampleRate float64) (Coefficients, error) {
	if err := validateDesign(freq, q, sampleRate); err != nil {
		return Identity(), err
	}

	sinW, cosW := angular(freq, sampleRate)
	alpha := sinW / (2 * q)
	a0 := 1 + alpha

	return Coefficients{
		B0: (1 - cosW) / 2 / a0,
		B1: (1 - cosW) / a0,
		B2: (1 - cosW) / 2 / a0,
		A1: -2 * cosW / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// Highpass designs a second-order highpass at freq with quality q.
func Highpass(freq, q, sampleRate float64) (Coefficients, error) {
	if err := validateDesign(freq, q, sampleRate); err != nil {
		return Identity(), err
	}

	sinW, cosW := angular(freq, sampleRate)
	alpha := sinW / (2 * q)
	a0 := 1 + alpha

	return Coefficients{
		B0: (1 + cosW) / 2 / a0,
		B1: -(1 + cosW) / a0,
		B2: (1 + cosW) / 2 / a0,
		A1: -2 * cosW / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// Bandpass designs a constant-peak-gain bandpass at freq with quality q.
func Bandpass(freq, q, sampleRate float64) (Coefficients, error) {
	if err := validateDesign(freq, q, sampleRate); err != nil {
		return Identity(), err
	}

	sinW, cosW := angular(freq, sampleRate)
	alpha := sinW / (2 * q)
	a0 := 1 + alpha

	return Coefficients{
		B0: alpha / a0,
		B1: 0,
		B2: -alpha / a0,
		A1: -2 * cosW / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// Allpass designs a second-order allpass at freq with quality q.
func Allpass(freq, q, sampleRate float64) (Coefficients, error) {
	if err := validateDesign(freq, q, sampleRate); err != nil {
		return Identity(), err
	}

	sinW, cosW := angular(freq, sampleRate)
	alpha := sinW / (2 * q)
	a0 := 1 + alpha

	return Coefficients{
		B0: (1 - alpha) / a0,
		B1: -2 * cosW / a0,
		B2: (1 + alpha) / a0,
		A1: -2 * cosW / a0,
		A2: (1 - alpha) / a0,
	}, nil
}

// Peaking designs a peaking EQ at freq with quality q and gain in dB.
func Peaking(freq, q, gainDB, sampleRate float64) (Coefficients, error) {
	if err := validateDesign(freq, q, sampleRate); err != nil {
		return Identity(), err
	}

	if math.IsNaN(gainDB) || math.IsInf(gainDB, 0) {
		return Identity(), fmt.Errorf("biquad design gain must be finite: %f", gainDB)
	}

	a := math.Pow(10, gainDB/40)
	sinW, cosW := angular(freq, sampleRate)
	alpha := sinW / (2 * q)
	a0 := 1 + alpha/a

	return Coefficients{
		B0: (1 + alpha*a) / a0,
		B1: -2 * cosW / a0,
		B2: (1 - alpha*a) / a0,
		A1: -2 * cosW / a0,
		A2: (1 - alpha/a) / a0,
	}, nil
}

// LowShelf designs a low shelf at freq with slope 1 and gain in dB.
func LowShelf(freq, gainDB, sampleRate float64) (Coefficients, error) {
	return shelf(freq, gainDB, sampleRate, true)
}

// HighShelf designs a high shelf at freq with slope 1 and gain in dB.
func HighShelf(freq, gainDB, sampleRate float64) (Coefficients, error) {
	return shelf(freq, gainDB, sampleRate, false)
}

func shelf(freq, gainDB, sampleRate float64, low bool) (Coefficients, error) {
	if err := validateDesign(freq, 0.7071, sampleRate); err != nil {
		return Identity(), err
	}

	if math.IsNaN(gainDB) || math.IsInf(gainDB, 0) {
		return Identity(), fmt.Errorf("biquad design gain must be finite: %f", gainDB)
	}

	a := math.Pow(10, gainDB/40)
	sinW, cosW := angular(freq, sampleRate)
	alpha := sinW / 2 * math.Sqrt2
	sqrtA2Alpha := 2 * math.Sqrt(a) * alpha

	sign := 1.0
	if !low {
		sign = -1.0
	}

	ap1 := a + 1
	am1 := a - 1

	a0 := ap1 + sign*am1*cosW + sqrtA2Alpha

	return Coefficients{
		B0: a * (ap1 - sign*am1*cosW + sqrtA2Alpha) / a0,
		B1: sign * 2 * a * (am1 - sign*ap1*cosW) / a0,
		B2: a * (ap1 - sign*am1*cosW - sqrtA2Alpha) / a0,
		A1: sign * -2 * (am1 + sign*ap1*cosW) / a0,
		A2: (ap1 + sign*am1*cosW - sqrtA2Alpha) / a0,
	}, nil
}

// ButterworthLowpass returns the cascade of second-order sections realizing
// a Butterworth lowpass of the given even order.
func ButterworthLowpass(freq float64, order int, sampleRate float64) ([]Coefficients, error) {
	return butterworth(freq, order, sampleRate, Lowpass)
}

// ButterworthHighpass returns the cascade of second-order sections realizing
// a Butterworth highpass of the given even order.
func ButterworthHighpass(freq float64, order int, sampleRate float64) ([]Coefficients, error) {
	return butterworth(freq, order, sampleRate, Highpass)
}

func butterworth(
	freq float64,
	order int,
	sampleRate float64,
	design func(freq, q, sampleRate float64) (Coefficients, error),
) ([]Coefficients, error) {
	if order <= 0 || order%2 != 0 {
		return nil, fmt.Errorf("butterworth order must be a positive even integer: %d", order)
	}

	pairs := order / 2
	coeffs := make([]Coefficients, pairs)

	for k := range pairs {
		// Pole Q values of an order-N Butterworth response.
		q := 1 / (2 * math.Cos(math.Pi*(2*float64(k)+1)/(2*float64(order))))

		c, err := design(freq, q, sampleRate)
		if err != nil {
			return nil, err
		}

		coeffs[k] = c
	}

	return coeffs, nil
}
