package analysis

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// PowerSpectrum returns |X_k|^2 of the mean-removed series for
// k = 0..n/2.
func PowerSpectrum(series []float64) []float64 {
	n := len(series)
	if n < 2 {
		return nil
	}
	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)
	centered := make([]float64, n)
	for i, v := range series {
		centered[i] = v - mean
	}

	coeffs := fourier.NewFFT(n).Coefficients(nil, centered)
	power := make([]float64, len(coeffs))
	for i, c := range coeffs {
		power[i] = real(c)*real(c) + imag(c)*imag(c)
	}
	return power
}

// DominantFrequency is the frequency in Hz of the strongest non-constant
// component of a series sampled every dt, or 0 when the series is flat.
func DominantFrequency(series []float64, dt float64) float64 {
	power := PowerSpectrum(series)
	best, bestPower := 0, 0.0
	for k := 1; k < len(power); k++ {
		if power[k] > bestPower {
			best, bestPower = k, power[k]
		}
	}
	if best == 0 || bestPower < 1e-20 {
		return 0
	}
	return float64(best) / (float64(len(series)) * dt)
}
