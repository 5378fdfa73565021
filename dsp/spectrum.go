package dsp

import (
	"math"

	"github.com/racerxdl/segdsp/tools"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Spectrum returns the power spectrum of samples in dB, DC centered, averaged
// down to at most bins points.
func Spectrum(samples []complex64, bins int) []float64 {
	if len(samples) == 0 || bins <= 0 {
		return nil
	}

	input := make([]complex128, len(samples))
	for i, sample := range samples {
		input[i] = complex128(sample)
	}

	fft := fourier.NewCmplxFFT(len(input))
	coeff := fft.Coefficients(nil, input)

	if bins > len(coeff) {
		bins = len(coeff)
	}
	per := len(coeff) / bins
	output := make([]float64, bins)
	for b := range output {
		var sum float64
		for j := 0; j < per; j++ {
			idx := fft.ShiftIdx(b*per + j)
			sum += float64(tools.ComplexAbsSquared(complex64(coeff[idx])))
		}
		avg := sum / float64(per*len(coeff))
		if avg <= 0 {
			output[b] = -200
			continue
		}
		output[b] = 10.0 * math.Log10(avg)
	}
	return output
}
