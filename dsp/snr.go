package dsp

import (
	"math"
	"math/cmplx"
)

// SNREstimator tracks a running M2M4 signal-to-noise estimate.
//
// Based upon SatDump's SNR estimator
// (https://github.com/SatDump/SatDump/blob/master/src-core/common/dsp/utils/snr_estimator.cpp),
// which in turn follows:
//
// D. R. Pauluzzi and N. C. Beaulieu, "A comparison of SNR
// estimation techniques for the AWGN channel," IEEE
// Trans. Communications, Vol. 48, No. 10, pp. 1681-1691, 2000.
type SNREstimator struct {
	Y1     float64
	Y2     float64
	Alpha  float64
	Beta   float64
	Signal float64
	Noise  float64
}

func NewSNREstimator() *SNREstimator {
	alpha := 0.001
	return &SNREstimator{
		Alpha: alpha,
		Beta:  1.0 - alpha,
	}
}

// Update folds samples into the estimate and returns the SNR in dB, never
// below zero.
func (s *SNREstimator) Update(samples []complex64) float64 {
	for _, samp := range samples {
		mag2 := math.Pow(cmplx.Abs(complex128(samp)), 2)
		s.Y1 = s.Alpha*mag2 + s.Beta*s.Y1
		s.Y2 = s.Alpha*mag2*mag2 + s.Beta*s.Y2
	}

	if math.IsNaN(s.Y1) {
		s.Y1 = 0.0
	}
	if math.IsNaN(s.Y2) {
		s.Y2 = 0.0
	}

	// The radicand goes negative on pure noise; treat that as no signal.
	radicand := 2.0*s.Y1*s.Y1 - s.Y2
	if radicand <= 0 {
		s.Signal = 0
		s.Noise = s.Y1
		return 0
	}
	s.Signal = math.Sqrt(radicand)
	s.Noise = s.Y1 - s.Signal
	if s.Noise <= 0 {
		return 0
	}

	return max(0, 10.0*math.Log10(s.Signal/s.Noise))
}
