package dsp

import (
	"math"

	"github.com/racerxdl/segdsp/tools"
)

// Squelch gates out samples while the averaged signal power is below a
// threshold in dB.
type Squelch struct {
	ThresholdDB float64
	Alpha       float64

	threshold float64
	avg       float64
}

func NewSquelch(thresholdDB float64) *Squelch {
	return &Squelch{
		ThresholdDB: thresholdDB,
		Alpha:       0.0001,
		threshold:   math.Pow(10, thresholdDB/10),
	}
}

func (s *Squelch) Work(samples []complex64) []complex64 {
	out := samples[:0:0]
	for _, samp := range samples {
		p := float64(tools.ComplexAbsSquared(samp))
		s.avg = s.Alpha*p + (1-s.Alpha)*s.avg
		if s.avg >= s.threshold {
			out = append(out, samp)
		}
	}
	return out
}

// Open reports whether the gate currently passes samples.
func (s *Squelch) Open() bool {
	return s.avg >= s.threshold
}

// Level returns the averaged power in dB.
func (s *Squelch) Level() float64 {
	if s.avg <= 0 {
		return math.Inf(-1)
	}
	return 10 * math.Log10(s.avg)
}
