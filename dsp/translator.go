package dsp

import (
	"math"

	"github.com/racerxdl/segdsp/dsp"
)

// Translator re-centers a channel that sits offset Hz below the tuned center
// frequency, then low pass filters and decimates it. Offset is the radio center
// frequency minus the channel frequency, so the channel appears at -offset in
// the captured band and mixing by +offset brings it to DC.
type Translator struct {
	Decimation int
	Offset     float64
	SampleRate float64

	filter *dsp.FirFilter
	phase  float64
	step   float64
}

func NewTranslator(decimation int, taps []float32, offset, sampleRate float64) *Translator {
	if decimation < 1 {
		decimation = 1
	}
	return &Translator{
		Decimation: decimation,
		Offset:     offset,
		SampleRate: sampleRate,
		filter:     dsp.MakeDecimationFirFilter(decimation, taps),
		step:       2 * math.Pi * offset / sampleRate,
	}
}

func (t *Translator) Work(samples []complex64) []complex64 {
	mixed := make([]complex64, len(samples))
	if t.step == 0 {
		copy(mixed, samples)
	} else {
		for i, s := range samples {
			sin, cos := math.Sincos(t.phase)
			mixed[i] = s * complex(float32(cos), float32(sin))
			t.phase += t.step
		}
		// Keep the accumulator bounded so long sessions do not lose precision.
		t.phase = math.Remainder(t.phase, 2*math.Pi)
	}
	return t.filter.Work(mixed)
}
