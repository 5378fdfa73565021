package dsp

// Amplifier scales every sample by a constant.
type Amplifier struct {
	K complex64
}

func NewAmplifier(k float64) *Amplifier {
	return &Amplifier{K: complex(float32(k), 0)}
}

func (a *Amplifier) Work(samples []complex64) []complex64 {
	if a.K == 1 {
		return samples
	}
	out := make([]complex64, len(samples))
	for i, s := range samples {
		out[i] = s * a.K
	}
	return out
}
