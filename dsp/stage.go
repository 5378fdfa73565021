// Package dsp holds the sample-processing stages that sit between the radio
// and the packet codec.
package dsp

// Stage transforms one block of complex baseband samples. Stages may return
// fewer samples than they were given (decimation, squelch) and may keep state
// between calls.
type Stage interface {
	Work(samples []complex64) []complex64
}

// Chain runs stages in order, stopping early if a stage swallows the block.
type Chain []Stage

func (c Chain) Work(samples []complex64) []complex64 {
	for _, stage := range c {
		if len(samples) == 0 {
			return samples
		}
		samples = stage.Work(samples)
	}
	return samples
}
