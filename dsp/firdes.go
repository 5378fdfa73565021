package dsp

import (
	"fmt"
	"math"
	"strings"

	"github.com/racerxdl/segdsp/dsp"
	"gonum.org/v1/gonum/dsp/window"
)

type WindowType int

const (
	WindowHann WindowType = iota
	WindowHamming
	WindowBlackman
	WindowRectangular
)

func (w WindowType) String() string {
	switch w {
	case WindowHann:
		return "hann"
	case WindowHamming:
		return "hamming"
	case WindowBlackman:
		return "blackman"
	case WindowRectangular:
		return "rectangular"
	}
	return fmt.Sprintf("window(%d)", int(w))
}

func ParseWindowType(name string) (WindowType, error) {
	switch strings.ToLower(name) {
	case "", "hann", "hanning":
		return WindowHann, nil
	case "hamming":
		return WindowHamming, nil
	case "blackman":
		return WindowBlackman, nil
	case "rectangular", "rect", "none":
		return WindowRectangular, nil
	}
	return 0, fmt.Errorf("unknown window type %q", name)
}

// Stopband attenuation in dB each window reaches, used to size the filter.
func (w WindowType) attenuation() float64 {
	switch w {
	case WindowBlackman:
		return 74
	case WindowRectangular:
		return 21
	}
	return 44
}

func (w WindowType) apply(seq []float64) []float64 {
	switch w {
	case WindowBlackman:
		return window.Blackman(seq)
	case WindowRectangular:
		return window.Rectangular(seq)
	}
	return window.Hann(seq)
}

// LowPass designs a windowed-sinc low pass filter. The tap count follows from
// the transition width and the window's attenuation; the taps are scaled so the
// DC gain equals gain. Hamming designs come straight from segdsp.
func LowPass(gain, sampleRate, cutoff, transitionWidth float64, win WindowType) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", sampleRate)
	}
	if cutoff <= 0 || cutoff > sampleRate/2 {
		return nil, fmt.Errorf("cutoff %v must be in (0, %v]", cutoff, sampleRate/2)
	}
	if transitionWidth <= 0 {
		return nil, fmt.Errorf("transition width must be positive, got %v", transitionWidth)
	}

	if win == WindowHamming {
		return dsp.MakeLowPass(gain, sampleRate, cutoff, transitionWidth), nil
	}

	ntaps := int(win.attenuation() * sampleRate / (22 * transitionWidth))
	if ntaps < 3 {
		ntaps = 3
	}
	if ntaps%2 == 0 {
		ntaps++
	}

	weights := make([]float64, ntaps)
	for i := range weights {
		weights[i] = 1
	}
	weights = win.apply(weights)

	mid := (ntaps - 1) / 2
	fc := cutoff / sampleRate
	taps := make([]float64, ntaps)
	var sum float64
	for i := range taps {
		n := float64(i - mid)
		if n == 0 {
			taps[i] = 2 * fc
		} else {
			taps[i] = math.Sin(2*math.Pi*fc*n) / (math.Pi * n)
		}
		taps[i] *= weights[i]
		sum += taps[i]
	}

	out := make([]float32, ntaps)
	for i, tap := range taps {
		out[i] = float32(gain * tap / sum)
	}
	return out, nil
}
