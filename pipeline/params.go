// Package pipeline derives radio and filter parameters for a target channel
// and assembles the receive and transmit sample chains.
package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/jrwynneiii/zigtuner/channel"
	"github.com/jrwynneiii/zigtuner/config"
	"github.com/jrwynneiii/zigtuner/dsp"
)

var (
	ErrMissingSignalSource = errors.New("no signal source: configure a radio driver or an input file")
	ErrMissingSignalSink   = errors.New("no signal sink: configure a radio driver or an output file")
)

// RadioLinkParams is the radio side of a session. A zero CenterFreq tunes the
// radio straight to the target channel.
type RadioLinkParams struct {
	SampleRate float64
	CenterFreq float64
	Gain       float64
	Antenna    string
	Subdevice  string
}

func LinkParams(conf config.RadioConf) RadioLinkParams {
	return RadioLinkParams{
		SampleRate: conf.SampleRate,
		CenterFreq: conf.Frequency,
		Gain:       conf.Gain,
		Antenna:    conf.Antenna,
		Subdevice:  conf.Subdevice,
	}
}

// FilterParams describes how the target channel is pulled out of the captured
// band. Offset is the radio center frequency minus the channel frequency.
type FilterParams struct {
	Channel     int
	ChannelFreq float64
	TunedFreq   float64
	Offset      float64
	Decimation  int
	Cutoff      float64
	Bandwidth   float64
	Window      dsp.WindowType
	// Recenter is set when the radio is not tuned to the channel and the
	// re-centering filter has to run.
	Recenter bool
}

// ComputeFilterParams resolves ch and derives the filter settings for the link.
func ComputeFilterParams(ch int, link RadioLinkParams, f config.FilterConf) (FilterParams, error) {
	channelFreq, err := channel.FrequencyOf(ch)
	if err != nil {
		return FilterParams{}, err
	}
	win, err := dsp.ParseWindowType(f.Window)
	if err != nil {
		return FilterParams{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	p := FilterParams{
		Channel:     ch,
		ChannelFreq: channelFreq,
		TunedFreq:   channelFreq,
		Decimation:  1,
		Cutoff:      f.Cutoff,
		Bandwidth:   f.TransitionWidth,
		Window:      win,
	}
	if link.CenterFreq == 0 {
		return p, nil
	}

	if f.Decimation < 1 {
		return FilterParams{}, fmt.Errorf("%w: decimation must be at least 1, got %d", config.ErrInvalidConfig, f.Decimation)
	}
	p.TunedFreq = link.CenterFreq
	p.Offset = link.CenterFreq - channelFreq
	p.Decimation = f.Decimation
	p.Recenter = true

	if math.Abs(p.Offset) >= link.SampleRate/2 {
		return FilterParams{}, fmt.Errorf("%w: channel %d at %.0f Hz is outside the %.0f Hz band captured around %.0f Hz",
			config.ErrInvalidConfig, ch, channelFreq, link.SampleRate, link.CenterFreq)
	}
	return p, nil
}

// DataRate is the symbol-rate-side data rate after decimation.
func DataRate(sampleRate float64, samplesPerSymbol int, decimation int) float64 {
	return sampleRate / float64(samplesPerSymbol) / float64(decimation)
}
