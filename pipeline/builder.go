package pipeline

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/codec"
	"github.com/jrwynneiii/zigtuner/config"
	"github.com/jrwynneiii/zigtuner/dsp"
	"github.com/jrwynneiii/zigtuner/link"
	"github.com/jrwynneiii/zigtuner/radio"
)

// Builder assembles receive and transmit chains from configuration. The radio
// openers are injected so the hardware binding stays out of this package.
type Builder struct {
	Conf       *config.Config
	OpenSource func(config.RadioConf) (radio.Source, error)
	OpenSink   func(config.RadioConf) (radio.Sink, error)
}

func (b *Builder) codecOptions(ch int) codec.Options {
	return codec.Options{
		SamplesPerSymbol: b.Conf.Codec.SamplesPerSymbol,
		Channel:          ch,
		Threshold:        b.Conf.Codec.Threshold,
	}
}

// Receive builds the chain radio source -> squelch -> re-centering filter ->
// codec. Configuration problems are reported before the source is opened.
func (b *Builder) Receive(cb codec.Callback) (*Receiver, error) {
	conf := b.Conf
	useRadio := conf.Receive.InputFile == "" && conf.Radio.Driver != ""
	if conf.Receive.InputFile == "" && !useRadio {
		return nil, ErrMissingSignalSource
	}
	if useRadio && b.OpenSource == nil {
		return nil, fmt.Errorf("%w: no radio support compiled in", ErrMissingSignalSource)
	}

	params, err := ComputeFilterParams(conf.Receive.Channel, LinkParams(conf.Radio), conf.Filter)
	if err != nil {
		return nil, err
	}
	c, err := codec.Lookup(conf.Codec.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	r := &Receiver{
		Params:           params,
		DataRate:         DataRate(conf.Radio.SampleRate, conf.Codec.SamplesPerSymbol, params.Decimation),
		SamplesPerSymbol: conf.Codec.SamplesPerSymbol,
		chunksize:        int(conf.Radio.ChunkSize),
	}

	if conf.Receive.SquelchDB != 0 {
		r.squelch = dsp.NewSquelch(conf.Receive.SquelchDB)
		r.stages = append(r.stages, r.squelch)
	}
	if params.Recenter {
		taps, err := dsp.LowPass(1.0, conf.Radio.SampleRate, params.Cutoff, params.Bandwidth, params.Window)
		if err != nil {
			return nil, fmt.Errorf("%w: channel filter: %v", config.ErrInvalidConfig, err)
		}
		log.Debugf("[rx] Channel filter has %d taps", len(taps))
		r.stages = append(r.stages, dsp.NewTranslator(params.Decimation, taps, params.Offset, conf.Radio.SampleRate))
	}

	if r.demod, err = c.NewDemodulator(b.codecOptions(params.Channel), cb); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	log.Infof("Centering radio at %.0f Hz", params.TunedFreq)
	log.Infof("Channel %d freq = %.0f Hz, offset = %.0f Hz", params.Channel, params.ChannelFreq, params.Offset)
	log.Infof("data_rate = %.0f, samples_per_symbol = %d, decimation = %d", r.DataRate, r.SamplesPerSymbol, params.Decimation)

	if conf.Receive.Tap != "" {
		sink, err := radio.CreateFileSink(conf.Receive.Tap)
		if err != nil {
			return nil, fmt.Errorf("could not open receive tap: %w", err)
		}
		r.tap = NewTap(conf.Receive.Tap, sink)
	}

	if useRadio {
		rconf := conf.Radio
		rconf.Frequency = params.TunedFreq
		r.source, err = b.OpenSource(rconf)
	} else {
		log.Infof("Reading samples from %s", conf.Receive.InputFile)
		r.source, err = radio.OpenFileSource(conf.Receive.InputFile)
	}
	if err != nil {
		if r.tap != nil {
			r.tap.Close()
		}
		return nil, err
	}
	return r, nil
}

// Transmit builds the chain codec -> amplifier -> radio sink. An output file
// takes precedence over the radio.
func (b *Builder) Transmit() (*Transmitter, error) {
	conf := b.Conf
	useRadio := conf.Transmit.OutputFile == "" && conf.Radio.Driver != ""
	if conf.Transmit.OutputFile == "" && !useRadio {
		return nil, ErrMissingSignalSink
	}
	if useRadio && b.OpenSink == nil {
		return nil, fmt.Errorf("%w: no radio support compiled in", ErrMissingSignalSink)
	}

	// The transmit chain has no re-centering stage, so the radio is always
	// tuned to the channel itself.
	txLink := LinkParams(conf.Radio)
	txLink.CenterFreq = 0
	params, err := ComputeFilterParams(conf.Transmit.Channel, txLink, conf.Filter)
	if err != nil {
		return nil, err
	}
	c, err := codec.Lookup(conf.Codec.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	t := &Transmitter{
		Params: params,
		stages: dsp.Chain{dsp.NewAmplifier(conf.Transmit.Amplitude)},
		queue:  make(chan link.TxFrame, conf.Transmit.QueueDepth),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if t.mod, err = c.NewModulator(b.codecOptions(params.Channel)); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	if conf.Transmit.Tap != "" {
		sink, err := radio.CreateFileSink(conf.Transmit.Tap)
		if err != nil {
			return nil, fmt.Errorf("could not open transmit tap: %w", err)
		}
		t.tap = NewTap(conf.Transmit.Tap, sink)
	}

	if useRadio {
		rconf := conf.Radio
		rconf.Frequency = params.TunedFreq
		log.Infof("Transmitting on channel %d at %.0f Hz", params.Channel, params.TunedFreq)
		t.sink, err = b.OpenSink(rconf)
	} else {
		log.Infof("Writing samples to %s", conf.Transmit.OutputFile)
		t.sink, err = radio.CreateFileSink(conf.Transmit.OutputFile)
	}
	if err != nil {
		if t.tap != nil {
			t.tap.Close()
		}
		return nil, err
	}
	return t, nil
}
