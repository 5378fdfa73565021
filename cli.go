package main

import (
	"github.com/jrwynneiii/zigtuner/config"
)

var cli struct {
	Config   string `help:"Config file (.hcl or .yaml); searched for when unset" type:"path"`
	Verbose  bool   `short:"v" help:"Prints debug output by default"`
	Realtime bool   `help:"Request realtime scheduling for the sample pipeline"`

	Driver     string   `help:"SoapySDR driver name (e.g. uhd, hackrf)"`
	Address    string   `help:"Device address passed to the driver"`
	Bandwidth  *float64 `short:"B" help:"Radio sample rate in samples/s"`
	Freq       *float64 `short:"f" help:"Radio center frequency in Hz; enables wideband capture with channel re-centering"`
	Gain       *float64 `short:"g" help:"Radio gain in dB"`
	Antenna    string   `short:"A" help:"Antenna name"`
	Subdevice  string   `help:"Subdevice (frontend mapping) spec"`
	Decimation *int     `help:"Decimation of the re-centering filter in wideband mode"`

	Rx struct {
		Channel   *int     `short:"c" help:"802.15.4 channel to receive (11-26)"`
		Infile    string   `short:"i" type:"path" help:"Read raw complex64 samples from a file instead of the radio"`
		File      string   `short:"o" type:"path" help:"Capture filename"`
		Threshold *int     `short:"t" help:"Decoder sync threshold, -1 for the codec default"`
		Squelch   *float64 `short:"s" help:"Power squelch level in dB, 0 to disable"`
		Tap       string   `type:"path" help:"Also write the filtered samples to this file"`
		Tui       bool     `help:"Show the live receive dashboard"`
	} `cmd:"" help:"Receive on a channel and write decoded frames to a pcap file"`

	Tx struct {
		Channel  *int     `short:"c" help:"802.15.4 channel to transmit on (11-26)"`
		Outfile  string   `short:"o" type:"path" help:"Write modulated samples to a file instead of the radio"`
		Size     *int     `short:"s" help:"Packet size in bytes, including the 2 byte sequence number"`
		Numpkts  *int     `short:"N" help:"Number of packets to send"`
		Interval *float64 `short:"I" help:"Seconds between packets"`
		Amp      *float64 `short:"a" help:"Sample amplitude"`
		Tap      string   `type:"path" help:"Also write the transmitted samples to this file"`
	} `cmd:"" help:"Transmit sequence-numbered test packets on a channel"`

	Channels struct {
	} `cmd:"" help:"Print the channel table"`

	Probe struct {
	} `cmd:"" help:"List the available radios and SoapySDR configuration"`
}

// applyFlags layers command line settings over the loaded configuration.
func applyFlags(conf *config.Config) {
	setString(&conf.Radio.Driver, cli.Driver)
	setString(&conf.Radio.Address, cli.Address)
	setString(&conf.Radio.Antenna, cli.Antenna)
	setString(&conf.Radio.Subdevice, cli.Subdevice)
	set(&conf.Radio.SampleRate, cli.Bandwidth)
	set(&conf.Radio.Frequency, cli.Freq)
	set(&conf.Radio.Gain, cli.Gain)
	set(&conf.Filter.Decimation, cli.Decimation)
	if cli.Realtime {
		conf.Radio.Realtime = true
	}

	set(&conf.Receive.Channel, cli.Rx.Channel)
	setString(&conf.Receive.InputFile, cli.Rx.Infile)
	setString(&conf.Receive.CaptureFile, cli.Rx.File)
	set(&conf.Codec.Threshold, cli.Rx.Threshold)
	set(&conf.Receive.SquelchDB, cli.Rx.Squelch)
	setString(&conf.Receive.Tap, cli.Rx.Tap)

	set(&conf.Transmit.Channel, cli.Tx.Channel)
	setString(&conf.Transmit.OutputFile, cli.Tx.Outfile)
	set(&conf.Transmit.PacketSize, cli.Tx.Size)
	set(&conf.Transmit.NumPackets, cli.Tx.Numpkts)
	set(&conf.Transmit.Interval, cli.Tx.Interval)
	set(&conf.Transmit.Amplitude, cli.Tx.Amp)
	setString(&conf.Transmit.Tap, cli.Tx.Tap)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
