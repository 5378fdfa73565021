package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jrwynneiii/zigtuner/channel"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// RadioConf describes the radio link: which device to open and how to tune it.
// A zero Frequency means "tune to the selected channel".
type RadioConf struct {
	Driver     string            `koanf:"driver"`
	Address    string            `koanf:"address"`
	Args       map[string]string `koanf:"args"`
	SampleRate float64           `koanf:"sample_rate"`
	Frequency  float64           `koanf:"frequency"`
	Gain       float64           `koanf:"gain"`
	Antenna    string            `koanf:"antenna"`
	Subdevice  string            `koanf:"subdevice"`
	ChunkSize  uint              `koanf:"chunk_size"`
	Realtime   bool              `koanf:"realtime"`
}

// FilterConf shapes the channel-select filter used when the radio is centered
// away from the target channel.
type FilterConf struct {
	Decimation      int     `koanf:"decimation"`
	Cutoff          float64 `koanf:"cutoff"`
	TransitionWidth float64 `koanf:"transition_width"`
	Window          string  `koanf:"window"`
}

type CodecConf struct {
	Name             string `koanf:"name"`
	SamplesPerSymbol int    `koanf:"samples_per_symbol"`
	Threshold        int    `koanf:"threshold"`
}

type ReceiveConf struct {
	Channel     int    `koanf:"channel"`
	InputFile   string `koanf:"input_file"`
	CaptureFile string `koanf:"capture_file"`
	// SquelchDB of 0 disables the squelch gate.
	SquelchDB float64 `koanf:"squelch_db"`
	Tap       string  `koanf:"tap"`
}

type TransmitConf struct {
	Channel    int     `koanf:"channel"`
	OutputFile string  `koanf:"output_file"`
	PacketSize int     `koanf:"packet_size"`
	NumPackets int     `koanf:"num_packets"`
	Interval   float64 `koanf:"interval"`
	Amplitude  float64 `koanf:"amplitude"`
	QueueDepth int     `koanf:"queue_depth"`
	Tap        string  `koanf:"tap"`
}

type MonitorConf struct {
	RefreshMs       int     `koanf:"refresh_ms"`
	SpectrumBins    int     `koanf:"spectrum_bins"`
	FailureWarnPct  float64 `koanf:"failure_warn_pct"`
	FailureCritPct  float64 `koanf:"failure_crit_pct"`
	EnableLogOutput bool    `koanf:"enable_log_output"`
}

type LogConf struct {
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

type Config struct {
	Radio    RadioConf    `koanf:"radio"`
	Filter   FilterConf   `koanf:"filter"`
	Codec    CodecConf    `koanf:"codec"`
	Receive  ReceiveConf  `koanf:"rx"`
	Transmit TransmitConf `koanf:"tx"`
	Monitor  MonitorConf  `koanf:"monitor"`
	Log      LogConf      `koanf:"log"`
}

func Default() Config {
	return Config{
		Radio: RadioConf{
			SampleRate: 4e6,
			Gain:       40,
			ChunkSize:  16384,
		},
		Filter: FilterConf{
			Decimation:      5,
			Cutoff:          2e6,
			TransitionWidth: 2e6,
			Window:          "hann",
		},
		Codec: CodecConf{
			Name:             "nrz",
			SamplesPerSymbol: 2,
			Threshold:        -1,
		},
		Receive: ReceiveConf{
			Channel:     15,
			CaptureFile: "rx.pcap",
		},
		Transmit: TransmitConf{
			Channel:    17,
			PacketSize: 50,
			NumPackets: 1,
			Interval:   1.0,
			Amplitude:  1.0,
			QueueDepth: 2,
		},
		Monitor: MonitorConf{
			RefreshMs:      500,
			SpectrumBins:   128,
			FailureWarnPct: 5,
			FailureCritPct: 20,
		},
		Log: LogConf{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// IntervalDuration returns the inter-packet interval as a time.Duration.
func (t TransmitConf) IntervalDuration() time.Duration {
	return time.Duration(t.Interval * float64(time.Second))
}

// Validate checks ranges that can be judged without touching hardware.
func (c *Config) Validate() error {
	var errs []error
	if c.Radio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("radio.sample_rate must be positive, got %v", c.Radio.SampleRate))
	}
	if c.Radio.ChunkSize == 0 {
		errs = append(errs, fmt.Errorf("radio.chunk_size must be positive"))
	}
	if c.Filter.Decimation < 1 {
		errs = append(errs, fmt.Errorf("filter.decimation must be at least 1, got %d", c.Filter.Decimation))
	}
	if c.Filter.Cutoff <= 0 || c.Filter.TransitionWidth <= 0 {
		errs = append(errs, fmt.Errorf("filter.cutoff and filter.transition_width must be positive"))
	}
	if c.Codec.SamplesPerSymbol < 1 {
		errs = append(errs, fmt.Errorf("codec.samples_per_symbol must be at least 1, got %d", c.Codec.SamplesPerSymbol))
	}
	if !channel.Valid(c.Receive.Channel) {
		errs = append(errs, fmt.Errorf("rx.channel %d: %w", c.Receive.Channel, channel.ErrInvalidChannel))
	}
	if !channel.Valid(c.Transmit.Channel) {
		errs = append(errs, fmt.Errorf("tx.channel %d: %w", c.Transmit.Channel, channel.ErrInvalidChannel))
	}
	if c.Transmit.PacketSize < 2 {
		errs = append(errs, fmt.Errorf("tx.packet_size must be at least 2, got %d", c.Transmit.PacketSize))
	}
	if c.Transmit.NumPackets < 0 {
		errs = append(errs, fmt.Errorf("tx.num_packets must not be negative, got %d", c.Transmit.NumPackets))
	}
	if c.Transmit.Interval < 0 {
		errs = append(errs, fmt.Errorf("tx.interval must not be negative, got %v", c.Transmit.Interval))
	}
	if c.Transmit.QueueDepth < 1 {
		errs = append(errs, fmt.Errorf("tx.queue_depth must be at least 1, got %d", c.Transmit.QueueDepth))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
