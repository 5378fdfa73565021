package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/capture"
	"github.com/jrwynneiii/zigtuner/channel"
	"github.com/jrwynneiii/zigtuner/codec"
	"github.com/jrwynneiii/zigtuner/config"
	"github.com/jrwynneiii/zigtuner/logging"
	"github.com/jrwynneiii/zigtuner/pipeline"
	"github.com/jrwynneiii/zigtuner/radio"
	"github.com/jrwynneiii/zigtuner/radio/soapy"
	"github.com/jrwynneiii/zigtuner/sched"
	"github.com/jrwynneiii/zigtuner/session"
	"github.com/jrwynneiii/zigtuner/stats"
	"github.com/jrwynneiii/zigtuner/tui"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitConfig   = 2
	exitHardware = 3
	exitCapture  = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	flags := kong.Parse(&cli,
		kong.Name("zigtuner"),
		kong.Description("Receive, capture and transmit 802.15.4 frames with a SoapySDR radio"),
		kong.UsageOnError(),
	)
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	path := cli.Config
	if path == "" {
		path = config.FindConfigPath()
	}
	conf, err := config.Load(path)
	if err != nil {
		log.Errorf("Could not load config: %v", err)
		return exitConfig
	}
	applyFlags(conf)

	closer := logging.Setup(conf.Log, cli.Verbose)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch flags.Command() {
	case "channels":
		printChannels()
		return exitOK
	case "probe":
		soapy.InitSoapySDR()
		log.Infof("Registered codecs: %s", strings.Join(codec.Names(), ", "))
		err = soapy.LogAllSoapySDRDevices()
	case "rx":
		err = prepare(conf)
		if err == nil {
			err = receive(ctx, conf)
		}
	case "tx":
		err = prepare(conf)
		if err == nil {
			err = transmit(ctx, conf)
		}
	default:
		log.Info("Command not recognized")
		return exitConfig
	}

	code := exitCode(err)
	if code != exitOK {
		log.Errorf("%v", err)
	}
	return code
}

// prepare checks the final configuration and applies process-wide settings.
func prepare(conf *config.Config) error {
	if err := conf.Validate(); err != nil {
		return err
	}
	if _, err := codec.Lookup(conf.Codec.Name); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	if conf.Radio.Realtime {
		if err := sched.EnableRealtime(); err != nil {
			log.Warnf("Could not enable realtime scheduling: %v", err)
		} else {
			log.Info("Enabled realtime scheduling")
		}
	}
	return nil
}

func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitOK
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, channel.ErrInvalidChannel),
		errors.Is(err, pipeline.ErrMissingSignalSource),
		errors.Is(err, pipeline.ErrMissingSignalSink):
		return exitConfig
	case errors.Is(err, radio.ErrHardware):
		return exitHardware
	case errors.Is(err, session.ErrCapture):
		return exitCapture
	}
	return exitFailure
}

func builder(conf *config.Config) *pipeline.Builder {
	return &pipeline.Builder{
		Conf: conf,
		OpenSource: func(rc config.RadioConf) (radio.Source, error) {
			r := soapy.NewSoapy(rc, radio.RX, rc.ChunkSize)
			if err := r.Connect(); err != nil {
				return nil, err
			}
			return r, nil
		},
		OpenSink: func(rc config.RadioConf) (radio.Sink, error) {
			r := soapy.NewSoapy(rc, radio.TX, rc.ChunkSize)
			if err := r.Connect(); err != nil {
				return nil, err
			}
			return r, nil
		},
	}
}

func receive(ctx context.Context, conf *config.Config) error {
	st := stats.New()

	var sess *session.Receive
	rx, err := builder(conf).Receive(func(f codec.Frame) {
		sess.OnFrame(f)
	})
	if err != nil {
		return err
	}

	var (
		rec session.Recorder
		w   *capture.Writer
	)
	if conf.Receive.CaptureFile != "" {
		if w, err = capture.Create(conf.Receive.CaptureFile); err != nil {
			rx.Close()
			return fmt.Errorf("%w: %w", session.ErrCapture, err)
		}
		log.Infof("Writing capture to %s", conf.Receive.CaptureFile)
		rec = w
	}
	sess = session.NewReceive(session.ReceiveOptions{Stats: st, Capture: rec})

	if cli.Rx.Tui {
		rx.EnableMonitor(conf.Monitor.SpectrumBins)
	}
	if err := sess.Start(ctx, rx); err != nil {
		rx.Close()
		return err
	}

	if cli.Rx.Tui {
		// The dashboard closes with the session, including on a capture failure.
		uiCtx, cancel := sess.Context(ctx)
		uiErr := tui.Run(uiCtx, st, rx, conf.Receive.Channel, conf.Monitor)
		cancel()
		err = errors.Join(uiErr, sess.Stop())
	} else {
		// Stop returns the pipeline and capture errors Wait would report.
		_ = sess.Wait()
		err = sess.Stop()
	}

	if w != nil {
		log.Infof("Wrote %d records to %s", w.Count(), conf.Receive.CaptureFile)
	}
	return err
}

func printChannels() {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Channel", "Frequency (MHz)")
	for _, ch := range channel.All() {
		freq, _ := channel.FrequencyOf(ch)
		t.Row(fmt.Sprintf("%d", ch), fmt.Sprintf("%.0f", freq/1e6))
	}
	fmt.Println(t)
	fmt.Printf("Codecs: %s\n", strings.Join(codec.Names(), ", "))
}
