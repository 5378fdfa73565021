// Package soapy drives SoapySDR devices as sample sources and sinks.
package soapy

// #cgo CFLAGS: -g -Wall
// #cgo LDFLAGS: -lSoapySDR
import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/config"
	"github.com/jrwynneiii/zigtuner/radio"

	"github.com/pothosware/go-soapy-sdr/pkg/device"
	"github.com/pothosware/go-soapy-sdr/pkg/modules"
	"github.com/pothosware/go-soapy-sdr/pkg/sdrlogger"
	"github.com/pothosware/go-soapy-sdr/pkg/version"
)

type Direction = radio.Direction

func soapyDirection(d Direction) device.Direction {
	if d == radio.TX {
		return device.DirectionTX
	}
	return device.DirectionRX
}

// Soapy is a SoapySDR device streaming CF32 samples in one direction.
type Soapy struct {
	Driver          string
	Address         string
	Args            map[string]string
	SampleRate      float64
	Frequency       float64
	Gain            float64
	Antenna         string
	FrontendMapping string
	Direction       Direction

	//Private:
	chunksize uint
	timeoutUs uint
	device    *device.SDRDevice
	stream    *device.SDRStreamCF32
	buffer    [][]complex64
	flags     []int
	closeOnce sync.Once
	closeErr  error
}

func InitSoapySDR() {
	log.Debugf("Using SoapySDR versions: ABI: %s API: %s Lib: %s", version.GetABIVersion(), version.GetAPIVersion(), version.GetLibVersion())
	log.Debugf("SoapySDR modules root path: %v", modules.GetRootPath())

	searchPaths := modules.ListSearchPaths()
	if len(searchPaths) > 0 {
		for i, searchPath := range searchPaths {
			log.Debugf("Search path #%d: %v", i, searchPath)
		}
	} else {
		log.Debug("Search paths: [none]")
	}

	for _, module := range modules.ListModules() {
		moduleVersion := modules.GetModuleVersion(module)
		if len(moduleVersion) == 0 {
			moduleVersion = "[None]"
		}
		log.Debugf("Found SoapySDR module: %v, version: %v", module, moduleVersion)
	}
	sdrlogger.SetLogLevel(sdrlogger.Error)
}

// LogAllSoapySDRDevices lists the SoapySDR modules and every device they can see.
func LogAllSoapySDRDevices() error {
	log.Infof("Using SoapySDR versions: ABI: %s API: %s Lib: %s", version.GetABIVersion(), version.GetAPIVersion(), version.GetLibVersion())
	log.Infof("SoapySDR modules root path: %v", modules.GetRootPath())

	modulesFound := modules.ListModules()
	if len(modulesFound) == 0 {
		log.Info("No SoapySDR modules found")
	}
	for _, module := range modulesFound {
		moduleVersion := modules.GetModuleVersion(module)
		if len(moduleVersion) == 0 {
			moduleVersion = "[None]"
		}
		log.Infof("Found SoapySDR module: %v, version: %v", module, moduleVersion)
	}

	sdrlogger.SetLogLevel(sdrlogger.Error)

	devices := device.Enumerate(nil)
	log.Infof("Found %d devices", len(devices))
	for _, args := range devices {
		dev, err := device.Make(map[string]string{"driver": args["driver"]})
		if err != nil {
			return fmt.Errorf("%w: could not open %s: %v", radio.ErrHardware, args["driver"], err)
		}
		log.Infof("Driver: %s", args["driver"])
		LogAvailSettings(dev)
		if err := dev.Unmake(); err != nil {
			log.Warnf("Could not release %s: %v", args["driver"], err)
		}
	}
	return nil
}

func LogAvailSettings(dev *device.SDRDevice) {
	log.Infof("Current settings:")
	for _, setting := range dev.GetSettingInfo() {
		log.Infof("\t- %s: %v", setting.Key, setting.Value)
	}

	for _, dir := range []Direction{radio.RX, radio.TX} {
		numChannels := dev.GetNumChannels(soapyDirection(dir))
		for channel := uint(0); channel < numChannels; channel++ {
			log.Infof("%s channel %d:", dir, channel)
			log.Infof("\tAvailable sample rates:")
			log.Infof("\t\t- %v", dev.GetSampleRate(soapyDirection(dir), channel))
			for _, sampleRateRange := range dev.GetSampleRateRange(soapyDirection(dir), channel) {
				log.Infof("\t\t- %v", sampleRateRange.ToString())
			}
			log.Infof("\tAntennas: %v", dev.ListAntennas(soapyDirection(dir), channel))
			log.Infof("\tIQ Sample Types: %v", dev.GetStreamFormats(soapyDirection(dir), channel))
		}
	}
}

func NewSoapy(conf config.RadioConf, dir Direction, chunksize uint) *Soapy {
	return &Soapy{
		Driver:          conf.Driver,
		Address:         conf.Address,
		Args:            conf.Args,
		SampleRate:      conf.SampleRate,
		Frequency:       conf.Frequency,
		Gain:            conf.Gain,
		Antenna:         conf.Antenna,
		FrontendMapping: conf.Subdevice,
		Direction:       dir,
		chunksize:       chunksize,
		timeoutUs:       100000,
		buffer:          [][]complex64{make([]complex64, chunksize)},
		flags:           make([]int, 1),
	}
}

// Connect opens the device, tunes it and activates the stream. On failure
// everything acquired so far is released.
func (r *Soapy) Connect() (err error) {
	InitSoapySDR()

	args := make(map[string]string, len(r.Args)+2)
	for k, v := range r.Args {
		args[k] = v
	}
	args["driver"] = r.Driver
	if r.Driver == "rtltcp" {
		args["rtltcp"] = r.Address
	} else if r.Address != "" {
		args["addr"] = r.Address
	}

	if r.device, err = device.Make(args); err != nil {
		return fmt.Errorf("%w: could not create SoapySDR device %q: %v", radio.ErrHardware, r.Driver, err)
	}
	defer func() {
		if err != nil {
			r.Close()
		}
	}()

	dir := soapyDirection(r.Direction)
	if r.FrontendMapping != "" {
		log.Debugf("Setting frontend mapping to %s", r.FrontendMapping)
		if err := r.device.SetFrontendMapping(dir, r.FrontendMapping); err != nil {
			return fmt.Errorf("%w: could not set subdevice %q: %v", radio.ErrHardware, r.FrontendMapping, err)
		}
	}

	log.Debugf("Setting sample rate to %f", r.SampleRate)
	if err := r.device.SetSampleRate(dir, 0, r.SampleRate); err != nil {
		return fmt.Errorf("%w: could not set sample rate: %v", radio.ErrHardware, err)
	}

	log.Debugf("Setting frequency to %f", r.Frequency)
	if err := r.device.SetFrequency(dir, 0, r.Frequency, nil); err != nil {
		return fmt.Errorf("%w: could not set frequency: %v", radio.ErrHardware, err)
	}

	log.Debugf("Setting gain to %f", r.Gain)
	if err := r.device.SetGain(dir, 0, r.Gain); err != nil {
		return fmt.Errorf("%w: could not set gain: %v", radio.ErrHardware, err)
	}

	if r.Antenna != "" {
		log.Debugf("Setting antenna to %s", r.Antenna)
		if err := r.device.SetAntennas(dir, 0, r.Antenna); err != nil {
			return fmt.Errorf("%w: could not select antenna %q: %v", radio.ErrHardware, r.Antenna, err)
		}
	}

	log.Debugf("Initialized device: %v", r.Driver)
	if r.Driver != "rtltcp" {
		LogAvailSettings(r.device)
	}

	log.Debugf("Creating the %s IQ stream", r.Direction)
	if r.stream, err = r.device.SetupSDRStreamCF32(dir, []uint{0}, nil); err != nil {
		return fmt.Errorf("%w: could not setup SDR stream: %v", radio.ErrHardware, err)
	}

	log.Debug("Activating IQ stream...")
	if err := r.stream.Activate(0, 0, 0); err != nil {
		return fmt.Errorf("%w: could not activate the IQ stream: %v", radio.ErrHardware, err)
	}
	return nil
}

// Read fills buf with up to len(buf) samples.
func (r *Soapy) Read(buf []complex64) (int, error) {
	n := uint(len(buf))
	if n > r.chunksize {
		n = r.chunksize
	}
	_, numSamples, err := r.stream.Read(r.buffer, n, r.flags, r.timeoutUs)
	if err != nil {
		return 0, fmt.Errorf("%w: stream read: %v", radio.ErrHardware, err)
	}
	return copy(buf, r.buffer[0][:numSamples]), nil
}

// Write blocks until every sample has been handed to the device.
func (r *Soapy) Write(samples []complex64) error {
	for len(samples) > 0 {
		n := copy(r.buffer[0], samples)
		written, err := r.stream.Write(r.buffer, uint(n), r.flags, 0, r.timeoutUs)
		if err != nil {
			return fmt.Errorf("%w: stream write: %v", radio.ErrHardware, err)
		}
		samples = samples[written:]
	}
	return nil
}

// Close deactivates and closes the stream and releases the device. It is safe
// to call more than once.
func (r *Soapy) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		if r.stream != nil {
			log.Debug("Deactivating IQ stream...")
			if err := r.stream.Deactivate(0, 0); err != nil {
				errs = append(errs, fmt.Errorf("could not deactivate the IQ stream: %w", err))
			}
			log.Debug("Closing IQ stream...")
			if err := r.stream.Close(); err != nil {
				errs = append(errs, fmt.Errorf("could not close the IQ stream: %w", err))
			}
		}
		if r.device != nil {
			if err := r.device.Unmake(); err != nil {
				errs = append(errs, fmt.Errorf("could not release device: %w", err))
			}
		}
		if len(errs) > 0 {
			r.closeErr = fmt.Errorf("%w: %v", radio.ErrHardware, errors.Join(errs...))
		}
	})
	return r.closeErr
}
