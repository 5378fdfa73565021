package pipeline

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/codec"
	"github.com/jrwynneiii/zigtuner/dsp"
	"github.com/jrwynneiii/zigtuner/radio"
	"golang.org/x/sync/errgroup"
)

// Receiver pulls samples from a source through the stage chain into the
// codec. Frames reach the codec callback on the worker goroutine, in the order
// they are decoded.
type Receiver struct {
	Params           FilterParams
	DataRate         float64
	SamplesPerSymbol int

	source    radio.Source
	stages    dsp.Chain
	squelch   *dsp.Squelch
	demod     codec.Demodulator
	tap       *Tap
	chunksize int

	monitorMu    sync.RWMutex
	snr          *dsp.SNREstimator
	spectrumBins int
	currentSNR   float64
	peakSNR      float64
	spectrum     []float64
	samplesIn    int64
	samplesOut   int64
	squelchOpen  bool
	squelchLevel float64

	closeOnce sync.Once
	closeErr  error
}

// Monitor is a point-in-time view of the receive chain for status displays.
type Monitor struct {
	SNR      float64
	PeakSNR  float64
	Spectrum []float64
	// SquelchEnabled is false when no squelch stage was built.
	SquelchEnabled bool
	SquelchOpen    bool
	SquelchLevel   float64
	SamplesIn      int64
	SamplesOut     int64
	TapDropped     int64
}

// EnableMonitor turns on SNR tracking and, with bins > 0, spectrum snapshots.
// Call before Run.
func (r *Receiver) EnableMonitor(bins int) {
	r.monitorMu.Lock()
	defer r.monitorMu.Unlock()
	r.snr = dsp.NewSNREstimator()
	r.spectrumBins = bins
}

func (r *Receiver) Monitor() Monitor {
	r.monitorMu.RLock()
	m := Monitor{
		SNR:            r.currentSNR,
		PeakSNR:        r.peakSNR,
		Spectrum:       append([]float64(nil), r.spectrum...),
		SamplesIn:      r.samplesIn,
		SamplesOut:     r.samplesOut,
		SquelchEnabled: r.squelch != nil,
		SquelchOpen:    r.squelchOpen,
		SquelchLevel:   r.squelchLevel,
	}
	r.monitorMu.RUnlock()

	if r.tap != nil {
		m.TapDropped = r.tap.Dropped()
	}
	return m
}

// Run streams until the source is exhausted, the source fails or ctx is
// cancelled. Cancellation and end of input are not errors.
func (r *Receiver) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	blocks := make(chan []complex64, 4)

	g.Go(func() error {
		defer close(blocks)
		for ctx.Err() == nil {
			buf := make([]complex64, r.chunksize)
			n, err := r.source.Read(buf)
			if n > 0 {
				select {
				case blocks <- buf[:n]:
				case <-ctx.Done():
					return nil
				}
			}
			if errors.Is(err, io.EOF) {
				log.Debug("[rx] End of input")
				return nil
			}
			if err != nil {
				return err
			}
		}
		return nil
	})

	g.Go(func() error {
		for block := range blocks {
			r.process(block)
		}
		return nil
	})

	return g.Wait()
}

func (r *Receiver) process(block []complex64) {
	in := len(block)
	out := r.stages.Work(block)

	if r.tap != nil {
		r.tap.Offer(out)
	}

	r.monitorMu.Lock()
	r.samplesIn += int64(in)
	r.samplesOut += int64(len(out))
	if r.squelch != nil {
		r.squelchOpen = r.squelch.Open()
		r.squelchLevel = r.squelch.Level()
	}
	if r.snr != nil && len(out) > 0 {
		r.currentSNR = r.snr.Update(out)
		if r.currentSNR > r.peakSNR {
			r.peakSNR = r.currentSNR
		}
		if r.spectrumBins > 0 {
			r.spectrum = dsp.Spectrum(out, r.spectrumBins)
		}
	}
	r.monitorMu.Unlock()

	if len(out) > 0 {
		r.demod.Work(out)
	}
}

// Close releases the source and the tap. It is safe to call more than once.
func (r *Receiver) Close() error {
	r.closeOnce.Do(func() {
		var errs []error
		if err := r.source.Close(); err != nil {
			errs = append(errs, err)
		}
		if r.tap != nil {
			if err := r.tap.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}
