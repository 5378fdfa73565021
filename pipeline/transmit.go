package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/codec"
	"github.com/jrwynneiii/zigtuner/dsp"
	"github.com/jrwynneiii/zigtuner/link"
	"github.com/jrwynneiii/zigtuner/radio"
)

var ErrTransmitStopped = errors.New("transmit pipeline stopped")

// Transmitter modulates queued frames and writes the samples to a sink on its
// own goroutine. The queue is small, so Send blocks while the sink is busy.
type Transmitter struct {
	Params FilterParams

	mod    codec.Modulator
	stages dsp.Chain
	sink   radio.Sink
	tap    *Tap

	queue chan link.TxFrame
	stop  chan struct{}
	done  chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	closeOnce sync.Once
	err       error
	closeErr  error
	frames    int
	samples   int64
}

// Start launches the worker goroutine. Send starts it on first use.
func (t *Transmitter) Start() {
	t.startOnce.Do(func() {
		go t.run()
	})
}

func (t *Transmitter) run() {
	defer close(t.done)
	for {
		select {
		case <-t.stop:
			return
		case frame := <-t.queue:
			samples, err := t.mod.Modulate(frame)
			if err != nil {
				t.err = fmt.Errorf("could not modulate frame: %w", err)
				return
			}
			if frame.EOF {
				log.Debugf("[tx] End of stream after %d frames, %d samples", t.frames, t.samples)
				return
			}
			samples = t.stages.Work(samples)
			if t.tap != nil {
				t.tap.Offer(samples)
			}
			if err := t.sink.Write(samples); err != nil {
				t.err = fmt.Errorf("could not write samples: %w", err)
				return
			}
			t.frames++
			t.samples += int64(len(samples))
		}
	}
}

// Send queues frame, blocking while the queue is full.
func (t *Transmitter) Send(ctx context.Context, frame link.TxFrame) error {
	t.Start()
	select {
	case t.queue <- frame:
		return nil
	case <-t.done:
		if t.err != nil {
			return t.err
		}
		return ErrTransmitStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain waits for the worker to finish the queue up to and including the
// end-of-stream frame.
func (t *Transmitter) Drain(ctx context.Context) error {
	t.Start()
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Frames returns how many data frames reached the sink. Only valid after Drain.
func (t *Transmitter) Frames() int {
	return t.frames
}

// Close stops the worker if it is still running and releases the sink and
// tap. It is safe to call more than once.
func (t *Transmitter) Close() error {
	t.closeOnce.Do(func() {
		t.stopOnce.Do(func() { close(t.stop) })
		t.startOnce.Do(func() { close(t.done) })
		<-t.done

		var errs []error
		if err := t.sink.Close(); err != nil {
			errs = append(errs, err)
		}
		if t.tap != nil {
			if err := t.tap.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		t.closeErr = errors.Join(errs...)
	})
	return t.closeErr
}
