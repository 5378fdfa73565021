// Package session runs receive and transmit sessions on top of the assembled
// pipelines: frame accounting and capture on the way in, scheduled packet
// injection on the way out.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/capture"
	"github.com/jrwynneiii/zigtuner/codec"
	"github.com/jrwynneiii/zigtuner/link"
	"github.com/jrwynneiii/zigtuner/stats"
)

var (
	ErrSessionState = errors.New("invalid session state")
	ErrCapture      = errors.New("capture write failed")
)

type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Pipeline is a running sample chain, normally a *pipeline.Receiver.
type Pipeline interface {
	Run(ctx context.Context) error
	Close() error
}

// Recorder persists frames, normally a *capture.Writer.
type Recorder interface {
	Append(frame capture.Frame, ts time.Time) error
	Close() error
}

type ReceiveOptions struct {
	Stats   *stats.Statistics
	Capture Recorder
	// Now stamps capture records. Defaults to time.Now.
	Now func() time.Time
}

// Receive owns a running receive pipeline. OnFrame is the codec callback: it
// counts every frame and appends it to the capture. A capture write failure
// ends the session.
type Receive struct {
	stats   *stats.Statistics
	capture Recorder
	now     func() time.Time

	mu       sync.Mutex
	state    State
	pipeline Pipeline
	cancel   context.CancelFunc
	done     chan struct{}
	stopped  chan struct{}
	runErr   error
	ioErr    error
	stopErr  error
}

func NewReceive(opts ReceiveOptions) *Receive {
	s := &Receive{
		stats:   opts.Stats,
		capture: opts.Capture,
		now:     opts.Now,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if s.stats == nil {
		s.stats = stats.New()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Receive) Stats() *stats.Statistics {
	return s.stats
}

func (s *Receive) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start runs p on its own goroutine. A session can only be started once.
func (s *Receive) Start(ctx context.Context, p Pipeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return fmt.Errorf("%w: cannot start a %s session", ErrSessionState, s.state)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.pipeline = p
	s.state = Running
	go func() {
		defer close(s.done)
		err := p.Run(ctx)
		s.mu.Lock()
		s.runErr = err
		s.mu.Unlock()
	}()
	return nil
}

// Done is closed once the pipeline has returned, whether it ran out of input,
// failed, was cancelled or the session was stopped.
func (s *Receive) Done() <-chan struct{} {
	return s.done
}

// Context returns a child of parent that is also cancelled once Done closes,
// for tying other work such as a dashboard to the session's lifetime.
func (s *Receive) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Wait blocks until the pipeline stops on its own, fails or is cancelled. It
// does not release anything; call Stop for that.
func (s *Receive) Wait() error {
	s.mu.Lock()
	if s.state == Idle {
		s.mu.Unlock()
		return fmt.Errorf("%w: session was never started", ErrSessionState)
	}
	s.mu.Unlock()

	<-s.done
	return s.err()
}

func (s *Receive) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ioErr != nil {
		return s.ioErr
	}
	return s.runErr
}

// Stop cancels the pipeline, waits for it to wind down and then closes the
// pipeline and the capture. Stopped is terminal; calling Stop again returns
// the first result.
func (s *Receive) Stop() error {
	s.mu.Lock()
	switch s.state {
	case Stopped:
		s.mu.Unlock()
		<-s.stopped
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.stopErr
	case Idle:
		s.state = Stopped
		close(s.done)
	case Running:
		s.state = Stopped
		s.cancel()
	}
	p := s.pipeline
	s.mu.Unlock()

	<-s.done

	var errs []error
	if err := s.err(); err != nil {
		errs = append(errs, err)
	}
	if p != nil {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("could not close pipeline: %w", err))
		}
	}
	if s.capture != nil {
		if err := s.capture.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrCapture, err))
		}
	}

	snap := s.stats.Snapshot()
	log.Infof("Session stopped: %d received, %d correct, %d failed (%.1f%%)", snap.Received, snap.Correct, snap.Failed(), snap.SuccessRate())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopErr = errors.Join(errs...)
	close(s.stopped)
	return s.stopErr
}

// OnFrame records one decoded frame. Frames with a failed FCS are counted and
// captured like any other; only their sequence number is not reported.
func (s *Receive) OnFrame(f codec.Frame) {
	s.stats.RecordFrame(f.Channel, f.OK)
	snap := s.stats.Snapshot()

	if seq, ok := link.Sequence(f.Payload); ok && f.OK {
		log.Infof("ok = %5t  pktno = %4d  len(payload) = %4d  %d/%d", f.OK, seq, len(f.Payload), snap.Received, snap.Correct)
	} else {
		log.Infof("ok = %5t  pktno = ----  len(payload) = %4d  %d/%d", f.OK, len(f.Payload), snap.Received, snap.Correct)
	}
	log.Debugf("payload = % x", f.Payload)

	if s.capture == nil {
		return
	}
	err := s.capture.Append(capture.Frame{Channel: f.Channel, Payload: f.Payload}, s.now())
	if err != nil {
		s.fail(err)
	}
}

func (s *Receive) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ioErr != nil {
		return
	}
	log.Errorf("Capture write failed, stopping session: %v", err)
	s.ioErr = fmt.Errorf("%w: %w", ErrCapture, err)
	if s.cancel != nil {
		s.cancel()
	}
}
