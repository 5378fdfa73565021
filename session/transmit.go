package session

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/config"
	"github.com/jrwynneiii/zigtuner/link"
)

// Sender accepts frames for transmission, normally a *pipeline.Transmitter.
// Send may block while the transmit queue is full.
type Sender interface {
	Send(ctx context.Context, frame link.TxFrame) error
	Drain(ctx context.Context) error
}

// Scheduler sends NumPackets sequence-numbered frames, one per interval,
// then the end-of-stream marker, and waits for the sender to drain.
type Scheduler struct {
	numPackets int
	size       int
	interval   time.Duration
	sender     Sender
	sent       int
}

func NewScheduler(conf config.TransmitConf, sender Sender) *Scheduler {
	return &Scheduler{
		numPackets: conf.NumPackets,
		size:       conf.PacketSize,
		interval:   conf.IntervalDuration(),
		sender:     sender,
	}
}

// Sent returns how many data frames were handed to the sender.
func (s *Scheduler) Sent() int {
	return s.sent
}

// Run blocks until every frame is sent and drained, the sender fails or ctx
// is cancelled. On cancellation no end-of-stream marker is sent and ctx's
// error is returned.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.size < link.SequenceSize {
		return fmt.Errorf("%w: packet size %d is below %d", config.ErrInvalidConfig, s.size, link.SequenceSize)
	}

	var timer *time.Timer
	if s.interval > 0 {
		timer = time.NewTimer(s.interval)
		timer.Stop()
		defer timer.Stop()
	}

	for pktno := 1; pktno <= s.numPackets; pktno++ {
		payload, err := link.BuildPayload(pktno, s.size)
		if err != nil {
			return err
		}
		if err := s.sender.Send(ctx, link.NewDataFrame(payload)); err != nil {
			return fmt.Errorf("could not send packet %d: %w", pktno, err)
		}
		s.sent++
		log.Debugf("[tx] Sent packet %d (%d bytes)", pktno, len(payload))

		if timer == nil {
			if err := ctx.Err(); err != nil {
				return err
			}
			continue
		}
		timer.Reset(s.interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := s.sender.Send(ctx, link.EndOfStream()); err != nil {
		return fmt.Errorf("could not send end of stream: %w", err)
	}
	if err := s.sender.Drain(ctx); err != nil {
		return fmt.Errorf("could not drain transmit pipeline: %w", err)
	}
	log.Infof("Sent %d packets", s.sent)
	return nil
}
