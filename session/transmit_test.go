package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrwynneiii/zigtuner/config"
	"github.com/jrwynneiii/zigtuner/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type recordingSender struct {
	frames  []link.TxFrame
	drained bool
	sendErr error
	// onSend runs after each recorded frame.
	onSend func()
}

func (s *recordingSender) Send(ctx context.Context, frame link.TxFrame) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.frames = append(s.frames, frame)
	if s.onSend != nil {
		s.onSend()
	}
	return nil
}

func (s *recordingSender) Drain(ctx context.Context) error {
	s.drained = true
	return nil
}

func txConf(numpkts, size int, interval float64) config.TransmitConf {
	conf := config.Default().Transmit
	conf.NumPackets = numpkts
	conf.PacketSize = size
	conf.Interval = interval
	return conf
}

func TestScheduler_FivePackets(t *testing.T) {
	sender := &recordingSender{}
	sched := NewScheduler(txConf(5, 50, 0), sender)
	require.NoError(t, sched.Run(context.Background()))

	require.Len(t, sender.frames, 6)
	for i, f := range sender.frames[:5] {
		assert.False(t, f.EOF)
		assert.Equal(t, byte(link.FrameTypeData), f.Type)
		assert.Equal(t, link.Broadcast, f.Header)
		require.Len(t, f.Payload, 50)
		seq, ok := link.Sequence(f.Payload)
		require.True(t, ok)
		assert.Equal(t, uint16(i+1), seq)
		for _, b := range f.Payload[2:] {
			assert.Equal(t, byte(i+1), b)
		}
	}

	eof := sender.frames[5]
	assert.True(t, eof.EOF)
	assert.Empty(t, eof.Payload)
	assert.True(t, sender.drained)
	assert.Equal(t, 5, sched.Sent())
}

func TestScheduler_SequenceWraps(t *testing.T) {
	sender := &recordingSender{}
	require.NoError(t, NewScheduler(txConf(65537, 2, 0), sender).Run(context.Background()))

	require.Len(t, sender.frames, 65538)
	seq, _ := link.Sequence(sender.frames[65535].Payload)
	assert.Equal(t, uint16(0), seq)
	seq, _ = link.Sequence(sender.frames[65536].Payload)
	assert.Equal(t, uint16(1), seq)
}

func TestScheduler_Counts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "numpkts")
		size := rapid.IntRange(2, 120).Draw(t, "size")
		sender := &recordingSender{}
		require.NoError(t, NewScheduler(txConf(n, size, 0), sender).Run(context.Background()))

		require.Len(t, sender.frames, n+1)
		eofs := 0
		for _, f := range sender.frames {
			if f.EOF {
				eofs++
				continue
			}
			assert.Len(t, f.Payload, size)
		}
		assert.Equal(t, 1, eofs)
		assert.True(t, sender.frames[n].EOF)
	})
}

func TestScheduler_Interval(t *testing.T) {
	var stamps []time.Time
	sender := &recordingSender{onSend: func() { stamps = append(stamps, time.Now()) }}
	require.NoError(t, NewScheduler(txConf(3, 10, 0.02), sender).Run(context.Background()))

	require.Len(t, stamps, 4)
	for i := 1; i < len(stamps); i++ {
		assert.GreaterOrEqual(t, stamps[i].Sub(stamps[i-1]), 20*time.Millisecond)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sender := &recordingSender{onSend: cancel}

	start := time.Now()
	err := NewScheduler(txConf(10, 10, 60), sender).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Second)

	require.Len(t, sender.frames, 1)
	assert.False(t, sender.drained)
}

func TestScheduler_SendError(t *testing.T) {
	boom := errors.New("queue closed")
	sender := &recordingSender{sendErr: boom}
	err := NewScheduler(txConf(3, 10, 0), sender).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestScheduler_SizeTooSmall(t *testing.T) {
	err := NewScheduler(txConf(3, 1, 0), &recordingSender{}).Run(context.Background())
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
