package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRecord_Sequence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seq := rapid.SliceOf(rapid.Bool()).Draw(t, "seq")

		s := New()
		want := 0
		for _, ok := range seq {
			s.Record(ok)
			if ok {
				want++
			}
		}

		snap := s.Snapshot()
		assert.Equal(t, len(seq), snap.Received)
		assert.Equal(t, want, snap.Correct)
		assert.Equal(t, len(seq)-want, snap.Failed())
	})
}

func TestRecord_Concurrent(t *testing.T) {
	const n = 1000
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(true)
		}()
	}
	wg.Wait()

	assert.Equal(t, Snapshot{Received: n, Correct: n}, s.Snapshot())
}

func TestSnapshot_Consistent(t *testing.T) {
	s := New()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			s.RecordFrame(17, true)
		}
	}()

	for i := 0; i < 5000; i++ {
		snap := s.Snapshot()
		// Every frame is correct, so a torn read would show correct != received.
		assert.Equal(t, snap.Received, snap.Correct)
	}
	<-done
}

func TestPerChannel(t *testing.T) {
	s := New()
	s.RecordFrame(17, true)
	s.RecordFrame(17, false)
	s.RecordFrame(11, true)
	s.RecordFrame(26, false)

	assert.Equal(t, []ChannelCounts{
		{Channel: 11, Received: 1, Correct: 1},
		{Channel: 17, Received: 2, Correct: 1},
		{Channel: 26, Received: 1, Correct: 0},
	}, s.PerChannel())
	assert.Equal(t, Snapshot{Received: 4, Correct: 2}, s.Snapshot())
}

func TestSuccessRate(t *testing.T) {
	assert.Zero(t, Snapshot{}.SuccessRate())
	assert.InDelta(t, 75.0, Snapshot{Received: 4, Correct: 3}.SuccessRate(), 1e-9)
}
