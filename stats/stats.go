package stats

import (
	"sort"
	"sync"
)

// Statistics counts frames handed up by the codec. Counters only grow for
// the lifetime of the instance.
type Statistics struct {
	mu                   sync.RWMutex
	received             int
	correct              int
	rxPacketsPerChannel  map[int]int
	badPacketsPerChannel map[int]int
}

// Snapshot is a consistent copy of the counters.
type Snapshot struct {
	Received int
	Correct  int
}

// Failed returns how many received frames did not decode correctly.
func (s Snapshot) Failed() int {
	return s.Received - s.Correct
}

// SuccessRate returns correct/received as a percentage, 0 when nothing was received.
func (s Snapshot) SuccessRate() float64 {
	if s.Received == 0 {
		return 0
	}
	return 100 * float64(s.Correct) / float64(s.Received)
}

type ChannelCounts struct {
	Channel  int
	Received int
	Correct  int
}

func New() *Statistics {
	return &Statistics{
		rxPacketsPerChannel:  make(map[int]int),
		badPacketsPerChannel: make(map[int]int),
	}
}

// Record counts one frame without attributing it to a channel.
func (s *Statistics) Record(ok bool) {
	s.mu.Lock()
	s.received++
	if ok {
		s.correct++
	}
	s.mu.Unlock()
}

// RecordFrame counts one frame decoded on channel ch.
func (s *Statistics) RecordFrame(ch int, ok bool) {
	s.mu.Lock()
	s.received++
	if ok {
		s.correct++
		s.rxPacketsPerChannel[ch]++
	} else {
		s.badPacketsPerChannel[ch]++
	}
	s.mu.Unlock()
}

func (s *Statistics) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Received: s.received, Correct: s.correct}
}

// PerChannel returns the per-channel breakdown sorted by channel.
func (s *Statistics) PerChannel() []ChannelCounts {
	s.mu.RLock()
	seen := make(map[int]struct{}, len(s.rxPacketsPerChannel)+len(s.badPacketsPerChannel))
	for ch := range s.rxPacketsPerChannel {
		seen[ch] = struct{}{}
	}
	for ch := range s.badPacketsPerChannel {
		seen[ch] = struct{}{}
	}
	out := make([]ChannelCounts, 0, len(seen))
	for ch := range seen {
		good := s.rxPacketsPerChannel[ch]
		out = append(out, ChannelCounts{
			Channel:  ch,
			Received: good + s.badPacketsPerChannel[ch],
			Correct:  good,
		})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}
