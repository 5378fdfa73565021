package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/radio"
)

const tapDepth = 64

// Tap copies blocks to a secondary sink on its own goroutine. A slow or
// failing tap drops blocks rather than holding up the main chain.
type Tap struct {
	Name string

	sink      radio.Sink
	blocks    chan []complex64
	done      chan struct{}
	dropped   atomic.Int64
	failed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func NewTap(name string, sink radio.Sink) *Tap {
	t := &Tap{
		Name:   name,
		sink:   sink,
		blocks: make(chan []complex64, tapDepth),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Tap) run() {
	defer close(t.done)
	for block := range t.blocks {
		if t.failed.Load() {
			continue
		}
		if err := t.sink.Write(block); err != nil {
			log.Errorf("Tap %s stopped writing: %v", t.Name, err)
			t.failed.Store(true)
		}
	}
}

// Offer hands a copy of samples to the tap without blocking.
func (t *Tap) Offer(samples []complex64) {
	if len(samples) == 0 {
		return
	}
	block := make([]complex64, len(samples))
	copy(block, samples)
	select {
	case t.blocks <- block:
	default:
		if n := t.dropped.Add(1); n == 1 || n%1000 == 0 {
			log.Debugf("Tap %s is behind, dropped %d blocks", t.Name, n)
		}
	}
}

func (t *Tap) Dropped() int64 {
	return t.dropped.Load()
}

// Close writes out queued blocks and closes the sink.
func (t *Tap) Close() error {
	t.closeOnce.Do(func() {
		close(t.blocks)
		<-t.done
		t.closeErr = t.sink.Close()
	})
	return t.closeErr
}
