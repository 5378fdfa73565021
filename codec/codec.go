// Package codec defines the boundary to the packet codec: the component that
// turns complex baseband samples into 802.15.4 frames and back.
//
// The real O-QPSK codec lives outside this repository and plugs in through
// Register. The built-in "nrz" codec exists so the pipeline can be exercised
// end to end against recorded sample files.
package codec

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jrwynneiii/zigtuner/link"
)

// Frame is one decoded frame. Payload is only valid for the duration of the
// callback it is delivered to.
type Frame struct {
	OK      bool
	Payload []byte
	Channel int
}

// Callback receives decoded frames in decode order, one at a time.
type Callback func(Frame)

type Options struct {
	SamplesPerSymbol int
	Channel          int
	// Threshold tunes the codec's sync detector; -1 selects its default.
	Threshold int
}

// Demodulator consumes samples and invokes its callback for every frame found.
type Demodulator interface {
	Work(samples []complex64)
}

// Modulator turns a frame into samples. The end-of-stream frame yields no samples.
type Modulator interface {
	Modulate(frame link.TxFrame) ([]complex64, error)
}

type Codec interface {
	NewDemodulator(opts Options, cb Callback) (Demodulator, error)
	NewModulator(opts Options) (Modulator, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Codec{}
)

// Register makes a codec available by name. Registering a name twice panics.
func Register(name string, c Codec) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("codec: Register called twice for " + name)
	}
	registry[name] = c
}

func Lookup(name string) (Codec, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown codec %q (available: %v)", name, namesLocked())
	}
	return c, nil
}

func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return namesLocked()
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
