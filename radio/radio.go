// Package radio defines the sample source and sink boundary to the radio
// front end, plus raw I/Q file implementations of both.
package radio

import "errors"

// ErrHardware marks failures to open, tune or stream from the radio. They are
// never retried.
var ErrHardware = errors.New("radio hardware error")

type Direction int

const (
	RX Direction = iota
	TX
)

func (d Direction) String() string {
	if d == TX {
		return "TX"
	}
	return "RX"
}

// Source yields complex baseband samples.
type Source interface {
	Read(buf []complex64) (int, error)
	Close() error
}

// Sink consumes complex baseband samples.
type Sink interface {
	Write(samples []complex64) error
	Close() error
}
