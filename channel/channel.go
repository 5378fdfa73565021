// Package channel holds the IEEE 802.15.4 2.4 GHz channel table.
package channel

import (
	"errors"
	"fmt"
)

var ErrInvalidChannel = errors.New("invalid 802.15.4 channel")

const (
	First = 11
	Last  = 26

	// Spacing between adjacent channels in the 2.4 GHz band.
	Spacing = 5e6
)

var table = map[int]float64{
	11: 2405e6,
	12: 2410e6,
	13: 2415e6,
	14: 2420e6,
	15: 2425e6,
	16: 2430e6,
	17: 2435e6,
	18: 2440e6,
	19: 2445e6,
	20: 2450e6,
	21: 2455e6,
	22: 2460e6,
	23: 2465e6,
	24: 2470e6,
	25: 2475e6,
	26: 2480e6,
}

// FrequencyOf returns the center frequency in Hz of the given channel.
func FrequencyOf(ch int) (float64, error) {
	freq, ok := table[ch]
	if !ok {
		return 0, fmt.Errorf("%w: %d (valid channels are %d-%d)", ErrInvalidChannel, ch, First, Last)
	}
	return freq, nil
}

// All returns every channel in the table in ascending order.
func All() []int {
	chans := make([]int, 0, len(table))
	for ch := First; ch <= Last; ch++ {
		chans = append(chans, ch)
	}
	return chans
}

// Valid reports whether ch is in the table.
func Valid(ch int) bool {
	_, ok := table[ch]
	return ok
}
