package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFrequencyOf_Known(t *testing.T) {
	freq, err := FrequencyOf(17)
	require.NoError(t, err)
	assert.Equal(t, 2435e6, freq)

	freq, err = FrequencyOf(11)
	require.NoError(t, err)
	assert.Equal(t, 2405e6, freq)

	freq, err = FrequencyOf(26)
	require.NoError(t, err)
	assert.Equal(t, 2480e6, freq)
}

func TestFrequencyOf_Spacing(t *testing.T) {
	for _, ch := range All() {
		freq, err := FrequencyOf(ch)
		require.NoError(t, err)
		assert.Equal(t, 2405e6+Spacing*float64(ch-First), freq, "channel %d", ch)
	}
}

func TestAll(t *testing.T) {
	chans := All()
	assert.Len(t, chans, 16)
	assert.Equal(t, First, chans[0])
	assert.Equal(t, Last, chans[len(chans)-1])
}

func TestFrequencyOf_Valid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ch := rapid.IntRange(First, Last).Draw(t, "ch")

		a, errA := FrequencyOf(ch)
		b, errB := FrequencyOf(ch)

		assert.NoError(t, errA)
		assert.NoError(t, errB)
		assert.Equal(t, a, b)
		assert.True(t, Valid(ch))
	})
}

func TestFrequencyOf_Invalid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ch := rapid.OneOf(rapid.IntMax(First-1), rapid.IntMin(Last+1)).Draw(t, "ch")

		freq, err := FrequencyOf(ch)

		assert.ErrorIs(t, err, ErrInvalidChannel)
		assert.Zero(t, freq)
		assert.False(t, Valid(ch))
	})
}
