package codec

import (
	"testing"

	"github.com/jrwynneiii/zigtuner/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFCS_CheckValue(t *testing.T) {
	assert.Equal(t, uint16(0x2189), fcs([]byte("123456789")))
	assert.Equal(t, uint16(0), fcs(nil))
}

type collector struct {
	frames []Frame
}

func (c *collector) callback(f Frame) {
	f.Payload = append([]byte(nil), f.Payload...)
	c.frames = append(c.frames, f)
}

func newPair(t require.TestingT, sps int) (Modulator, Demodulator, *collector) {
	c := &collector{}
	mod, err := NRZ{}.NewModulator(Options{SamplesPerSymbol: sps, Channel: 17})
	require.NoError(t, err)
	demod, err := NRZ{}.NewDemodulator(Options{SamplesPerSymbol: sps, Channel: 17, Threshold: -1}, c.callback)
	require.NoError(t, err)
	return mod, demod, c
}

func TestNRZ_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sps := rapid.IntRange(1, 4).Draw(t, "sps")
		payloads := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, MaxPayload), 1, 5).Draw(t, "payloads")
		chunk := rapid.IntRange(1, 500).Draw(t, "chunk")

		mod, demod, c := newPair(t, sps)

		// Leading silence, then the frames back to back.
		stream := make([]complex64, 37*sps)
		for _, p := range payloads {
			samples, err := mod.Modulate(link.NewDataFrame(p))
			require.NoError(t, err)
			stream = append(stream, samples...)
		}

		for len(stream) > 0 {
			n := min(chunk, len(stream))
			demod.Work(stream[:n])
			stream = stream[n:]
		}

		require.Len(t, c.frames, len(payloads))
		for i, f := range c.frames {
			assert.True(t, f.OK)
			assert.Equal(t, 17, f.Channel)
			if len(payloads[i]) == 0 {
				assert.Empty(t, f.Payload)
			} else {
				assert.Equal(t, payloads[i], f.Payload)
			}
		}
	})
}

func TestNRZ_CorruptedFrame(t *testing.T) {
	mod, demod, c := newPair(t, 2)

	payload, err := link.BuildPayload(7, 20)
	require.NoError(t, err)
	samples, err := mod.Modulate(link.NewDataFrame(payload))
	require.NoError(t, err)

	// Flip one payload bit well past the header.
	bit := (preambleLen + 2 + macHeaderLen + 5) * 8
	for j := 0; j < 2; j++ {
		samples[bit*2+j] = -samples[bit*2+j]
	}
	demod.Work(samples)

	require.Len(t, c.frames, 1)
	assert.False(t, c.frames[0].OK)
	assert.Len(t, c.frames[0].Payload, 20)
}

func TestNRZ_EndOfStream(t *testing.T) {
	mod, _, _ := newPair(t, 2)
	samples, err := mod.Modulate(link.EndOfStream())
	assert.NoError(t, err)
	assert.Empty(t, samples)
}

func TestNRZ_Oversize(t *testing.T) {
	mod, _, _ := newPair(t, 2)
	_, err := mod.Modulate(link.NewDataFrame(make([]byte, MaxPayload+1)))
	assert.Error(t, err)
}

func TestNRZ_SampleCount(t *testing.T) {
	mod, _, _ := newPair(t, 3)
	samples, err := mod.Modulate(link.NewDataFrame(make([]byte, 50)))
	require.NoError(t, err)
	// preamble + SFD + PHR + type + header + payload + FCS
	assert.Len(t, samples, (4+1+1+1+8+50+2)*8*3)
}

func TestNRZ_BadOptions(t *testing.T) {
	_, err := NRZ{}.NewModulator(Options{})
	assert.Error(t, err)
	_, err = NRZ{}.NewDemodulator(Options{SamplesPerSymbol: 2}, nil)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	c, err := Lookup("nrz")
	require.NoError(t, err)
	assert.IsType(t, NRZ{}, c)
	assert.Contains(t, Names(), "nrz")

	_, err = Lookup("oqpsk-but-missing")
	assert.Error(t, err)

	assert.Panics(t, func() { Register("nrz", NRZ{}) })
}
