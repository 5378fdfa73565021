package codec

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/zigtuner/link"
)

const (
	preambleLen = 4
	sfd         = 0xA7

	// MaxPSDU is the largest PHY payload the length field can describe.
	MaxPSDU = 127

	macHeaderLen = 1 + link.HeaderSize
	fcsLen       = 2

	// MaxPayload is the largest frame payload the nrz codec can carry.
	MaxPayload = MaxPSDU - macHeaderLen - fcsLen

	syncBits = (preambleLen + 1) * 8
)

// Preamble of zero bytes followed by the start-of-frame delimiter, as the
// 40 bit value the receiver's shift register holds once it has seen them.
const syncWord = uint64(sfd) << (preambleLen * 8)

func init() {
	Register("nrz", NRZ{})
}

// NRZ frames PSDUs the 802.15.4 way (preamble, SFD, length, FCS) but sends
// each bit as samples-per-symbol samples of +1 or -1. It is a loopback
// stand-in for file based testing, not an over-the-air PHY.
type NRZ struct{}

func (NRZ) NewModulator(opts Options) (Modulator, error) {
	if opts.SamplesPerSymbol < 1 {
		return nil, fmt.Errorf("samples per symbol must be at least 1, got %d", opts.SamplesPerSymbol)
	}
	return &nrzModulator{sps: opts.SamplesPerSymbol}, nil
}

func (NRZ) NewDemodulator(opts Options, cb Callback) (Demodulator, error) {
	if opts.SamplesPerSymbol < 1 {
		return nil, fmt.Errorf("samples per symbol must be at least 1, got %d", opts.SamplesPerSymbol)
	}
	if cb == nil {
		return nil, fmt.Errorf("nrz demodulator needs a callback")
	}
	maxErrors := 0
	if opts.Threshold > 0 {
		maxErrors = opts.Threshold
	}
	return &nrzDemodulator{
		sps:       opts.SamplesPerSymbol,
		channel:   opts.Channel,
		maxErrors: maxErrors,
		callback:  cb,
	}, nil
}

type nrzModulator struct {
	sps int
}

func (m *nrzModulator) Modulate(frame link.TxFrame) ([]complex64, error) {
	if frame.EOF {
		return nil, nil
	}
	if len(frame.Payload) > MaxPayload {
		return nil, fmt.Errorf("payload of %d bytes exceeds the %d byte maximum", len(frame.Payload), MaxPayload)
	}

	psdu := make([]byte, 0, macHeaderLen+len(frame.Payload)+fcsLen)
	psdu = append(psdu, frame.Type)
	psdu = append(psdu, frame.Header[:]...)
	psdu = append(psdu, frame.Payload...)
	psdu = binary.LittleEndian.AppendUint16(psdu, fcs(psdu))

	ppdu := make([]byte, preambleLen, preambleLen+2+len(psdu))
	ppdu = append(ppdu, sfd, byte(len(psdu)))
	ppdu = append(ppdu, psdu...)

	samples := make([]complex64, 0, len(ppdu)*8*m.sps)
	for _, b := range ppdu {
		for i := 0; i < 8; i++ {
			sym := complex64(-1)
			if (b>>i)&1 == 1 {
				sym = 1
			}
			for j := 0; j < m.sps; j++ {
				samples = append(samples, sym)
			}
		}
	}
	return samples, nil
}

type nrzState int

const (
	huntSync nrzState = iota
	readLength
	readPSDU
)

type nrzDemodulator struct {
	sps       int
	channel   int
	maxErrors int
	callback  Callback

	acc      float32
	accCount int

	state  nrzState
	reg    uint64
	cur    byte
	nbits  int
	length int
	psdu   []byte
}

func (d *nrzDemodulator) Work(samples []complex64) {
	for _, s := range samples {
		d.acc += real(s)
		d.accCount++
		if d.accCount < d.sps {
			continue
		}
		bit := d.acc > 0
		d.acc = 0
		d.accCount = 0
		d.pushBit(bit)
	}
}

func (d *nrzDemodulator) pushBit(bit bool) {
	var b uint64
	if bit {
		b = 1
	}

	switch d.state {
	case huntSync:
		d.reg = (d.reg >> 1) | (b << (syncBits - 1))
		if bits.OnesCount64(d.reg^syncWord) <= d.maxErrors {
			d.state = readLength
			d.cur, d.nbits = 0, 0
		}
	case readLength, readPSDU:
		d.cur |= byte(b) << d.nbits
		d.nbits++
		if d.nbits < 8 {
			return
		}
		d.pushByte(d.cur)
		d.cur, d.nbits = 0, 0
	}
}

func (d *nrzDemodulator) pushByte(v byte) {
	switch d.state {
	case readLength:
		d.length = int(v & 0x7F)
		if d.length < fcsLen {
			log.Debugf("[nrz] dropping frame with length %d", d.length)
			d.reset()
			return
		}
		d.psdu = make([]byte, 0, d.length)
		d.state = readPSDU
	case readPSDU:
		d.psdu = append(d.psdu, v)
		if len(d.psdu) == d.length {
			d.deliver()
			d.reset()
		}
	}
}

func (d *nrzDemodulator) deliver() {
	body := d.psdu[:len(d.psdu)-fcsLen]
	want := binary.LittleEndian.Uint16(d.psdu[len(d.psdu)-fcsLen:])
	ok := fcs(body) == want && len(body) >= macHeaderLen

	payload := body
	if len(body) >= macHeaderLen {
		payload = body[macHeaderLen:]
	}
	d.callback(Frame{OK: ok, Payload: payload, Channel: d.channel})
}

func (d *nrzDemodulator) reset() {
	d.state = huntSync
	d.reg = 0
	d.psdu = nil
	d.length = 0
}
