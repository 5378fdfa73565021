// Package link builds the frames handed to the transmit codec and reads back
// the sequence numbers carried by test payloads.
package link

import (
	"encoding/binary"
	"fmt"
)

// FrameTypeData is the frame control byte used for every test transmission.
const FrameTypeData byte = 0xE5

// HeaderSize is the size of the fixed addressing header.
const HeaderSize = 8

// SequenceSize is the size of the big-endian sequence number leading each payload.
const SequenceSize = 2

// Header is the addressing header: destination PAN, destination address,
// source PAN and source address, each a little-endian uint16.
type Header [HeaderSize]byte

// Broadcast is the header used by the transmit test: broadcast PAN and address
// to/from PAN 0x10, address 0x10.
var Broadcast = NewHeader(0xFFFF, 0xFFFF, 0x10, 0x10)

func NewHeader(dstPan, dstAddr, srcPan, srcAddr uint16) Header {
	var h Header
	binary.LittleEndian.PutUint16(h[0:2], dstPan)
	binary.LittleEndian.PutUint16(h[2:4], dstAddr)
	binary.LittleEndian.PutUint16(h[4:6], srcPan)
	binary.LittleEndian.PutUint16(h[6:8], srcAddr)
	return h
}

// TxFrame is one frame queued for transmission. A frame with EOF set carries no
// payload and tells the transmit path that no more frames follow.
type TxFrame struct {
	Type    byte
	Header  Header
	Payload []byte
	EOF     bool
}

// NewDataFrame wraps payload in a broadcast data frame. The payload is copied.
func NewDataFrame(payload []byte) TxFrame {
	return TxFrame{
		Type:    FrameTypeData,
		Header:  Broadcast,
		Payload: append([]byte(nil), payload...),
	}
}

// EndOfStream returns the marker frame sent after the last data frame.
func EndOfStream() TxFrame {
	return TxFrame{
		Type:   FrameTypeData,
		Header: Broadcast,
		EOF:    true,
	}
}

// BuildPayload returns a test payload of size bytes: the sequence number
// pktno&0xFFFF big-endian, then size-2 copies of pktno&0xFF.
func BuildPayload(pktno int, size int) ([]byte, error) {
	if size < SequenceSize {
		return nil, fmt.Errorf("packet size %d is smaller than the %d byte sequence number", size, SequenceSize)
	}
	payload := make([]byte, size)
	binary.BigEndian.PutUint16(payload[:SequenceSize], uint16(pktno&0xFFFF))
	fill := byte(pktno & 0xFF)
	for i := SequenceSize; i < size; i++ {
		payload[i] = fill
	}
	return payload, nil
}

// Sequence returns the sequence number at the start of payload. Only meaningful
// for frames that decoded correctly.
func Sequence(payload []byte) (uint16, bool) {
	if len(payload) < SequenceSize {
		return 0, false
	}
	return binary.BigEndian.Uint16(payload[:SequenceSize]), true
}
