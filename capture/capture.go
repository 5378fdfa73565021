// Package capture writes decoded frames to a libpcap file readable by
// Wireshark and friends.
//
// Each record carries the channel number as a one byte prefix ahead of the
// frame payload, so captured length is always len(payload)+1.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const (
	// SnapLen is the snapshot length advertised in the global header.
	SnapLen = 65535

	// LinkType identifies 802.15.4 PHY frames with a channel prefix.
	LinkType = layers.LinkType(221)

	GlobalHeaderSize = 24
	RecordHeaderSize = 16
)

var ErrClosed = errors.New("capture file is closed")

// Frame is the part of a decoded frame that gets recorded.
type Frame struct {
	Channel int
	Payload []byte
}

type flusher interface {
	Flush() error
}

// Writer appends capture records. It is safe for use from one goroutine at a
// time while another goroutine closes it.
type Writer struct {
	mu     sync.Mutex
	out    io.Writer
	closer io.Closer
	pcap   *pcapgo.Writer
	closed bool
	count  int
}

// Create truncates or creates path and writes the global header.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create capture file %s: %w", path, err)
	}
	w, err := newWriter(f, f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not write capture header to %s: %w", path, err)
	}
	return w, nil
}

// NewWriter writes the global header to out and returns a Writer appending to it.
func NewWriter(out io.Writer) (*Writer, error) {
	var c io.Closer
	if wc, ok := out.(io.Closer); ok {
		c = wc
	}
	return newWriter(out, c)
}

func newWriter(out io.Writer, c io.Closer) (*Writer, error) {
	w := &Writer{
		out:    out,
		closer: c,
		pcap:   pcapgo.NewWriter(out),
	}
	if err := w.pcap.WriteFileHeader(SnapLen, LinkType); err != nil {
		return nil, err
	}
	if err := w.flush(); err != nil {
		return nil, err
	}
	return w, nil
}

// Append writes one record stamped with ts and flushes it.
func (w *Writer) Append(frame Frame, ts time.Time) error {
	data := make([]byte, 0, len(frame.Payload)+1)
	data = append(data, byte(frame.Channel))
	data = append(data, frame.Payload...)

	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if err := w.pcap.WritePacket(ci, data); err != nil {
		return fmt.Errorf("could not write capture record: %w", err)
	}
	if err := w.flush(); err != nil {
		return fmt.Errorf("could not flush capture record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the underlying file. Calling it again is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (w *Writer) flush() error {
	if f, ok := w.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Record is one record read back from a capture.
type Record struct {
	Timestamp time.Time
	Channel   int
	Payload   []byte
	Length    int
}

// ReadAll reads every record from a capture written by Writer.
func ReadAll(r io.Reader) ([]Record, error) {
	pr, err := pcapgo.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not read capture header: %w", err)
	}
	if pr.LinkType() != LinkType {
		return nil, fmt.Errorf("unexpected link type %d, want %d", pr.LinkType(), LinkType)
	}

	var records []Record
	for {
		data, ci, err := pr.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("could not read capture record %d: %w", len(records), err)
		}
		if len(data) < 1 {
			return records, fmt.Errorf("capture record %d is missing its channel byte", len(records))
		}
		records = append(records, Record{
			Timestamp: ci.Timestamp,
			Channel:   int(data[0]),
			Payload:   data[1:],
			Length:    ci.CaptureLength,
		})
	}
}
