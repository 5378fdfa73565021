package radio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Sample files hold interleaved little-endian float32 I/Q pairs.
const bytesPerSample = 8

// FileSource reads samples from a raw I/Q file. Read returns io.EOF once the
// file is exhausted.
type FileSource struct {
	f   *os.File
	r   *bufio.Reader
	raw []byte
}

func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open sample file: %w", err)
	}
	return &FileSource{f: f, r: bufio.NewReaderSize(f, 1<<16)}, nil
}

func (s *FileSource) Read(buf []complex64) (int, error) {
	need := len(buf) * bytesPerSample
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	n, err := io.ReadFull(s.r, raw)
	samples := n / bytesPerSample
	for i := 0; i < samples; i++ {
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*8+4:]))
		buf[i] = complex(re, im)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		// A trailing partial sample is dropped.
		err = nil
		if samples == 0 {
			err = io.EOF
		}
	}
	return samples, err
}

func (s *FileSource) Close() error {
	return s.f.Close()
}

// FileSink writes samples to a raw I/Q file, truncating it on open.
type FileSink struct {
	f   *os.File
	w   *bufio.Writer
	raw []byte
}

func CreateFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create sample file: %w", err)
	}
	return &FileSink{f: f, w: bufio.NewWriterSize(f, 1<<16)}, nil
}

func (s *FileSink) Write(samples []complex64) error {
	need := len(samples) * bytesPerSample
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(raw[i*8:], math.Float32bits(real(sample)))
		binary.LittleEndian.PutUint32(raw[i*8+4:], math.Float32bits(imag(sample)))
	}
	_, err := s.w.Write(raw)
	return err
}

func (s *FileSink) Close() error {
	flushErr := s.w.Flush()
	closeErr := s.f.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
