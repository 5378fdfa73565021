package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jrwynneiii/zigtuner/capture"
	"github.com/jrwynneiii/zigtuner/channel"
	"github.com/jrwynneiii/zigtuner/codec"
	"github.com/jrwynneiii/zigtuner/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePipeline plays back frames through the callback and then either
// returns or waits for cancellation.
type fakePipeline struct {
	cb     codec.Callback
	frames []codec.Frame
	block  bool
	runErr error

	mu     sync.Mutex
	closed int
}

func (p *fakePipeline) Run(ctx context.Context) error {
	for _, f := range p.frames {
		if ctx.Err() != nil {
			return nil
		}
		p.cb(f)
	}
	if p.block {
		<-ctx.Done()
	}
	return p.runErr
}

func (p *fakePipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func readCapture(t *testing.T, path string) []capture.Record {
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := capture.ReadAll(bytes.NewReader(data))
	require.NoError(t, err)
	return records
}

func TestReceive_EndToEnd(t *testing.T) {
	freq, err := channel.FrequencyOf(17)
	require.NoError(t, err)
	assert.Equal(t, 2435e6, freq)

	path := filepath.Join(t.TempDir(), "rx.pcap")
	w, err := capture.Create(path)
	require.NoError(t, err)

	st := stats.New()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 250000000, time.UTC)
	sess := NewReceive(ReceiveOptions{Stats: st, Capture: w, Now: func() time.Time { return ts }})

	payload := append([]byte{0x00, 0x2A}, bytes.Repeat([]byte{'X'}, 10)...)
	p := &fakePipeline{frames: []codec.Frame{{OK: true, Payload: payload, Channel: 17}}}
	p.cb = sess.OnFrame

	require.NoError(t, sess.Start(context.Background(), p))
	assert.Equal(t, Running, sess.State())
	require.NoError(t, sess.Wait())
	require.NoError(t, sess.Stop())
	assert.Equal(t, Stopped, sess.State())

	assert.Equal(t, stats.Snapshot{Received: 1, Correct: 1}, st.Snapshot())
	assert.Equal(t, 1, p.closed)

	records := readCapture(t, path)
	require.Len(t, records, 1)
	assert.Equal(t, 17, records[0].Channel)
	assert.Equal(t, payload, records[0].Payload)
	assert.Equal(t, len(payload)+1, records[0].Length)
	assert.True(t, ts.Equal(records[0].Timestamp))
}

func TestReceive_FailedFramesAreCapturedAndCounted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rx.pcap")
	w, err := capture.Create(path)
	require.NoError(t, err)

	sess := NewReceive(ReceiveOptions{Capture: w})
	p := &fakePipeline{frames: []codec.Frame{
		{OK: true, Payload: []byte{0, 1, 7}, Channel: 11},
		{OK: false, Payload: []byte{0xde}, Channel: 11},
		{OK: true, Payload: []byte{0, 3}, Channel: 26},
	}}
	p.cb = sess.OnFrame

	require.NoError(t, sess.Start(context.Background(), p))
	require.NoError(t, sess.Wait())
	require.NoError(t, sess.Stop())

	assert.Equal(t, stats.Snapshot{Received: 3, Correct: 2}, sess.Stats().Snapshot())
	records := readCapture(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, []byte{0xde}, records[1].Payload)
	assert.Equal(t, 26, records[2].Channel)
}

func TestReceive_StopCancelsAndIsTerminal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rx.pcap")
	w, err := capture.Create(path)
	require.NoError(t, err)

	sess := NewReceive(ReceiveOptions{Capture: w})
	p := &fakePipeline{block: true}
	p.cb = sess.OnFrame
	require.NoError(t, sess.Start(context.Background(), p))

	require.NoError(t, sess.Stop())
	require.NoError(t, sess.Stop())
	assert.Equal(t, 1, p.closed)
	assert.Equal(t, Stopped, sess.State())
	assert.ErrorIs(t, sess.Start(context.Background(), p), ErrSessionState)

	// The header must be complete even with no frames.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(capture.GlobalHeaderSize), info.Size())
}

func TestReceive_ParentCancel(t *testing.T) {
	sess := NewReceive(ReceiveOptions{})
	p := &fakePipeline{block: true}
	p.cb = sess.OnFrame

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sess.Start(ctx, p))
	cancel()
	assert.NoError(t, sess.Wait())
	assert.NoError(t, sess.Stop())
}

func TestReceive_StartTwice(t *testing.T) {
	sess := NewReceive(ReceiveOptions{})
	p := &fakePipeline{block: true}
	p.cb = sess.OnFrame
	require.NoError(t, sess.Start(context.Background(), p))
	assert.ErrorIs(t, sess.Start(context.Background(), p), ErrSessionState)
	require.NoError(t, sess.Stop())
}

func TestReceive_WaitBeforeStart(t *testing.T) {
	sess := NewReceive(ReceiveOptions{})
	assert.ErrorIs(t, sess.Wait(), ErrSessionState)
	assert.NoError(t, sess.Stop())
	assert.Equal(t, Stopped, sess.State())
}

type failingRecorder struct {
	appends int
	closed  bool
}

func (r *failingRecorder) Append(capture.Frame, time.Time) error {
	r.appends++
	return errors.New("disk full")
}

func (r *failingRecorder) Close() error {
	r.closed = true
	return nil
}

func TestReceive_CaptureErrorEndsSession(t *testing.T) {
	rec := &failingRecorder{}
	sess := NewReceive(ReceiveOptions{Capture: rec})
	p := &fakePipeline{block: true, frames: []codec.Frame{{OK: true, Payload: []byte{0, 1}, Channel: 15}}}
	p.cb = sess.OnFrame

	require.NoError(t, sess.Start(context.Background(), p))

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCapture)
	case <-time.After(5 * time.Second):
		t.Fatal("session kept running after a capture failure")
	}

	assert.ErrorIs(t, sess.Stop(), ErrCapture)
	assert.True(t, rec.closed)
	assert.Equal(t, 1, rec.appends)
	assert.Equal(t, stats.Snapshot{Received: 1, Correct: 1}, sess.Stats().Snapshot())
}

func TestReceive_RunError(t *testing.T) {
	boom := errors.New("device unplugged")
	sess := NewReceive(ReceiveOptions{})
	p := &fakePipeline{runErr: boom}
	p.cb = sess.OnFrame

	require.NoError(t, sess.Start(context.Background(), p))
	assert.ErrorIs(t, sess.Wait(), boom)
	assert.ErrorIs(t, sess.Stop(), boom)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestReceive_DoneClosesOnCaptureError(t *testing.T) {
	sess := NewReceive(ReceiveOptions{Capture: &failingRecorder{}})
	p := &fakePipeline{block: true, frames: []codec.Frame{{OK: true, Payload: []byte{0, 1}, Channel: 15}}}
	p.cb = sess.OnFrame

	require.NoError(t, sess.Start(context.Background(), p))
	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done stayed open after a capture failure")
	}
	assert.ErrorIs(t, sess.Stop(), ErrCapture)
}

func TestReceive_DoneClosesAtEndOfInput(t *testing.T) {
	sess := NewReceive(ReceiveOptions{})
	p := &fakePipeline{frames: []codec.Frame{{OK: true, Payload: []byte{0, 1}, Channel: 15}}}
	p.cb = sess.OnFrame

	require.NoError(t, sess.Start(context.Background(), p))
	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done stayed open after the pipeline returned")
	}
	assert.Equal(t, Running, sess.State())
	assert.NoError(t, sess.Stop())
}

func TestReceive_ContextFollowsSession(t *testing.T) {
	sess := NewReceive(ReceiveOptions{Capture: &failingRecorder{}})
	p := &fakePipeline{block: true, frames: []codec.Frame{{OK: true, Payload: []byte{0, 1}, Channel: 15}}}
	p.cb = sess.OnFrame

	ctx, cancel := sess.Context(context.Background())
	defer cancel()
	require.NoError(t, sess.Start(context.Background(), p))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context outlived a session ended by a capture failure")
	}
	assert.ErrorIs(t, sess.Stop(), ErrCapture)
}

func TestReceive_ContextFollowsParent(t *testing.T) {
	sess := NewReceive(ReceiveOptions{})
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := sess.Context(parent)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context ignored its parent")
	}
	assert.Equal(t, Idle, sess.State())
}
