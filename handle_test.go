package filehandle

import (
	"bytes"
	stderrors "errors"
	"io"
	"testing"

	"github.com/wippyai/filehandle/errors"
)

// memSink is the test double used across the package: an in-memory sink
// that records flushes and closes and can be made to fail or short-write.
type memSink struct {
	buf        bytes.Buffer
	writeErr   error
	maxPerCall int // cap on bytes accepted per Write, 0 = unlimited
	flushes    int
	closes     int
}

func (s *memSink) Write(p []byte) (int, error) {
	if s.writeErr != nil {
		return 0, s.writeErr
	}
	if s.maxPerCall > 0 && len(p) > s.maxPerCall {
		p = p[:s.maxPerCall]
	}
	return s.buf.Write(p)
}

func (s *memSink) Flush() error {
	s.flushes++
	return nil
}

func (s *memSink) Close() error {
	s.closes++
	return nil
}

func TestFileHandle_WriteFlushClose(t *testing.T) {
	sink := &memSink{}
	h := ForSink(sink)

	n, err := h.Write([]byte("Hello, World\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 13 {
		t.Errorf("Write accepted %d bytes, want 13", n)
	}

	if err := h.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if sink.flushes != 1 {
		t.Errorf("sink saw %d flushes, want 1", sink.flushes)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if sink.closes != 1 {
		t.Errorf("sink saw %d closes, want 1", sink.closes)
	}
	if got := sink.buf.String(); got != "Hello, World\n" {
		t.Errorf("sink holds %q, want %q", got, "Hello, World\n")
	}
}

func TestFileHandle_IsWriteCloser(t *testing.T) {
	var _ io.WriteCloser = ForSink(&memSink{})
}

func TestFileHandle_PartialWritesDeliverAllBytes(t *testing.T) {
	sink := &memSink{maxPerCall: 4}
	h := ForSink(sink)
	defer h.Close()

	msg := []byte("Hello, World\n")
	remaining := msg
	for len(remaining) > 0 {
		n, err := h.Write(remaining)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		if n < 0 || n > len(remaining) {
			t.Fatalf("Write returned %d for %d input bytes", n, len(remaining))
		}
		if n == 0 {
			t.Fatal("Write made no progress")
		}
		remaining = remaining[n:]
	}

	if got := sink.buf.String(); got != string(msg) {
		t.Errorf("bytes lost across partial writes: got %q", got)
	}
}

func TestFileHandle_UseAfterClose(t *testing.T) {
	h := ForSink(&memSink{})
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := h.Write([]byte("x")); !stderrors.Is(err, errors.Closed(errors.PhaseWrite)) {
		t.Errorf("Write after Close = %v, want closed error", err)
	}
	if err := h.Flush(); !stderrors.Is(err, errors.Closed(errors.PhaseFlush)) {
		t.Errorf("Flush after Close = %v, want closed error", err)
	}
	if err := h.Close(); !stderrors.Is(err, errors.Closed(errors.PhaseDestroy)) {
		t.Errorf("second Close = %v, want closed error", err)
	}
}

func TestFileHandle_DoubleCloseRunsDestroyOnce(t *testing.T) {
	sink := &memSink{}
	h := ForSink(sink)

	h.Close()
	h.Close()
	h.Close()

	if sink.closes != 1 {
		t.Errorf("destroy ran %d times, want exactly 1", sink.closes)
	}
}

func TestFileHandle_WriteErrorSurfaces(t *testing.T) {
	sink := &memSink{writeErr: stderrors.New("disk detached")}
	h := ForSink(sink)
	defer h.Close()

	if _, err := h.Write([]byte("x")); err == nil {
		t.Error("expected write error to propagate through dispatch")
	}
}
