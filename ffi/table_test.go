package ffi

import (
	"testing"

	"github.com/wippyai/filehandle"
)

// closeSink records destroys so tests can observe handle lifecycle.
type closeSink struct {
	closes int
}

func (s *closeSink) Write(p []byte) (int, error) { return len(p), nil }
func (s *closeSink) Flush() error                { return nil }
func (s *closeSink) Close() error                { s.closes++; return nil }

func TestHandleTable_InsertGetRemove(t *testing.T) {
	table := NewHandleTable()

	fh := filehandle.ForSink(&closeSink{})
	h := table.Insert(fh)
	if h == 0 {
		t.Fatal("Insert returned the reserved handle 0")
	}

	got, ok := table.Get(h)
	if !ok || got != fh {
		t.Fatal("Get did not return the inserted handle")
	}

	removed, ok := table.Remove(h)
	if !ok || removed != fh {
		t.Fatal("Remove did not return the inserted handle")
	}

	if _, ok := table.Get(h); ok {
		t.Error("stale handle still resolves after Remove")
	}
	if _, ok := table.Remove(h); ok {
		t.Error("double Remove succeeded")
	}
}

func TestHandleTable_ZeroHandleInvalid(t *testing.T) {
	table := NewHandleTable()
	table.Insert(filehandle.NewDiscard())

	if _, ok := table.Get(0); ok {
		t.Error("handle 0 resolved")
	}
	if _, ok := table.Remove(0); ok {
		t.Error("handle 0 removable")
	}
}

func TestHandleTable_SlotReuse(t *testing.T) {
	table := NewHandleTable()

	first := table.Insert(filehandle.NewDiscard())
	second := table.Insert(filehandle.NewDiscard())
	table.Remove(first)

	third := table.Insert(filehandle.NewDiscard())
	if third != first {
		t.Errorf("freed slot not reused: got handle %d, want %d", third, first)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
	_ = second
}

func TestHandleTable_OutOfRange(t *testing.T) {
	table := NewHandleTable()
	table.Insert(filehandle.NewDiscard())

	if _, ok := table.Get(99); ok {
		t.Error("out-of-range handle resolved")
	}
}

func TestHandleTable_CloseDestroysRemaining(t *testing.T) {
	table := NewHandleTable()

	sinks := []*closeSink{{}, {}, {}}
	for _, s := range sinks {
		table.Insert(filehandle.ForSink(s))
	}

	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for i, s := range sinks {
		if s.closes != 1 {
			t.Errorf("sink %d destroyed %d times, want 1", i, s.closes)
		}
	}

	if h := table.Insert(filehandle.NewDiscard()); h != 0 {
		t.Error("Insert succeeded on a closed table")
	}
	if err := table.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
