package plugin

import (
	"bytes"
	"context"
	stderrors "errors"
	"syscall"
	"testing"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/filehandle/errors"
)

// fakeFn satisfies api.Function for the methods the sink calls.
type fakeFn struct {
	api.Function
	call func(params ...uint64) ([]uint64, error)
}

func (f *fakeFn) Call(_ context.Context, params ...uint64) ([]uint64, error) {
	return f.call(params...)
}

// fakeMem satisfies api.Memory for the methods the sink calls.
type fakeMem struct {
	api.Memory
	data []byte
}

func (m *fakeMem) Write(offset uint32, v []byte) bool {
	end := uint64(offset) + uint64(len(v))
	if end > uint64(len(m.data)) {
		return false
	}
	copy(m.data[offset:end], v)
	return true
}

// fakeModule simulates a guest with a bump allocator and a byte-recording
// write export.
type fakeModule struct {
	mem      *fakeMem
	next     uint32
	written  bytes.Buffer
	flushes  int
	destroys int
	allocs   int

	missing  map[string]bool
	writeRet *int32 // overrides the fh-write return when set
	flushRet int32
}

func newFakeModule() *fakeModule {
	return &fakeModule{
		mem:  &fakeMem{data: make([]byte, 1<<16)},
		next: 1024,
	}
}

func (m *fakeModule) Memory() api.Memory { return m.mem }

func (m *fakeModule) ExportedFunction(name string) api.Function {
	if m.missing[name] {
		return nil
	}
	switch name {
	case ExportRealloc:
		return &fakeFn{call: func(params ...uint64) ([]uint64, error) {
			m.allocs++
			size := uint32(params[3])
			ptr := m.next
			m.next += size
			return []uint64{uint64(ptr)}, nil
		}}
	case ExportWrite:
		return &fakeFn{call: func(params ...uint64) ([]uint64, error) {
			if m.writeRet != nil {
				return []uint64{uint64(uint32(*m.writeRet))}, nil
			}
			ptr, n := uint32(params[0]), uint32(params[1])
			m.written.Write(m.mem.data[ptr : ptr+n])
			return []uint64{params[1]}, nil
		}}
	case ExportFlush:
		return &fakeFn{call: func(...uint64) ([]uint64, error) {
			m.flushes++
			return []uint64{uint64(uint32(m.flushRet))}, nil
		}}
	case ExportDestroy:
		return &fakeFn{call: func(...uint64) ([]uint64, error) {
			m.destroys++
			return nil, nil
		}}
	}
	return nil
}

func TestNewSink_MissingExport(t *testing.T) {
	for _, name := range []string{ExportWrite, ExportFlush, ExportDestroy, ExportRealloc} {
		t.Run(name, func(t *testing.T) {
			mod := newFakeModule()
			mod.missing = map[string]bool{name: true}

			if _, err := NewSink(context.Background(), mod); !stderrors.Is(err, errors.NotFound("", "")) {
				t.Errorf("error = %v, want not_found", err)
			}
		})
	}
}

func TestSink_WriteRoutesToGuest(t *testing.T) {
	mod := newFakeModule()
	s, err := NewSink(context.Background(), mod)
	if err != nil {
		t.Fatalf("NewSink: %v", err)
	}

	n, err := s.Write([]byte("Hello, World\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != 13 {
		t.Errorf("Write = %d, want 13", n)
	}
	if got := mod.written.String(); got != "Hello, World\n" {
		t.Errorf("guest saw %q", got)
	}
}

func TestSink_ScratchReuse(t *testing.T) {
	mod := newFakeModule()
	s, _ := NewSink(context.Background(), mod)

	s.Write(make([]byte, 100))
	s.Write(make([]byte, 200)) // fits the 256-byte scratch block

	if mod.allocs != 1 {
		t.Errorf("allocator ran %d times, want 1 (scratch reused)", mod.allocs)
	}

	s.Write(make([]byte, 1000)) // forces growth
	if mod.allocs != 2 {
		t.Errorf("allocator ran %d times after growth, want 2", mod.allocs)
	}
}

func TestSink_GuestErrnoReturns(t *testing.T) {
	mod := newFakeModule()
	ret := -int32(syscall.ENOSPC)
	mod.writeRet = &ret
	mod.flushRet = -int32(syscall.EIO)

	s, _ := NewSink(context.Background(), mod)

	if _, err := s.Write([]byte("x")); errors.OSCode(err) != int(syscall.ENOSPC) {
		t.Errorf("write error carries code %d, want ENOSPC", errors.OSCode(err))
	}
	if err := s.Flush(); errors.OSCode(err) != int(syscall.EIO) {
		t.Errorf("flush error carries code %d, want EIO", errors.OSCode(err))
	}
}

func TestNewHandle_DestroyReachesGuestOnce(t *testing.T) {
	mod := newFakeModule()
	h, err := NewHandle(context.Background(), mod)
	if err != nil {
		t.Fatalf("NewHandle: %v", err)
	}

	if _, err := h.Write([]byte("payload")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := h.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if mod.flushes != 1 {
		t.Errorf("guest flushed %d times, want 1", mod.flushes)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	h.Close()

	if mod.destroys != 1 {
		t.Errorf("guest destroy ran %d times, want exactly 1", mod.destroys)
	}
}
