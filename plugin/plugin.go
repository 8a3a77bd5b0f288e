// Package plugin adapts a WASM guest module into a filehandle.Sink, so a
// guest can supply the whole write/flush/destroy implementation while the
// host treats it like any other handle.
//
// The guest exports:
//
//	fh-write(ptr: i32, len: i32) -> i32  ;; bytes accepted, or -errno
//	fh-flush() -> i32                    ;; 0, or -errno
//	fh-destroy()
//	cabi_realloc(old, old_size, align, new_size: i32) -> i32
//
// Data is staged into guest linear memory through cabi_realloc before each
// write, the same convention the ffi package uses for guest scratch space.
package plugin

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/filehandle"
	"github.com/wippyai/filehandle/errors"
)

// Guest export names.
const (
	ExportWrite   = "fh-write"
	ExportFlush   = "fh-flush"
	ExportDestroy = "fh-destroy"
	ExportRealloc = "cabi_realloc"
)

// module is the slice of api.Module the sink needs; api.Module satisfies it.
type module interface {
	ExportedFunction(name string) api.Function
	Memory() api.Memory
}

type guestFunc interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

type guestMemory interface {
	Write(offset uint32, v []byte) bool
}

// Sink dispatches write/flush/destroy to a guest module's exports. It is
// single-owner and unsynchronized, like every sink.
type Sink struct {
	ctx        context.Context
	mem        guestMemory
	write      guestFunc
	flush      guestFunc
	destroy    guestFunc
	alloc      guestFunc
	scratch    uint32
	scratchCap uint32
}

// NewSink resolves the guest exports. It fails with a not_found error when
// the module is missing one of them.
func NewSink(ctx context.Context, mod module) (*Sink, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.NotFound("guest export", "memory")
	}

	s := &Sink{ctx: ctx, mem: mem}
	for _, spec := range []struct {
		name string
		dst  *guestFunc
	}{
		{ExportWrite, &s.write},
		{ExportFlush, &s.flush},
		{ExportDestroy, &s.destroy},
		{ExportRealloc, &s.alloc},
	} {
		fn := mod.ExportedFunction(spec.name)
		if fn == nil {
			return nil, errors.NotFound("guest export", spec.name)
		}
		*spec.dst = fn
	}
	return s, nil
}

// NewHandle wraps the guest module directly in a handle.
func NewHandle(ctx context.Context, mod module) (*filehandle.FileHandle, error) {
	s, err := NewSink(ctx, mod)
	if err != nil {
		return nil, err
	}
	return filehandle.ForSink(s), nil
}

func (s *Sink) Write(p []byte) (int, error) {
	if len(p) > math.MaxInt32 {
		// Short count; the caller retries with the remainder.
		p = p[:math.MaxInt32]
	}

	ptr, err := s.stage(p)
	if err != nil {
		return 0, err
	}

	res, err := s.write.Call(s.ctx, uint64(ptr), uint64(uint32(len(p))))
	if err != nil {
		return 0, errors.Trap(errors.PhaseWrite, err)
	}
	if len(res) == 0 {
		return 0, errors.InvalidInput(errors.PhaseWrite, "fh-write returned no result")
	}

	n := int32(uint32(res[0]))
	if n < 0 {
		return 0, errors.FromErrno(errors.PhaseWrite, errors.KindWriteFailed, int(-n))
	}
	if int(n) > len(p) {
		return 0, errors.InvalidInput(errors.PhaseWrite, "guest accepted more bytes than written")
	}
	return int(n), nil
}

func (s *Sink) Flush() error {
	res, err := s.flush.Call(s.ctx)
	if err != nil {
		return errors.Trap(errors.PhaseFlush, err)
	}
	if len(res) == 0 {
		return errors.InvalidInput(errors.PhaseFlush, "fh-flush returned no result")
	}
	if code := int32(uint32(res[0])); code != 0 {
		if code < 0 {
			code = -code
		}
		return errors.FromErrno(errors.PhaseFlush, errors.KindFlushFailed, int(code))
	}
	return nil
}

// Close runs the guest destroy export. Guest memory stays with the guest's
// allocator.
func (s *Sink) Close() error {
	if _, err := s.destroy.Call(s.ctx); err != nil {
		return errors.Trap(errors.PhaseDestroy, err)
	}
	return nil
}

func (s *Sink) stage(p []byte) (uint32, error) {
	need := uint32(len(p))
	if need == 0 {
		return s.scratch, nil
	}

	if need > s.scratchCap {
		newCap := s.scratchCap
		if newCap == 0 {
			newCap = 256
		}
		for newCap < need {
			newCap *= 2
		}

		res, err := s.alloc.Call(s.ctx,
			uint64(s.scratch), uint64(s.scratchCap), 1, uint64(newCap))
		if err != nil {
			return 0, errors.Trap(errors.PhaseWrite, err)
		}
		if len(res) == 0 || uint32(res[0]) == 0 {
			return 0, errors.Allocation(uintptr(need), 1)
		}
		ptr := uint32(res[0])
		s.scratch, s.scratchCap = ptr, newCap
	}

	if !s.mem.Write(s.scratch, p) {
		return 0, errors.InvalidInput(errors.PhaseWrite, "guest scratch out of bounds")
	}
	return s.scratch, nil
}
