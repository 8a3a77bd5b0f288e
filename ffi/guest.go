package ffi

import (
	"context"
	"math"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/filehandle/errors"
)

// guest bundles everything the host needs from one guest module: its
// linear memory, its allocator, and the three dispatch trampolines.
type guest struct {
	ctx     context.Context
	mem     memory
	alloc   guestFunc
	write   guestFunc
	flush   guestFunc
	destroy guestFunc
}

// resolveGuest looks up the guest exports once, at builder time.
func resolveGuest(ctx context.Context, mod api.Module) (*guest, error) {
	g := &guest{ctx: ctx, mem: mod.Memory()}
	if g.mem == nil {
		return nil, errors.NotFound("guest export", "memory")
	}

	for _, spec := range []struct {
		name string
		dst  *guestFunc
	}{
		{CabiRealloc, &g.alloc},
		{DispatchWrite, &g.write},
		{DispatchFlush, &g.flush},
		{DispatchDestroy, &g.destroy},
	} {
		fn := mod.ExportedFunction(spec.name)
		if fn == nil {
			return nil, errors.NotFound("guest export", spec.name)
		}
		*spec.dst = fn
	}
	return g, nil
}

// allocate requests a fresh block from the guest allocator.
func (g *guest) allocate(align, size uint32) (uint32, error) {
	res, err := g.alloc.Call(g.ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.Trap(errors.PhaseBuild, err)
	}
	if len(res) == 0 || uint32(res[0]) == 0 {
		return 0, errors.Allocation(uintptr(size), uintptr(align))
	}
	return uint32(res[0]), nil
}

// guestSink adapts a guest-defined payload into a filehandle.Sink. The
// payload lives in guest linear memory; write/flush/destroy are guest
// function-table indices invoked through the dispatch trampolines. Data
// written host-side is staged into a guest scratch block first.
type guestSink struct {
	ctx        context.Context
	g          *guest
	log        *zap.Logger
	payload    uint32
	fwrite     uint32
	fflush     uint32
	fdestroy   uint32
	scratch    uint32
	scratchCap uint32
}

func (s *guestSink) Write(p []byte) (int, error) {
	if len(p) > math.MaxInt32 {
		// Short count; the caller retries with the remainder.
		p = p[:math.MaxInt32]
	}

	ptr, err := s.stage(p)
	if err != nil {
		return 0, err
	}

	res, err := s.g.write.Call(s.ctx,
		uint64(s.fwrite), uint64(s.payload), uint64(ptr), uint64(uint32(len(p))))
	if err != nil {
		return 0, errors.Trap(errors.PhaseWrite, err)
	}
	if len(res) == 0 {
		return 0, errors.InvalidInput(errors.PhaseWrite, "write trampoline returned no result")
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

func (s *guestSink) Flush() error {
	res, err := s.g.flush.Call(s.ctx, uint64(s.fflush), uint64(s.payload))
	if err != nil {
		return errors.Trap(errors.PhaseFlush, err)
	}
	if len(res) == 0 {
		return errors.InvalidInput(errors.PhaseFlush, "flush trampoline returned no result")
	}
	if code := int32(uint32(res[0])); code != 0 {
		if code < 0 {
			code = -code
		}
		return errors.FromErrno(errors.PhaseFlush, errors.KindFlushFailed, int(code))
	}
	return nil
}

// Close runs the guest destroy callback. The payload and scratch blocks
// stay with the guest allocator; destroy releases what the payload owns.
func (s *guestSink) Close() error {
	_, err := s.g.destroy.Call(s.ctx, uint64(s.fdestroy), uint64(s.payload))
	if err != nil {
		return errors.Trap(errors.PhaseDestroy, err)
	}
	s.log.Debug("guest payload destroyed", zap.Uint32("payload", s.payload))
	return nil
}

// stage copies p into guest scratch memory, growing the block
// geometrically through the guest allocator.
func (s *guestSink) stage(p []byte) (uint32, error) {
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

		res, err := s.g.alloc.Call(s.ctx,
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

	if !s.g.mem.Write(s.scratch, p) {
		return 0, errors.InvalidInput(errors.PhaseWrite, "guest scratch out of bounds")
	}
	return s.scratch, nil
}
