package ffi

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"syscall"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/filehandle"
	"github.com/wippyai/filehandle/errors"
)

// ModuleName is the import namespace guests use.
const ModuleName = "wippy:io/file-handles"

// Guest exports the host resolves when building guest-defined handles.
const (
	CabiRealloc     = "cabi_realloc"
	DispatchWrite   = "__fh_dispatch_write"
	DispatchFlush   = "__fh_dispatch_flush"
	DispatchDestroy = "__fh_dispatch_destroy"
)

// memory is the slice of guest linear memory the host touches.
// api.Memory satisfies it.
type memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
}

// guestFunc is a callable guest export. api.Function satisfies it.
type guestFunc interface {
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the logger. The default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Host) { h.log = log }
}

// Host owns the boundary state: the handle table and the errno-style
// last-error slot. One Host serves one guest instance.
type Host struct {
	table   *HandleTable
	log     *zap.Logger
	lastErr atomic.Int32
}

// NewHost creates a Host with an empty handle table.
func NewHost(opts ...Option) *Host {
	h := &Host{
		table: NewHandleTable(),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Table exposes the handle table, mainly so embedders can pre-insert
// host-constructed handles for a guest to use.
func (h *Host) Table() *HandleTable {
	return h.table
}

// Close destroys every handle the guest left behind.
func (h *Host) Close() error {
	return h.table.Close()
}

// Instantiate registers the host module with the wazero runtime.
func (h *Host) Instantiate(ctx context.Context, rt wazero.Runtime) (api.Module, error) {
	i32 := api.ValueTypeI32
	none := []api.ValueType{}

	b := rt.NewHostModuleBuilder(ModuleName)

	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.newStdoutFn), none, []api.ValueType{i32}).
		Export("new-stdout-file-handle")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.newFromPathFn), []api.ValueType{i32, i32}, []api.ValueType{i32}).
		Export("new-file-handle-from-path")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.newBuilderFn), []api.ValueType{i32, i32, i32, i32, i32, i32}, none).
		Export("new-file-handle-builder")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.writeFn), []api.ValueType{i32, i32, i32}, []api.ValueType{i32}).
		Export("file-handle-write")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.flushFn), []api.ValueType{i32}, []api.ValueType{i32}).
		Export("file-handle-flush")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.destroyFn), []api.ValueType{i32}, none).
		Export("file-handle-destroy")
	b.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.lastErrorFn), none, []api.ValueType{i32}).
		Export("last-error")

	return b.Instantiate(ctx)
}

// Stack adapters. The logic lives in the methods below so it can be
// exercised without a live wazero module.

func (h *Host) newStdoutFn(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = uint64(h.table.Insert(filehandle.NewStdout()))
}

func (h *Host) newFromPathFn(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = uint64(h.openPath(mod.Memory(), uint32(stack[0]), uint32(stack[1])))
}

func (h *Host) newBuilderFn(ctx context.Context, mod api.Module, stack []uint64) {
	size, align := uint32(stack[0]), uint32(stack[1])
	destroy, write, flush := uint32(stack[2]), uint32(stack[3]), uint32(stack[4])
	retptr := uint32(stack[5])

	var handle Handle
	var place uint32

	g, err := resolveGuest(ctx, mod)
	if err != nil {
		h.fail(err, syscall.ENOSYS)
	} else {
		handle, place = h.buildGuest(g, size, align, destroy, write, flush)
	}

	var out [8]byte
	binary.LittleEndian.PutUint32(out[:4], uint32(handle))
	binary.LittleEndian.PutUint32(out[4:], place)
	if !mod.Memory().Write(retptr, out[:]) {
		h.fail(errors.InvalidInput(errors.PhaseBuild, "builder return area out of bounds"), syscall.EFAULT)
	}
}

func (h *Host) writeFn(_ context.Context, mod api.Module, stack []uint64) {
	ret := h.writeTo(mod.Memory(), Handle(uint32(stack[0])), uint32(stack[1]), int32(uint32(stack[2])))
	stack[0] = uint64(uint32(ret))
}

func (h *Host) flushFn(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = uint64(uint32(h.flushOf(Handle(uint32(stack[0])))))
}

func (h *Host) destroyFn(_ context.Context, _ api.Module, stack []uint64) {
	h.destroyOf(Handle(uint32(stack[0])))
}

func (h *Host) lastErrorFn(_ context.Context, _ api.Module, stack []uint64) {
	stack[0] = uint64(uint32(h.lastErr.Load()))
}

// openPath constructs a path-backed handle from a guest string.
// Returns 0 on failure with the OS code retrievable via last-error.
func (h *Host) openPath(mem memory, ptr, length uint32) Handle {
	raw, ok := mem.Read(ptr, length)
	if !ok {
		h.fail(errors.InvalidInput(errors.PhaseOpen, "path out of bounds"), syscall.EFAULT)
		return 0
	}

	fh, err := filehandle.NewPath(string(raw))
	if err != nil {
		h.fail(err, syscall.EIO)
		return 0
	}

	handle := h.table.Insert(fh)
	if handle == 0 {
		fh.Close()
		h.fail(errors.InvalidInput(errors.PhaseOpen, "handle table closed"), syscall.EBADF)
	}
	return handle
}

// writeTo delivers length bytes at ptr to the handle. Returns bytes
// accepted, or the negated platform code on failure.
func (h *Host) writeTo(mem memory, handle Handle, ptr uint32, length int32) int32 {
	if length < 0 {
		return -h.fail(errors.InvalidInput(errors.PhaseWrite, "negative length"), syscall.EINVAL)
	}

	fh, ok := h.table.Get(handle)
	if !ok {
		return -h.fail(errors.Closed(errors.PhaseWrite), syscall.EBADF)
	}

	data, ok := mem.Read(ptr, uint32(length))
	if !ok {
		return -h.fail(errors.InvalidInput(errors.PhaseWrite, "data out of bounds"), syscall.EFAULT)
	}

	n, err := fh.Write(data)
	if err != nil {
		return -h.fail(err, syscall.EIO)
	}
	return int32(n)
}

// flushOf returns 0 on success or the negated platform code.
func (h *Host) flushOf(handle Handle) int32 {
	fh, ok := h.table.Get(handle)
	if !ok {
		return -h.fail(errors.Closed(errors.PhaseFlush), syscall.EBADF)
	}
	if err := fh.Flush(); err != nil {
		return -h.fail(err, syscall.EIO)
	}
	return 0
}

// destroyOf is terminal for the handle; the slot is recycled. Destroy
// errors are logged, not reported, matching the void boundary signature.
func (h *Host) destroyOf(handle Handle) {
	fh, ok := h.table.Remove(handle)
	if !ok {
		h.fail(errors.Closed(errors.PhaseDestroy), syscall.EBADF)
		return
	}
	if err := fh.Close(); err != nil {
		h.fail(err, syscall.EIO)
	}
}

// buildGuest allocates the payload block in guest memory and wires a
// handle whose dispatch calls back into the guest. Returns (0, 0) on
// failure; construction is atomic.
func (h *Host) buildGuest(g *guest, size, align uint32, destroy, write, flush uint32) (Handle, uint32) {
	if size == 0 {
		h.fail(errors.InvalidInput(errors.PhaseBuild, "payload size must be positive"), syscall.EINVAL)
		return 0, 0
	}
	if align == 0 || align&(align-1) != 0 {
		h.fail(errors.InvalidInput(errors.PhaseBuild, "alignment must be a power of two"), syscall.EINVAL)
		return 0, 0
	}

	place, err := g.allocate(align, size)
	if err != nil {
		h.fail(err, syscall.ENOMEM)
		return 0, 0
	}

	sink := &guestSink{
		ctx:      g.ctx,
		g:        g,
		log:      h.log,
		payload:  place,
		fwrite:   write,
		fflush:   flush,
		fdestroy: destroy,
	}

	handle := h.table.Insert(filehandle.ForSink(sink))
	if handle == 0 {
		h.fail(errors.InvalidInput(errors.PhaseBuild, "handle table closed"), syscall.EBADF)
		return 0, 0
	}

	h.log.Debug("guest handle built",
		zap.Uint32("handle", uint32(handle)),
		zap.Uint32("place", place),
		zap.Uint32("size", size),
		zap.Uint32("align", align))

	return handle, place
}

// fail records the platform code for last-error and returns it (positive).
// When the error chain carries no OS code, fallback is used.
func (h *Host) fail(err error, fallback syscall.Errno) int32 {
	code := errors.OSCode(err)
	if code == 0 {
		code = int(fallback)
	}
	h.lastErr.Store(int32(code))
	h.log.Debug("file-handle operation failed", zap.Int("errno", code), zap.Error(err))
	return int32(code)
}
