package abi

import (
	"bytes"
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	derrors "github.com/seal-runtime/seal-abi/domain/errors"
)

// Call is the context of one invocation of a table field by a plugin.
type Call struct {
	ctx   context.Context
	env   *Env
	guest Guest
	field string
}

// NewCall prepares the context for a call of field by plugin g. Transport
// adapters create one per invocation.
func (e *Env) NewCall(ctx context.Context, g Guest, field string) *Call {
	if ctx == nil {
		ctx = e.ctx
	}
	return &Call{ctx: ctx, env: e, guest: g, field: field}
}

// Context returns the context the field was invoked with.
func (c *Call) Context() context.Context { return c.ctx }

// Env returns the Env the field runs against.
func (c *Call) Env() *Env { return c.env }

// Guest returns the calling plugin, which may be nil for host-side callers.
func (c *Call) Guest() Guest { return c.guest }

// Field returns the name of the invoked field.
func (c *Call) Field() string { return c.field }

// Fail raises err as a structured VM error on the thread running the
// innermost native frame. It does not return. Outside any native frame it
// panics with err so the transport reports it to its caller.
func (c *Call) Fail(err error) {
	f := c.env.current()
	if f == nil {
		panic(err)
	}
	c.env.RaiseError(f.t.L, err)
}

func (c *Call) contract(format string, args ...any) {
	c.Fail(&derrors.ContractError{Op: c.field, Reason: fmt.Sprintf(format, args...)})
}

func (c *Call) conversion(err error) {
	c.Fail(&derrors.ConversionError{Op: c.field, Err: err})
}

// state resolves a handle argument.
func (c *Call) state(raw uint64) *thread {
	s := State(api.DecodeU32(raw))
	if s == 0 {
		c.contract("null state handle")
	}
	t, ok := c.env.thread(s)
	if !ok {
		c.contract("invalid state handle %d", s)
	}
	if t.L.IsClosed() {
		c.contract("state handle %d refers to a closed state", s)
	}
	return t
}

func (c *Call) memory() Memory {
	if c.guest == nil {
		c.contract("no plugin memory available")
	}
	m := c.guest.Memory()
	if m == nil {
		c.contract("plugin %s exports no memory", c.guest.Name())
	}
	return m
}

// bytes copies n bytes at ptr out of plugin memory.
func (c *Call) bytes(ptr, n uint32) []byte {
	if n == 0 {
		return []byte{}
	}
	if ptr == 0 {
		c.contract("null pointer with length %d", n)
	}
	b, ok := c.memory().Read(ptr, n)
	if !ok {
		c.contract("range [%d, %d) outside plugin memory", ptr, uint64(ptr)+uint64(n))
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// cstring reads a NUL-terminated string. ok is false for a null pointer.
func (c *Call) cstring(ptr uint32) (s string, ok bool) {
	if ptr == 0 {
		return "", false
	}
	m := c.memory()
	size := m.Size()
	if ptr >= size {
		c.contract("string pointer %d outside plugin memory", ptr)
	}
	n := min(size-ptr, c.env.cfg.maxCString)
	b, _ := m.Read(ptr, n)
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		c.conversion(fmt.Errorf("string at %d not terminated within %d bytes", ptr, n))
	}
	return string(b[:i]), true
}

// name reads a required C string argument.
func (c *Call) name(ptr uint32) string {
	s, ok := c.cstring(ptr)
	if !ok {
		c.contract("null string argument")
	}
	return s
}

// store writes a 32-bit value through an optional out pointer.
func (c *Call) store(ptr, v uint32) {
	if ptr == 0 {
		return
	}
	if !c.memory().WriteUint32Le(ptr, v) {
		c.contract("out pointer %d outside plugin memory", ptr)
	}
}

func (c *Call) write(ptr uint32, b []byte) {
	if len(b) == 0 {
		return
	}
	if ptr == 0 || !c.memory().Write(ptr, b) {
		c.contract("range [%d, %d) outside plugin memory", ptr, uint64(ptr)+uint64(len(b)))
	}
}

// export copies s into scratch memory, NUL-terminated, and returns its
// address. Scratch memory lives until the innermost native frame returns.
func (c *Call) export(s string) uint32 {
	if c.guest == nil {
		c.contract("no plugin memory available")
	}
	size := uint32(len(s) + 1) //nolint:gosec // strings handed to plugins are bounded by plugin memory
	ptr, err := c.guest.Allocate(c.ctx, size)
	if err != nil {
		c.Fail(fmt.Errorf("%s: allocate %d bytes: %w", c.field, size, err))
	}
	buf := make([]byte, size)
	copy(buf, s)
	if !c.memory().Write(ptr, buf) {
		c.contract("allocator returned %d outside plugin memory", ptr)
	}
	c.env.track(block{guest: c.guest, ptr: ptr, size: size})
	return ptr
}

// exportLen exports s and stores its length through lenPtr.
func (c *Call) exportLen(s string, lenPtr uint32) uint32 {
	ptr := c.export(s)
	c.store(lenPtr, uint32(len(s))) //nolint:gosec // bounded by plugin memory
	return ptr
}

// frameName returns the debug name checked operations report.
func (c *Call) frameName() string {
	return c.env.FunctionName()
}

func u32(raw uint64) uint32   { return api.DecodeU32(raw) }
func i32v(raw uint64) int32   { return api.DecodeI32(raw) }
func f64v(raw uint64) float64 { return api.DecodeF64(raw) }

func retU32(stack []uint64, v uint32)  { stack[0] = api.EncodeU32(v) }
func retI32(stack []uint64, v int32)   { stack[0] = api.EncodeI32(v) }
func retI64(stack []uint64, v int64)   { stack[0] = api.EncodeI64(v) }
func retF64(stack []uint64, v float64) { stack[0] = api.EncodeF64(v) }
func retBool(stack []uint64, v bool) {
	if v {
		stack[0] = 1
	} else {
		stack[0] = 0
	}
}
