// Package abitest provides an in-memory plugin for exercising the ABI table
// from Go tests without a WebAssembly runtime.
//
// A Plugin owns a flat linear memory with a bump allocator and a table of Go
// functions that stand in for compiled plugin code. Plugin code calls table
// fields through Call with raw arguments encoded exactly as a WebAssembly
// caller would pass them.
package abitest

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	lua "github.com/yuin/gopher-lua"

	"github.com/seal-runtime/seal-abi/abi"
)

// Func is plugin code: it receives the plugin and the state handle and
// returns the number of results it pushed.
type Func func(p *Plugin, L abi.State) int32

// DefaultMemorySize is the memory size of plugins built by New.
const DefaultMemorySize = 1 << 20

// Plugin is an in-memory abi.Guest.
type Plugin struct {
	name    string
	env     *abi.Env
	ctx     context.Context
	mem     *Memory
	heap    uint32
	live    map[uint32]uint32
	funcs   []Func
	exports map[string]Func
}

var _ abi.Guest = (*Plugin)(nil)

// New returns a plugin bound to env.
func New(env *abi.Env, name string) *Plugin {
	return &Plugin{
		name:    name,
		env:     env,
		ctx:     context.Background(),
		mem:     NewMemory(DefaultMemorySize),
		heap:    16,
		live:    make(map[uint32]uint32),
		exports: make(map[string]Func),
	}
}

// Name implements abi.Guest.
func (p *Plugin) Name() string { return p.name }

// Memory implements abi.Guest.
func (p *Plugin) Memory() abi.Memory { return p.mem }

// Env returns the Env the plugin calls into.
func (p *Plugin) Env() *abi.Env { return p.env }

// Allocate implements abi.Guest with a bump allocator.
func (p *Plugin) Allocate(_ context.Context, size uint32) (uint32, error) {
	ptr := (p.heap + 7) &^ 7
	if uint64(ptr)+uint64(size) > uint64(p.mem.Size()) {
		return 0, fmt.Errorf("abitest: out of memory allocating %d bytes", size)
	}
	p.heap = ptr + size
	p.live[ptr] = size
	return ptr, nil
}

// Free implements abi.Guest. Freeing an unknown block is an error.
func (p *Plugin) Free(_ context.Context, ptr, size uint32) error {
	got, ok := p.live[ptr]
	if !ok {
		return fmt.Errorf("abitest: free of unallocated pointer %d", ptr)
	}
	if got != size {
		return fmt.Errorf("abitest: free of %d with size %d, allocated %d", ptr, size, got)
	}
	delete(p.live, ptr)
	return nil
}

// Invoke implements abi.Guest.
func (p *Plugin) Invoke(_ context.Context, fn uint32, L abi.State) (int32, error) {
	if int(fn) >= len(p.funcs) {
		return 0, fmt.Errorf("abitest: no function %d", fn)
	}
	return p.funcs[fn](p, L), nil
}

// CallExport implements abi.Guest.
func (p *Plugin) CallExport(_ context.Context, symbol string, L abi.State) (int32, error) {
	fn, ok := p.exports[symbol]
	if !ok {
		return 0, fmt.Errorf("abitest: %s does not export %q", p.name, symbol)
	}
	return fn(p, L), nil
}

// Register adds plugin code and returns its function index, the value passed
// to lua_pushcclosurek.
func (p *Plugin) Register(fn Func) uint32 {
	p.funcs = append(p.funcs, fn)
	return uint32(len(p.funcs) - 1) //nolint:gosec // test plugins are small
}

// Export makes fn callable as symbol, e.g. an entry point.
func (p *Plugin) Export(symbol string, fn Func) {
	p.exports[symbol] = fn
}

// Live returns the number of allocations not yet freed.
func (p *Plugin) Live() int {
	return len(p.live)
}

// Call invokes the table field name with raw arguments and returns the first
// result, or 0 for fields without results. Raised VM errors propagate as
// panics, the way they unwind out of a host function.
func (p *Plugin) Call(name string, args ...uint64) uint64 {
	f, ok := abi.API().Lookup(name)
	if !ok {
		panic(fmt.Sprintf("abitest: no ABI field %q", name))
	}
	if len(args) != len(f.Params) {
		panic(fmt.Sprintf("abitest: %s takes %d arguments, got %d", name, len(f.Params), len(args)))
	}
	stack := make([]uint64, max(len(f.Params), len(f.Results), 1))
	copy(stack, args)
	f.Fn(p.env.NewCall(p.ctx, p, name), stack)
	return stack[0]
}

// Run calls fn as the native function name on the main state in protected
// mode, with args pushed, and returns its results. A raised error is returned
// converted by abi.Error.
func (p *Plugin) Run(name string, fn Func, args ...lua.LValue) ([]lua.LValue, error) {
	L := p.env.Main()
	base := L.GetTop()
	defer L.SetTop(base)

	L.Push(p.env.GuestFunction(L, p, p.Register(fn), name))
	for _, a := range args {
		L.Push(a)
	}
	if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
		return nil, abi.Error(err)
	}
	values := make([]lua.LValue, 0, L.GetTop()-base)
	for i := base + 1; i <= L.GetTop(); i++ {
		values = append(values, L.Get(i))
	}
	return values, nil
}

// CString places s, NUL-terminated, in plugin memory.
func (p *Plugin) CString(s string) uint32 {
	return p.Bytes(append([]byte(s), 0))
}

// Bytes places b in plugin memory.
func (p *Plugin) Bytes(b []byte) uint32 {
	ptr, err := p.Allocate(p.ctx, uint32(max(len(b), 1))) //nolint:gosec // test data is small
	if err != nil {
		panic(err)
	}
	delete(p.live, ptr) // test data is never freed
	p.mem.Write(ptr, b)
	return ptr
}

// Scratch reserves n zeroed bytes for out parameters.
func (p *Plugin) Scratch(n uint32) uint32 {
	return p.Bytes(make([]byte, n))
}

// ReadCString reads a NUL-terminated string.
func (p *Plugin) ReadCString(ptr uint32) string {
	var out []byte
	for i := ptr; i < p.mem.Size(); i++ {
		b, _ := p.mem.Read(i, 1)
		if b[0] == 0 {
			return string(out)
		}
		out = append(out, b[0])
	}
	panic(fmt.Sprintf("abitest: unterminated string at %d", ptr))
}

// ReadBytes copies n bytes at ptr.
func (p *Plugin) ReadBytes(ptr, n uint32) []byte {
	b, ok := p.mem.Read(ptr, n)
	if !ok {
		panic(fmt.Sprintf("abitest: read [%d, %d) out of range", ptr, ptr+n))
	}
	return append([]byte(nil), b...)
}

// ReadU32 reads a 32-bit value.
func (p *Plugin) ReadU32(ptr uint32) uint32 {
	v, ok := p.mem.ReadUint32Le(ptr)
	if !ok {
		panic(fmt.Sprintf("abitest: read at %d out of range", ptr))
	}
	return v
}

// Argument encoders.

func I32(v int32) uint64     { return api.EncodeI32(v) }
func U32(v uint32) uint64    { return api.EncodeU32(v) }
func F64(v float64) uint64   { return api.EncodeF64(v) }
func H(s abi.State) uint64   { return api.EncodeU32(uint32(s)) }
func AsI32(r uint64) int32   { return api.DecodeI32(r) }
func AsF64(r uint64) float64 { return api.DecodeF64(r) }
func AsI64(r uint64) int64   { return int64(r) } //nolint:gosec // raw i64 result

func Bool(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
