//go:build wasip1

package guest

import (
	"runtime"
	"unsafe"
)

//go:wasmexport allocate
func allocate(size uint32) uint32 {
	return pins.alloc(size)
}

//go:wasmexport deallocate
func deallocate(ptr, size uint32) {
	pins.free(ptr, size)
}

// bytesAddr is the linear-memory address of b's first byte.
func bytesAddr(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.SliceData(b)))) //nolint:gosec // wasm32 addresses
}

func stringAddr(s string) uint32 {
	if len(s) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s)))) //nolint:gosec // wasm32 addresses
}

// readBytes copies n bytes of linear memory starting at ptr.
func readBytes(ptr, n uint32) []byte {
	if ptr == 0 || n == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), n) //nolint:gosec // host-supplied wasm32 address
	out := make([]byte, n)
	copy(out, src)
	return out
}

// lenSlot receives the length written by lua_tolstring and friends.
var lenSlot uint32

func lenAddr() uint32 {
	return uint32(uintptr(unsafe.Pointer(&lenSlot))) //nolint:gosec // wasm32 addresses
}

func loadLen() uint32 {
	return lenSlot
}

// keep makes sure v stays reachable across a host call that reads it.
func keep(v any) {
	runtime.KeepAlive(v)
}
