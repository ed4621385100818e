package abi

import "context"

// Memory is the plugin's linear memory as seen by the host.
// wazero's api.Memory satisfies it.
type Memory interface {
	Size() uint32
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	ReadUint32Le(offset uint32) (uint32, bool)
	WriteUint32Le(offset, v uint32) bool
}

// Guest is the plugin side of the boundary: one instantiated plugin library.
// The host keeps a Guest alive for as long as any function it registered may
// still be called.
type Guest interface {
	// Name identifies the plugin in errors and logs.
	Name() string

	// Memory returns the plugin's linear memory, or nil if it has none.
	Memory() Memory

	// Allocate reserves size bytes in plugin memory.
	Allocate(ctx context.Context, size uint32) (uint32, error)

	// Free releases memory obtained from Allocate.
	Free(ctx context.Context, ptr, size uint32) error

	// Invoke calls the plugin function identified by fn with handle L and
	// returns the number of results it pushed.
	Invoke(ctx context.Context, fn uint32, L State) (int32, error)

	// CallExport calls an exported (state) -> count function by name. It is
	// used for entry points.
	CallExport(ctx context.Context, symbol string, L State) (int32, error)
}

// PackPtrLen packs a pointer and length into a single uint64.
// Pointer is stored in the high 32 bits, length in the low 32 bits.
func PackPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// UnpackPtrLen unpacks a pointer and length from a packed uint64.
func UnpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed) //nolint:gosec // G115: packed format stores 32-bit values
}
